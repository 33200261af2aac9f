package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Decision is an administrator's verdict on a pending order.
type Decision struct {
	Action  string
	Comment string
	// ShippingCharge is only sent with an approval.
	ShippingCharge *int
}

// OrderService drives the order workflow: placement, status tracking,
// checkout and payment, plus the administrator's approve/reject decision.
type OrderService struct {
	api      OrderAPI
	sessions SessionSource
	events   eventSink
	log      *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	current *models.Order
}

func NewOrderService(api OrderAPI, sessions SessionSource, pub mykafka.Publisher, poll time.Duration, log *slog.Logger) *OrderService {
	l := log.With("component", "order")
	return &OrderService{
		api:      api,
		sessions: sessions,
		events:   eventSink{pub: pub, log: l},
		log:      l,
		interval: poll,
	}
}

func (s *OrderService) token(op string) (string, error) {
	t := s.sessions.Token()
	if t == "" {
		return "", apperr.Auth(op, "not signed in")
	}
	return t, nil
}

func (s *OrderService) username() string {
	if sess := s.sessions.Session(); sess != nil {
		return sess.Username()
	}
	return ""
}

// Current returns a copy of the current order, or nil.
func (s *OrderService) Current() *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// ClearCurrent forgets the current order, e.g. once a rejection or a
// completed payment has been acknowledged.
func (s *OrderService) ClearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Place submits the cart snapshot for approval. The cart itself is left
// untouched.
func (s *OrderService) Place(ctx context.Context, lines []models.CartLine, discountedTotal *decimal.Decimal) (*models.Order, error) {
	const op = "order.place"

	if len(lines) == 0 {
		return nil, apperr.Validation(op, "your cart is empty")
	}
	req := transport.PlaceOrderRequest{
		Items:           make([]transport.PlaceOrderItem, 0, len(lines)),
		DiscountedTotal: discountedTotal,
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		req.Items = append(req.Items, transport.PlaceOrderItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	if len(req.Items) == 0 {
		return nil, apperr.Validation(op, "your cart is empty")
	}
	if discountedTotal != nil && discountedTotal.IsNegative() {
		return nil, apperr.Validation(op, "discounted total cannot be negative",
			apperr.FieldError{Field: "discounted_total", Message: "must not be negative"})
	}

	token, err := s.token(op)
	if err != nil {
		return nil, err
	}

	o, err := s.api.PlaceOrder(ctx, token, req)
	if err != nil {
		s.log.Warn("place_order_failed", "items", len(req.Items), "error", err)
		return nil, err
	}

	s.mu.Lock()
	cp := *o
	s.current = &cp
	s.mu.Unlock()

	s.log.Info("place_order_success", "order_id", o.ID, "total", o.Total.String())
	s.events.emit(ctx, mykafka.TopicOrder, Event{
		Type:     EventOrderPlaced,
		Username: s.username(),
		OrderID:  o.ID,
		Status:   o.Status,
		Details:  map[string]any{"items": len(req.Items), "total": o.Total.String()},
	})
	return o, nil
}

// GetStatus refreshes the current order from the server. A not-found
// response means there is no current order and yields (nil, nil).
func (s *OrderService) GetStatus(ctx context.Context) (*models.Order, error) {
	const op = "order.status"

	token, err := s.token(op)
	if err != nil {
		return nil, err
	}

	o, err := s.api.OrderStatus(ctx, token)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.ClearCurrent()
			return nil, nil
		}
		return nil, err
	}
	if o == nil || o.ID == 0 {
		s.ClearCurrent()
		return nil, nil
	}
	return s.observe(ctx, *o), nil
}

// observe records o as current. A status the current order cannot move to
// is logged and ignored, so a stale read never moves an order backwards.
func (s *OrderService) observe(ctx context.Context, o models.Order) *models.Order {
	s.mu.Lock()
	prev := s.current
	if prev != nil && prev.ID == o.ID && !prev.Status.CanTransition(o.Status) {
		cp := *prev
		s.mu.Unlock()
		s.log.Warn("order_status_regression_ignored", "order_id", o.ID, "from", prev.Status, "to", o.Status)
		return &cp
	}
	cur := o
	s.current = &cur
	s.mu.Unlock()

	if prev != nil && prev.ID == o.ID && prev.Status != o.Status {
		s.log.Info("order_status_changed", "order_id", o.ID, "from", prev.Status, "to", o.Status)
		s.events.emit(ctx, mykafka.TopicOrder, Event{
			Type:     EventOrderStatusChanged,
			Username: s.username(),
			OrderID:  o.ID,
			Status:   o.Status,
			Details:  map[string]any{"from": string(prev.Status)},
		})
	}
	cp := o
	return &cp
}

// requireCurrent checks that orderID is the current order and is in want.
func (s *OrderService) requireCurrent(op string, orderID int64, want models.OrderStatus) (*models.Order, error) {
	cur := s.Current()
	if cur == nil || cur.ID != orderID {
		return nil, apperr.InvalidState(op, fmt.Sprintf("order %d is not your current order", orderID))
	}
	if cur.Status != want {
		return nil, apperr.InvalidState(op, fmt.Sprintf("order %d is %s, it must be %s", orderID, cur.Status, want))
	}
	return cur, nil
}

// ProceedToCheckout confirms the approved order and asks the backend for a
// payment gateway order to pay against.
func (s *OrderService) ProceedToCheckout(ctx context.Context, orderID int64) (*models.PaymentHandle, error) {
	const op = "order.checkout"

	if _, err := s.requireCurrent(op, orderID, models.OrderStatusApproved); err != nil {
		return nil, err
	}
	token, err := s.token(op)
	if err != nil {
		return nil, err
	}

	if _, err := s.api.Checkout(ctx, token, orderID); err != nil {
		s.log.Warn("checkout_failed", "order_id", orderID, "error", err)
		return nil, err
	}
	h, err := s.api.CreatePaymentOrder(ctx, token, orderID)
	if err != nil {
		s.log.Warn("payment_order_failed", "order_id", orderID, "error", err)
		return nil, err
	}

	s.log.Info("checkout_ready", "order_id", orderID, "gateway_order_id", h.GatewayOrderID, "amount", h.Amount)
	return h, nil
}

// CompletePayment reports an external payment confirmation. On success the
// current order becomes completed.
func (s *OrderService) CompletePayment(ctx context.Context, orderID int64, paymentID string) (*models.Order, error) {
	const op = "order.complete_payment"

	if paymentID == "" {
		return nil, apperr.Validation(op, "payment confirmation id is required",
			apperr.FieldError{Field: "payment_id", Message: "is required"})
	}
	cur, err := s.requireCurrent(op, orderID, models.OrderStatusApproved)
	if err != nil {
		return nil, err
	}
	token, err := s.token(op)
	if err != nil {
		return nil, err
	}

	resp, err := s.api.CompletePayment(ctx, token, orderID, paymentID)
	if err != nil {
		s.log.Warn("complete_payment_failed", "order_id", orderID, "error", err)
		return nil, err
	}

	updated := *cur
	if resp.Order != nil {
		updated = *resp.Order
	} else {
		updated.Status = resp.Status
		updated.PaymentStatus = resp.PaymentStatus
		updated.TransactionID = paymentID
	}
	if updated.Status == "" {
		updated.Status = models.OrderStatusCompleted
	}
	o := s.observe(ctx, updated)

	s.log.Info("complete_payment_success", "order_id", orderID)
	s.events.emit(ctx, mykafka.TopicOrder, Event{
		Type:     EventOrderPaymentCompleted,
		Username: s.username(),
		OrderID:  orderID,
		Status:   o.Status,
		Details:  map[string]any{"payment_id": paymentID},
	})
	return o, nil
}

// History returns the caller's recent orders, newest first. It is never
// cached.
func (s *OrderService) History(ctx context.Context) ([]models.Order, error) {
	token, err := s.token("order.history")
	if err != nil {
		return nil, err
	}
	return s.api.OrderHistory(ctx, token)
}

// ListPendingOrders returns every pending order. The server decides whether
// the caller may see them.
func (s *OrderService) ListPendingOrders(ctx context.Context) ([]models.Order, error) {
	token, err := s.token("admin.pending")
	if err != nil {
		return nil, err
	}
	return s.api.AdminOrders(ctx, token)
}

func (s *OrderService) Decide(ctx context.Context, orderID int64, d Decision) (*transport.DecisionResponse, error) {
	const op = "admin.decide"

	req := transport.DecisionRequest{Action: d.Action, Comment: d.Comment}
	switch d.Action {
	case ActionApprove:
		if d.ShippingCharge != nil && *d.ShippingCharge < 0 {
			return nil, apperr.Validation(op, "shipping charge cannot be negative",
				apperr.FieldError{Field: "shipping_charge", Message: "must not be negative"})
		}
		req.ShippingCharge = d.ShippingCharge
	case ActionReject:
	default:
		return nil, apperr.Validation(op, fmt.Sprintf("unknown action %q", d.Action),
			apperr.FieldError{Field: "action", Message: "must be approve or reject"})
	}

	token, err := s.token(op)
	if err != nil {
		return nil, err
	}

	resp, err := s.api.AdminDecide(ctx, token, orderID, req)
	if err != nil {
		s.log.Warn("admin_decide_failed", "order_id", orderID, "action", d.Action, "error", err)
		return nil, err
	}

	s.log.Info("admin_decide_success", "order_id", orderID, "status", resp.Status)
	s.events.emit(ctx, mykafka.TopicOrder, Event{
		Type:     EventOrderDecided,
		Username: s.username(),
		OrderID:  orderID,
		Status:   resp.Status,
		Details:  map[string]any{"action": d.Action},
	})
	return resp, nil
}
