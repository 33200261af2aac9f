package sandbox

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	historyLimit    = 20
	gatewayKeyID    = "rzp_test_sandbox"
	gatewayCurrency = "INR"
)

func orderID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// ownOrder returns the caller's order with the given id, or nil.
func (s *Server) ownOrder(c echo.Context) *models.Order {
	id, ok := orderID(c)
	if !ok {
		return nil
	}
	o := s.st.order(id)
	if o == nil || o.Username != authmw.Username(c) {
		return nil
	}
	return o
}

func (s *Server) placeOrder(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "order_place")

	var req transport.PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("place_order_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if len(req.Items) == 0 {
		return invalid(c, "No items provided. Please add items to your order.")
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	username := authmw.Username(c)
	u := s.st.users[username]

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		p, ok := s.st.products[it.ProductID]
		if !ok {
			l.Warn("place_order_failed", "status", 400, "reason", "unknown_product", "product_id", it.ProductID)
			return invalid(c, fmt.Sprintf("Product with ID %d does not exist.", it.ProductID))
		}
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
		s.st.nextCartID++
		items = append(items, models.OrderItem{ID: s.st.nextCartID, Product: *p, ProductID: p.ID, Quantity: qty})
	}
	if req.DiscountedTotal != nil {
		total = *req.DiscountedTotal
	}

	for _, o := range s.st.ordersOf(username) {
		if o.Status == models.OrderStatusPending {
			l.Warn("place_order_failed", "status", 400, "reason", "pending_exists", "order_id", o.ID)
			return invalid(c, "You already have a pending order. Please wait for admin approval or rejection before placing a new order.")
		}
	}

	var parts []string
	if u != nil && u.Profile.Address != "" {
		parts = append(parts, u.Profile.Address)
	}
	if u != nil && u.Profile.City != "" {
		parts = append(parts, u.Profile.City)
	}
	address := "Address not provided"
	if len(parts) > 0 {
		address = strings.Join(parts, ", ")
	}

	s.st.nextOrderID++
	o := &models.Order{
		ID:            s.st.nextOrderID,
		Username:      username,
		Items:         items,
		Total:         total,
		Status:        models.OrderStatusPending,
		PaymentStatus: "pending",
		Address:       address,
		CreatedAt:     s.now().UTC(),
	}
	s.st.orders = append(s.st.orders, o)

	l.Info("place_order_success", "status", 201, "order_id", o.ID, "items", len(items))
	return c.JSON(http.StatusCreated, o)
}

// orderStatus reports the caller's latest order that has not completed.
func (s *Server) orderStatus(c echo.Context) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	for _, o := range s.st.ordersOf(authmw.Username(c)) {
		if o.Status != models.OrderStatusCompleted {
			return c.JSON(http.StatusOK, o)
		}
	}
	return notFound(c)
}

func (s *Server) orderHistory(c echo.Context) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	orders := s.st.ordersOf(authmw.Username(c))
	if len(orders) > historyLimit {
		orders = orders[:historyLimit]
	}
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, *o)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) checkout(c echo.Context) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	o := s.ownOrder(c)
	if o == nil {
		return notFound(c)
	}
	if o.Status != models.OrderStatusApproved {
		return fail(c, http.StatusBadRequest, "Order must be approved before checkout")
	}
	return c.JSON(http.StatusOK, transport.CheckoutResponse{
		Message: "Order ready for payment",
		OrderID: o.ID,
		Total:   o.Total,
	})
}

func (s *Server) createPaymentOrder(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "order_payment_order")

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	o := s.ownOrder(c)
	if o == nil {
		return fail(c, http.StatusNotFound, "Order not found")
	}
	if o.Status != models.OrderStatusApproved {
		return fail(c, http.StatusBadRequest, "Order must be approved before payment.")
	}

	grand := o.GrandTotal()
	h := models.PaymentHandle{
		GatewayOrderID: "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Amount:         grand.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:       gatewayCurrency,
		KeyID:          gatewayKeyID,
		OrderID:        o.ID,
		TotalAmount:    grand,
	}

	l.Info("payment_order_created", "status", 200, "order_id", o.ID, "amount", h.Amount)
	return c.JSON(http.StatusOK, h)
}

func (s *Server) completePayment(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "order_complete_payment")

	var req transport.CompletePaymentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	o := s.ownOrder(c)
	if o == nil {
		return notFound(c)
	}
	if o.Status != models.OrderStatusApproved {
		return fail(c, http.StatusBadRequest,
			fmt.Sprintf("Order must be approved before payment completion. Current status: %s", o.Status))
	}
	if msg, ok := s.checkStock(o); !ok {
		l.Warn("complete_payment_failed", "status", 400, "order_id", o.ID, "reason", "insufficient_stock")
		return fail(c, http.StatusBadRequest, msg)
	}

	for _, it := range o.Items {
		s.st.products[it.Product.ID].Stock -= it.Quantity
	}
	o.Status = models.OrderStatusCompleted
	o.PaymentStatus = "success"
	o.TransactionID = req.PaymentID

	if u := s.st.users[o.Username]; u != nil && u.Profile.Email != "" {
		s.st.outbox = append(s.st.outbox, Mail{
			To:      u.Profile.Email,
			Subject: "Payment Successful",
			Body:    fmt.Sprintf("Thank you for your purchase! Your order #%d was successful. Total paid: %s", o.ID, o.GrandTotal().StringFixed(2)),
		})
	}

	l.Info("complete_payment_success", "status", 200, "order_id", o.ID)
	snapshot := *o
	return c.JSON(http.StatusOK, transport.CompletePaymentResponse{
		Message:       "Payment completed successfully and stock updated",
		OrderID:       o.ID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Order:         &snapshot,
	})
}

func (s *Server) checkStock(o *models.Order) (string, bool) {
	for _, it := range o.Items {
		p, ok := s.st.products[it.Product.ID]
		if !ok {
			return fmt.Sprintf("Product %d is no longer available", it.Product.ID), false
		}
		if p.Stock < it.Quantity {
			return fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d", p.Name, p.Stock, it.Quantity), false
		}
	}
	return "", true
}

// adminOrders lists pending orders newest first. Non-admin callers get an
// empty list rather than an error.
func (s *Server) adminOrders(c echo.Context) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	out := []models.Order{}
	if !s.isAdmin(s.currentUser(c)) {
		return c.JSON(http.StatusOK, out)
	}
	for i := len(s.st.orders) - 1; i >= 0; i-- {
		if s.st.orders[i].Status == models.OrderStatusPending {
			out = append(out, *s.st.orders[i])
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) adminDecide(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "admin_decide")

	var req transport.DecisionRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if !s.isAdmin(s.currentUser(c)) {
		l.Warn("admin_decide_denied", "status", 403, "username", authmw.Username(c))
		return fail(c, http.StatusForbidden, "Unauthorized. Admin access required.")
	}

	id, ok := orderID(c)
	if !ok {
		return notFound(c)
	}
	o := s.st.order(id)
	if o == nil {
		return notFound(c)
	}
	if req.Action != "approve" && req.Action != "reject" {
		return fail(c, http.StatusBadRequest, "Invalid action. Must be 'approve' or 'reject'.")
	}
	if o.Status != models.OrderStatusPending {
		return fail(c, http.StatusConflict, fmt.Sprintf("Order %d is already %s", o.ID, o.Status))
	}

	comment := req.Comment
	if req.Action == "approve" {
		if msg, ok := s.checkStock(o); !ok {
			l.Warn("admin_decide_failed", "status", 400, "order_id", o.ID, "reason", "insufficient_stock")
			return fail(c, http.StatusBadRequest, msg)
		}
		o.Status = models.OrderStatusApproved
		if comment == "" {
			comment = "Order approved. Stock will be reserved after payment."
		}
		o.ShippingCharge = 0
		if req.ShippingCharge != nil {
			o.ShippingCharge = *req.ShippingCharge
		}
	} else {
		o.Status = models.OrderStatusRejected
		if comment == "" {
			comment = "Order rejected."
		}
	}
	o.AdminComment = comment
	now := s.now().UTC()
	o.DecisionTime = &now

	l.Info("admin_decide_success", "status", 200, "order_id", o.ID, "action", req.Action)
	return c.JSON(http.StatusOK, transport.DecisionResponse{
		Message: fmt.Sprintf("Order %sd successfully", req.Action),
		OrderID: o.ID,
		Status:  o.Status,
		Comment: comment,
	})
}
