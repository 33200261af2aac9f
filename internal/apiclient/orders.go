package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func (c *Client) PlaceOrder(ctx context.Context, token string, req transport.PlaceOrderRequest) (*models.Order, error) {
	var o models.Order
	if err := c.do(ctx, "order.place", http.MethodPost, "/api/cart/orders/", token, req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// OrderStatus returns the caller's active order. A 404 surfaces as an
// apperr not-found error.
func (c *Client) OrderStatus(ctx context.Context, token string) (*models.Order, error) {
	var o *models.Order
	if err := c.do(ctx, "order.status", http.MethodGet, "/api/cart/order-status/", token, nil, &o); err != nil {
		return nil, err
	}
	return o, nil
}

func (c *Client) OrderHistory(ctx context.Context, token string) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, "order.history", http.MethodGet, "/api/cart/order-history/", token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Checkout(ctx context.Context, token string, orderID int64) (*transport.CheckoutResponse, error) {
	var resp transport.CheckoutResponse
	if err := c.do(ctx, "order.checkout", http.MethodPost, fmt.Sprintf("/api/cart/checkout/%d/", orderID), token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreatePaymentOrder(ctx context.Context, token string, orderID int64) (*models.PaymentHandle, error) {
	var h models.PaymentHandle
	if err := c.do(ctx, "order.payment_order", http.MethodPost, fmt.Sprintf("/api/cart/orders/%d/razorpay-order/", orderID), token, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) CompletePayment(ctx context.Context, token string, orderID int64, paymentID string) (*transport.CompletePaymentResponse, error) {
	var resp transport.CompletePaymentResponse
	err := c.do(ctx, "order.complete_payment", http.MethodPost, fmt.Sprintf("/api/cart/orders/%d/complete-payment/", orderID), token,
		transport.CompletePaymentRequest{PaymentID: paymentID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) AdminOrders(ctx context.Context, token string) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, "admin.orders", http.MethodGet, "/api/cart/admin/orders/", token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) AdminDecide(ctx context.Context, token string, orderID int64, req transport.DecisionRequest) (*transport.DecisionResponse, error) {
	var resp transport.DecisionResponse
	if err := c.do(ctx, "admin.decide", http.MethodPost, fmt.Sprintf("/api/cart/admin/orders/%d/approve/", orderID), token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
