// Package service holds the storefront managers: session, cart, order
// workflow and catalog. Each manager is an explicit object built once by the
// app container and shared by pointer.
package service

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

// The remote surfaces each manager needs. *apiclient.Client implements all
// of them.

type AuthAPI interface {
	Register(ctx context.Context, req transport.RegisterRequest) error
	Login(ctx context.Context, username, password string) (string, error)
	GetProfile(ctx context.Context, token string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, token string, p models.Profile) (*models.Profile, error)
	RequestPasswordReset(ctx context.Context, req transport.PasswordResetRequest) (string, error)
	ConfirmPasswordReset(ctx context.Context, req transport.PasswordResetConfirmRequest) (string, error)
}

type CartAPI interface {
	GetCart(ctx context.Context, token string) ([]transport.CartItem, error)
	AddCartItem(ctx context.Context, token string, productID int64, quantity int) (*transport.CartItem, error)
	DeleteCartItem(ctx context.Context, token string, itemID int64) error
}

type OrderAPI interface {
	PlaceOrder(ctx context.Context, token string, req transport.PlaceOrderRequest) (*models.Order, error)
	OrderStatus(ctx context.Context, token string) (*models.Order, error)
	OrderHistory(ctx context.Context, token string) ([]models.Order, error)
	Checkout(ctx context.Context, token string, orderID int64) (*transport.CheckoutResponse, error)
	CreatePaymentOrder(ctx context.Context, token string, orderID int64) (*models.PaymentHandle, error)
	CompletePayment(ctx context.Context, token string, orderID int64, paymentID string) (*transport.CompletePaymentResponse, error)
	AdminOrders(ctx context.Context, token string) ([]models.Order, error)
	AdminDecide(ctx context.Context, token string, orderID int64, req transport.DecisionRequest) (*transport.DecisionResponse, error)
}

type CatalogAPI interface {
	Products(ctx context.Context) ([]models.Product, error)
	Product(ctx context.Context, id int64) (*models.Product, error)
}

// SessionSource exposes the current session. *AuthService implements it.
type SessionSource interface {
	Token() string
	Session() *models.Session
}
