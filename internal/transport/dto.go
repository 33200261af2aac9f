package transport

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	AltPhone string `json:"altPhone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Salon    string `json:"salon"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse accepts both the simplejwt shape ("access") and the
// "access_token" shape.
type LoginResponse struct {
	Access      string `json:"access"`
	AccessToken string `json:"access_token"`
	Refresh     string `json:"refresh,omitempty"`
}

func (r LoginResponse) Token() string {
	if r.Access != "" {
		return r.Access
	}
	return r.AccessToken
}

type PasswordResetRequest struct {
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	FrontendURL string `json:"frontend_url,omitempty"`
}

type PasswordResetConfirmRequest struct {
	UID         string `json:"uid"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type CartItem struct {
	ID       int64          `json:"id"`
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
	AddedAt  time.Time      `json:"added_at"`
}

type AddCartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderRequest struct {
	Items           []PlaceOrderItem `json:"items"`
	DiscountedTotal *decimal.Decimal `json:"discounted_total,omitempty"`
}

type CheckoutResponse struct {
	Message string          `json:"message"`
	OrderID int64           `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
}

type CompletePaymentRequest struct {
	PaymentID string `json:"razorpay_payment_id"`
}

type CompletePaymentResponse struct {
	Message       string             `json:"message"`
	OrderID       int64              `json:"order_id"`
	Status        models.OrderStatus `json:"status"`
	PaymentStatus string             `json:"payment_status"`
	Order         *models.Order      `json:"order,omitempty"`
}

type DecisionRequest struct {
	Action         string `json:"action"`
	Comment        string `json:"comment"`
	ShippingCharge *int   `json:"shipping_charge,omitempty"`
}

type DecisionResponse struct {
	Message string             `json:"message"`
	OrderID int64              `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
	Comment string             `json:"comment"`
}
