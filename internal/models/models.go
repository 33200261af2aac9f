package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Category        string           `json:"category"`
	BrandLabel      string           `json:"brand,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	OriginalPrice   *decimal.Decimal `json:"original_price,omitempty"`
	DiscountPercent *int             `json:"discount_percent,omitempty"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	Image           string           `json:"image,omitempty"`
	ImageURL        string           `json:"image_url,omitempty"`
	Stock           int              `json:"stock"`
	Description     string           `json:"description,omitempty"`
}

// Brand is the label products are grouped and shuffled by. The backend only
// stores a category, which the storefront displays as the brand.
func (p Product) Brand() string {
	if p.BrandLabel != "" {
		return p.BrandLabel
	}
	return p.Category
}

// EffectivePrice is the discounted price when one is set, else the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountedPrice != nil && p.DiscountedPrice.IsPositive() {
		return *p.DiscountedPrice
	}
	return p.Price
}

type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	AltPhone string `json:"altPhone"`
	Salon    string `json:"salon"`
	Address  string `json:"address"`
	City     string `json:"city"`
}

type Session struct {
	Token   string
	Profile Profile
	isAdmin bool
}

func NewSession(token string, profile Profile, adminUsername string) *Session {
	return &Session{
		Token:   token,
		Profile: profile,
		isAdmin: adminUsername != "" && profile.Username == adminUsername,
	}
}

func (s *Session) Username() string { return s.Profile.Username }
func (s *Session) IsAdmin() bool    { return s.isAdmin }

type CartLine struct {
	ProductID int64           `json:"id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Brand     string          `json:"brand,omitempty"`
	Quantity  int             `json:"quantity"`
}

func LineFromProduct(p Product) CartLine {
	img := p.ImageURL
	if img == "" {
		img = p.Image
	}
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Image:     img,
		Price:     p.EffectivePrice(),
		Brand:     p.Brand(),
		Quantity:  1,
	}
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type OrderItem struct {
	ID        int64   `json:"id"`
	Product   Product `json:"product"`
	ProductID int64   `json:"product_id,omitempty"`
	Quantity  int     `json:"quantity"`
}

type Order struct {
	ID             int64           `json:"id"`
	Username       string          `json:"user_username,omitempty"`
	Items          []OrderItem     `json:"items"`
	Total          decimal.Decimal `json:"total"`
	ShippingCharge int             `json:"shipping_charge"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  string          `json:"payment_status,omitempty"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	Address        string          `json:"address,omitempty"`
	AdminComment   string          `json:"admin_comment,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	DecisionTime   *time.Time      `json:"decision_time,omitempty"`
}

// GrandTotal is the amount the shopper pays: order total plus shipping.
func (o Order) GrandTotal() decimal.Decimal {
	return o.Total.Add(decimal.NewFromInt(int64(o.ShippingCharge)))
}

// Subtotal recomputes the item sum from the snapshotted product prices.
func (o Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// PaymentHandle is the gateway order the shopper pays against.
type PaymentHandle struct {
	GatewayOrderID string          `json:"razorpay_order_id"`
	Amount         int64           `json:"amount"`
	Currency       string          `json:"currency"`
	KeyID          string          `json:"key_id"`
	OrderID        int64           `json:"order_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}
