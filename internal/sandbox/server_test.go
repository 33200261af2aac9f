package sandbox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const adminPassword = "admin-pass"

func start(t *testing.T) (*Server, *apiclient.Client) {
	t.Helper()
	s, err := New(Options{
		JWTSecret:     "test-secret",
		AdminPassword: adminPassword,
		BcryptCost:    bcrypt.MinCost,
		Logger:        logging.Discard(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Echo())
	t.Cleanup(srv.Close)
	return s, apiclient.NewClient(srv.URL, 5*time.Second, apiclient.WithLogger(logging.Discard()))
}

func registerAndLogin(t *testing.T, c *apiclient.Client, username string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, transport.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "pw-" + username,
		Phone:    "9876543210",
		Address:  "12 MG Road",
		City:     "Pune",
	}))
	tok, err := c.Login(ctx, username, "pw-"+username)
	require.NoError(t, err)
	return tok
}

func TestNewRequiresSecret(t *testing.T) {
	t.Parallel()
	_, err := New(Options{})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, err := New(Options{JWTSecret: "x", Logger: logging.Discard()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, c := start(t)

	tok := registerAndLogin(t, c, "alice")

	p, err := c.GetProfile(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "Pune", p.City)

	p.Salon = "Glow Studio"
	updated, err := c.UpdateProfile(ctx, tok, *p)
	require.NoError(t, err)
	assert.Equal(t, "Glow Studio", updated.Salon)

	err = c.Register(ctx, transport.RegisterRequest{Username: "alice", Email: "a@b.c", Password: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = c.Login(ctx, "alice", "wrong")
	assert.True(t, errors.Is(err, apperr.ErrAuth))

	_, err = c.GetProfile(ctx, "not-a-token")
	assert.True(t, errors.Is(err, apperr.ErrAuth))

	_, err = c.GetProfile(ctx, "")
	assert.True(t, errors.Is(err, apperr.ErrAuth))
}

func TestExpiredTokenRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var clock atomic.Int64
	clock.Store(time.Now().UnixNano())
	s, err := New(Options{
		JWTSecret:  "test-secret",
		BcryptCost: bcrypt.MinCost,
		TokenTTL:   time.Minute,
		Logger:     logging.Discard(),
		Now:        func() time.Time { return time.Unix(0, clock.Load()) },
	})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Echo())
	t.Cleanup(srv.Close)
	c := apiclient.NewClient(srv.URL, 5*time.Second, apiclient.WithLogger(logging.Discard()))

	tok := registerAndLogin(t, c, "bob")
	clock.Add(int64(2 * time.Minute))

	_, err = c.GetProfile(ctx, tok)
	assert.True(t, errors.Is(err, apperr.ErrAuth))
}

func TestPasswordReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, c := start(t)

	registerAndLogin(t, c, "carol")

	_, err := c.RequestPasswordReset(ctx, transport.PasswordResetRequest{Username: "nobody"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	msg, err := c.RequestPasswordReset(ctx, transport.PasswordResetRequest{Email: "carol@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	mail := s.Mail()
	require.Len(t, mail, 1)
	assert.Equal(t, "carol@example.com", mail[0].To)
	link, err := url.Parse(mail[0].Body)
	require.NoError(t, err)
	uid, token := link.Query().Get("uid"), link.Query().Get("token")

	_, err = c.ConfirmPasswordReset(ctx, transport.PasswordResetConfirmRequest{UID: uid, Token: "bogus", NewPassword: "new"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = c.ConfirmPasswordReset(ctx, transport.PasswordResetConfirmRequest{UID: uid, Token: token, NewPassword: "new-pass"})
	require.NoError(t, err)

	_, err = c.Login(ctx, "carol", "pw-carol")
	assert.True(t, errors.Is(err, apperr.ErrAuth))
	_, err = c.Login(ctx, "carol", "new-pass")
	require.NoError(t, err)

	_, err = c.ConfirmPasswordReset(ctx, transport.PasswordResetConfirmRequest{UID: uid, Token: token, NewPassword: "again"})
	assert.True(t, errors.Is(err, apperr.ErrValidation), "reset tokens are single use")
}

func TestCatalog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, c := start(t)

	products, err := c.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, len(SeedProducts()))
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, "Orane", products[0].Brand())
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("900")))

	p, err := c.Product(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Lotus", p.Category)

	_, err = c.Product(ctx, 999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, c := start(t)
	tok := registerAndLogin(t, c, "dave")

	_, err := c.GetCart(ctx, "")
	assert.True(t, errors.Is(err, apperr.ErrAuth))

	item, err := c.AddCartItem(ctx, tok, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, int64(1), item.Product.ID)

	_, err = c.AddCartItem(ctx, tok, 2, 0)
	require.NoError(t, err)

	_, err = c.AddCartItem(ctx, tok, 404, 1)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	items, err := c.GetCart(ctx, tok)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[1].Quantity)

	require.NoError(t, c.DeleteCartItem(ctx, tok, item.ID))
	err = c.DeleteCartItem(ctx, tok, item.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	other := registerAndLogin(t, c, "erin")
	items, err = c.GetCart(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOrderLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, c := start(t)
	tok := registerAndLogin(t, c, "frank")
	admin, err := c.Login(ctx, "skadmin", adminPassword)
	require.NoError(t, err)

	_, err = c.OrderStatus(ctx, tok)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = c.PlaceOrder(ctx, tok, transport.PlaceOrderRequest{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	o, err := c.PlaceOrder(ctx, tok, transport.PlaceOrderRequest{Items: []transport.PlaceOrderItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.Equal(t, "12 MG Road, Pune", o.Address)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("2750")), o.Total.String())

	_, err = c.PlaceOrder(ctx, tok, transport.PlaceOrderRequest{Items: []transport.PlaceOrderItem{{ProductID: 1, Quantity: 1}}})
	assert.True(t, errors.Is(err, apperr.ErrValidation), "second pending order is refused")

	_, err = c.Checkout(ctx, tok, o.ID)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	pending, err := c.AdminOrders(ctx, tok)
	require.NoError(t, err)
	assert.Empty(t, pending, "non-admin sees nothing")

	_, err = c.AdminDecide(ctx, tok, o.ID, transport.DecisionRequest{Action: "approve"})
	assert.True(t, errors.Is(err, apperr.ErrAuth))

	pending, err = c.AdminOrders(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "frank", pending[0].Username)

	_, err = c.AdminDecide(ctx, admin, o.ID, transport.DecisionRequest{Action: "maybe"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	ship := 150
	dec, err := c.AdminDecide(ctx, admin, o.ID, transport.DecisionRequest{Action: "approve", ShippingCharge: &ship})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusApproved, dec.Status)
	assert.Equal(t, "Order approved. Stock will be reserved after payment.", dec.Comment)

	_, err = c.AdminDecide(ctx, admin, o.ID, transport.DecisionRequest{Action: "reject"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))

	cur, err := c.OrderStatus(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusApproved, cur.Status)
	assert.Equal(t, 150, cur.ShippingCharge)
	require.NotNil(t, cur.DecisionTime)

	co, err := c.Checkout(ctx, tok, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, co.OrderID)

	h, err := c.CreatePaymentOrder(ctx, tok, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(290000), h.Amount)
	assert.Equal(t, "INR", h.Currency)
	assert.NotEmpty(t, h.GatewayOrderID)

	before, _ := s.Stock(1)
	done, err := c.CompletePayment(ctx, tok, o.ID, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, done.Status)
	assert.Equal(t, "success", done.PaymentStatus)
	after, _ := s.Stock(1)
	assert.Equal(t, before-2, after)

	_, err = c.OrderStatus(ctx, tok)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "completed orders are not current")

	history, err := c.OrderHistory(ctx, tok)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "pay_123", history[0].TransactionID)
}

func TestRejectAndStockCheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, c := start(t)
	tok := registerAndLogin(t, c, "gina")
	admin, err := c.Login(ctx, "skadmin", adminPassword)
	require.NoError(t, err)

	o, err := c.PlaceOrder(ctx, tok, transport.PlaceOrderRequest{Items: []transport.PlaceOrderItem{{ProductID: 4, Quantity: 1}}})
	require.NoError(t, err)

	_, err = c.AdminDecide(ctx, admin, o.ID, transport.DecisionRequest{Action: "approve"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Contains(t, err.Error(), "Insufficient stock")

	dec, err := c.AdminDecide(ctx, admin, o.ID, transport.DecisionRequest{Action: "reject", Comment: "out of stock"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRejected, dec.Status)

	cur, err := c.OrderStatus(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRejected, cur.Status)
	assert.Equal(t, "out of stock", cur.AdminComment)

	require.NoError(t, s.SetStock(4, 5))
	next, err := c.PlaceOrder(ctx, tok, transport.PlaceOrderRequest{Items: []transport.PlaceOrderItem{{ProductID: 4, Quantity: 1}}})
	require.NoError(t, err, "a rejected order does not block a new one")
	assert.NotEqual(t, o.ID, next.ID)

	_, err = c.CreatePaymentOrder(ctx, tok, 9999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
