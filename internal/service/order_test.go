package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
)

func cartFrom(t *testing.T, e *env, qty map[int64]int, order ...int64) []models.CartLine {
	t.Helper()
	ctx := context.Background()
	for _, id := range order {
		p, err := e.api.Product(ctx, id)
		require.NoError(t, err)
		for range qty[id] {
			e.cart.AddLine(ctx, *p)
		}
	}
	e.cart.Cancel()
	return e.cart.Lines()
}

func TestPlaceEmptyCart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "alice")
	before := e.hits.Load()

	_, err := e.orders.Place(ctx, nil, nil)
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = e.orders.Place(ctx, []models.CartLine{line(1, 0)}, nil)
	require.ErrorIs(t, err, apperr.ErrValidation)

	assert.Equal(t, before, e.hits.Load(), "no request for an empty cart")
	assert.Nil(t, e.orders.Current())
}

func TestPlaceRequiresSession(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	_, err := e.orders.Place(context.Background(), []models.CartLine{line(1, 1)}, nil)
	require.ErrorIs(t, err, apperr.ErrAuth)
	assert.Zero(t, e.hits.Load())
}

func TestPlaceRejectsNegativeDiscountedTotal(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.register(t, "bob")

	neg := decimal.NewFromInt(-1)
	_, err := e.orders.Place(context.Background(), []models.CartLine{line(1, 1)}, &neg)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCheckoutOnlyWhenApproved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "carol")

	_, err := e.orders.ProceedToCheckout(ctx, 1)
	require.ErrorIs(t, err, apperr.ErrInvalidState, "no current order")

	o, err := e.orders.Place(ctx, cartFrom(t, e, map[int64]int{1: 1}, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.Len(t, e.cart.Lines(), 1, "placing leaves the cart alone")

	before := e.hits.Load()
	_, err = e.orders.ProceedToCheckout(ctx, o.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = e.orders.CompletePayment(ctx, o.ID, "pay_1")
	require.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.Equal(t, before, e.hits.Load())
}

func TestOrderLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "dave")
	admin := adminEnv(t, e)

	status, err := e.orders.GetStatus(ctx)
	require.NoError(t, err)
	assert.Nil(t, status, "no current order is not an error")

	o, err := e.orders.Place(ctx, cartFrom(t, e, map[int64]int{1: 2, 3: 1}, 1, 3), nil)
	require.NoError(t, err)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(2750)), o.Total.String())

	w := e.orders.WatchStatus(ctx)

	pending, err := admin.orders.ListPendingOrders(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, o.ID, pending[0].ID)

	ship := 150
	dec, err := admin.orders.Decide(ctx, o.ID, Decision{Action: ActionApprove, ShippingCharge: &ship})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusApproved, dec.Status)

	var last models.Order
	for u := range w.Updates() {
		last = u
	}
	<-w.Done()
	assert.Equal(t, models.OrderStatusApproved, last.Status)

	cur := e.orders.Current()
	require.NotNil(t, cur)
	assert.Equal(t, models.OrderStatusApproved, cur.Status)
	assert.Equal(t, 150, cur.ShippingCharge)
	assert.True(t, cur.GrandTotal().Equal(decimal.NewFromInt(2900)))

	h, err := e.orders.ProceedToCheckout(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(290000), h.Amount)
	assert.Equal(t, "INR", h.Currency)

	_, err = e.orders.CompletePayment(ctx, o.ID, "")
	require.ErrorIs(t, err, apperr.ErrValidation)

	done, err := e.orders.CompletePayment(ctx, o.ID, "pay_42")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, done.Status)

	status, err = e.orders.GetStatus(ctx)
	require.NoError(t, err)
	assert.Nil(t, status)
	assert.Nil(t, e.orders.Current())

	history, err := e.orders.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.OrderStatusCompleted, history[0].Status)

	types := e.pub.types()
	assert.Contains(t, types, EventOrderPlaced)
	assert.Contains(t, types, EventOrderStatusChanged)
	assert.Contains(t, types, EventOrderPaymentCompleted)
	assert.Contains(t, admin.pub.types(), EventOrderDecided)
}

func TestAwaitDecisionReject(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e := newEnv(t)
	e.register(t, "erin")
	admin := adminEnv(t, e)

	o, err := e.orders.Place(ctx, cartFrom(t, e, map[int64]int{2: 1}, 2), nil)
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = admin.orders.Decide(ctx, o.ID, Decision{Action: ActionReject, Comment: "out of season"})
	}()

	got, err := e.orders.AwaitDecision(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.OrderStatusRejected, got.Status)
	assert.Equal(t, "out of season", got.AdminComment)

	_, err = e.orders.ProceedToCheckout(ctx, o.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestAwaitDecisionTimeout(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.register(t, "finn")

	_, err := e.orders.Place(context.Background(), cartFrom(t, e, map[int64]int{1: 1}, 1), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	got, err := e.orders.AwaitDecision(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, got)
	assert.Equal(t, models.OrderStatusPending, got.Status)
}

func TestWatchStopsWithoutPendingOrder(t *testing.T) {
	t.Parallel()
	s := NewOrderService(nil, staticSession{token: "tok"}, mykafka.Noop{}, time.Millisecond, logging.Discard())

	w := s.WatchStatus(context.Background())
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("watch kept running without a pending order")
	}
	_, open := <-w.Updates()
	assert.False(t, open)
}

func TestObserveIgnoresRegression(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewOrderService(nil, staticSession{token: "tok"}, mykafka.Noop{}, time.Second, logging.Discard())

	s.observe(ctx, models.Order{ID: 7, Status: models.OrderStatusPending})
	s.observe(ctx, models.Order{ID: 7, Status: models.OrderStatusApproved})

	got := s.observe(ctx, models.Order{ID: 7, Status: models.OrderStatusPending})
	assert.Equal(t, models.OrderStatusApproved, got.Status)
	assert.Equal(t, models.OrderStatusApproved, s.Current().Status)

	got = s.observe(ctx, models.Order{ID: 7, Status: models.OrderStatusRejected})
	assert.Equal(t, models.OrderStatusApproved, got.Status, "approved cannot become rejected")

	got = s.observe(ctx, models.Order{ID: 8, Status: models.OrderStatusPending})
	assert.Equal(t, int64(8), got.ID, "a different order replaces the current one")
}

func TestDecideValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "gus")
	before := e.hits.Load()

	_, err := e.orders.Decide(ctx, 1, Decision{Action: "maybe"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	neg := -10
	_, err = e.orders.Decide(ctx, 1, Decision{Action: ActionApprove, ShippingCharge: &neg})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, before, e.hits.Load())
}

func TestDecideRequiresAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "hana")

	o, err := e.orders.Place(ctx, cartFrom(t, e, map[int64]int{1: 1}, 1), nil)
	require.NoError(t, err)

	_, err = e.orders.Decide(ctx, o.ID, Decision{Action: ActionApprove})
	require.ErrorIs(t, err, apperr.ErrAuth)

	pending, err := e.orders.ListPendingOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDecideTwiceConflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "ian")
	admin := adminEnv(t, e)

	o, err := e.orders.Place(ctx, cartFrom(t, e, map[int64]int{1: 1}, 1), nil)
	require.NoError(t, err)

	_, err = admin.orders.Decide(ctx, o.ID, Decision{Action: ActionReject})
	require.NoError(t, err)
	_, err = admin.orders.Decide(ctx, o.ID, Decision{Action: ActionApprove})
	require.ErrorIs(t, err, apperr.ErrInvalidState)
}
