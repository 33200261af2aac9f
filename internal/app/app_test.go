package app

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/sandbox"
	"github.com/Skotchmaster/storefront/internal/store"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	b, err := sandbox.New(sandbox.Options{
		JWTSecret:  "app-secret",
		BcryptCost: bcrypt.MinCost,
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(b.Echo())
	t.Cleanup(srv.Close)

	return &config.Config{
		APIURL:        srv.URL,
		LogLevel:      "error",
		AdminUsername: "skadmin",
		Store:         config.StoreConfig{Driver: "sqlite", DSN: t.TempDir() + "/storefront.db"},
		Cart:          config.CartConfig{SyncDebounce: time.Hour},
		Order:         config.OrderConfig{PollInterval: time.Second},
		Catalog:       config.CatalogConfig{ShuffleWindow: time.Hour, DefaultBrand: "Orane"},
		HTTP:          config.HTTPConfig{Timeout: 5 * time.Second},
	}
}

func TestSessionAndCartSurviveRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	d, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	d.Start(ctx)
	assert.Nil(t, d.Auth.Session())
	assert.Nil(t, d.Search, "no index configured")

	_, err = d.Auth.Register(ctx, transport.RegisterRequest{
		Username: "maya",
		Email:    "maya@example.com",
		Password: "pw-maya",
		Phone:    "9876543210",
	})
	require.NoError(t, err)

	p, err := d.Catalog.GetProduct(ctx, 2)
	require.NoError(t, err)
	d.Cart.AddLine(ctx, *p)
	require.True(t, d.Cart.Pending())
	require.NoError(t, d.Close(ctx))

	remote, err := d.API.GetCart(ctx, d.Auth.Token())
	require.NoError(t, err)
	require.Len(t, remote, 1, "close flushes the pending sync")

	again, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.Close(ctx) })
	again.Start(ctx)

	s := again.Auth.Session()
	require.NotNil(t, s)
	assert.Equal(t, "maya", s.Username())
	lines := again.Cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].ProductID)
	assert.False(t, again.Cart.Pending(), "restored cart matches remote")
}

func TestNewRejectsBadStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = config.StoreConfig{Driver: "etcd"}
	_, err := New(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
}

func TestSelectedBrandPersists(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Store = config.StoreConfig{Driver: "memory"}

	d, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(ctx) })

	assert.Equal(t, "Orane", d.Catalog.SelectedBrand(ctx))
	require.NoError(t, d.Catalog.SelectBrand(ctx, "VLCC"))

	raw, err := d.Store.Get(ctx, store.KeySelectedBrand)
	require.NoError(t, err)
	assert.Equal(t, "VLCC", string(raw))
}
