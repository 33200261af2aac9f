package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/sandbox"
	"github.com/Skotchmaster/storefront/internal/store"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	adminUser     = "skadmin"
	adminPassword = "admin-pass"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := event.(Event); ok {
		p.events = append(p.events, ev)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// env is one shopper's client wired against a private sandbox backend.
type env struct {
	backend *sandbox.Server
	url     string
	api     *apiclient.Client
	store   *store.Memory
	pub     *recordingPublisher
	hits    *atomic.Int64

	auth   *AuthService
	cart   *CartService
	orders *OrderService
}

func newBackend(t *testing.T) (*sandbox.Server, string, *atomic.Int64) {
	t.Helper()
	b, err := sandbox.New(sandbox.Options{
		JWTSecret:     "test-secret",
		AdminUsername: adminUser,
		AdminPassword: adminPassword,
		BcryptCost:    bcrypt.MinCost,
		Logger:        logging.Discard(),
	})
	require.NoError(t, err)

	hits := &atomic.Int64{}
	e := b.Echo()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		e.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, srv.URL, hits
}

func newEnv(t *testing.T) *env {
	t.Helper()
	b, url, hits := newBackend(t)
	return clientFor(t, b, url, hits)
}

func clientFor(t *testing.T, b *sandbox.Server, url string, hits *atomic.Int64) *env {
	t.Helper()
	log := logging.Discard()
	api := apiclient.NewClient(url, 5*time.Second, apiclient.WithLogger(log))
	st := store.NewMemory()
	pub := &recordingPublisher{}

	auth := NewAuthService(api, st, adminUser, log)
	cart := NewCartService(api, auth, st, pub, time.Hour, log)
	orders := NewOrderService(api, auth, pub, 10*time.Millisecond, log)
	auth.OnSessionChange(cart.HandleSession)
	t.Cleanup(cart.Close)

	return &env{
		backend: b,
		url:     url,
		api:     api,
		store:   st,
		pub:     pub,
		hits:    hits,
		auth:    auth,
		cart:    cart,
		orders:  orders,
	}
}

func (e *env) register(t *testing.T, username string) {
	t.Helper()
	_, err := e.auth.Register(context.Background(), transport.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "pw-" + username,
		Phone:    "9876543210",
		Address:  "12 MG Road",
		City:     "Pune",
	})
	require.NoError(t, err)
}

// adminEnv signs the seeded administrator in on a second client sharing the
// same backend.
func adminEnv(t *testing.T, shopper *env) *env {
	t.Helper()
	a := clientFor(t, shopper.backend, shopper.url, shopper.hits)
	s, err := a.auth.Login(context.Background(), adminUser, adminPassword)
	require.NoError(t, err)
	require.True(t, s.IsAdmin())
	return a
}
