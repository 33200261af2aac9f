// Package app wires configuration, storage, the API client and the managers
// into one container. Managers are built once here and shared by pointer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Skotchmaster/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/store"
)

type Deps struct {
	Config *config.Config
	Log    *slog.Logger
	Store  store.Store
	API    *apiclient.Client
	Events mykafka.Publisher
	Search *search.Client

	Auth    *service.AuthService
	Cart    *service.CartService
	Orders  *service.OrderService
	Catalog *service.CatalogService
}

// New builds the container. The search index and the event producer are
// optional: an unreachable index is logged and catalog search falls back to
// name matching.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Deps, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	api := apiclient.NewClient(cfg.APIURL, cfg.HTTP.Timeout,
		apiclient.WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.Burst),
		apiclient.WithLogger(log),
	)

	pub, err := mykafka.FromBrokers(cfg.KafkaBrokers(), log)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	d := &Deps{
		Config: cfg,
		Log:    log,
		Store:  st,
		API:    api,
		Events: pub,
	}

	var searcher service.ProductSearcher
	if cfg.ES.URL != "" {
		sc, err := search.NewClient(ctx, cfg.ES, log)
		if err != nil {
			log.Warn("search_unavailable", "url", cfg.ES.URL, "error", err)
		} else {
			d.Search = sc
			searcher = sc
		}
	}

	d.Auth = service.NewAuthService(api, st, cfg.AdminUsername, log)
	d.Cart = service.NewCartService(api, d.Auth, st, pub, cfg.Cart.SyncDebounce, log)
	d.Orders = service.NewOrderService(api, d.Auth, pub, cfg.Order.PollInterval, log)
	d.Catalog = service.NewCatalogService(api, st,
		service.NewShuffler(st, cfg.Catalog.ShuffleWindow, log),
		searcher, cfg.Catalog.DefaultBrand, log)

	d.Auth.OnSessionChange(d.Cart.HandleSession)
	return d, nil
}

// Start restores the persisted cart and session. A failed restore leaves an
// empty cart; a failed bootstrap leaves the shopper signed out.
func (d *Deps) Start(ctx context.Context) {
	if err := d.Cart.Restore(ctx); err != nil {
		d.Log.Warn("cart_restore_failed", "error", err)
	}
	d.Auth.Bootstrap(ctx)
}

// Close flushes a pending cart sync, then releases the producer and the
// store.
func (d *Deps) Close(ctx context.Context) error {
	if d.Cart.Pending() {
		if report, err := d.Cart.Flush(ctx); err != nil {
			d.Log.Warn("cart_flush_failed", "report", report.String(), "error", err)
		}
	}
	d.Cart.Close()

	var errs []error
	if err := d.Events.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close producer: %w", err))
	}
	if err := d.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
