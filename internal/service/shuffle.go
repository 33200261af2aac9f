package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/store"
)

// ShuffleRecord is the persisted random order for one brand.
type ShuffleRecord struct {
	Order      []int64 `json:"order"`
	Timestamp  int64   `json:"timestamp"`
	ProductIDs []int64 `json:"productIds"`
}

func (r ShuffleRecord) CreatedAt() time.Time { return time.UnixMilli(r.Timestamp) }

type ShuffleOption func(*Shuffler)

func WithClock(now func() time.Time) ShuffleOption {
	return func(s *Shuffler) { s.now = now }
}

func WithRand(r *rand.Rand) ShuffleOption {
	return func(s *Shuffler) { s.rng = r }
}

// Shuffler keeps a per-brand random product order stable for window, then
// draws a new one.
type Shuffler struct {
	store  store.Store
	window time.Duration
	log    *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewShuffler(st store.Store, window time.Duration, log *slog.Logger, opts ...ShuffleOption) *Shuffler {
	s := &Shuffler{
		store:  st,
		window: window,
		log:    log.With("component", "shuffle"),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>17|1))
	}
	return s
}

// Apply returns products in brand's persisted random order. Products missing
// from the stored order are appended in their given order; stored ids with
// no product are skipped. An expired or unreadable record is replaced.
func (s *Shuffler) Apply(ctx context.Context, brand string, products []models.Product) []models.Product {
	now := s.now()

	rec, err := s.Load(ctx, brand)
	if err == nil && now.Sub(rec.CreatedAt()) < s.window {
		return arrange(products, rec.Order)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Warn("shuffle_load_failed", "brand", brand, "error", err)
	}

	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	order := append([]int64(nil), ids...)
	s.mu.Lock()
	s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	s.mu.Unlock()

	next := ShuffleRecord{Order: order, Timestamp: now.UnixMilli(), ProductIDs: ids}
	if err := store.SetJSON(ctx, s.store, store.ShopOrderKey(brand), next); err != nil {
		s.log.Warn("shuffle_persist_failed", "brand", brand, "error", err)
	} else {
		s.log.Debug("shuffle_regenerated", "brand", brand, "products", len(order))
	}
	return arrange(products, order)
}

func (s *Shuffler) Load(ctx context.Context, brand string) (ShuffleRecord, error) {
	var rec ShuffleRecord
	err := store.GetJSON(ctx, s.store, store.ShopOrderKey(brand), &rec)
	return rec, err
}

func (s *Shuffler) Save(ctx context.Context, brand string, rec ShuffleRecord) error {
	return store.SetJSON(ctx, s.store, store.ShopOrderKey(brand), rec)
}

func arrange(products []models.Product, order []int64) []models.Product {
	byID := make(map[int64]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]models.Product, 0, len(products))
	placed := make(map[int64]struct{}, len(order))
	for _, id := range order {
		p, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := placed[id]; dup {
			continue
		}
		placed[id] = struct{}{}
		out = append(out, p)
	}
	for _, p := range products {
		if _, ok := placed[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}
