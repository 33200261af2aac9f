package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/store"
)

const backgroundSyncTimeout = 30 * time.Second

// SyncReport counts the remote calls of one full-replace sync.
type SyncReport struct {
	Deleted int
	Created int
	Failed  int
}

func (r SyncReport) String() string {
	return fmt.Sprintf("deleted=%d created=%d failed=%d", r.Deleted, r.Created, r.Failed)
}

type scheduledSync struct {
	timer *time.Timer
	done  chan struct{}
}

// CartService owns the shopper's cart. The local copy is the source of
// truth: every mutation lands locally and in the store first, and the remote
// cart is brought in line by a debounced full-replace sync.
type CartService struct {
	api      CartAPI
	sessions SessionSource
	store    store.Store
	events   eventSink
	log      *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	lines   []models.CartLine
	pending *scheduledSync
	last    *scheduledSync
	closed  bool

	persistMu sync.Mutex
	syncMu    sync.Mutex
}

func NewCartService(api CartAPI, sessions SessionSource, st store.Store, pub mykafka.Publisher, debounce time.Duration, log *slog.Logger) *CartService {
	l := log.With("component", "cart")
	return &CartService{
		api:      api,
		sessions: sessions,
		store:    st,
		events:   eventSink{pub: pub, log: l},
		log:      l,
		debounce: debounce,
	}
}

// Restore loads the persisted cart, dropping malformed lines.
func (c *CartService) Restore(ctx context.Context) error {
	var saved []models.CartLine
	err := store.GetJSON(ctx, c.store, store.KeyCart, &saved)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		c.log.Warn("cart_restore_failed", "error", err)
		if derr := c.store.Delete(ctx, store.KeyCart); derr != nil {
			c.log.Warn("cart_reset_failed", "error", derr)
		}
		return err
	}

	c.mu.Lock()
	c.lines = MergeLocalPriority(saved, nil)
	n := len(c.lines)
	c.mu.Unlock()

	c.log.Debug("cart_restored", "lines", n)
	return nil
}

func (c *CartService) Lines() []models.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.CartLine(nil), c.lines...)
}

// Count is the total number of units in the cart.
func (c *CartService) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *CartService) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// AddLine adds one unit of p, creating the line if needed.
func (c *CartService) AddLine(ctx context.Context, p models.Product) models.CartLine {
	c.mu.Lock()
	var line models.CartLine
	found := false
	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			c.lines[i].Quantity++
			line = c.lines[i]
			found = true
			break
		}
	}
	if !found {
		line = models.LineFromProduct(p)
		c.lines = append(c.lines, line)
	}
	c.mu.Unlock()

	c.afterMutation(ctx, Event{Type: EventCartLineAdded, ProductID: p.ID, Quantity: line.Quantity})
	return line
}

// RemoveLine drops the line for productID. It reports whether a line was
// removed.
func (c *CartService) RemoveLine(ctx context.Context, productID int64) bool {
	c.mu.Lock()
	removed := c.removeLocked(productID)
	c.mu.Unlock()

	if removed {
		c.afterMutation(ctx, Event{Type: EventCartLineRemoved, ProductID: productID})
	}
	return removed
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero
// or less removes the line. It reports whether the cart changed.
func (c *CartService) UpdateQuantity(ctx context.Context, productID int64, quantity int) bool {
	if quantity <= 0 {
		return c.RemoveLine(ctx, productID)
	}

	c.mu.Lock()
	changed := false
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			changed = c.lines[i].Quantity != quantity
			c.lines[i].Quantity = quantity
			break
		}
	}
	c.mu.Unlock()

	if changed {
		c.afterMutation(ctx, Event{Type: EventCartQuantityUpdated, ProductID: productID, Quantity: quantity})
	}
	return changed
}

// Clear empties the cart. With a session the next sync empties the remote
// cart too.
func (c *CartService) Clear(ctx context.Context) {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()

	c.afterMutation(ctx, Event{Type: EventCartCleared})
}

func (c *CartService) removeLocked(productID int64) bool {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

func (c *CartService) afterMutation(ctx context.Context, ev Event) {
	c.persist(ctx)
	c.scheduleSync()
	ev.Username = c.username()
	c.events.emit(ctx, mykafka.TopicCart, ev)
}

func (c *CartService) username() string {
	if s := c.sessions.Session(); s != nil {
		return s.Username()
	}
	return ""
}

func (c *CartService) persist(ctx context.Context) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	lines := c.Lines()
	if lines == nil {
		lines = []models.CartLine{}
	}
	if err := store.SetJSON(ctx, c.store, store.KeyCart, lines); err != nil {
		c.log.Error("cart_persist_failed", "error", err)
	}
}

func (c *CartService) scheduleSync() {
	if c.sessions.Token() == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopPendingLocked()

	ps := &scheduledSync{done: make(chan struct{})}
	ps.timer = time.AfterFunc(c.debounce, func() { c.runScheduled(ps) })
	c.pending = ps
	c.last = ps
}

// stopPendingLocked stops the pending timer if it has not fired yet and
// reports whether it did.
func (c *CartService) stopPendingLocked() bool {
	ps := c.pending
	if ps == nil || !ps.timer.Stop() {
		return false
	}
	close(ps.done)
	c.pending = nil
	return true
}

func (c *CartService) runScheduled(ps *scheduledSync) {
	defer close(ps.done)

	c.mu.Lock()
	if c.pending == ps {
		c.pending = nil
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), backgroundSyncTimeout)
	defer cancel()

	report, err := c.SyncToRemote(ctx)
	if err != nil {
		c.log.Warn("cart_background_sync_failed", "report", report.String(), "error", err)
	}
}

// Pending reports whether a debounced sync is waiting to run.
func (c *CartService) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Flush runs a pending sync now, or waits for the last scheduled one if it
// is already running.
func (c *CartService) Flush(ctx context.Context) (SyncReport, error) {
	c.mu.Lock()
	due := c.stopPendingLocked()
	last := c.last
	c.mu.Unlock()

	if due {
		return c.SyncToRemote(ctx)
	}
	if last != nil {
		select {
		case <-last.done:
		case <-ctx.Done():
			return SyncReport{}, ctx.Err()
		}
	}
	return SyncReport{}, nil
}

// Cancel drops a pending sync without running it.
func (c *CartService) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPendingLocked()
}

// Close cancels any pending sync and waits for a running one. Mutations
// after Close are kept locally but never synced.
func (c *CartService) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopPendingLocked()
	last := c.last
	c.mu.Unlock()

	if last != nil {
		<-last.done
	}
}

// LoadFromRemote merges the remote cart into the local one with local
// priority. If the merged cart differs from the remote one a sync is
// scheduled.
func (c *CartService) LoadFromRemote(ctx context.Context) error {
	const op = "cart.load"

	token := c.sessions.Token()
	if token == "" {
		return apperr.Auth(op, "not signed in")
	}

	items, err := c.api.GetCart(ctx, token)
	if err != nil {
		c.log.Warn("cart_load_failed", "error", err)
		return err
	}
	remote := linesFromRemote(items)

	c.mu.Lock()
	c.lines = MergeLocalPriority(c.lines, remote)
	merged := append([]models.CartLine(nil), c.lines...)
	c.mu.Unlock()

	c.persist(ctx)
	if !sameLines(merged, remote) {
		c.scheduleSync()
	}
	c.log.Info("cart_loaded", "remote_lines", len(remote), "lines", len(merged))
	return nil
}

// SyncToRemote replaces the remote cart with the local one: every remote
// line is deleted, then every local line is created. A failure part way
// leaves the remote cart partially updated; the failures are counted in the
// report and returned as one error.
func (c *CartService) SyncToRemote(ctx context.Context) (SyncReport, error) {
	const op = "cart.sync"

	var report SyncReport
	token := c.sessions.Token()
	if token == "" {
		return report, apperr.Auth(op, "not signed in")
	}

	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	existing, err := c.api.GetCart(ctx, token)
	if err != nil {
		c.log.Warn("cart_sync_failed", "stage", "fetch", "error", err)
		return report, err
	}

	var errs []error
	for _, it := range existing {
		if err := c.api.DeleteCartItem(ctx, token, it.ID); err != nil {
			report.Failed++
			errs = append(errs, err)
			c.log.Warn("cart_sync_delete_failed", "item_id", it.ID, "error", err)
			continue
		}
		report.Deleted++
	}

	for _, l := range c.Lines() {
		if _, err := c.api.AddCartItem(ctx, token, l.ProductID, l.Quantity); err != nil {
			report.Failed++
			errs = append(errs, err)
			c.log.Warn("cart_sync_create_failed", "product_id", l.ProductID, "error", err)
			continue
		}
		report.Created++
	}

	c.log.Info("cart_synced", "deleted", report.Deleted, "created", report.Created, "failed", report.Failed)
	c.events.emit(ctx, mykafka.TopicCart, Event{
		Type:     EventCartSynced,
		Username: c.username(),
		Details:  map[string]any{"deleted": report.Deleted, "created": report.Created, "failed": report.Failed},
	})

	if len(errs) > 0 {
		return report, apperr.Network(op, errors.Join(errs...))
	}
	return report, nil
}

// HandleSession reacts to login and logout: the remote cart is merged in
// after login, and a pending sync is dropped on logout.
func (c *CartService) HandleSession(ctx context.Context, s *models.Session) {
	if s == nil {
		c.Cancel()
		return
	}
	if err := c.LoadFromRemote(ctx); err != nil {
		c.log.Warn("cart_load_after_login_failed", "error", err)
	}
}
