package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
)

// StatusWatch polls the current order while it is pending. It stops by
// itself once the order leaves pending or disappears, when Stop is called,
// or when its context ends.
type StatusWatch struct {
	updates chan models.Order
	done    chan struct{}
	cancel  context.CancelFunc
}

// Updates delivers each polled order. Only the latest undelivered order is
// kept. The channel is closed when the watch stops.
func (w *StatusWatch) Updates() <-chan models.Order { return w.updates }

// Done is closed once the polling goroutine has exited.
func (w *StatusWatch) Done() <-chan struct{} { return w.done }

// Stop cancels polling and waits for the goroutine to exit.
func (w *StatusWatch) Stop() {
	w.cancel()
	<-w.done
}

// WatchStatus starts polling at the configured interval.
func (s *OrderService) WatchStatus(ctx context.Context) *StatusWatch {
	ctx, cancel := context.WithCancel(ctx)
	w := &StatusWatch{
		updates: make(chan models.Order, 1),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go s.poll(ctx, w)
	return w
}

func (s *OrderService) poll(ctx context.Context, w *StatusWatch) {
	defer close(w.done)
	defer close(w.updates)
	defer w.cancel()

	ticker := time.NewTicker(s.pollInterval())
	defer ticker.Stop()

	for {
		cur := s.Current()
		if cur == nil || cur.Status != models.OrderStatusPending {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		o, err := s.GetStatus(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("order_poll_failed", "order_id", cur.ID, "error", err)
			continue
		}
		if o == nil {
			s.log.Info("order_poll_no_current_order", "order_id", cur.ID)
			return
		}
		deliver(w.updates, *o)
	}
}

func (s *OrderService) pollInterval() time.Duration {
	if s.interval <= 0 {
		return 5 * time.Second
	}
	return s.interval
}

func deliver(ch chan models.Order, o models.Order) {
	select {
	case ch <- o:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- o:
	default:
	}
}

// AwaitDecision blocks until the current order leaves pending or ctx ends,
// and returns the current order at that point.
func (s *OrderService) AwaitDecision(ctx context.Context) (*models.Order, error) {
	w := s.WatchStatus(ctx)
	defer w.Stop()

	for range w.Updates() {
	}
	if err := ctx.Err(); err != nil {
		return s.Current(), err
	}
	return s.Current(), nil
}
