package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
)

const (
	EventCartLineAdded       = "cart_line_added"
	EventCartLineRemoved     = "cart_line_removed"
	EventCartQuantityUpdated = "cart_quantity_updated"
	EventCartCleared         = "cart_cleared"
	EventCartSynced          = "cart_synced"

	EventOrderPlaced           = "order_placed"
	EventOrderStatusChanged    = "order_status_changed"
	EventOrderPaymentCompleted = "order_payment_completed"
	EventOrderDecided          = "order_decided"
)

type Event struct {
	Type      string             `json:"type"`
	Username  string             `json:"username,omitempty"`
	ProductID int64              `json:"product_id,omitempty"`
	Quantity  int                `json:"quantity,omitempty"`
	OrderID   int64              `json:"order_id,omitempty"`
	Status    models.OrderStatus `json:"status,omitempty"`
	Details   map[string]any     `json:"details,omitempty"`
	At        time.Time          `json:"at"`
}

type eventSink struct {
	pub mykafka.Publisher
	log *slog.Logger
}

// emit publishes ev and logs a failure. Event delivery never fails the
// operation that produced it.
func (s eventSink) emit(ctx context.Context, topic string, ev Event) {
	if s.pub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	key := ev.Username
	if ev.OrderID != 0 {
		key = strconv.FormatInt(ev.OrderID, 10)
	}
	if err := s.pub.PublishEvent(ctx, topic, key, ev); err != nil {
		s.log.Warn("event_publish_failed", "topic", topic, "type", ev.Type, "error", err)
	}
}
