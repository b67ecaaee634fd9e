package order

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Event is emitted after a state change has committed. Consumers must treat
// it as a notification, not as the source of truth.
type Event struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	OccurredAt time.Time   `json:"occurred_at"`
	OrderID    uuid.UUID   `json:"order_id"`
	UserID     uuid.UUID   `json:"user_id"`
	Status     OrderStatus `json:"status"`
	Total      float64     `json:"total"`
}

// EventPublisher delivers events best-effort. Publish must never block the
// request path on broker availability and must never fail the transaction
// that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, e Event)
}

// StatusCache is a write-through cache of committed order statuses.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) error
	GetStatus(ctx context.Context, orderID uuid.UUID) (OrderStatus, bool, error)
}
