package events

import (
	"context"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// Event types published on order lifecycle changes.
const (
	TypeProcessing = "order.processing"
	TypeCompleted  = "order.completed"
	TypeFailed     = "order.failed"
	TypeCancelled  = "order.cancelled"
	TypeRequeued   = "order.requeued"
)

// Event describes one applied transition.
type Event struct {
	Type           string               `json:"type"`
	OrderID        int64                `json:"order_id"`
	Status         model.OrderStatus    `json:"status"`
	PreviousStatus model.OrderStatus    `json:"previous_status"`
	PaymentStatus  *model.PaymentStatus `json:"payment_status,omitempty"`
	Reason         *string              `json:"reason,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

// TypeFor maps a target status to its event type.
func TypeFor(status model.OrderStatus, previous model.OrderStatus) string {
	switch status {
	case model.OrderStatusProcessing:
		return TypeProcessing
	case model.OrderStatusCompleted:
		return TypeCompleted
	case model.OrderStatusFailed:
		return TypeFailed
	case model.OrderStatusCancelled:
		return TypeCancelled
	case model.OrderStatusPending:
		if previous == model.OrderStatusFailed {
			return TypeRequeued
		}
	}
	return "order." + string(status)
}

// Publisher delivers lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
