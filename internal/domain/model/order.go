package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses returns every status in display order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusCompleted,
		OrderStatusFailed,
		OrderStatusCancelled,
	}
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further automatic transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed || s == OrderStatusCancelled
}

// Label returns a human readable name.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusPending:
		return "Pending"
	case OrderStatusProcessing:
		return "Processing"
	case OrderStatusCompleted:
		return "Completed"
	case OrderStatusFailed:
		return "Failed"
	case OrderStatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// CSSClass returns the badge class used by the dashboard.
func (s OrderStatus) CSSClass() string {
	switch s {
	case OrderStatusPending:
		return "bg-secondary"
	case OrderStatusProcessing:
		return "bg-primary"
	case OrderStatusCompleted:
		return "bg-success"
	case OrderStatusFailed:
		return "bg-danger"
	case OrderStatusCancelled:
		return "bg-dark"
	}
	return "bg-light"
}

// Description explains the status to back-office users.
func (s OrderStatus) Description() string {
	switch s {
	case OrderStatusPending:
		return "Waiting to be processed"
	case OrderStatusProcessing:
		return "Currently being processed"
	case OrderStatusCompleted:
		return "Successfully completed"
	case OrderStatusFailed:
		return "Processing failed"
	case OrderStatusCancelled:
		return "Order cancelled"
	}
	return "Unknown status"
}

// PaymentStatus tracks the gateway side of an order, independent of OrderStatus.
type PaymentStatus string

const (
	PaymentStatusCreated   PaymentStatus = "created"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// GatewayPayPal is the gateway name persisted with PayPal payments.
const GatewayPayPal = "paypal"

// Order is a purchase waiting to be paid for.
type Order struct {
	ID     int64
	UserID int64
	Amount decimal.Decimal
	Status OrderStatus

	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time
	FailedAt            *time.Time
	CancelledAt         *time.Time
	FailureReason       *string

	PaymentGateway *string
	PaymentID      *string
	PaymentStatus  *PaymentStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPending reports whether the order waits to be processed.
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// CanBeProcessed reports whether the order has not reached a terminal state yet.
func (o *Order) CanBeProcessed() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// HasPaymentCreated reports whether a gateway payment was already registered.
func (o *Order) HasPaymentCreated() bool {
	return o.PaymentStatus != nil && *o.PaymentStatus == PaymentStatusCreated
}

// ProcessingDuration is the time spent between processing start and completion.
func (o *Order) ProcessingDuration() (time.Duration, bool) {
	if o.ProcessingStartedAt == nil || o.CompletedAt == nil {
		return 0, false
	}
	return o.CompletedAt.Sub(*o.ProcessingStartedAt), true
}
