package model

import "time"

// GatewayContext carries payment gateway fields written together with a status change.
type GatewayContext struct {
	Gateway       string
	PaymentID     string
	PaymentStatus PaymentStatus
}

// Transition describes a guarded status change. It is applied atomically by the
// repository only when the current status is one of From.
type Transition struct {
	To      OrderStatus
	From    []OrderStatus
	At      time.Time
	Reason  *string
	Gateway *GatewayContext
}

// MarkAsProcessing moves a pending order into processing.
func MarkAsProcessing(at time.Time) Transition {
	return Transition{
		To:   OrderStatusProcessing,
		From: []OrderStatus{OrderStatusPending},
		At:   at,
	}
}

// MarkAsCompleted finalizes a processing order.
func MarkAsCompleted(at time.Time, gw *GatewayContext) Transition {
	return Transition{
		To:      OrderStatusCompleted,
		From:    []OrderStatus{OrderStatusProcessing},
		At:      at,
		Gateway: gw,
	}
}

// MarkAsFailed fails an order that has not reached a terminal state.
func MarkAsFailed(at time.Time, reason string, gw *GatewayContext) Transition {
	t := Transition{
		To:      OrderStatusFailed,
		From:    []OrderStatus{OrderStatusPending, OrderStatusProcessing},
		At:      at,
		Gateway: gw,
	}
	if reason != "" {
		t.Reason = &reason
	}
	return t
}

// MarkAsCancelled records a checkout abandoned by the customer.
func MarkAsCancelled(at time.Time, gw *GatewayContext) Transition {
	return Transition{
		To:      OrderStatusCancelled,
		From:    []OrderStatus{OrderStatusPending, OrderStatusProcessing},
		At:      at,
		Gateway: gw,
	}
}

// Requeue returns a failed order to pending so it can be processed again.
func Requeue(at time.Time) Transition {
	return Transition{
		To:   OrderStatusPending,
		From: []OrderStatus{OrderStatusFailed},
		At:   at,
	}
}

// Allows reports whether the transition may leave status.
func (t Transition) Allows(status OrderStatus) bool {
	for _, from := range t.From {
		if from == status {
			return true
		}
	}
	return false
}

// FromStrings returns From as plain strings for query parameters.
func (t Transition) FromStrings() []string {
	out := make([]string, len(t.From))
	for i, s := range t.From {
		out[i] = string(s)
	}
	return out
}

// Apply mutates o the same way the repository update does. It does not check Allows.
func (o *Order) Apply(t Transition) {
	at := t.At
	switch t.To {
	case OrderStatusProcessing:
		o.ProcessingStartedAt = &at
	case OrderStatusCompleted:
		o.CompletedAt = &at
	case OrderStatusFailed:
		o.FailedAt = &at
		o.FailureReason = t.Reason
	case OrderStatusCancelled:
		o.CancelledAt = &at
	case OrderStatusPending:
		o.ProcessingStartedAt = nil
		o.FailedAt = nil
		o.FailureReason = nil
		if o.PaymentStatus != nil && *o.PaymentStatus != PaymentStatusPaid {
			o.PaymentGateway = nil
			o.PaymentID = nil
			o.PaymentStatus = nil
		}
	}
	if gw := t.Gateway; gw != nil {
		if gw.Gateway != "" {
			name := gw.Gateway
			o.PaymentGateway = &name
		}
		if gw.PaymentID != "" {
			id := gw.PaymentID
			o.PaymentID = &id
		}
		if gw.PaymentStatus != "" {
			ps := gw.PaymentStatus
			o.PaymentStatus = &ps
		}
	}
	o.Status = t.To
	o.UpdatedAt = at
}
