package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOrderStatusPresentation(t *testing.T) {
	cases := []struct {
		status      OrderStatus
		value       string
		label       string
		css         string
		description string
		terminal    bool
	}{
		{OrderStatusPending, "pending", "Pending", "bg-secondary", "Waiting to be processed", false},
		{OrderStatusProcessing, "processing", "Processing", "bg-primary", "Currently being processed", false},
		{OrderStatusCompleted, "completed", "Completed", "bg-success", "Successfully completed", true},
		{OrderStatusFailed, "failed", "Failed", "bg-danger", "Processing failed", true},
		{OrderStatusCancelled, "cancelled", "Cancelled", "bg-dark", "Order cancelled", true},
	}

	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			if string(tc.status) != tc.value {
				t.Fatalf("expected %s, got %s", tc.value, tc.status)
			}
			if !tc.status.Valid() {
				t.Fatalf("expected %s to be valid", tc.status)
			}
			if tc.status.Label() != tc.label {
				t.Fatalf("expected label %s, got %s", tc.label, tc.status.Label())
			}
			if tc.status.CSSClass() != tc.css {
				t.Fatalf("expected css class %s, got %s", tc.css, tc.status.CSSClass())
			}
			if tc.status.Description() != tc.description {
				t.Fatalf("expected description %q, got %q", tc.description, tc.status.Description())
			}
			if tc.status.IsTerminal() != tc.terminal {
				t.Fatalf("expected terminal=%v for %s", tc.terminal, tc.status)
			}
		})
	}

	unknown := OrderStatus("archived")
	if unknown.Valid() || unknown.Description() != "Unknown status" {
		t.Fatalf("unexpected handling of unknown status")
	}
	if len(OrderStatuses()) != 5 {
		t.Fatalf("expected five statuses, got %d", len(OrderStatuses()))
	}
}

func TestOrderPredicates(t *testing.T) {
	cases := []struct {
		status      OrderStatus
		pending     bool
		processable bool
	}{
		{OrderStatusPending, true, true},
		{OrderStatusProcessing, false, true},
		{OrderStatusCompleted, false, false},
		{OrderStatusFailed, false, false},
		{OrderStatusCancelled, false, false},
	}

	for _, tc := range cases {
		o := Order{Status: tc.status}
		if o.IsPending() != tc.pending {
			t.Fatalf("IsPending(%s) = %v", tc.status, o.IsPending())
		}
		if o.CanBeProcessed() != tc.processable {
			t.Fatalf("CanBeProcessed(%s) = %v", tc.status, o.CanBeProcessed())
		}
	}
}

func TestTransitionSources(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name    string
		t       Transition
		allowed []OrderStatus
	}{
		{"processing", MarkAsProcessing(now), []OrderStatus{OrderStatusPending}},
		{"completed", MarkAsCompleted(now, nil), []OrderStatus{OrderStatusProcessing}},
		{"failed", MarkAsFailed(now, "boom", nil), []OrderStatus{OrderStatusPending, OrderStatusProcessing}},
		{"cancelled", MarkAsCancelled(now, nil), []OrderStatus{OrderStatusPending, OrderStatusProcessing}},
		{"requeue", Requeue(now), []OrderStatus{OrderStatusFailed}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, s := range OrderStatuses() {
				want := false
				for _, a := range tc.allowed {
					if a == s {
						want = true
					}
				}
				if got := tc.t.Allows(s); got != want {
					t.Fatalf("Allows(%s) = %v, want %v", s, got, want)
				}
			}
			if len(tc.t.FromStrings()) != len(tc.allowed) {
				t.Fatalf("unexpected from strings %v", tc.t.FromStrings())
			}
		})
	}
}

func TestFailedNeverLeavesTerminalStates(t *testing.T) {
	tr := MarkAsFailed(time.Now(), "retries exhausted", nil)
	for _, s := range []OrderStatus{OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled} {
		if tr.Allows(s) {
			t.Fatalf("failed transition must not apply to %s", s)
		}
	}
}

func TestProcessingThenCompletedRoundTrip(t *testing.T) {
	o := Order{ID: 1, Amount: decimal.RequireFromString("150.00"), Status: OrderStatusPending}
	start := time.Date(2025, 3, 28, 12, 0, 0, 0, time.UTC)

	o.Apply(MarkAsProcessing(start))
	if o.Status != OrderStatusProcessing || o.ProcessingStartedAt == nil {
		t.Fatalf("expected processing order with start time, got %+v", o)
	}

	done := start.Add(3 * time.Second)
	o.Apply(MarkAsCompleted(done, &GatewayContext{Gateway: GatewayPayPal, PaymentID: "PAY-1", PaymentStatus: PaymentStatusPaid}))
	if o.Status != OrderStatusCompleted || o.CompletedAt == nil {
		t.Fatalf("expected completed order, got %+v", o)
	}
	if o.CompletedAt.Before(*o.ProcessingStartedAt) {
		t.Fatalf("completed_at must not precede processing_started_at")
	}
	if o.PaymentStatus == nil || *o.PaymentStatus != PaymentStatusPaid || *o.PaymentID != "PAY-1" {
		t.Fatalf("expected gateway fields to be recorded, got %+v", o)
	}
	if d, ok := o.ProcessingDuration(); !ok || d != 3*time.Second {
		t.Fatalf("expected 3s processing duration, got %v (%v)", d, ok)
	}
}

func TestMarkAsFailedRecordsReason(t *testing.T) {
	o := Order{Status: OrderStatusProcessing}
	o.Apply(MarkAsFailed(time.Now(), "gateway unavailable", &GatewayContext{PaymentStatus: PaymentStatusFailed}))

	if o.Status != OrderStatusFailed || o.FailedAt == nil {
		t.Fatalf("expected failed order, got %+v", o)
	}
	if o.FailureReason == nil || *o.FailureReason != "gateway unavailable" {
		t.Fatalf("expected failure reason, got %v", o.FailureReason)
	}
	if o.PaymentStatus == nil || *o.PaymentStatus != PaymentStatusFailed {
		t.Fatalf("expected failed payment status")
	}

	empty := MarkAsFailed(time.Now(), "", nil)
	if empty.Reason != nil {
		t.Fatalf("expected nil reason for empty string")
	}
}

func TestRequeueClearsFailureAndUnpaidPayment(t *testing.T) {
	reason := "boom"
	created := PaymentStatusCreated
	gateway := GatewayPayPal
	id := "PAY-9"
	now := time.Now()
	o := Order{
		Status:         OrderStatusFailed,
		FailedAt:       &now,
		FailureReason:  &reason,
		PaymentStatus:  &created,
		PaymentGateway: &gateway,
		PaymentID:      &id,
	}

	o.Apply(Requeue(now))

	if o.Status != OrderStatusPending {
		t.Fatalf("expected pending, got %s", o.Status)
	}
	if o.FailedAt != nil || o.FailureReason != nil {
		t.Fatalf("expected failure fields to be cleared")
	}
	if o.PaymentStatus != nil || o.PaymentID != nil || o.PaymentGateway != nil {
		t.Fatalf("expected unpaid payment to be cleared")
	}
	if o.HasPaymentCreated() {
		t.Fatalf("did not expect a created payment after requeue")
	}
}
