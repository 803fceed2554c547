package test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/events"
	"github.com/polkiloo/orderflow/internal/queue"
)

// DispatchCall stores information about Dispatch invocations.
type DispatchCall struct {
	Kind     string
	Payload  json.RawMessage
	UniqueID string
	Tags     []string
}

// Decode unmarshals the dispatched payload into v.
func (c DispatchCall) Decode(v any) error {
	return json.Unmarshal(c.Payload, v)
}

// DispatcherStub records dispatched jobs.
type DispatcherStub struct {
	mu         sync.Mutex
	Calls      []DispatchCall
	DispatchFn func(ctx context.Context, kind string, payload any) error
}

// Dispatch records the call and returns the configured error.
func (s *DispatcherStub) Dispatch(ctx context.Context, kind string, payload any, opts ...queue.DispatchOption) (string, error) {
	if s.DispatchFn != nil {
		if err := s.DispatchFn(ctx, kind, payload); err != nil {
			return "", err
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	job := &queue.Job{Kind: kind}
	for _, opt := range opts {
		opt(job)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, DispatchCall{Kind: kind, Payload: raw, UniqueID: job.UniqueID, Tags: job.Tags})
	return "job-" + kind, nil
}

// Dispatched returns a snapshot of recorded calls for kind, or all when kind is empty.
func (s *DispatcherStub) Dispatched(kind string) []DispatchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DispatchCall
	for _, c := range s.Calls {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// GatewayStub simulates the payment provider.
type GatewayStub struct {
	mu           sync.Mutex
	CreateFn     func(context.Context, *model.Order) *model.CreatePaymentResult
	CaptureFn    func(context.Context, string) *model.CapturePaymentResult
	VerifyFn     func(context.Context, string) bool
	CreateCalls  int
	CaptureCalls int
	VerifyCalls  int
}

// CreatePayment returns configured result or a successful payment.
func (g *GatewayStub) CreatePayment(ctx context.Context, order *model.Order) *model.CreatePaymentResult {
	g.mu.Lock()
	g.CreateCalls++
	g.mu.Unlock()
	if g.CreateFn != nil {
		return g.CreateFn(ctx, order)
	}
	return &model.CreatePaymentResult{
		Success:        true,
		Gateway:        model.GatewayPayPal,
		GatewayOrderID: "PP-TEST",
		ApprovalURL:    "https://paypal.test/approve?token=PP-TEST",
	}
}

// CapturePayment returns configured result or a completed capture.
func (g *GatewayStub) CapturePayment(ctx context.Context, id string) *model.CapturePaymentResult {
	g.mu.Lock()
	g.CaptureCalls++
	g.mu.Unlock()
	if g.CaptureFn != nil {
		return g.CaptureFn(ctx, id)
	}
	return &model.CapturePaymentResult{Success: true, Status: "COMPLETED"}
}

// VerifyPayment returns configured result or true.
func (g *GatewayStub) VerifyPayment(ctx context.Context, token string) bool {
	g.mu.Lock()
	g.VerifyCalls++
	g.mu.Unlock()
	if g.VerifyFn != nil {
		return g.VerifyFn(ctx, token)
	}
	return true
}

// Calls returns create, capture and verify call counts.
func (g *GatewayStub) Calls() (create, capture, verify int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.CreateCalls, g.CaptureCalls, g.VerifyCalls
}

// PublisherStub records published events.
type PublisherStub struct {
	mu     sync.Mutex
	Events []events.Event
	Err    error
}

// Publish records event and returns the configured error.
func (p *PublisherStub) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return p.Err
}

// Close is a no-op.
func (p *PublisherStub) Close() error { return nil }

// Published returns a snapshot of recorded events.
func (p *PublisherStub) Published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.Events...)
}

// TransitionRecorderStub counts transition metrics.
type TransitionRecorderStub struct {
	mu       sync.Mutex
	Applied  map[string]int
	Rejected map[string]int
}

// OrderTransition records an applied or rejected transition.
func (r *TransitionRecorderStub) OrderTransition(to string, applied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Applied == nil {
		r.Applied = map[string]int{}
		r.Rejected = map[string]int{}
	}
	if applied {
		r.Applied[to]++
	} else {
		r.Rejected[to]++
	}
}

// Counts returns applied and rejected counts for to.
func (r *TransitionRecorderStub) Counts(to string) (applied, rejected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Applied[to], r.Rejected[to]
}
