package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/queue"
	"github.com/polkiloo/orderflow/internal/test"
	"github.com/polkiloo/orderflow/internal/usecase"
)

func job(t *testing.T, kind string, attempt int, payload any) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &queue.Job{ID: "job-1", Kind: kind, Attempt: attempt, Payload: raw}
}

func pending(id int64) model.Order {
	return model.Order{ID: id, UserID: 1, Amount: decimal.RequireFromString("25.00"), Status: model.OrderStatusPending}
}

func isPermanent(err error) bool {
	var p *backoff.PermanentError
	return errors.As(err, &p)
}

func TestProcessOrderMovesToProcessingAndSchedulesPayment(t *testing.T) {
	facade := test.NewPipelineFacadeStub(pending(1))
	h := NewProcessOrder(facade, zap.NewNop())

	if err := h.Handle(context.Background(), job(t, usecase.JobProcessOrder, 1, usecase.OrderJob{OrderID: 1})); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if got := facade.Repo.Order(1); got.Status != model.OrderStatusProcessing || got.ProcessingStartedAt == nil {
		t.Fatalf("expected processing order with start time, got %+v", got)
	}
	scheduled := facade.Scheduled()
	if len(scheduled) != 1 || scheduled[0].Kind != "create-payment" || scheduled[0].OrderID != 1 {
		t.Fatalf("unexpected scheduled jobs %+v", scheduled)
	}
}

func TestProcessOrderSkipsOrdersAlreadyTaken(t *testing.T) {
	o := pending(1)
	o.Status = model.OrderStatusCompleted
	facade := test.NewPipelineFacadeStub(o)
	h := NewProcessOrder(facade, zap.NewNop())

	if err := h.Handle(context.Background(), job(t, usecase.JobProcessOrder, 1, usecase.OrderJob{OrderID: 1})); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if len(facade.Scheduled()) != 0 {
		t.Fatalf("expected no payment job")
	}
	if len(facade.Repo.Applied) != 0 {
		t.Fatalf("expected no transition, got %+v", facade.Repo.Applied)
	}
}

func TestProcessOrderRetryResumesPayment(t *testing.T) {
	o := pending(1)
	o.Status = model.OrderStatusProcessing
	facade := test.NewPipelineFacadeStub(o)
	h := NewProcessOrder(facade, zap.NewNop())

	if err := h.Handle(context.Background(), job(t, usecase.JobProcessOrder, 1, usecase.OrderJob{OrderID: 1})); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(facade.Scheduled()) != 0 {
		t.Fatalf("first attempt on a processing order must not schedule payment, got %+v", facade.Scheduled())
	}

	if err := h.Handle(context.Background(), job(t, usecase.JobProcessOrder, 2, usecase.OrderJob{OrderID: 1})); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(facade.Scheduled()) != 1 {
		t.Fatalf("expected payment to be scheduled on retry, got %+v", facade.Scheduled())
	}

	created := model.PaymentStatusCreated
	o.ID = 2
	o.PaymentStatus = &created
	facade.Repo.Put(o)
	if err := h.Handle(context.Background(), job(t, usecase.JobProcessOrder, 2, usecase.OrderJob{OrderID: 2})); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(facade.Scheduled()) != 1 {
		t.Fatalf("expected no second payment job, got %+v", facade.Scheduled())
	}
}

func TestProcessOrderDispatchErrors(t *testing.T) {
	facade := test.NewPipelineFacadeStub(pending(1), pending(2))
	h := NewProcessOrder(facade, zap.NewNop())

	facade.ScheduleFn = func(context.Context, string, *model.Order) error { return queue.ErrDuplicateJob }
	if err := h.Handle(context.Background(), job(t, usecase.JobProcessOrder, 1, usecase.OrderJob{OrderID: 1})); err != nil {
		t.Fatalf("duplicate payment job should be success, got %v", err)
	}

	facade.ScheduleFn = func(context.Context, string, *model.Order) error { return queue.ErrQueueStopped }
	err := h.Handle(context.Background(), job(t, usecase.JobProcessOrder, 1, usecase.OrderJob{OrderID: 2}))
	if !errors.Is(err, queue.ErrQueueStopped) {
		t.Fatalf("expected dispatch error to be retried, got %v", err)
	}
}

func TestProcessOrderUnknownOrderIsPermanent(t *testing.T) {
	h := NewProcessOrder(test.NewPipelineFacadeStub(), zap.NewNop())

	err := h.Handle(context.Background(), job(t, usecase.JobProcessOrder, 1, usecase.OrderJob{OrderID: 42}))
	if !isPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}

	bad := &queue.Job{ID: "x", Payload: json.RawMessage(`"nope"`)}
	if err := h.Handle(context.Background(), bad); !isPermanent(err) {
		t.Fatalf("expected permanent decode error, got %v", err)
	}
}

func TestProcessOrderFailedMarksOrderFailed(t *testing.T) {
	o := pending(1)
	o.Status = model.OrderStatusProcessing
	done := pending(2)
	done.Status = model.OrderStatusCompleted
	facade := test.NewPipelineFacadeStub(o, done)
	h := NewProcessOrder(facade, zap.NewNop())

	h.Failed(context.Background(), job(t, usecase.JobProcessOrder, 5, usecase.OrderJob{OrderID: 1}), queue.Failure{
		Cause:    errors.New("database unavailable"),
		Attempts: 5,
	})
	got := facade.Repo.Order(1)
	if got.Status != model.OrderStatusFailed || got.FailureReason == nil || *got.FailureReason != "database unavailable" {
		t.Fatalf("expected failed order with reason, got %+v", got)
	}

	h.Failed(context.Background(), job(t, usecase.JobProcessOrder, 5, usecase.OrderJob{OrderID: 2}), queue.Failure{Cause: errors.New("late")})
	if got := facade.Repo.Order(2); got.Status != model.OrderStatusCompleted {
		t.Fatalf("completed order must stay completed, got %s", got.Status)
	}
}

func TestCreatePaymentRecordsPayment(t *testing.T) {
	o := pending(1)
	o.Status = model.OrderStatusProcessing
	facade := test.NewPipelineFacadeStub(o)
	h := NewCreatePayment(facade, zap.NewNop())

	if err := h.Handle(context.Background(), job(t, usecase.JobCreatePayment, 1, usecase.OrderJob{OrderID: 1})); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	got := facade.Repo.Order(1)
	if !got.HasPaymentCreated() || got.PaymentID == nil || *got.PaymentID != "PP-1" {
		t.Fatalf("expected created payment, got %+v", got)
	}

	if err := h.Handle(context.Background(), job(t, usecase.JobCreatePayment, 1, usecase.OrderJob{OrderID: 1})); err != nil {
		t.Fatalf("second run must be a no-op, got %v", err)
	}
}

func TestCreatePaymentErrors(t *testing.T) {
	facade := test.NewPipelineFacadeStub()
	h := NewCreatePayment(facade, zap.NewNop())

	if err := h.Handle(context.Background(), job(t, usecase.JobCreatePayment, 1, usecase.OrderJob{OrderID: 9})); !isPermanent(err) {
		t.Fatalf("expected permanent error for unknown order, got %v", err)
	}

	cancelled := pending(1)
	cancelled.Status = model.OrderStatusCancelled
	facade.Repo.Put(cancelled)
	if err := h.Handle(context.Background(), job(t, usecase.JobCreatePayment, 1, usecase.OrderJob{OrderID: 1})); err != nil {
		t.Fatalf("terminal order should be skipped, got %v", err)
	}

	gatewayErr := errors.New("Failed to create PayPal payment: boom")
	facade.CreatePaymentFn = func(context.Context, int64) (*model.CreatePaymentResult, error) { return nil, gatewayErr }
	if err := h.Handle(context.Background(), job(t, usecase.JobCreatePayment, 1, usecase.OrderJob{OrderID: 1})); !errors.Is(err, gatewayErr) {
		t.Fatalf("expected gateway error to be retried, got %v", err)
	}
}

func TestCreatePaymentFailedMarksPaymentFailed(t *testing.T) {
	o := pending(1)
	o.Status = model.OrderStatusProcessing
	facade := test.NewPipelineFacadeStub(o)
	h := NewCreatePayment(facade, zap.NewNop())

	h.Failed(context.Background(), job(t, usecase.JobCreatePayment, 3, usecase.OrderJob{OrderID: 1}), queue.Failure{
		Cause:    errors.New("Failed to create PayPal payment: timeout"),
		Attempts: 3,
	})
	got := facade.Repo.Order(1)
	if got.Status != model.OrderStatusFailed {
		t.Fatalf("expected failed order, got %s", got.Status)
	}
	if got.PaymentStatus == nil || *got.PaymentStatus != model.PaymentStatusFailed {
		t.Fatalf("expected failed payment status, got %v", got.PaymentStatus)
	}
	if got.PaymentGateway == nil || *got.PaymentGateway != model.GatewayPayPal {
		t.Fatalf("expected paypal gateway, got %v", got.PaymentGateway)
	}
}

func TestBulkOrdersDispatchesEachOrder(t *testing.T) {
	facade := test.NewPipelineFacadeStub(pending(1), pending(2))
	h := NewBulkOrders(facade, zap.NewNop())

	err := h.Handle(context.Background(), job(t, usecase.JobBulkOrders, 1, usecase.BulkJob{BatchID: "bulk-1", OrderIDs: []int64{1, 2, 3}}))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	scheduled := facade.Scheduled()
	if len(scheduled) != 2 || scheduled[0].OrderID != 1 || scheduled[1].OrderID != 2 {
		t.Fatalf("expected two process jobs, got %+v", scheduled)
	}
	for _, s := range scheduled {
		if s.Kind != "process-order" {
			t.Fatalf("unexpected job kind %q", s.Kind)
		}
	}
}

func TestBulkOrdersContinuesAfterDispatchError(t *testing.T) {
	facade := test.NewPipelineFacadeStub(pending(1), pending(2))
	facade.ScheduleFn = func(_ context.Context, _ string, o *model.Order) error {
		if o.ID == 1 {
			return queue.ErrQueueStopped
		}
		return nil
	}
	h := NewBulkOrders(facade, zap.NewNop())

	if err := h.Handle(context.Background(), job(t, usecase.JobBulkOrders, 1, usecase.BulkJob{BatchID: "b", OrderIDs: []int64{1, 2}})); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if scheduled := facade.Scheduled(); len(scheduled) != 1 || scheduled[0].OrderID != 2 {
		t.Fatalf("expected only order 2 scheduled, got %+v", scheduled)
	}
}

func TestBulkOrdersRetryRequeuesFailedOrders(t *testing.T) {
	failed := pending(1)
	failed.Status = model.OrderStatusFailed
	reason := "boom"
	failed.FailureReason = &reason
	facade := test.NewPipelineFacadeStub(failed, pending(2))
	h := NewBulkOrders(facade, zap.NewNop())

	if err := h.Handle(context.Background(), job(t, usecase.JobBulkOrders, 1, usecase.BulkJob{BatchID: "b", OrderIDs: []int64{1, 2}, Retry: true})); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	got := facade.Repo.Order(1)
	if got.Status != model.OrderStatusPending || got.FailureReason != nil {
		t.Fatalf("expected requeued order, got %+v", got)
	}
	if len(facade.Scheduled()) != 2 {
		t.Fatalf("expected both orders scheduled, got %+v", facade.Scheduled())
	}
}

func TestBulkOrdersStopsOnCancelledContext(t *testing.T) {
	facade := test.NewPipelineFacadeStub(pending(1))
	h := NewBulkOrders(facade, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Handle(ctx, job(t, usecase.JobBulkOrders, 1, usecase.BulkJob{BatchID: "b", OrderIDs: []int64{1}}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

type registrarStub struct {
	handlers map[string]queue.Handler
	policies map[string]queue.Policy
	err      error
}

func (r *registrarStub) Register(kind string, h queue.Handler, p queue.Policy) error {
	if r.err != nil {
		return r.err
	}
	r.handlers[kind] = h
	r.policies[kind] = p
	return nil
}

func TestRegisterBindsPipelineHandlers(t *testing.T) {
	cfg := config.Queue{
		ProcessTries:      5,
		ProcessBackoff:    2 * time.Second,
		ProcessTimeout:    120 * time.Second,
		PaymentTries:      3,
		PaymentBackoff:    2 * time.Second,
		PaymentMaxBackoff: time.Minute,
		PaymentTimeout:    120 * time.Second,
		PaymentUniqueFor:  10 * time.Minute,
		BulkTries:         3,
		BulkTimeout:       time.Hour,
	}
	r := &registrarStub{handlers: map[string]queue.Handler{}, policies: map[string]queue.Policy{}}

	if err := Register(r, test.NewPipelineFacadeStub(), cfg, zap.NewNop()); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if len(r.handlers) != 3 {
		t.Fatalf("expected three handlers, got %d", len(r.handlers))
	}

	process := r.policies[usecase.JobProcessOrder]
	if process.Queue != queue.Orders || process.Tries != 5 || process.Timeout != 120*time.Second {
		t.Fatalf("unexpected process policy %+v", process)
	}
	payment := r.policies[usecase.JobCreatePayment]
	if payment.Queue != queue.PayPal || payment.Tries != 3 || payment.UniqueFor != 10*time.Minute {
		t.Fatalf("unexpected payment policy %+v", payment)
	}
	bulk := r.policies[usecase.JobBulkOrders]
	if bulk.Queue != queue.BulkOrders || bulk.Tries != 3 || bulk.Timeout != time.Hour {
		t.Fatalf("unexpected bulk policy %+v", bulk)
	}

	r.err = errors.New("duplicate")
	if err := Register(r, test.NewPipelineFacadeStub(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected registration error")
	}
}
