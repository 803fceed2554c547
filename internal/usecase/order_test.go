package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/events"
	"github.com/polkiloo/orderflow/internal/test"
)

func newOrderUseCase(repo *test.OrderRepositoryStub) (*OrderUseCase, *test.PublisherStub, *test.TransitionRecorderStub) {
	pub := &test.PublisherStub{}
	rec := &test.TransitionRecorderStub{}
	return NewOrderUseCase(repo, pub, rec, zap.NewNop()), pub, rec
}

func pendingOrder(id int64) model.Order {
	return model.Order{ID: id, UserID: 1, Amount: decimal.RequireFromString("150.00"), Status: model.OrderStatusPending}
}

func TestOrderUseCaseMarkAsProcessing(t *testing.T) {
	repo := test.NewOrderRepositoryStub(pendingOrder(1))
	uc, pub, rec := newOrderUseCase(repo)

	order, err := uc.MarkAsProcessing(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != model.OrderStatusProcessing || order.ProcessingStartedAt == nil {
		t.Fatalf("unexpected order state: %+v", order)
	}

	published := pub.Published()
	if len(published) != 1 {
		t.Fatalf("expected one event, got %d", len(published))
	}
	if published[0].Type != events.TypeProcessing || published[0].PreviousStatus != model.OrderStatusPending {
		t.Fatalf("unexpected event: %+v", published[0])
	}
	if applied, _ := rec.Counts("processing"); applied != 1 {
		t.Fatalf("expected applied transition to be counted, got %d", applied)
	}
}

func TestOrderUseCaseMarkAsProcessingTwiceIsRejected(t *testing.T) {
	repo := test.NewOrderRepositoryStub(pendingOrder(1))
	uc, pub, rec := newOrderUseCase(repo)

	if _, err := uc.MarkAsProcessing(context.Background(), 1); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	_, err := uc.MarkAsProcessing(context.Background(), 1)

	var terr *domainErrors.TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if terr.From != "processing" || terr.To != "processing" {
		t.Fatalf("unexpected transition error: %+v", terr)
	}
	if len(pub.Published()) != 1 {
		t.Fatalf("rejected transition must not publish")
	}
	if _, rejected := rec.Counts("processing"); rejected != 1 {
		t.Fatalf("expected rejected transition to be counted, got %d", rejected)
	}
}

func TestOrderUseCaseRoundTrip(t *testing.T) {
	repo := test.NewOrderRepositoryStub(pendingOrder(1))
	uc, _, _ := newOrderUseCase(repo)
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return start }

	if _, err := uc.MarkAsProcessing(context.Background(), 1); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	uc.now = func() time.Time { return start.Add(3 * time.Second) }
	order, err := uc.MarkAsCompleted(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if order.Status != model.OrderStatusCompleted || order.CompletedAt == nil {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.CompletedAt.Before(*order.ProcessingStartedAt) {
		t.Fatalf("completed_at %v before processing_started_at %v", order.CompletedAt, order.ProcessingStartedAt)
	}
	if d, ok := order.ProcessingDuration(); !ok || d != 3*time.Second {
		t.Fatalf("unexpected processing duration %v", d)
	}
}

func TestOrderUseCaseMarkAsFailedKeepsTerminalState(t *testing.T) {
	completed := pendingOrder(1)
	completed.Status = model.OrderStatusCompleted
	cancelled := pendingOrder(2)
	cancelled.Status = model.OrderStatusCancelled
	repo := test.NewOrderRepositoryStub(completed, cancelled)
	uc, pub, _ := newOrderUseCase(repo)

	for _, id := range []int64{1, 2} {
		if _, err := uc.MarkAsFailed(context.Background(), id, "late retry", nil); !errors.Is(err, domainErrors.ErrTransitionRejected) {
			t.Fatalf("order %d: expected rejected transition, got %v", id, err)
		}
	}
	if repo.Order(1).Status != model.OrderStatusCompleted || repo.Order(2).Status != model.OrderStatusCancelled {
		t.Fatalf("terminal orders must not change")
	}
	if len(pub.Published()) != 0 {
		t.Fatalf("no events expected")
	}
}

func TestOrderUseCaseMarkAsFailedFromProcessing(t *testing.T) {
	repo := test.NewOrderRepositoryStub(pendingOrder(1))
	uc, pub, _ := newOrderUseCase(repo)

	if _, err := uc.MarkAsProcessing(context.Background(), 1); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	order, err := uc.MarkAsFailed(context.Background(), 1, "gateway down", &model.GatewayContext{PaymentStatus: model.PaymentStatusFailed})
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if order.FailedAt == nil || order.FailureReason == nil || *order.FailureReason != "gateway down" {
		t.Fatalf("unexpected failed order: %+v", order)
	}
	if order.PaymentStatus == nil || *order.PaymentStatus != model.PaymentStatusFailed {
		t.Fatalf("expected payment status failed")
	}

	ev := pub.Published()[1]
	if ev.Type != events.TypeFailed || ev.PreviousStatus != model.OrderStatusProcessing {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Reason == nil || *ev.Reason != "gateway down" {
		t.Fatalf("expected reason in event")
	}
}

func TestOrderUseCaseMarkAsFailedFromPending(t *testing.T) {
	repo := test.NewOrderRepositoryStub(pendingOrder(1))
	uc, pub, _ := newOrderUseCase(repo)

	if _, err := uc.MarkAsFailed(context.Background(), 1, "", nil); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if ev := pub.Published()[0]; ev.PreviousStatus != model.OrderStatusPending {
		t.Fatalf("expected previous status pending, got %s", ev.PreviousStatus)
	}
	if repo.Order(1).FailureReason != nil {
		t.Fatalf("empty reason must be stored as null")
	}
}

func TestOrderUseCaseRequeue(t *testing.T) {
	failed := pendingOrder(1)
	failed.Status = model.OrderStatusFailed
	repo := test.NewOrderRepositoryStub(failed, pendingOrder(2))
	uc, pub, _ := newOrderUseCase(repo)

	order, err := uc.Requeue(context.Background(), 1)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if order.Status != model.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if pub.Published()[0].Type != events.TypeRequeued {
		t.Fatalf("expected requeued event")
	}
	if _, err := uc.Requeue(context.Background(), 2); !errors.Is(err, domainErrors.ErrTransitionRejected) {
		t.Fatalf("pending order cannot be requeued, got %v", err)
	}
}

func TestOrderUseCaseCancelled(t *testing.T) {
	repo := test.NewOrderRepositoryStub(pendingOrder(1))
	uc, _, _ := newOrderUseCase(repo)

	order, err := uc.MarkAsCancelled(context.Background(), 1, &model.GatewayContext{PaymentStatus: model.PaymentStatusCancelled})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if order.Status != model.OrderStatusCancelled || order.CancelledAt == nil {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestOrderUseCasePublishErrorDoesNotFailTransition(t *testing.T) {
	repo := test.NewOrderRepositoryStub(pendingOrder(1))
	uc, pub, _ := newOrderUseCase(repo)
	pub.Err = errors.New("broker down")

	if _, err := uc.MarkAsProcessing(context.Background(), 1); err != nil {
		t.Fatalf("publish error must not fail the transition: %v", err)
	}
	if repo.Order(1).Status != model.OrderStatusProcessing {
		t.Fatalf("transition must be persisted")
	}
}

func TestOrderUseCasePropagatesRepositoryErrors(t *testing.T) {
	repo := test.NewOrderRepositoryStub()
	uc, _, _ := newOrderUseCase(repo)

	if _, err := uc.MarkAsProcessing(context.Background(), 99); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	boom := errors.New("db down")
	repo.Err = boom
	if _, err := uc.MarkAsCompleted(context.Background(), 1, nil); !errors.Is(err, boom) {
		t.Fatalf("expected repository error, got %v", err)
	}
	if _, err := uc.Pending(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected repository error, got %v", err)
	}
}

func TestOrderUseCaseListsByStatus(t *testing.T) {
	failed := pendingOrder(3)
	failed.Status = model.OrderStatusFailed
	repo := test.NewOrderRepositoryStub(pendingOrder(2), pendingOrder(1), failed)
	uc, _, _ := newOrderUseCase(repo)

	pending, err := uc.Pending(context.Background())
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != 1 || pending[1].ID != 2 {
		t.Fatalf("expected pending orders oldest first, got %+v", pending)
	}
	failedOrders, err := uc.Failed(context.Background())
	if err != nil || len(failedOrders) != 1 || failedOrders[0].ID != 3 {
		t.Fatalf("unexpected failed orders %+v, %v", failedOrders, err)
	}
	if got, err := uc.Get(context.Background(), 3); err != nil || got.Status != model.OrderStatusFailed {
		t.Fatalf("unexpected get result %+v, %v", got, err)
	}
}
