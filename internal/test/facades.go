package test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// OrderFacadeStub provides controllable behaviour for HTTP endpoints.
type OrderFacadeStub struct {
	DashboardFn     func(context.Context) (*model.Dashboard, error)
	ProcessFn       func(context.Context) (int, error)
	RetryFn         func(context.Context) (int, error)
	SuccessFn       func(context.Context, int64, string) (model.OrderStatus, error)
	CancelFn        func(context.Context, int64) (model.OrderStatus, error)
	OrderFn         func(context.Context, int64) (*model.Order, error)
	VerifyStateFn   func(string, int64) error
	SuccessRequests int
}

// Dashboard returns configured data or an empty dashboard.
func (s *OrderFacadeStub) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	if s.DashboardFn != nil {
		return s.DashboardFn(ctx)
	}
	return &model.Dashboard{Counts: map[model.OrderStatus]int64{}, Statuses: model.OrderStatuses()}, nil
}

// ProcessPendingOrders reports one dispatched order by default.
func (s *OrderFacadeStub) ProcessPendingOrders(ctx context.Context) (int, error) {
	if s.ProcessFn != nil {
		return s.ProcessFn(ctx)
	}
	return 1, nil
}

// RetryFailedOrders reports one dispatched order by default.
func (s *OrderFacadeStub) RetryFailedOrders(ctx context.Context) (int, error) {
	if s.RetryFn != nil {
		return s.RetryFn(ctx)
	}
	return 1, nil
}

// PaymentSuccess completes the order by default.
func (s *OrderFacadeStub) PaymentSuccess(ctx context.Context, orderID int64, token string) (model.OrderStatus, error) {
	s.SuccessRequests++
	if s.SuccessFn != nil {
		return s.SuccessFn(ctx, orderID, token)
	}
	return model.OrderStatusCompleted, nil
}

// PaymentCancel cancels the order by default.
func (s *OrderFacadeStub) PaymentCancel(ctx context.Context, orderID int64) (model.OrderStatus, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, orderID)
	}
	return model.OrderStatusCancelled, nil
}

// Order returns a pending order with the requested id by default.
func (s *OrderFacadeStub) Order(ctx context.Context, id int64) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, id)
	}
	return &model.Order{ID: id, Status: model.OrderStatusPending}, nil
}

// VerifyState accepts every state by default.
func (s *OrderFacadeStub) VerifyState(state string, orderID int64) error {
	if s.VerifyStateFn != nil {
		return s.VerifyStateFn(state, orderID)
	}
	return nil
}

// ScheduledJob records a job scheduled through PipelineFacadeStub.
type ScheduledJob struct {
	Kind    string
	OrderID int64
}

// PipelineFacadeStub drives job handlers against an in-memory order repository.
type PipelineFacadeStub struct {
	Repo *OrderRepositoryStub

	CreatePaymentFn func(context.Context, int64) (*model.CreatePaymentResult, error)
	ScheduleFn      func(ctx context.Context, kind string, order *model.Order) error

	mu        sync.Mutex
	scheduled []ScheduledJob
}

// NewPipelineFacadeStub creates a stub over the provided orders.
func NewPipelineFacadeStub(orders ...model.Order) *PipelineFacadeStub {
	return &PipelineFacadeStub{Repo: NewOrderRepositoryStub(orders...)}
}

func (s *PipelineFacadeStub) Order(ctx context.Context, id int64) (*model.Order, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *PipelineFacadeStub) MarkAsProcessing(ctx context.Context, id int64) (*model.Order, error) {
	return s.Repo.ApplyTransition(ctx, id, model.MarkAsProcessing(time.Now()))
}

func (s *PipelineFacadeStub) MarkAsFailed(ctx context.Context, id int64, reason string, gw *model.GatewayContext) (*model.Order, error) {
	return s.Repo.ApplyTransition(ctx, id, model.MarkAsFailed(time.Now(), reason, gw))
}

func (s *PipelineFacadeStub) Requeue(ctx context.Context, id int64) (*model.Order, error) {
	return s.Repo.ApplyTransition(ctx, id, model.Requeue(time.Now()))
}

// CreatePayment records a successful PayPal payment unless CreatePaymentFn is set.
func (s *PipelineFacadeStub) CreatePayment(ctx context.Context, id int64) (*model.CreatePaymentResult, error) {
	if s.CreatePaymentFn != nil {
		return s.CreatePaymentFn(ctx, id)
	}
	_, res, err := s.Repo.RecordPayment(ctx, id, func(_ context.Context, order *model.Order) (*model.CreatePaymentResult, error) {
		return &model.CreatePaymentResult{
			Success:        true,
			Gateway:        model.GatewayPayPal,
			GatewayOrderID: fmt.Sprintf("PP-%d", order.ID),
			ApprovalURL:    fmt.Sprintf("https://paypal.test/approve/%d", order.ID),
		}, nil
	})
	return res, err
}

func (s *PipelineFacadeStub) ScheduleProcessOrder(ctx context.Context, order *model.Order) (string, error) {
	return s.schedule(ctx, "process-order", order)
}

func (s *PipelineFacadeStub) ScheduleCreatePayment(ctx context.Context, order *model.Order) (string, error) {
	return s.schedule(ctx, "create-payment", order)
}

func (s *PipelineFacadeStub) schedule(ctx context.Context, kind string, order *model.Order) (string, error) {
	if s.ScheduleFn != nil {
		if err := s.ScheduleFn(ctx, kind, order); err != nil {
			return "", err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, ScheduledJob{Kind: kind, OrderID: order.ID})
	return fmt.Sprintf("%s-%d", kind, order.ID), nil
}

// Scheduled returns a snapshot of scheduled jobs.
func (s *PipelineFacadeStub) Scheduled() []ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScheduledJob(nil), s.scheduled...)
}
