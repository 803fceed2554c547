package app

import (
	"context"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/pkg/auth"
	"github.com/polkiloo/orderflow/internal/usecase"
)

// OrderFacade is the single entry point used by HTTP handlers and job handlers.
type OrderFacade struct {
	orders    *usecase.OrderUseCase
	payments  *usecase.PaymentUseCase
	dashboard *usecase.DashboardUseCase
	bulk      *usecase.BulkUseCase
	scheduler *usecase.Scheduler
	signer    auth.StateSigner
}

func NewOrderFacade(
	orders *usecase.OrderUseCase,
	payments *usecase.PaymentUseCase,
	dashboard *usecase.DashboardUseCase,
	bulk *usecase.BulkUseCase,
	scheduler *usecase.Scheduler,
	signer auth.StateSigner,
) *OrderFacade {
	return &OrderFacade{
		orders:    orders,
		payments:  payments,
		dashboard: dashboard,
		bulk:      bulk,
		scheduler: scheduler,
		signer:    signer,
	}
}

func (f *OrderFacade) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	return f.dashboard.Data(ctx)
}

func (f *OrderFacade) ProcessPendingOrders(ctx context.Context) (int, error) {
	return f.bulk.ProcessPending(ctx)
}

func (f *OrderFacade) RetryFailedOrders(ctx context.Context) (int, error) {
	return f.bulk.RetryFailed(ctx)
}

func (f *OrderFacade) PaymentSuccess(ctx context.Context, orderID int64, token string) (model.OrderStatus, error) {
	return f.payments.HandleSuccess(ctx, orderID, token)
}

func (f *OrderFacade) PaymentCancel(ctx context.Context, orderID int64) (model.OrderStatus, error) {
	return f.payments.HandleCancel(ctx, orderID)
}

// VerifyState checks the signed state attached to payment return links.
func (f *OrderFacade) VerifyState(state string, orderID int64) error {
	return f.signer.Verify(state, orderID)
}

func (f *OrderFacade) Order(ctx context.Context, id int64) (*model.Order, error) {
	return f.orders.Get(ctx, id)
}

func (f *OrderFacade) MarkAsProcessing(ctx context.Context, id int64) (*model.Order, error) {
	return f.orders.MarkAsProcessing(ctx, id)
}

func (f *OrderFacade) MarkAsFailed(ctx context.Context, id int64, reason string, gw *model.GatewayContext) (*model.Order, error) {
	return f.orders.MarkAsFailed(ctx, id, reason, gw)
}

func (f *OrderFacade) Requeue(ctx context.Context, id int64) (*model.Order, error) {
	return f.orders.Requeue(ctx, id)
}

func (f *OrderFacade) CreatePayment(ctx context.Context, id int64) (*model.CreatePaymentResult, error) {
	return f.payments.CreatePayment(ctx, id)
}

func (f *OrderFacade) ScheduleProcessOrder(ctx context.Context, order *model.Order) (string, error) {
	return f.scheduler.ProcessOrder(ctx, order)
}

func (f *OrderFacade) ScheduleCreatePayment(ctx context.Context, order *model.Order) (string, error) {
	return f.scheduler.CreatePayment(ctx, order)
}
