package worker

import (
	"context"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// PipelineFacade exposes the subset of application functionality required by job handlers.
type PipelineFacade interface {
	Order(ctx context.Context, id int64) (*model.Order, error)
	MarkAsProcessing(ctx context.Context, id int64) (*model.Order, error)
	MarkAsFailed(ctx context.Context, id int64, reason string, gw *model.GatewayContext) (*model.Order, error)
	Requeue(ctx context.Context, id int64) (*model.Order, error)
	CreatePayment(ctx context.Context, id int64) (*model.CreatePaymentResult, error)
	ScheduleProcessOrder(ctx context.Context, order *model.Order) (string, error)
	ScheduleCreatePayment(ctx context.Context, order *model.Order) (string, error)
}
