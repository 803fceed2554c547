package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// BulkUseCase starts fan-out processing over pending or failed orders.
type BulkUseCase struct {
	lifecycle *OrderUseCase
	scheduler *Scheduler
	logger    *zap.Logger
}

// NewBulkUseCase constructs BulkUseCase.
func NewBulkUseCase(lifecycle *OrderUseCase, scheduler *Scheduler, logger *zap.Logger) *BulkUseCase {
	return &BulkUseCase{lifecycle: lifecycle, scheduler: scheduler, logger: logger}
}

// ProcessPending dispatches all pending orders and returns their count.
func (u *BulkUseCase) ProcessPending(ctx context.Context) (int, error) {
	orders, err := u.lifecycle.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending orders: %w", err)
	}
	return u.dispatch(ctx, orders, false)
}

// RetryFailed dispatches all failed orders and returns their count.
func (u *BulkUseCase) RetryFailed(ctx context.Context) (int, error) {
	orders, err := u.lifecycle.Failed(ctx)
	if err != nil {
		return 0, fmt.Errorf("list failed orders: %w", err)
	}
	return u.dispatch(ctx, orders, true)
}

func (u *BulkUseCase) dispatch(ctx context.Context, orders []model.Order, retry bool) (int, error) {
	if len(orders) == 0 {
		return 0, domainErrors.ErrNothingToProcess
	}
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	batchID, err := u.scheduler.Bulk(ctx, ids, retry)
	if err != nil {
		return 0, fmt.Errorf("dispatch bulk job: %w", err)
	}
	u.logger.Info("bulk order processing dispatched",
		zap.String("batch_id", batchID),
		zap.Int("total_orders", len(ids)),
		zap.Bool("retry", retry),
	)
	return len(ids), nil
}
