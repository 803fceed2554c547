package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/queue"
	"github.com/polkiloo/orderflow/internal/usecase"
)

// BulkOrders fans a batch out into one processing job per order. A failed
// dispatch is logged and skipped.
type BulkOrders struct {
	facade PipelineFacade
	logger *zap.Logger
}

func NewBulkOrders(facade PipelineFacade, logger *zap.Logger) *BulkOrders {
	return &BulkOrders{facade: facade, logger: logger}
}

func (h *BulkOrders) Handle(ctx context.Context, job *queue.Job) error {
	var p usecase.BulkJob
	if err := job.Decode(&p); err != nil {
		return backoff.Permanent(fmt.Errorf("decode payload: %w", err))
	}
	log := h.logger.With(zap.String("batch_id", p.BatchID), zap.String("job_id", job.ID))

	log.Info("bulk order processing started",
		zap.Int("total_orders", len(p.OrderIDs)),
		zap.Int64s("order_ids", p.OrderIDs),
		zap.Bool("retry", p.Retry),
	)

	dispatched, failed := 0, 0
	for _, id := range p.OrderIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.dispatch(ctx, id, p.Retry); err != nil {
			log.Error("failed to dispatch order processing job", zap.Int64("order_id", id), zap.Error(err))
			failed++
			continue
		}
		dispatched++
	}

	log.Info("bulk order processing completed",
		zap.Int("total_orders", len(p.OrderIDs)),
		zap.Int("processed_orders", dispatched),
		zap.Int("failed_orders", failed),
	)
	return nil
}

func (h *BulkOrders) dispatch(ctx context.Context, id int64, retry bool) error {
	order, err := h.facade.Order(ctx, id)
	if err != nil {
		return err
	}
	if retry {
		requeued, err := h.facade.Requeue(ctx, id)
		var terr *domainErrors.TransitionError
		switch {
		case errors.As(err, &terr) && terr.From == string(model.OrderStatusPending):
			// requeued by an earlier attempt of this batch
		case err != nil:
			return fmt.Errorf("requeue: %w", err)
		default:
			order = requeued
		}
	}
	_, err = h.facade.ScheduleProcessOrder(ctx, order)
	return err
}

func (h *BulkOrders) Failed(_ context.Context, job *queue.Job, failure queue.Failure) {
	var p usecase.BulkJob
	_ = job.Decode(&p)
	h.logger.Error("bulk order processing job failed",
		zap.String("batch_id", p.BatchID),
		zap.Int64s("order_ids", p.OrderIDs),
		zap.Int("attempts", failure.Attempts),
		zap.Error(failure.Cause),
	)
}
