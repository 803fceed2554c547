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

// ProcessOrder moves a pending order into processing and hands it to payment creation.
type ProcessOrder struct {
	facade PipelineFacade
	logger *zap.Logger
}

func NewProcessOrder(facade PipelineFacade, logger *zap.Logger) *ProcessOrder {
	return &ProcessOrder{facade: facade, logger: logger}
}

func (h *ProcessOrder) Handle(ctx context.Context, job *queue.Job) error {
	var p usecase.OrderJob
	if err := job.Decode(&p); err != nil {
		return backoff.Permanent(fmt.Errorf("decode payload: %w", err))
	}
	log := h.logger.With(zap.Int64("order_id", p.OrderID), zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))

	order, err := h.facade.MarkAsProcessing(ctx, p.OrderID)
	var terr *domainErrors.TransitionError
	switch {
	case errors.As(err, &terr):
		// A retry of this job after its own transition still owes the payment.
		if job.Attempt > 1 && terr.From == string(model.OrderStatusProcessing) {
			return h.resumePayment(ctx, p.OrderID, log)
		}
		log.Info("order is already being processed or has been processed", zap.String("status", terr.From))
		return nil
	case errors.Is(err, domainErrors.ErrNotFound):
		return backoff.Permanent(err)
	case err != nil:
		log.Error("order processing failed", zap.Error(err))
		return err
	}
	log.Info("order status changed to processing")

	return h.schedulePayment(ctx, order, log)
}

func (h *ProcessOrder) resumePayment(ctx context.Context, id int64, log *zap.Logger) error {
	order, err := h.facade.Order(ctx, id)
	if err != nil {
		return err
	}
	if order.HasPaymentCreated() {
		return nil
	}
	return h.schedulePayment(ctx, order, log)
}

func (h *ProcessOrder) schedulePayment(ctx context.Context, order *model.Order, log *zap.Logger) error {
	if _, err := h.facade.ScheduleCreatePayment(ctx, order); err != nil {
		if errors.Is(err, queue.ErrDuplicateJob) {
			log.Info("payment creation already queued")
			return nil
		}
		log.Error("payment creation not dispatched", zap.Error(err))
		return fmt.Errorf("dispatch payment for order %d: %w", order.ID, err)
	}
	return nil
}

// Failed marks the order failed once retries are exhausted. Orders that
// reached a terminal state in the meantime are left untouched.
func (h *ProcessOrder) Failed(ctx context.Context, job *queue.Job, failure queue.Failure) {
	var p usecase.OrderJob
	if err := job.Decode(&p); err != nil {
		h.logger.Error("processing job failed with unreadable payload", zap.String("job_id", job.ID), zap.Error(failure.Cause))
		return
	}

	h.logger.Error("all retries exhausted for order",
		zap.Int64("order_id", p.OrderID),
		zap.String("job_id", job.ID),
		zap.Int("attempts", failure.Attempts),
		zap.Bool("timed_out", failure.TimedOut),
		zap.Error(failure.Cause),
	)
	markFailed(ctx, h.facade, h.logger, p.OrderID, failure.Cause, nil)
}

func markFailed(ctx context.Context, facade PipelineFacade, logger *zap.Logger, id int64, cause error, gw *model.GatewayContext) {
	reason := "job failed"
	if cause != nil {
		reason = cause.Error()
	}
	_, err := facade.MarkAsFailed(ctx, id, reason, gw)
	switch {
	case errors.Is(err, domainErrors.ErrTransitionRejected):
		logger.Info("order already finished, failure not recorded", zap.Int64("order_id", id))
	case err != nil:
		logger.Error("failed to mark order as failed", zap.Int64("order_id", id), zap.Error(err))
	}
}
