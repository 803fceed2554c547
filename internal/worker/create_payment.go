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

// CreatePayment registers the order's payment with the gateway.
type CreatePayment struct {
	facade PipelineFacade
	logger *zap.Logger
}

func NewCreatePayment(facade PipelineFacade, logger *zap.Logger) *CreatePayment {
	return &CreatePayment{facade: facade, logger: logger}
}

func (h *CreatePayment) Handle(ctx context.Context, job *queue.Job) error {
	var p usecase.OrderJob
	if err := job.Decode(&p); err != nil {
		return backoff.Permanent(fmt.Errorf("decode payload: %w", err))
	}
	log := h.logger.With(zap.Int64("order_id", p.OrderID), zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))

	res, err := h.facade.CreatePayment(ctx, p.OrderID)
	switch {
	case errors.Is(err, domainErrors.ErrPaymentAlreadyCreated):
		return nil
	case errors.Is(err, domainErrors.ErrTransitionRejected):
		log.Info("order no longer accepts a payment", zap.Error(err))
		return nil
	case errors.Is(err, domainErrors.ErrNotFound):
		return backoff.Permanent(err)
	case err != nil:
		log.Error("paypal payment creation failed", zap.Error(err))
		return err
	}

	log.Info("payment job finished",
		zap.Bool("success", res.Success),
		zap.String("paypal_order_id", res.GatewayOrderID),
		zap.String("approval_url", res.ApprovalURL),
	)
	return nil
}

// Failed marks the order and its payment failed once retries are exhausted.
func (h *CreatePayment) Failed(ctx context.Context, job *queue.Job, failure queue.Failure) {
	var p usecase.OrderJob
	if err := job.Decode(&p); err != nil {
		h.logger.Error("payment job failed with unreadable payload", zap.String("job_id", job.ID), zap.Error(failure.Cause))
		return
	}

	h.logger.Error("paypal payment job failed",
		zap.Int64("order_id", p.OrderID),
		zap.String("job_id", job.ID),
		zap.Int("attempts", failure.Attempts),
		zap.Error(failure.Cause),
	)
	markFailed(ctx, h.facade, h.logger, p.OrderID, failure.Cause, &model.GatewayContext{
		Gateway:       model.GatewayPayPal,
		PaymentStatus: model.PaymentStatusFailed,
	})
}
