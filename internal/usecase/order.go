package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/events"
)

// TransitionRecorder observes applied and rejected status changes.
type TransitionRecorder interface {
	OrderTransition(to string, applied bool)
}

// OrderUseCase encapsulates order lifecycle logic. Every status change goes
// through a guarded repository update, is logged and published.
type OrderUseCase struct {
	orders    repository.OrderRepository
	publisher events.Publisher
	recorder  TransitionRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, publisher events.Publisher, recorder TransitionRecorder, logger *zap.Logger) *OrderUseCase {
	return &OrderUseCase{
		orders:    orders,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns order by id.
func (u *OrderUseCase) Get(ctx context.Context, id int64) (*model.Order, error) {
	return u.orders.GetByID(ctx, id)
}

// Pending returns pending orders, oldest first.
func (u *OrderUseCase) Pending(ctx context.Context) ([]model.Order, error) {
	return u.orders.ListByStatus(ctx, model.OrderStatusPending)
}

// Failed returns failed orders, oldest first.
func (u *OrderUseCase) Failed(ctx context.Context) ([]model.Order, error) {
	return u.orders.ListByStatus(ctx, model.OrderStatusFailed)
}

// MarkAsProcessing moves a pending order into processing.
func (u *OrderUseCase) MarkAsProcessing(ctx context.Context, id int64) (*model.Order, error) {
	return u.apply(ctx, id, model.MarkAsProcessing(u.now()))
}

// MarkAsCompleted completes a processing order.
func (u *OrderUseCase) MarkAsCompleted(ctx context.Context, id int64, gw *model.GatewayContext) (*model.Order, error) {
	return u.apply(ctx, id, model.MarkAsCompleted(u.now(), gw))
}

// MarkAsFailed fails an order unless it already reached a terminal state.
func (u *OrderUseCase) MarkAsFailed(ctx context.Context, id int64, reason string, gw *model.GatewayContext) (*model.Order, error) {
	return u.apply(ctx, id, model.MarkAsFailed(u.now(), reason, gw))
}

// MarkAsCancelled cancels an order unless it already reached a terminal state.
func (u *OrderUseCase) MarkAsCancelled(ctx context.Context, id int64, gw *model.GatewayContext) (*model.Order, error) {
	return u.apply(ctx, id, model.MarkAsCancelled(u.now(), gw))
}

// Requeue returns a failed order to pending.
func (u *OrderUseCase) Requeue(ctx context.Context, id int64) (*model.Order, error) {
	return u.apply(ctx, id, model.Requeue(u.now()))
}

func (u *OrderUseCase) apply(ctx context.Context, id int64, t model.Transition) (*model.Order, error) {
	order, err := u.orders.ApplyTransition(ctx, id, t)
	if err != nil {
		var terr *domainErrors.TransitionError
		if errors.As(err, &terr) {
			u.recorder.OrderTransition(string(t.To), false)
			u.logger.Info("order transition skipped",
				zap.Int64("order_id", id),
				zap.String("status", terr.From),
				zap.String("target_status", string(t.To)),
			)
			return nil, err
		}
		u.logger.Error("failed to mark order as "+string(t.To), zap.Int64("order_id", id), zap.Error(err))
		return nil, err
	}

	previous := previousStatus(t, order)
	u.recorder.OrderTransition(string(t.To), true)
	u.logTransition(order, previous)

	event := events.Event{
		Type:           events.TypeFor(order.Status, previous),
		OrderID:        order.ID,
		Status:         order.Status,
		PreviousStatus: previous,
		PaymentStatus:  order.PaymentStatus,
		Reason:         order.FailureReason,
		OccurredAt:     t.At,
	}
	if err := u.publisher.Publish(ctx, event); err != nil {
		u.logger.Warn("order event not published", zap.Int64("order_id", order.ID), zap.Error(err))
	}
	return order, nil
}

func (u *OrderUseCase) logTransition(order *model.Order, previous model.OrderStatus) {
	fields := []zap.Field{
		zap.Int64("order_id", order.ID),
		zap.String("previous_status", string(previous)),
	}
	if order.PaymentStatus != nil {
		fields = append(fields, zap.String("payment_status", string(*order.PaymentStatus)))
	}

	switch order.Status {
	case model.OrderStatusCompleted:
		if d, ok := order.ProcessingDuration(); ok {
			fields = append(fields, zap.Duration("processing_duration", d))
		}
		u.logger.Info("order marked as completed", fields...)
	case model.OrderStatusFailed:
		if order.FailureReason != nil {
			fields = append(fields, zap.String("failure_reason", *order.FailureReason))
		}
		u.logger.Error("order marked as failed", fields...)
	case model.OrderStatusPending:
		u.logger.Info("order requeued", fields...)
	default:
		u.logger.Info("order marked as "+string(order.Status), fields...)
	}
}

// previousStatus derives the status the order left. Orders leaving a
// multi-source state were processing exactly when processing started.
func previousStatus(t model.Transition, order *model.Order) model.OrderStatus {
	if len(t.From) == 1 {
		return t.From[0]
	}
	if order.ProcessingStartedAt != nil {
		return model.OrderStatusProcessing
	}
	return model.OrderStatusPending
}
