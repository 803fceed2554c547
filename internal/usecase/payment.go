package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/adapter/paypal"
	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
)

// PaymentUseCase creates gateway payments and settles customer callbacks.
type PaymentUseCase struct {
	orders    repository.OrderRepository
	lifecycle *OrderUseCase
	gateway   paypal.Gateway
	logger    *zap.Logger
}

// NewPaymentUseCase constructs PaymentUseCase.
func NewPaymentUseCase(orders repository.OrderRepository, lifecycle *OrderUseCase, gateway paypal.Gateway, logger *zap.Logger) *PaymentUseCase {
	return &PaymentUseCase{orders: orders, lifecycle: lifecycle, gateway: gateway, logger: logger}
}

// CreatePayment registers a payment for the order and stores the gateway
// identifiers atomically. A payment that already exists is reported with
// ErrPaymentAlreadyCreated and the gateway is not called again.
func (u *PaymentUseCase) CreatePayment(ctx context.Context, orderID int64) (*model.CreatePaymentResult, error) {
	_, res, err := u.orders.RecordPayment(ctx, orderID, func(ctx context.Context, order *model.Order) (*model.CreatePaymentResult, error) {
		return u.gateway.CreatePayment(ctx, order), nil
	})
	switch {
	case errors.Is(err, domainErrors.ErrPaymentAlreadyCreated):
		u.logger.Info("paypal payment already created", zap.Int64("order_id", orderID))
		return nil, err
	case err != nil:
		return res, err
	}

	u.logger.Info("paypal payment created",
		zap.Int64("order_id", orderID),
		zap.String("paypal_order_id", res.GatewayOrderID),
		zap.String("approval_url", res.ApprovalURL),
	)
	return res, nil
}

// HandleSuccess verifies and captures the payment behind token and settles the
// order. It returns the status the order ends up in.
func (u *PaymentUseCase) HandleSuccess(ctx context.Context, orderID int64, token string) (model.OrderStatus, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.PaymentID != nil && token != "" && *order.PaymentID != token {
		u.logger.Warn("payment token does not belong to order",
			zap.Int64("order_id", orderID),
			zap.String("token", token),
		)
		return order.Status, fmt.Errorf("%w: token does not match order %d", domainErrors.ErrInvalidCallback, orderID)
	}

	if !u.gateway.VerifyPayment(ctx, token) {
		return u.failPayment(ctx, orderID, token, "Payment verification failed")
	}

	capture := u.gateway.CapturePayment(ctx, token)
	if !capture.Success {
		reason := capture.Error
		if reason == "" {
			reason = "Payment capture failed"
		}
		return u.failPayment(ctx, orderID, token, reason)
	}

	completed, err := u.lifecycle.MarkAsCompleted(ctx, orderID, &model.GatewayContext{
		Gateway:       model.GatewayPayPal,
		PaymentID:     token,
		PaymentStatus: model.PaymentStatusPaid,
	})
	if err == nil {
		return completed.Status, nil
	}
	if errors.Is(err, domainErrors.ErrTransitionRejected) {
		return u.currentStatus(ctx, orderID)
	}

	u.logger.Error("payment handling error", zap.Int64("order_id", orderID), zap.Error(err))
	return u.failPayment(ctx, orderID, token, "An unexpected error occurred")
}

// HandleCancel records a checkout abandoned by the customer.
func (u *PaymentUseCase) HandleCancel(ctx context.Context, orderID int64) (model.OrderStatus, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	gw := &model.GatewayContext{PaymentStatus: model.PaymentStatusCancelled}
	if order.PaymentGateway != nil {
		gw.Gateway = *order.PaymentGateway
	}

	cancelled, err := u.lifecycle.MarkAsCancelled(ctx, orderID, gw)
	if err == nil {
		return cancelled.Status, nil
	}
	if errors.Is(err, domainErrors.ErrTransitionRejected) {
		return order.Status, nil
	}
	return "", err
}

func (u *PaymentUseCase) failPayment(ctx context.Context, orderID int64, token, reason string) (model.OrderStatus, error) {
	failed, err := u.lifecycle.MarkAsFailed(ctx, orderID, reason, &model.GatewayContext{
		Gateway:       model.GatewayPayPal,
		PaymentID:     token,
		PaymentStatus: model.PaymentStatusFailed,
	})
	if err == nil {
		return failed.Status, nil
	}
	if errors.Is(err, domainErrors.ErrTransitionRejected) {
		return u.currentStatus(ctx, orderID)
	}
	return model.OrderStatusFailed, err
}

func (u *PaymentUseCase) currentStatus(ctx context.Context, orderID int64) (model.OrderStatus, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	return order.Status, nil
}
