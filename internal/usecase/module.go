package usecase

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/adapter/paypal"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/events"
	"github.com/polkiloo/orderflow/internal/metrics"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newOrderUseCase,
	newPaymentUseCase,
	NewDashboardUseCase,
	NewScheduler,
	newBulkUseCase,
)

func newOrderUseCase(orders repository.OrderRepository, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *OrderUseCase {
	return NewOrderUseCase(orders, publisher, m, logger.Named("orders"))
}

func newPaymentUseCase(orders repository.OrderRepository, lifecycle *OrderUseCase, gateway paypal.Gateway, logger *zap.Logger) *PaymentUseCase {
	return NewPaymentUseCase(orders, lifecycle, gateway, logger.Named("payments"))
}

func newBulkUseCase(lifecycle *OrderUseCase, scheduler *Scheduler, logger *zap.Logger) *BulkUseCase {
	return NewBulkUseCase(lifecycle, scheduler, logger.Named("bulk"))
}
