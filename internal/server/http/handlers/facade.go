package handlers

import (
	"context"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// DashboardFacade exposes the dashboard read model.
type DashboardFacade interface {
	Dashboard(ctx context.Context) (*model.Dashboard, error)
}

// BulkFacade starts bulk processing of stored orders.
type BulkFacade interface {
	ProcessPendingOrders(ctx context.Context) (int, error)
	RetryFailedOrders(ctx context.Context) (int, error)
}

// PaymentFacade settles gateway callbacks.
type PaymentFacade interface {
	PaymentSuccess(ctx context.Context, orderID int64, token string) (model.OrderStatus, error)
	PaymentCancel(ctx context.Context, orderID int64) (model.OrderStatus, error)
	VerifyState(state string, orderID int64) error
	Order(ctx context.Context, id int64) (*model.Order, error)
}

// OrderFacade aggregates the full set of operations used across handlers.
type OrderFacade interface {
	DashboardFacade
	BulkFacade
	PaymentFacade
}

// HealthChecker reports whether backing services are reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
