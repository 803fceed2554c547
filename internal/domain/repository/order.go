package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// CreatePaymentFunc registers a payment with the gateway while the order row is locked.
type CreatePaymentFunc func(ctx context.Context, order *model.Order) (*model.CreatePaymentResult, error)

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	Create(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Order, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	// ApplyTransition updates the order only when its current status is allowed by t.
	ApplyTransition(ctx context.Context, id int64, t model.Transition) (*model.Order, error)
	// RecordPayment locks the order, calls create unless a payment already exists
	// and stores the gateway identifiers in the same transaction.
	RecordPayment(ctx context.Context, id int64, create CreatePaymentFunc) (*model.Order, *model.CreatePaymentResult, error)
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)
	Recent(ctx context.Context, limit int) ([]model.RecentOrder, error)
	Totals(ctx context.Context) (*model.OrderTotals, error)
}
