package usecase

import (
	"context"
	"math"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
)

const recentOrdersLimit = 10

// DashboardUseCase aggregates order statistics for the back office.
type DashboardUseCase struct {
	orders repository.OrderRepository
}

// NewDashboardUseCase constructs DashboardUseCase.
func NewDashboardUseCase(orders repository.OrderRepository) *DashboardUseCase {
	return &DashboardUseCase{orders: orders}
}

// Data returns counts for every status, the most recent orders and totals.
func (u *DashboardUseCase) Data(ctx context.Context) (*model.Dashboard, error) {
	counts, err := u.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	statuses := model.OrderStatuses()
	full := make(map[model.OrderStatus]int64, len(statuses))
	for _, s := range statuses {
		full[s] = counts[s]
	}

	recent, err := u.orders.Recent(ctx, recentOrdersLimit)
	if err != nil {
		return nil, err
	}

	totals, err := u.orders.Totals(ctx)
	if err != nil {
		return nil, err
	}

	return &model.Dashboard{
		Counts:   full,
		Recent:   recent,
		Statuses: statuses,
		Stats: model.DashboardStats{
			Total:       totals.Count,
			TotalAmount: totals.TotalAmount,
			AvgAmount:   totals.AvgAmount,
			SuccessRate: successRate(full[model.OrderStatusCompleted], full[model.OrderStatusFailed]),
		},
	}, nil
}

// successRate is the completed share of finished orders in percent, 2dp.
func successRate(completed, failed int64) float64 {
	finished := completed + failed
	if finished == 0 {
		return 0
	}
	rate := float64(completed) / float64(finished) * 100
	return math.Round(rate*100) / 100
}
