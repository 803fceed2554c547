package dto

import (
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// DashboardResponse is the JSON rendition of the dashboard.
type DashboardResponse struct {
	Counts map[string]int64 `json:"counts"`
	Recent []RecentOrder    `json:"recent_orders"`
	Stats  Stats            `json:"stats"`
}

// RecentOrder describes a single dashboard row.
type RecentOrder struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	UserName      string     `json:"user_name"`
	Amount        string     `json:"amount"`
	Status        string     `json:"status"`
	PaymentStatus *string    `json:"payment_status,omitempty"`
	PaymentID     *string    `json:"payment_id,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Stats summarizes order amounts and outcomes.
type Stats struct {
	Total       int64   `json:"total"`
	TotalAmount string  `json:"total_amount"`
	AvgAmount   string  `json:"avg_amount"`
	SuccessRate float64 `json:"success_rate"`
}

// NewDashboardResponse converts the dashboard read model.
func NewDashboardResponse(d *model.Dashboard) DashboardResponse {
	resp := DashboardResponse{
		Counts: make(map[string]int64, len(d.Counts)),
		Recent: make([]RecentOrder, 0, len(d.Recent)),
		Stats: Stats{
			Total:       d.Stats.Total,
			TotalAmount: d.Stats.TotalAmount.StringFixed(2),
			AvgAmount:   d.Stats.AvgAmount.StringFixed(2),
			SuccessRate: d.Stats.SuccessRate,
		},
	}
	for status, n := range d.Counts {
		resp.Counts[string(status)] = n
	}
	for _, o := range d.Recent {
		row := RecentOrder{
			ID:            o.ID,
			UserID:        o.UserID,
			UserName:      o.UserName,
			Amount:        o.Amount.StringFixed(2),
			Status:        string(o.Status),
			PaymentID:     o.PaymentID,
			FailureReason: o.FailureReason,
			CreatedAt:     o.CreatedAt,
			CompletedAt:   o.CompletedAt,
		}
		if o.PaymentStatus != nil {
			s := string(*o.PaymentStatus)
			row.PaymentStatus = &s
		}
		resp.Recent = append(resp.Recent, row)
	}
	return resp
}
