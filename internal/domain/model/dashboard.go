package model

import "github.com/shopspring/decimal"

// RecentOrder is an order joined with its owner for dashboard listings.
type RecentOrder struct {
	Order
	UserName string
}

// OrderTotals aggregates amounts over all orders.
type OrderTotals struct {
	Count       int64
	TotalAmount decimal.Decimal
	AvgAmount   decimal.Decimal
}

// DashboardStats summarizes order outcomes.
type DashboardStats struct {
	Total       int64
	TotalAmount decimal.Decimal
	AvgAmount   decimal.Decimal
	SuccessRate float64
}

// Dashboard is the read model rendered on the back-office dashboard.
type Dashboard struct {
	Counts   map[OrderStatus]int64
	Recent   []RecentOrder
	Stats    DashboardStats
	Statuses []OrderStatus
}
