package dto

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Locale  string `json:"locale"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// PendingOrdersData is returned when pending orders are queued.
type PendingOrdersData struct {
	TotalPendingOrders int `json:"total_pending_orders"`
}

// FailedOrdersData is returned when failed orders are queued for retry.
type FailedOrdersData struct {
	TotalFailedOrders int `json:"total_failed_orders"`
}
