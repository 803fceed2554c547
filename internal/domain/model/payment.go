package model

// CreatePaymentResult is the outcome of registering a payment with the gateway.
type CreatePaymentResult struct {
	Success        bool
	Gateway        string
	GatewayOrderID string
	ApprovalURL    string
	Error          string
}

// CapturePaymentResult is the outcome of capturing an approved payment.
type CapturePaymentResult struct {
	Success bool
	Status  string
	Raw     map[string]any
	Error   string
}
