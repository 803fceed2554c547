package paypal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/pkg/auth"
)

// Gateway registers, verifies and captures payments for orders.
// Transport and provider errors are logged and folded into the results.
type Gateway interface {
	CreatePayment(ctx context.Context, order *model.Order) *model.CreatePaymentResult
	CapturePayment(ctx context.Context, gatewayOrderID string) *model.CapturePaymentResult
	VerifyPayment(ctx context.Context, token string) bool
}

// Limiter throttles outgoing requests.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Recorder observes gateway calls.
type Recorder interface {
	GatewayCall(operation string, success bool)
}

type nopRecorder struct{}

func (nopRecorder) GatewayCall(string, bool) {}

const (
	OperationCreate  = "create"
	OperationCapture = "capture"
	OperationVerify  = "verify"
)

// TooManyRequestsError represents rate limiting signal from the provider.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// APIError is a non-success provider response.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("paypal error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("paypal error: %d %s: %s", e.Status, e.Name, e.Message)
}

// Links builds the customer return URLs of a payment.
type Links struct {
	AppURL string
	Signer auth.StateSigner
}

// Success is the URL the provider redirects to after approval. token is
// appended by the provider itself unless given.
func (l Links) Success(orderID int64, token string) (string, error) {
	q, err := l.query(orderID)
	if err != nil {
		return "", err
	}
	if token != "" {
		q.Set("token", token)
	}
	return l.AppURL + "/payment/success?" + q.Encode(), nil
}

// Cancel is the URL the provider redirects to when the customer gives up.
func (l Links) Cancel(orderID int64) (string, error) {
	q, err := l.query(orderID)
	if err != nil {
		return "", err
	}
	return l.AppURL + "/payment/cancel?" + q.Encode(), nil
}

func (l Links) query(orderID int64) (url.Values, error) {
	q := url.Values{}
	q.Set("order", strconv.FormatInt(orderID, 10))
	if l.Signer != nil && l.Signer.Enabled() {
		state, err := l.Signer.Issue(orderID)
		if err != nil {
			return nil, fmt.Errorf("sign callback state: %w", err)
		}
		q.Set("state", state)
	}
	return q, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
