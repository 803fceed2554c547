package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"go.uber.org/zap"
)

// tokenRefreshSkew renews the access token this long before it expires.
const tokenRefreshSkew = 60 * time.Second

// ClientConfig holds provider credentials and checkout presentation settings.
type ClientConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Currency     string
	BrandName    string
	Locale       string
	Timeout      time.Duration
}

// Client talks to the PayPal Orders v2 REST API.
type Client struct {
	baseURL    *url.URL
	cfg        ClientConfig
	links      Links
	httpClient *http.Client
	limiter    Limiter
	recorder   Recorder
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClient creates a provider client. limiter and recorder may be nil.
func NewClient(cfg ClientConfig, links Links, limiter Limiter, recorder Recorder, logger *zap.Logger) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse paypal url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, errors.New("paypal url must be absolute")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Client{
		baseURL:    parsed,
		cfg:        cfg,
		links:      links,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}, nil
}

type (
	money struct {
		CurrencyCode string `json:"currency_code"`
		Value        string `json:"value"`
	}

	purchaseUnit struct {
		ReferenceID string `json:"reference_id"`
		Amount      money  `json:"amount"`
		Description string `json:"description"`
	}

	applicationContext struct {
		BrandName          string `json:"brand_name,omitempty"`
		Locale             string `json:"locale,omitempty"`
		LandingPage        string `json:"landing_page"`
		ShippingPreference string `json:"shipping_preference"`
		UserAction         string `json:"user_action"`
		ReturnURL          string `json:"return_url"`
		CancelURL          string `json:"cancel_url"`
	}

	createOrderRequest struct {
		Intent             string             `json:"intent"`
		PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
		ApplicationContext applicationContext `json:"application_context"`
	}

	link struct {
		Href   string `json:"href"`
		Rel    string `json:"rel"`
		Method string `json:"method"`
	}

	orderResponse struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []link `json:"links"`
	}

	tokenResponse struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}

	errorResponse struct {
		Name    string `json:"name"`
		Message string `json:"message"`
		Error   string `json:"error"`
		Desc    string `json:"error_description"`
	}
)

// CreatePayment registers a CAPTURE order and returns its approval link.
func (c *Client) CreatePayment(ctx context.Context, order *model.Order) *model.CreatePaymentResult {
	res, err := c.createPayment(ctx, order)
	c.recorder.GatewayCall(OperationCreate, err == nil)
	if err != nil {
		c.logger.Error("paypal payment creation failed", zap.Int64("order_id", order.ID), zap.Error(err))
		return &model.CreatePaymentResult{Success: false, Gateway: model.GatewayPayPal, Error: "Failed to create PayPal payment: " + err.Error()}
	}
	c.logger.Info("paypal order created",
		zap.Int64("order_id", order.ID),
		zap.String("paypal_order_id", res.GatewayOrderID),
	)
	return res
}

func (c *Client) createPayment(ctx context.Context, order *model.Order) (*model.CreatePaymentResult, error) {
	returnURL, err := c.links.Success(order.ID, "")
	if err != nil {
		return nil, err
	}
	cancelURL, err := c.links.Cancel(order.ID)
	if err != nil {
		return nil, err
	}

	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: strconv.FormatInt(order.ID, 10),
			Amount:      money{CurrencyCode: c.cfg.Currency, Value: order.Amount.StringFixed(2)},
			Description: fmt.Sprintf("Order #%d Payment", order.ID),
		}},
		ApplicationContext: applicationContext{
			BrandName:          c.cfg.BrandName,
			Locale:             c.cfg.Locale,
			LandingPage:        "BILLING",
			ShippingPreference: "NO_SHIPPING",
			UserAction:         "PAY_NOW",
			ReturnURL:          returnURL,
			CancelURL:          cancelURL,
		},
	}

	header := http.Header{}
	header.Set("PayPal-Request-Id", requestID(order))

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, header, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, errors.New("response has no order id")
	}

	approval := approvalLink(resp.Links)
	if approval == "" {
		return nil, fmt.Errorf("order %s has no approval link", resp.ID)
	}

	return &model.CreatePaymentResult{
		Success:        true,
		Gateway:        model.GatewayPayPal,
		GatewayOrderID: resp.ID,
		ApprovalURL:    approval,
	}, nil
}

// requestID is stable across retries of one processing run and changes once
// the order is requeued and processed again.
func requestID(order *model.Order) string {
	if order.ProcessingStartedAt == nil {
		return fmt.Sprintf("order-%d-payment", order.ID)
	}
	return fmt.Sprintf("order-%d-payment-%d", order.ID, order.ProcessingStartedAt.UnixNano())
}

func approvalLink(links []link) string {
	for _, l := range links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

// CapturePayment captures an approved order. Success requires status COMPLETED.
func (c *Client) CapturePayment(ctx context.Context, gatewayOrderID string) *model.CapturePaymentResult {
	var raw map[string]any
	err := c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(gatewayOrderID)+"/capture", json.RawMessage("{}"), nil, &raw)
	if err != nil {
		c.recorder.GatewayCall(OperationCapture, false)
		c.logger.Error("paypal payment capture failed", zap.String("paypal_order_id", gatewayOrderID), zap.Error(err))
		return &model.CapturePaymentResult{Success: false, Error: "Failed to capture PayPal payment: " + err.Error()}
	}

	status, _ := raw["status"].(string)
	success := status == "COMPLETED"
	c.recorder.GatewayCall(OperationCapture, success)
	c.logger.Info("paypal payment captured", zap.String("paypal_order_id", gatewayOrderID), zap.String("status", status))

	res := &model.CapturePaymentResult{Success: success, Status: status, Raw: raw}
	if !success {
		res.Error = "capture returned status " + status
	}
	return res
}

// VerifyPayment reports whether the order behind token was approved by the payer.
func (c *Client) VerifyPayment(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(token), nil, nil, &resp); err != nil {
		c.recorder.GatewayCall(OperationVerify, false)
		c.logger.Warn("paypal payment verification failed", zap.String("token", token), zap.Error(err))
		return false
	}
	ok := resp.ID == token && (resp.Status == "APPROVED" || resp.Status == "COMPLETED")
	c.recorder.GatewayCall(OperationVerify, ok)
	if !ok {
		c.logger.Warn("paypal order not approved", zap.String("token", token), zap.String("status", resp.Status))
	}
	return ok
}

// do sends an authorized JSON request, refreshing the token once on 401.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, header http.Header, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		status, err := c.send(ctx, method, endpoint, payload, token, header, out)
		if status == http.StatusUnauthorized && attempt == 0 {
			c.logger.Info("paypal token rejected, refreshing")
			c.invalidate(token)
			continue
		}
		return err
	}
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, token string, header http.Header, out any) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limit: %w", err)
		}
	}

	target := *c.baseURL
	target.Path = path.Join(target.Path, endpoint)

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return 0, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return resp.StatusCode, err
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}

	apiErr := &APIError{Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed errorResponse
	if json.Unmarshal(body, &parsed) == nil {
		apiErr.Name = parsed.Name
		apiErr.Message = parsed.Message
		if apiErr.Name == "" {
			apiErr.Name = parsed.Error
			apiErr.Message = parsed.Desc
		}
	}
	return apiErr
}

// accessToken returns a cached client-credentials token, fetching a new one
// when it is missing or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(tokenRefreshSkew).Before(c.expires) {
		return c.token, nil
	}

	token, expiresIn, err := c.fetchToken(ctx)
	if err != nil {
		return "", fmt.Errorf("paypal access token: %w", err)
	}
	c.token = token
	c.expires = c.now().Add(time.Duration(expiresIn) * time.Second)
	c.logger.Debug("paypal access token refreshed", zap.Time("expires_at", c.expires))
	return c.token, nil
}

func (c *Client) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
	}
}

func (c *Client) fetchToken(ctx context.Context) (string, int64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", 0, fmt.Errorf("rate limit: %w", err)
		}
	}

	target := *c.baseURL
	target.Path = path.Join(target.Path, "/v1/oauth2/token")
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return "", 0, err
	}
	var data tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", 0, fmt.Errorf("decode token: %w", err)
	}
	if data.AccessToken == "" {
		return "", 0, errors.New("empty access token")
	}
	return data.AccessToken, data.ExpiresIn, nil
}
