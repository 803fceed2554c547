package paypal

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/metrics"
	"github.com/polkiloo/orderflow/internal/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSimulatedSuccess(t *testing.T) {
	sim := NewSimulated(0.7, Links{AppURL: "http://shop.test"}, nil, zap.NewNop())
	sim.roll = func() float64 { return 0.1 }

	res := sim.CreatePayment(context.Background(), testOrder())
	require.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.GatewayOrderID, simulatedPrefix))

	approval, err := url.Parse(res.ApprovalURL)
	require.NoError(t, err)
	assert.Equal(t, "/payment/success", approval.Path)
	assert.Equal(t, "42", approval.Query().Get("order"))
	assert.Equal(t, res.GatewayOrderID, approval.Query().Get("token"))

	assert.True(t, sim.VerifyPayment(context.Background(), res.GatewayOrderID))
	capture := sim.CapturePayment(context.Background(), res.GatewayOrderID)
	assert.True(t, capture.Success)
	assert.Equal(t, "COMPLETED", capture.Status)
}

func TestSimulatedFailure(t *testing.T) {
	sim := NewSimulated(0.7, Links{AppURL: "http://shop.test"}, nil, zap.NewNop())
	sim.roll = func() float64 { return 0.9 }

	assert.False(t, sim.CreatePayment(context.Background(), testOrder()).Success)
	assert.False(t, sim.CapturePayment(context.Background(), "SIM-1").Success)
	assert.False(t, sim.VerifyPayment(context.Background(), "PP-1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sim.roll = func() float64 { return 0 }
	assert.False(t, sim.CreatePayment(ctx, testOrder()).Success)
}

func TestNewGatewaySelectsMode(t *testing.T) {
	cfg := &config.Config{
		HTTP:    config.HTTP{AppURL: "http://shop.test"},
		Gateway: config.Gateway{Mode: ModeSimulated, SuccessRate: 0.5},
	}
	signer := auth.NewJWTStateSigner("", auth.Options{})

	gw, err := newGateway(gatewayParams{Config: cfg, Signer: signer, Metrics: metrics.New(), Logger: zap.NewNop()})
	require.NoError(t, err)
	sim, ok := gw.(*Simulated)
	require.True(t, ok)
	assert.Equal(t, 0.5, sim.successRate)

	cfg.Gateway = config.Gateway{Mode: "paypal", BaseURL: "https://api-m.sandbox.paypal.com", ClientID: "id", ClientSecret: "s", RatePerSec: 5, Burst: 1}
	gw, err = newGateway(gatewayParams{Config: cfg, Signer: signer, Logger: zap.NewNop()})
	require.NoError(t, err)
	client, ok := gw.(*Client)
	require.True(t, ok)
	assert.NotNil(t, client.limiter)

	cfg.Gateway.BaseURL = "relative"
	_, err = newGateway(gatewayParams{Config: cfg, Signer: signer, Logger: zap.NewNop()})
	assert.Error(t, err)
}
