package paypal

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"go.uber.org/zap"
)

const simulatedPrefix = "SIM-"

// Simulated stands in for the provider during development. Creation and
// capture succeed with the configured probability and approval links point
// straight back at the local success route.
type Simulated struct {
	successRate float64
	links       Links
	recorder    Recorder
	logger      *zap.Logger
	roll        func() float64
}

func NewSimulated(successRate float64, links Links, recorder Recorder, logger *zap.Logger) *Simulated {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Simulated{
		successRate: successRate,
		links:       links,
		recorder:    recorder,
		logger:      logger,
		roll:        rand.Float64,
	}
}

func (s *Simulated) succeed() bool {
	return s.roll() < s.successRate
}

func (s *Simulated) CreatePayment(ctx context.Context, order *model.Order) *model.CreatePaymentResult {
	if err := ctx.Err(); err != nil {
		s.recorder.GatewayCall(OperationCreate, false)
		return &model.CreatePaymentResult{Gateway: model.GatewayPayPal, Error: err.Error()}
	}
	if !s.succeed() {
		s.recorder.GatewayCall(OperationCreate, false)
		s.logger.Warn("simulated payment creation failed", zap.Int64("order_id", order.ID))
		return &model.CreatePaymentResult{Gateway: model.GatewayPayPal, Error: "Failed to create PayPal payment"}
	}

	id := simulatedPrefix + strings.ToUpper(uuid.NewString())
	approval, err := s.links.Success(order.ID, id)
	if err != nil {
		s.recorder.GatewayCall(OperationCreate, false)
		return &model.CreatePaymentResult{Gateway: model.GatewayPayPal, Error: err.Error()}
	}

	s.recorder.GatewayCall(OperationCreate, true)
	s.logger.Info("simulated payment created", zap.Int64("order_id", order.ID), zap.String("paypal_order_id", id))
	return &model.CreatePaymentResult{
		Success:        true,
		Gateway:        model.GatewayPayPal,
		GatewayOrderID: id,
		ApprovalURL:    approval,
	}
}

func (s *Simulated) CapturePayment(_ context.Context, gatewayOrderID string) *model.CapturePaymentResult {
	if !s.succeed() {
		s.recorder.GatewayCall(OperationCapture, false)
		return &model.CapturePaymentResult{Status: "DECLINED", Error: "capture returned status DECLINED"}
	}
	s.recorder.GatewayCall(OperationCapture, true)
	return &model.CapturePaymentResult{
		Success: true,
		Status:  "COMPLETED",
		Raw:     map[string]any{"id": gatewayOrderID, "status": "COMPLETED"},
	}
}

func (s *Simulated) VerifyPayment(_ context.Context, token string) bool {
	ok := strings.HasPrefix(token, simulatedPrefix)
	s.recorder.GatewayCall(OperationVerify, ok)
	return ok
}
