package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/server/http/dto"
)

// OrderHandler triggers bulk processing.
type OrderHandler struct {
	facade  BulkFacade
	respond Responder
	logger  *zap.Logger
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade BulkFacade, respond Responder, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{facade: facade, respond: respond, logger: logger}
}

// ProcessPending handles GET /process-pending-orders.
func (h *OrderHandler) ProcessPending(c *gin.Context) {
	n, err := h.facade.ProcessPendingOrders(c.Request.Context())
	switch {
	case errors.Is(err, domainErrors.ErrNothingToProcess):
		h.respond.Error(c, http.StatusBadRequest, "No pending orders to process", nil)
		return
	case err != nil:
		h.logger.Error("failed to start processing pending orders", zap.Error(err))
		h.respond.Error(c, http.StatusInternalServerError, "Failed to start processing pending orders", gin.H{"error": err.Error()})
		return
	}
	h.respond.Success(c, http.StatusOK, "Pending orders processing started", dto.PendingOrdersData{TotalPendingOrders: n})
}

// RetryFailed handles GET /retry-failed-orders.
func (h *OrderHandler) RetryFailed(c *gin.Context) {
	n, err := h.facade.RetryFailedOrders(c.Request.Context())
	switch {
	case errors.Is(err, domainErrors.ErrNothingToProcess):
		h.respond.Error(c, http.StatusBadRequest, "No failed orders to process", nil)
		return
	case err != nil:
		h.logger.Error("failed to start processing failed orders", zap.Error(err))
		h.respond.Error(c, http.StatusInternalServerError, "Failed to start processing failed orders", gin.H{"error": err.Error()})
		return
	}
	h.respond.Success(c, http.StatusOK, "Failed orders processing started", dto.FailedOrdersData{TotalFailedOrders: n})
}
