package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// Result page paths the callbacks redirect to.
const (
	CompletePath  = "/payment/complete"
	FailedPath    = "/payment/failed"
	CancelledPath = "/payment/cancelled"
)

// PaymentHandler serves the gateway return and cancel callbacks.
type PaymentHandler struct {
	facade    PaymentFacade
	templates *template.Template
	respond   Responder
	logger    *zap.Logger
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade, templates *template.Template, respond Responder, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{facade: facade, templates: templates, respond: respond, logger: logger}
}

// Success handles GET /payment/success?token=&order=&state=.
func (h *PaymentHandler) Success(c *gin.Context) {
	orderID, ok := h.callbackOrder(c)
	if !ok {
		return
	}
	token := c.Query("token")
	if token == "" {
		h.respond.Error(c, http.StatusBadRequest, "Missing payment token", nil)
		return
	}

	status, err := h.facade.PaymentSuccess(c.Request.Context(), orderID, token)
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		h.respond.Error(c, http.StatusNotFound, "Order not found", nil)
		return
	case errors.Is(err, domainErrors.ErrInvalidCallback):
		h.respond.Error(c, http.StatusForbidden, "Invalid payment callback", nil)
		return
	case err != nil:
		h.logger.Error("payment success callback failed", zap.Int64("order_id", orderID), zap.Error(err))
		h.redirect(c, FailedPath, orderID)
		return
	}
	h.redirect(c, resultPath(status), orderID)
}

// Cancel handles GET /payment/cancel?order=&state=.
func (h *PaymentHandler) Cancel(c *gin.Context) {
	orderID, ok := h.callbackOrder(c)
	if !ok {
		return
	}

	status, err := h.facade.PaymentCancel(c.Request.Context(), orderID)
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		h.respond.Error(c, http.StatusNotFound, "Order not found", nil)
		return
	case err != nil:
		h.logger.Error("payment cancel callback failed", zap.Int64("order_id", orderID), zap.Error(err))
		h.redirect(c, CancelledPath, orderID)
		return
	}
	h.redirect(c, resultPath(status), orderID)
}

func (h *PaymentHandler) callbackOrder(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Query("order"), 10, 64)
	if err != nil || orderID <= 0 {
		h.respond.Error(c, http.StatusBadRequest, "Invalid order", nil)
		return 0, false
	}
	if err := h.facade.VerifyState(c.Query("state"), orderID); err != nil {
		h.logger.Warn("payment callback rejected", zap.Int64("order_id", orderID), zap.Error(err))
		h.respond.Error(c, http.StatusForbidden, "Invalid payment callback", nil)
		return 0, false
	}
	return orderID, true
}

func (h *PaymentHandler) redirect(c *gin.Context, path string, orderID int64) {
	q := url.Values{"order": {strconv.FormatInt(orderID, 10)}}
	c.Redirect(http.StatusFound, path+"?"+q.Encode())
}

func resultPath(status model.OrderStatus) string {
	switch status {
	case model.OrderStatusCompleted:
		return CompletePath
	case model.OrderStatusCancelled:
		return CancelledPath
	default:
		return FailedPath
	}
}

type resultView struct {
	Title   string
	Message string
	Order   *model.Order
	Locale  string
}

// Complete handles GET /payment/complete.
func (h *PaymentHandler) Complete(c *gin.Context) {
	h.result(c, "Payment Complete", "Thank you, your payment was received.")
}

// Failed handles GET /payment/failed.
func (h *PaymentHandler) Failed(c *gin.Context) {
	h.result(c, "Payment Failed", "We could not complete your payment.")
}

// Cancelled handles GET /payment/cancelled.
func (h *PaymentHandler) Cancelled(c *gin.Context) {
	h.result(c, "Payment Cancelled", "Your payment was cancelled.")
}

func (h *PaymentHandler) result(c *gin.Context, title, message string) {
	view := resultView{Title: title, Message: message, Locale: h.respond.locale}
	if id, err := strconv.ParseInt(c.Query("order"), 10, 64); err == nil {
		if order, err := h.facade.Order(c.Request.Context(), id); err == nil {
			view.Order = order
		}
	}
	c.Render(http.StatusOK, render.HTML{Template: h.templates, Name: "result.html", Data: view})
}
