package handlers

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/server/http/dto"
)

// DashboardHandler renders order statistics.
type DashboardHandler struct {
	facade    DashboardFacade
	templates *template.Template
	respond   Responder
	logger    *zap.Logger
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(facade DashboardFacade, templates *template.Template, respond Responder, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{facade: facade, templates: templates, respond: respond, logger: logger}
}

type dashboardView struct {
	*model.Dashboard
	Locale string
}

// Show handles GET /dashboard. Clients asking for JSON get the envelope.
func (h *DashboardHandler) Show(c *gin.Context) {
	data, err := h.facade.Dashboard(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load dashboard", zap.Error(err))
		h.respond.Error(c, http.StatusInternalServerError, "Failed to load dashboard", nil)
		return
	}

	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		h.respond.Success(c, http.StatusOK, "Dashboard data", dto.NewDashboardResponse(data))
		return
	}
	c.Render(http.StatusOK, render.HTML{
		Template: h.templates,
		Name:     "dashboard.html",
		Data:     dashboardView{Dashboard: data, Locale: h.respond.locale},
	})
}
