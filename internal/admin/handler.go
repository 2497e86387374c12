package admin

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/pkg/response"
)

// CleanupRequest is the body for POST /admin/cleanup.
type CleanupRequest struct {
	Action  string `json:"action" binding:"required"`
	DaysOld int    `json:"days_old"`
}

// Handler handles admin endpoints. Routes are mounted behind the admin role check.
type Handler struct {
	dashboard *Dashboard
	cleaner   *Cleaner
	logger    *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(dashboard *Dashboard, cleaner *Cleaner, logger *zap.Logger) *Handler {
	return &Handler{dashboard: dashboard, cleaner: cleaner, logger: logger}
}

// Dashboard handles GET /admin/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	data, err := h.dashboard.Load(c.Request.Context())
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, data)
}

// Cleanup handles POST /admin/cleanup.
func (h *Handler) Cleanup(c *gin.Context) {
	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "cleanup action is required")
		return
	}
	res, err := h.cleaner.Run(c.Request.Context(), req.Action, req.DaysOld)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OKMessage(c, res, fmt.Sprintf("Cleanup completed: %d items processed", res.ItemsDeleted))
}
