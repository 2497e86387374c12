package notifications

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/middleware"
	"github.com/campusbuzz/backend/pkg/response"
)

// MarkReadRequest is the body for POST /notifications. Without notification_id every notification is marked read.
type MarkReadRequest struct {
	NotificationID string `json:"notification_id"`
}

// Handler handles notification HTTP endpoints.
type Handler struct {
	relay  *Relay
	logger *zap.Logger
}

// NewHandler creates a notification handler.
func NewHandler(relay *Relay, logger *zap.Logger) *Handler {
	return &Handler{relay: relay, logger: logger}
}

// List handles GET /notifications.
func (h *Handler) List(c *gin.Context) {
	user := middleware.RequesterFrom(c)
	inbox, err := h.relay.ListFor(c.Request.Context(), user.UserID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, inbox)
}

// MarkRead handles POST /notifications.
func (h *Handler) MarkRead(c *gin.Context) {
	var req MarkReadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	var id *uuid.UUID
	if req.NotificationID != "" {
		parsed, err := uuid.Parse(req.NotificationID)
		if err != nil {
			response.BadRequest(c, "invalid notification_id")
			return
		}
		id = &parsed
	}
	user := middleware.RequesterFrom(c)
	if err := h.relay.MarkRead(c.Request.Context(), user.UserID, id); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OKMessage(c, nil, "Notifications marked as read")
}
