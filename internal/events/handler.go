package events

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/middleware"
	"github.com/campusbuzz/backend/pkg/response"
)

// CreateRequest is the body for POST /events. Price accepts a JSON number or string.
type CreateRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Date        string           `json:"date" binding:"required"`
	Time        string           `json:"time" binding:"required"`
	Location    string           `json:"location" binding:"required"`
	Category    string           `json:"category" binding:"required"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Host        string           `json:"host" binding:"required"`
	Image       string           `json:"image"`
	Capacity    *int             `json:"capacity"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.ListVisible(c.Request.Context(), middleware.RequesterFrom(c))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	e, err := h.svc.Get(c.Request.Context(), id, middleware.RequesterFrom(c))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, e)
}

// Pending handles GET /events/pending (admin only).
func (h *Handler) Pending(c *gin.Context) {
	list, err := h.svc.ListPending(c.Request.Context(), middleware.RequesterFrom(c))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// PendingByOwner handles GET /events/user/:userId/pending.
func (h *Handler) PendingByOwner(c *gin.Context) {
	ownerID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	list, err := h.svc.ListPendingByOwner(c.Request.Context(), ownerID, middleware.RequesterFrom(c))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	requester := middleware.RequesterFrom(c)
	e, err := h.svc.Create(c.Request.Context(), CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		Location:    req.Location,
		Category:    req.Category,
		Price:       *req.Price,
		Host:        req.Host,
		Image:       req.Image,
		Capacity:    req.Capacity,
	}, requester)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	msg := "Event created successfully"
	if !e.IsApproved {
		msg = "Event created successfully and sent for admin approval"
	}
	response.Created(c, e, msg)
}

// Approve handles POST /events/:id/approve (admin only).
func (h *Handler) Approve(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	e, err := h.svc.Approve(c.Request.Context(), id, middleware.RequesterFrom(c))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OKMessage(c, e, "Event approved")
}

// Delete handles DELETE /events/:id (owner or admin).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.RequesterFrom(c)); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OKMessage(c, nil, "Event deleted successfully")
}
