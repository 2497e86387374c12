package tickets

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/middleware"
	"github.com/campusbuzz/backend/pkg/response"
)

// BookRequest is the body for POST /book-ticket.
type BookRequest struct {
	EventID       string `json:"event_id" binding:"required"`
	Quantity      int    `json:"quantity"`
	AttendeeName  string `json:"attendee_name"`
	AttendeeEmail string `json:"attendee_email"`
}

// VerifyRequest is the body for POST /tickets/verify. qr_data may be the payload
// as a JSON string or as an object.
type VerifyRequest struct {
	TicketID string          `json:"ticket_id"`
	QRData   json.RawMessage `json:"qr_data"`
}

// OrderSummaryRequest is the body for POST /orders/summary.
type OrderSummaryRequest struct {
	EventID  string `json:"event_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// Handler handles ticket HTTP endpoints.
type Handler struct {
	issuer   *Issuer
	verifier *Verifier
	svc      *Service
	logger   *zap.Logger
}

// NewHandler creates a ticket handler.
func NewHandler(issuer *Issuer, verifier *Verifier, svc *Service, logger *zap.Logger) *Handler {
	return &Handler{issuer: issuer, verifier: verifier, svc: svc, logger: logger}
}

// Book handles POST /book-ticket.
func (h *Handler) Book(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		response.BadRequest(c, "invalid event_id")
		return
	}
	r := middleware.RequesterFrom(c)
	t, err := h.issuer.Book(c.Request.Context(), BookInput{
		UserID:        r.UserID,
		IsAdmin:       r.IsAdmin,
		EventID:       eventID,
		Quantity:      req.Quantity,
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.AttendeeEmail,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.Created(c, t, "Ticket booked successfully")
}

// List handles GET /tickets. Admins pass ?all=1 for every ticket.
func (h *Handler) List(c *gin.Context) {
	all := c.Query("all") == "1" || c.Query("all") == "true"
	list, err := h.svc.List(c.Request.Context(), middleware.RequesterFrom(c), all)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /tickets/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}
	t, err := h.svc.Get(c.Request.Context(), id, middleware.RequesterFrom(c))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, t)
}

// QR handles GET /tickets/:id/qr.
func (h *Handler) QR(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}
	img, err := h.svc.QR(c.Request.Context(), id, middleware.RequesterFrom(c))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if img.URL != "" {
		c.Redirect(http.StatusFound, img.URL)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", img.PNG)
}

// Verify handles POST /tickets/verify. Rejected scans are answered 200 with valid=false.
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	input := scanInput(req)
	if input == "" {
		response.BadRequest(c, "ticket_id or qr_data is required")
		return
	}
	res, err := h.verifier.Verify(c.Request.Context(), VerifyInput{
		Input:      input,
		VerifierID: middleware.RequesterFrom(c).UserID,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OKMessage(c, res, res.Message)
}

func scanInput(req VerifyRequest) string {
	raw := bytes.TrimSpace(req.QRData)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return req.TicketID
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

// OrderSummary handles POST /orders/summary.
func (h *Handler) OrderSummary(c *gin.Context) {
	var req OrderSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		response.BadRequest(c, "invalid event_id")
		return
	}
	summary, err := h.issuer.Quote(c.Request.Context(), eventID, req.Quantity)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, summary)
}
