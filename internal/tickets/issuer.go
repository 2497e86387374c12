package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/metrics"
	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/internal/notifications"
	"github.com/campusbuzz/backend/pkg/apperr"
	"github.com/campusbuzz/backend/pkg/queue"
	"github.com/campusbuzz/backend/pkg/utils"
)

// Store is the ticket persistence used by this package.
type Store interface {
	Create(ctx context.Context, t *models.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	Exists(ctx context.Context, userID, eventID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error)
	ListAll(ctx context.Context) ([]models.Ticket, error)
	MarkVerified(ctx context.Context, id, verifierID uuid.UUID, at time.Time) (bool, error)
	SetQRImageKey(ctx context.Context, id uuid.UUID, key string) error
}

// EventReader loads events.
type EventReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// UserReader loads accounts.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier delivers a notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, msg notifications.Message)
}

// QRJobQueue schedules eager QR image rendering.
type QRJobQueue interface {
	EnqueueTicketQRUpload(ctx context.Context, payload queue.TicketQRUploadPayload) error
}

// BookInput is a booking request. Empty attendee fields default to the account's;
// a zero Quantity books one seat.
type BookInput struct {
	UserID        uuid.UUID
	IsAdmin       bool
	EventID       uuid.UUID
	Quantity      int
	AttendeeName  string
	AttendeeEmail string
}

// Issuer books tickets.
type Issuer struct {
	tickets  Store
	events   EventReader
	users    UserReader
	signer   *Signer
	notifier Notifier
	jobs     QRJobQueue
	logger   *zap.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

// NewIssuer creates an issuer. jobs may be nil, in which case QR images are only rendered on demand.
func NewIssuer(tickets Store, events EventReader, users UserReader, signer *Signer, notifier Notifier, jobs QRJobQueue, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{
		tickets:  tickets,
		events:   events,
		users:    users,
		signer:   signer,
		notifier: notifier,
		jobs:     jobs,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.New,
	}
}

// QRPath is where a ticket's QR image is served.
func QRPath(ticketID uuid.UUID) string {
	return "/tickets/" + ticketID.String() + "/qr"
}

// Book issues one ticket for in.Quantity seats of in.EventID to in.UserID.
func (i *Issuer) Book(ctx context.Context, in BookInput) (t *models.Ticket, err error) {
	defer func() {
		if err != nil {
			metrics.BookingFailed(apperr.KindOf(err).String())
		}
	}()

	if in.UserID == uuid.Nil {
		return nil, apperr.Unauthenticated("not authenticated")
	}
	quantity := in.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}
	event, err := i.events.GetByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsApproved && !in.IsAdmin {
		return nil, apperr.Forbidden("event is not open for booking")
	}
	exists, err := i.tickets.Exists(ctx, in.UserID, in.EventID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errDuplicateTicket
	}
	if event.IsFull() {
		return nil, errSoldOut
	}
	if left, limited := seatsLeft(event); limited && quantity > left {
		return nil, apperr.Validation(fmt.Sprintf("only %d tickets available", left))
	}

	name, email := strings.TrimSpace(in.AttendeeName), strings.TrimSpace(in.AttendeeEmail)
	if name == "" || email == "" {
		user, err := i.users.GetByID(ctx, in.UserID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, apperr.Unauthenticated("user not found")
			}
			return nil, err
		}
		if name == "" {
			name = user.Name
		}
		if email == "" {
			email = user.Email
		}
	}

	issuedAt := i.now().UTC().Truncate(time.Millisecond)
	t = &models.Ticket{
		ID:         i.newID(),
		UserID:     in.UserID,
		EventID:    event.ID,
		Quantity:   quantity,
		IssuedAtMs: issuedAt.UnixMilli(),
		Details: models.TicketDetails{
			AttendeeName:  name,
			AttendeeEmail: utils.NormalizeEmail(email),
			EventName:     event.Title,
			EventDate:     event.Date,
			EventTime:     event.Time,
			EventLocation: event.Location,
			Price:         event.Price,
		},
	}
	token := i.signer.Sign(t.ID, t.UserID, t.EventID, t.IssuedAtMs)
	qrData, err := NewPayload(t, token).Encode()
	if err != nil {
		return nil, apperr.Internal("encode qr payload", err)
	}
	t.Details.QRData = qrData
	t.Details.QR = QRPath(t.ID)

	if err := i.tickets.Create(ctx, t); err != nil {
		return nil, err
	}
	metrics.TicketBooked()
	i.logger.Info("ticket booked",
		zap.String("ticket_id", t.ID.String()),
		zap.String("event_id", t.EventID.String()),
		zap.String("user_id", t.UserID.String()),
	)

	i.notifier.Notify(ctx, t.UserID, notifications.Message{
		Title:   "Ticket Booked",
		Body:    fmt.Sprintf("Your ticket for %q has been booked.", event.Title),
		Type:    models.NotificationTicket,
		EventID: &t.EventID,
	})
	if i.jobs != nil {
		if err := i.jobs.EnqueueTicketQRUpload(ctx, queue.TicketQRUploadPayload{TicketID: t.ID, EventID: t.EventID}); err != nil {
			i.logger.Warn("enqueue qr upload failed", zap.String("ticket_id", t.ID.String()), zap.Error(err))
		}
	}
	return t, nil
}

// Order summary limits.
const (
	MaxOrderQuantity = 10
	serviceFeeRate   = "0.05"
	minServiceFee    = 2
)

// OrderSummary is a price quote for a number of seats.
type OrderSummary struct {
	EventID    uuid.UUID       `json:"eventId"`
	EventName  string          `json:"eventName"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ServiceFee decimal.Decimal `json:"serviceFee"`
	Total      decimal.Decimal `json:"total"`
	Available  *int            `json:"available,omitempty"`
}

// Quote prices quantity seats of an approved event. Paid orders carry a 5%
// service fee of at least 2; free events carry none.
func (i *Issuer) Quote(ctx context.Context, eventID uuid.UUID, quantity int) (*OrderSummary, error) {
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}
	event, err := i.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsApproved {
		return nil, apperr.NotFound("event not found")
	}
	var available *int
	if left, limited := seatsLeft(event); limited {
		if quantity > left {
			return nil, apperr.Validation(fmt.Sprintf("only %d tickets available", left))
		}
		available = &left
	}

	subtotal := event.Price.Mul(decimal.NewFromInt(int64(quantity)))
	fee := decimal.Zero
	if subtotal.IsPositive() {
		fee = decimal.Max(subtotal.Mul(decimal.RequireFromString(serviceFeeRate)), decimal.NewFromInt(minServiceFee)).Round(2)
	}
	return &OrderSummary{
		EventID:    event.ID,
		EventName:  event.Title,
		Quantity:   quantity,
		UnitPrice:  event.Price,
		Subtotal:   subtotal,
		ServiceFee: fee,
		Total:      subtotal.Add(fee),
		Available:  available,
	}, nil
}

func checkQuantity(quantity int) error {
	if quantity < 1 || quantity > MaxOrderQuantity {
		return apperr.Validation(fmt.Sprintf("quantity must be between 1 and %d", MaxOrderQuantity))
	}
	return nil
}

// seatsLeft returns the unsold seats of e and whether e has a capacity at all.
func seatsLeft(e *models.Event) (int, bool) {
	if e.Capacity == nil {
		return 0, false
	}
	left := *e.Capacity - e.AttendeesCount
	if left < 0 {
		left = 0
	}
	return left, true
}
