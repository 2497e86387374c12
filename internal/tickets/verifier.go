package tickets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/metrics"
	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/pkg/apperr"
)

// Reasons a scan is rejected.
const (
	ReasonMalformed    = "malformed input"
	ReasonNotFound     = "not found"
	ReasonTampered     = "tampered or stale data"
	ReasonBadSignature = "bad signature"
)

const defaultTicketType = "General"

// VerifyInput is a door scan: a ticket id or the QR payload text.
type VerifyInput struct {
	Input      string
	VerifierID uuid.UUID
}

// TicketSummary is what door staff see for a scanned ticket. All fields come from storage.
type TicketSummary struct {
	ID            uuid.UUID       `json:"id"`
	EventID       uuid.UUID       `json:"eventId"`
	UserID        uuid.UUID       `json:"userId"`
	AttendeeName  string          `json:"attendeeName"`
	AttendeeEmail string          `json:"attendeeEmail"`
	EventName     string          `json:"eventName"`
	EventDate     string          `json:"eventDate"`
	EventTime     string          `json:"eventTime"`
	EventLocation string          `json:"eventLocation"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	TicketType    string          `json:"ticketType"`
	PurchaseDate  time.Time       `json:"purchaseDate"`
	Verified      bool            `json:"verified"`
	VerifiedAt    *time.Time      `json:"verifiedAt,omitempty"`
}

// VerificationResult is the outcome of a scan. Invalid scans are results, not errors.
type VerificationResult struct {
	Valid           bool           `json:"valid"`
	AlreadyVerified bool           `json:"alreadyVerified"`
	Reason          string         `json:"reason,omitempty"`
	Message         string         `json:"message"`
	VerifiedAt      *time.Time     `json:"verifiedAt,omitempty"`
	Ticket          *TicketSummary `json:"ticket,omitempty"`
	Event           *models.Event  `json:"event,omitempty"`
}

// Verifier checks scanned tickets and marks them used.
type Verifier struct {
	tickets Store
	events  EventReader
	signer  *Signer
	logger  *zap.Logger
	now     func() time.Time
}

// NewVerifier creates a verifier.
func NewVerifier(tickets Store, events EventReader, signer *Signer, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{tickets: tickets, events: events, signer: signer, logger: logger, now: time.Now}
}

func invalid(reason string) *VerificationResult {
	metrics.Verification(reason)
	return &VerificationResult{Reason: reason, Message: "Ticket is not valid: " + reason}
}

// Verify resolves in to a ticket, checks it against storage and marks it verified.
// A ticket that is already verified is still valid, with AlreadyVerified set and
// the first verification time.
func (v *Verifier) Verify(ctx context.Context, in VerifyInput) (*VerificationResult, error) {
	if in.VerifierID == uuid.Nil {
		return nil, apperr.Unauthenticated("not authenticated")
	}
	s, err := parseScan(in.Input)
	if err != nil {
		return invalid(ReasonMalformed), nil
	}
	t, err := v.tickets.GetByID(ctx, s.TicketID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return invalid(ReasonNotFound), nil
		}
		return nil, err
	}
	if s.EventID != nil && *s.EventID != t.EventID {
		v.logger.Warn("ticket scan event mismatch",
			zap.String("ticket_id", t.ID.String()),
			zap.String("scanned_event_id", s.EventID.String()),
		)
		return invalid(ReasonTampered), nil
	}
	if s.Token != "" && !v.signer.Verify(s.Token, t.ID, t.UserID, t.EventID, t.IssuedAtMs) {
		v.logger.Warn("ticket scan bad signature", zap.String("ticket_id", t.ID.String()))
		return invalid(ReasonBadSignature), nil
	}

	already := t.Verified
	if !already {
		at := v.now().UTC().Truncate(time.Microsecond)
		changed, err := v.tickets.MarkVerified(ctx, t.ID, in.VerifierID, at)
		if err != nil {
			return nil, err
		}
		if changed {
			t.Verified, t.VerifiedAt, t.VerifiedBy = true, &at, &in.VerifierID
			v.logger.Info("ticket verified",
				zap.String("ticket_id", t.ID.String()),
				zap.String("verifier_id", in.VerifierID.String()),
			)
		} else {
			// Someone else scanned it between our read and write.
			if t, err = v.tickets.GetByID(ctx, t.ID); err != nil {
				return nil, err
			}
			if !t.Verified {
				return nil, apperr.Internal("verify ticket", errLostUpdate)
			}
			already = true
		}
	}

	res := &VerificationResult{
		Valid:           true,
		AlreadyVerified: already,
		VerifiedAt:      t.VerifiedAt,
		Ticket:          summarize(t),
		Event:           v.currentEvent(ctx, t.EventID),
		Message:         "Ticket verified successfully",
	}
	if already {
		res.Message = "Ticket was previously verified"
		metrics.Verification("already_verified")
	} else {
		metrics.Verification("verified")
	}
	return res, nil
}

func (v *Verifier) currentEvent(ctx context.Context, id uuid.UUID) *models.Event {
	e, err := v.events.GetByID(ctx, id)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			v.logger.Warn("load event for verified ticket", zap.String("event_id", id.String()), zap.Error(err))
		}
		return nil
	}
	return e
}

func summarize(t *models.Ticket) *TicketSummary {
	return &TicketSummary{
		ID:            t.ID,
		EventID:       t.EventID,
		UserID:        t.UserID,
		AttendeeName:  t.Details.AttendeeName,
		AttendeeEmail: t.Details.AttendeeEmail,
		EventName:     t.Details.EventName,
		EventDate:     t.Details.EventDate,
		EventTime:     t.Details.EventTime,
		EventLocation: t.Details.EventLocation,
		Price:         t.Details.Price,
		Quantity:      t.Quantity,
		TicketType:    defaultTicketType,
		PurchaseDate:  t.PurchaseDate(),
		Verified:      t.Verified,
		VerifiedAt:    t.VerifiedAt,
	}
}
