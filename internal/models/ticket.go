package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketDetails is the snapshot taken at booking time. Later edits to the event do not change it.
type TicketDetails struct {
	AttendeeName  string          `json:"attendee_name"`
	AttendeeEmail string          `json:"attendee_email"`
	EventName     string          `json:"event_name"`
	EventDate     string          `json:"event_date"`
	EventTime     string          `json:"event_time"`
	EventLocation string          `json:"event_location"`
	Price         decimal.Decimal `json:"price"`
	QRData        string          `json:"qr_data"`
	QR            string          `json:"qr"`
}

// Ticket is a booking of one event by one user.
type Ticket struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"user_id"`
	EventID    uuid.UUID     `json:"event_id"`
	Details    TicketDetails `json:"details"`
	Quantity   int           `json:"quantity"`
	Verified   bool          `json:"verified"`
	VerifiedAt *time.Time    `json:"verified_at,omitempty"`
	VerifiedBy *uuid.UUID    `json:"verified_by,omitempty"`
	IssuedAtMs int64         `json:"-"`
	QRImageKey *string       `json:"-"`
	CreatedAt  time.Time     `json:"created_at"`
}

// PurchaseDate is the issue instant at millisecond precision.
func (t *Ticket) PurchaseDate() time.Time {
	return time.UnixMilli(t.IssuedAtMs).UTC()
}
