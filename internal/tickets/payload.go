package tickets

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusbuzz/backend/internal/models"
)

// Payload is the content of a ticket's QR symbol. Only ticketId, eventId and
// verificationToken are trusted on scan; the rest is for display.
type Payload struct {
	TicketID          uuid.UUID `json:"ticketId"`
	EventID           uuid.UUID `json:"eventId"`
	EventName         string    `json:"eventName"`
	AttendeeName      string    `json:"attendeeName"`
	AttendeeEmail     string    `json:"attendeeEmail"`
	EventDate         string    `json:"eventDate"`
	EventTime         string    `json:"eventTime"`
	EventLocation     string    `json:"eventLocation"`
	Price             string    `json:"price"`
	PurchaseDate      time.Time `json:"purchaseDate"`
	VerificationToken string    `json:"verificationToken"`
	Timestamp         int64     `json:"timestamp"`
}

// NewPayload builds the payload for t from its snapshot and token.
func NewPayload(t *models.Ticket, token string) Payload {
	return Payload{
		TicketID:          t.ID,
		EventID:           t.EventID,
		EventName:         t.Details.EventName,
		AttendeeName:      t.Details.AttendeeName,
		AttendeeEmail:     t.Details.AttendeeEmail,
		EventDate:         t.Details.EventDate,
		EventTime:         t.Details.EventTime,
		EventLocation:     t.Details.EventLocation,
		Price:             t.Details.Price.StringFixed(2),
		PurchaseDate:      t.PurchaseDate(),
		VerificationToken: token,
		Timestamp:         t.IssuedAtMs,
	}
}

// Encode serializes the payload as the QR text.
func (p Payload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var (
	errMalformedInput = errors.New("malformed input")
	errLostUpdate     = errors.New("verification update matched no row but ticket is unverified")
)

// scan is what a door scan or typed id resolves to.
type scan struct {
	TicketID uuid.UUID
	EventID  *uuid.UUID
	Token    string
}

// parseScan accepts a bare ticket id (any form uuid.Parse takes, braces included)
// or a JSON payload carrying ticketId.
func parseScan(input string) (scan, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return scan{}, errMalformedInput
	}

	var raw struct {
		TicketID          string `json:"ticketId"`
		EventID           string `json:"eventId"`
		VerificationToken string `json:"verificationToken"`
	}
	if !strings.HasPrefix(input, "{") || json.Unmarshal([]byte(input), &raw) != nil {
		id, err := uuid.Parse(input)
		if err != nil {
			return scan{}, errMalformedInput
		}
		return scan{TicketID: id}, nil
	}
	id, err := uuid.Parse(raw.TicketID)
	if err != nil {
		return scan{}, errMalformedInput
	}
	out := scan{TicketID: id, Token: raw.VerificationToken}
	if raw.EventID != "" {
		eventID, err := uuid.Parse(raw.EventID)
		if err != nil {
			return scan{}, errMalformedInput
		}
		out.EventID = &eventID
	}
	return out, nil
}
