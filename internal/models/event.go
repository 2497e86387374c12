package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is a campus event listing. Date is "YYYY-MM-DD" and Time is free-form ("18:30").
type Event struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	Owner          *EventOwner     `json:"owner,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	Location       string          `json:"location"`
	Category       string          `json:"category"`
	Price          decimal.Decimal `json:"price"`
	Host           string          `json:"host"`
	Image          string          `json:"image"`
	IsApproved     bool            `json:"is_approved"`
	Capacity       *int            `json:"capacity,omitempty"`
	AttendeesCount int             `json:"attendees_count"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// EventOwner is the public part of the creating account, joined into listings.
type EventOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// VisibleTo reports whether r may see the event: approved events are public,
// pending ones only to their owner and admins.
func (e *Event) VisibleTo(r Requester) bool {
	return e.IsApproved || r.IsAdmin || (r.UserID != uuid.Nil && r.UserID == e.OwnerID)
}

// IsFull reports whether a capacity is set and reached.
func (e *Event) IsFull() bool {
	return e.Capacity != nil && e.AttendeesCount >= *e.Capacity
}
