package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType groups notifications for display.
type NotificationType string

const (
	NotificationEvent  NotificationType = "event"
	NotificationTicket NotificationType = "ticket"
	NotificationSystem NotificationType = "system"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	EventID   *uuid.UUID       `json:"event_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
