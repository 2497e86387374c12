// Package notifications stores in-app messages. Clients poll for them; delivery is
// fire-and-forget and never fails the operation that triggered it.
package notifications

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/metrics"
	"github.com/campusbuzz/backend/internal/models"
)

// ListLimit caps how many notifications a listing returns.
const ListLimit = 20

// Store is the notification persistence used by Relay.
type Store interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Message is the content of one notification.
type Message struct {
	Title   string
	Body    string
	Type    models.NotificationType
	EventID *uuid.UUID
}

// Inbox is a user's recent notifications plus the unread total.
type Inbox struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
}

// Relay creates and lists notifications.
type Relay struct {
	store  Store
	logger *zap.Logger
}

// NewRelay creates a notification relay.
func NewRelay(store Store, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{store: store, logger: logger}
}

// Notify stores one notification for userID. Failures are logged and counted, not returned.
func (r *Relay) Notify(ctx context.Context, userID uuid.UUID, msg Message) {
	if msg.Type == "" {
		msg.Type = models.NotificationEvent
	}
	n := &models.Notification{
		UserID:  userID,
		Title:   msg.Title,
		Message: msg.Body,
		Type:    msg.Type,
		EventID: msg.EventID,
	}
	if err := r.store.Insert(ctx, n); err != nil {
		metrics.NotificationFailed()
		r.logger.Warn("notification not delivered",
			zap.String("user_id", userID.String()),
			zap.String("title", msg.Title),
			zap.Error(err),
		)
		return
	}
	metrics.NotificationCreated()
}

// NotifyMany sends the same message to every recipient, one insert each.
func (r *Relay) NotifyMany(ctx context.Context, userIDs []uuid.UUID, msg Message) {
	for _, id := range userIDs {
		r.Notify(ctx, id, msg)
	}
}

// ListFor returns the user's newest notifications and unread count.
func (r *Relay) ListFor(ctx context.Context, userID uuid.UUID) (*Inbox, error) {
	list, err := r.store.ListRecent(ctx, userID, ListLimit)
	if err != nil {
		return nil, err
	}
	unread, err := r.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Notification{}
	}
	return &Inbox{Notifications: list, UnreadCount: unread}, nil
}

// MarkRead marks one notification (when id is set) or all of the user's notifications read.
func (r *Relay) MarkRead(ctx context.Context, userID uuid.UUID, id *uuid.UUID) error {
	if id != nil {
		return r.store.MarkRead(ctx, userID, *id)
	}
	_, err := r.store.MarkAllRead(ctx, userID)
	return err
}
