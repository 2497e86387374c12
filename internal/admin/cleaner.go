package admin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/metrics"
	"github.com/campusbuzz/backend/pkg/apperr"
)

// Cleanup actions.
const (
	ActionOldEvents         = "cleanup-old-events"
	ActionUnverifiedTickets = "cleanup-unverified-tickets"
	ActionReadNotifications = "cleanup-read-notifications"

	DefaultDaysOld = 30
)

// Actions lists the supported cleanup actions.
var Actions = []string{ActionOldEvents, ActionUnverifiedTickets, ActionReadNotifications}

// EventPurger removes old events with their tickets.
type EventPurger interface {
	DeleteOlderThan(ctx context.Context, days int) (int64, []string, error)
}

// TicketPurger removes stale unverified tickets.
type TicketPurger interface {
	DeleteUnverifiedOlderThan(ctx context.Context, days int) (int64, []string, error)
}

// NotificationPurger removes read notifications.
type NotificationPurger interface {
	DeleteReadOlderThan(ctx context.Context, days int) (int64, error)
}

// ObjectDeleter removes stored objects best-effort and returns how many went.
type ObjectDeleter interface {
	DeleteObjects(ctx context.Context, keys []string) int
}

// CleanupResult reports one cleanup run.
type CleanupResult struct {
	Action         string   `json:"action"`
	ItemsProcessed int64    `json:"items_processed"`
	ItemsDeleted   int64    `json:"items_deleted"`
	Errors         []string `json:"errors"`
}

// Cleaner runs on-demand maintenance. Runs must not overlap.
type Cleaner struct {
	events        EventPurger
	tickets       TicketPurger
	notifications NotificationPurger
	objects       ObjectDeleter
	logger        *zap.Logger
}

// NewCleaner creates a cleaner. objects may be nil.
func NewCleaner(events EventPurger, tickets TicketPurger, notifications NotificationPurger, objects ObjectDeleter, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{events: events, tickets: tickets, notifications: notifications, objects: objects, logger: logger}
}

// Run executes action on rows older than daysOld days. daysOld <= 0 means DefaultDaysOld.
func (c *Cleaner) Run(ctx context.Context, action string, daysOld int) (*CleanupResult, error) {
	if daysOld <= 0 {
		daysOld = DefaultDaysOld
	}
	res := &CleanupResult{Action: action, Errors: []string{}}

	var (
		n    int64
		keys []string
		err  error
	)
	switch action {
	case ActionOldEvents:
		n, keys, err = c.events.DeleteOlderThan(ctx, daysOld)
	case ActionUnverifiedTickets:
		n, keys, err = c.tickets.DeleteUnverifiedOlderThan(ctx, daysOld)
	case ActionReadNotifications:
		n, err = c.notifications.DeleteReadOlderThan(ctx, daysOld)
	default:
		return nil, apperr.Validation("invalid cleanup action")
	}
	if err != nil {
		return nil, apperr.Internal("cleanup "+action, err)
	}
	res.ItemsProcessed, res.ItemsDeleted = n, n

	if len(keys) > 0 {
		if c.objects == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%d stored QR images left in place: object storage not configured", len(keys)))
		} else if removed := c.objects.DeleteObjects(ctx, keys); removed < len(keys) {
			res.Errors = append(res.Errors, fmt.Sprintf("failed to delete %d of %d stored QR images", len(keys)-removed, len(keys)))
		}
	}
	metrics.CleanupDeleted(action, int(n))
	c.logger.Info("cleanup completed",
		zap.String("action", action),
		zap.Int("days_old", daysOld),
		zap.Int64("deleted", n),
		zap.Int("images", len(keys)),
	)
	return res, nil
}
