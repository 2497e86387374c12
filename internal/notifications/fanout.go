package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/campusbuzz/backend/internal/models"
)

// AdminDirectory lists admin accounts.
type AdminDirectory interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Fanout delivers notifications addressed to a group rather than one user.
type Fanout struct {
	relay  *Relay
	admins AdminDirectory
}

// NewFanout creates a fan-out notifier.
func NewFanout(relay *Relay, admins AdminDirectory) *Fanout {
	return &Fanout{relay: relay, admins: admins}
}

// EventSubmitted tells every admin that an event awaits approval.
// Only the admin lookup can fail; individual deliveries are best-effort.
func (f *Fanout) EventSubmitted(ctx context.Context, eventID uuid.UUID, title string) (int, error) {
	ids, err := f.admins.ListAdminIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list admins: %w", err)
	}
	f.relay.NotifyMany(ctx, ids, Message{
		Title:   "New Event Pending Approval",
		Body:    fmt.Sprintf("A new event %q needs your approval.", title),
		Type:    models.NotificationEvent,
		EventID: &eventID,
	})
	return len(ids), nil
}
