package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/internal/notifications"
	"github.com/campusbuzz/backend/pkg/apperr"
	"github.com/campusbuzz/backend/pkg/queue"
)

// DateLayout is the wire and storage format of an event date.
const DateLayout = "2006-01-02"

// Store is the event persistence used by Service.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, approvedOnly bool) ([]models.Event, error)
	ListPending(ctx context.Context, ownerID *uuid.UUID) ([]models.Event, error)
	Approve(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) ([]string, error)
}

// Notifier delivers a notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, msg notifications.Message)
}

// JobQueue schedules background jobs.
type JobQueue interface {
	EnqueueEventSubmitted(ctx context.Context, payload queue.EventSubmittedPayload) error
}

// AdminNotifier tells admins about a submitted event. Used inline when the queue is unavailable.
type AdminNotifier interface {
	EventSubmitted(ctx context.Context, eventID uuid.UUID, title string) (int, error)
}

// ObjectDeleter removes stored objects best-effort.
type ObjectDeleter interface {
	DeleteObjects(ctx context.Context, keys []string) int
}

// CreateInput is a new event as submitted by a user.
type CreateInput struct {
	Title       string
	Description string
	Date        string
	Time        string
	Location    string
	Category    string
	Price       decimal.Decimal
	Host        string
	Image       string
	Capacity    *int
}

// Service owns event lifecycle rules: creation, approval, visibility and deletion.
type Service struct {
	store    Store
	notifier Notifier
	jobs     JobQueue
	admins   AdminNotifier
	objects  ObjectDeleter
	logger   *zap.Logger
}

// NewService creates an event service. jobs and objects may be nil.
func NewService(store Store, notifier Notifier, jobs JobQueue, admins AdminNotifier, objects ObjectDeleter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, jobs: jobs, admins: admins, objects: objects, logger: logger}
}

func (in *CreateInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Time = strings.TrimSpace(in.Time)
	in.Location = strings.TrimSpace(in.Location)
	in.Category = strings.TrimSpace(in.Category)
	in.Host = strings.TrimSpace(in.Host)

	required := []struct{ name, value string }{
		{"title", in.Title},
		{"description", in.Description},
		{"date", in.Date},
		{"time", in.Time},
		{"location", in.Location},
		{"category", in.Category},
		{"host", in.Host},
	}
	for _, f := range required {
		if f.value == "" {
			return apperr.Validation(f.name + " is required")
		}
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return apperr.Validation("date must be YYYY-MM-DD")
	}
	in.Date = date
	if in.Price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}
	if in.Capacity != nil && *in.Capacity <= 0 {
		return apperr.Validation("capacity must be positive")
	}
	return nil
}

func parseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

// Create validates and stores a new event. Admin events are approved immediately;
// everyone else's wait for approval and the admins are told about them.
func (s *Service) Create(ctx context.Context, in CreateInput, requester models.Requester) (*models.Event, error) {
	if requester.UserID == uuid.Nil {
		return nil, apperr.Unauthenticated("not authenticated")
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	e := &models.Event{
		OwnerID:     requester.UserID,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		Location:    in.Location,
		Category:    in.Category,
		Price:       in.Price,
		Host:        in.Host,
		Image:       in.Image,
		IsApproved:  requester.IsAdmin,
		Capacity:    in.Capacity,
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info("event created",
		zap.String("event_id", e.ID.String()),
		zap.String("owner_id", e.OwnerID.String()),
		zap.Bool("approved", e.IsApproved),
	)

	if !e.IsApproved {
		s.notifier.Notify(ctx, e.OwnerID, notifications.Message{
			Title:   "Event Pending Approval",
			Body:    fmt.Sprintf("Your event %q has been sent for admin approval.", e.Title),
			Type:    models.NotificationEvent,
			EventID: &e.ID,
		})
		s.announceToAdmins(ctx, e)
	}
	return e, nil
}

func (s *Service) announceToAdmins(ctx context.Context, e *models.Event) {
	if s.jobs != nil {
		err := s.jobs.EnqueueEventSubmitted(ctx, queue.EventSubmittedPayload{EventID: e.ID, Title: e.Title, OwnerID: e.OwnerID})
		if err == nil {
			return
		}
		s.logger.Warn("enqueue admin fan-out failed, notifying inline", zap.String("event_id", e.ID.String()), zap.Error(err))
	}
	if s.admins == nil {
		return
	}
	if _, err := s.admins.EventSubmitted(ctx, e.ID, e.Title); err != nil {
		s.logger.Warn("admin fan-out failed", zap.String("event_id", e.ID.String()), zap.Error(err))
	}
}

// Approve marks an event approved. Approving twice is a no-op; only the first approval notifies the owner.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, requester models.Requester) (*models.Event, error) {
	if !requester.IsAdmin {
		return nil, apperr.Forbidden("admin access required")
	}
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.IsApproved {
		return e, nil
	}
	changed, err := s.store.Approve(ctx, id)
	if err != nil {
		return nil, err
	}
	e.IsApproved = true
	if changed {
		s.logger.Info("event approved", zap.String("event_id", id.String()), zap.String("admin_id", requester.UserID.String()))
		s.notifier.Notify(ctx, e.OwnerID, notifications.Message{
			Title:   "Event Approved",
			Body:    fmt.Sprintf("Your event %q has been approved and is now live.", e.Title),
			Type:    models.NotificationEvent,
			EventID: &e.ID,
		})
	}
	return e, nil
}

// ListVisible returns every event for admins and approved events for everyone else, soonest first.
func (s *Service) ListVisible(ctx context.Context, requester models.Requester) ([]models.Event, error) {
	return s.store.List(ctx, !requester.IsAdmin)
}

// Get returns one event. Pending events are NotFound unless requested by their owner or an admin.
func (s *Service) Get(ctx context.Context, id uuid.UUID, requester models.Requester) (*models.Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.VisibleTo(requester) {
		return nil, apperr.NotFound("event not found")
	}
	return e, nil
}

// ListPending returns all events awaiting approval, newest first. Admin only.
func (s *Service) ListPending(ctx context.Context, requester models.Requester) ([]models.Event, error) {
	if !requester.IsAdmin {
		return nil, apperr.Forbidden("admin access required")
	}
	return s.store.ListPending(ctx, nil)
}

// ListPendingByOwner returns ownerID's events awaiting approval. Visible to that owner and admins.
func (s *Service) ListPendingByOwner(ctx context.Context, ownerID uuid.UUID, requester models.Requester) ([]models.Event, error) {
	if requester.UserID == uuid.Nil {
		return nil, apperr.Unauthenticated("not authenticated")
	}
	if requester.UserID != ownerID && !requester.IsAdmin {
		return nil, apperr.Forbidden("access denied")
	}
	return s.store.ListPending(ctx, &ownerID)
}

// Delete removes an event and all of its tickets. Owner or admin only.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, requester models.Requester) error {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !requester.IsAdmin && e.OwnerID != requester.UserID {
		return apperr.Forbidden("not authorized to delete this event")
	}
	keys, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.logger.Info("event deleted",
		zap.String("event_id", id.String()),
		zap.String("by", requester.UserID.String()),
		zap.Int("tickets_with_images", len(keys)),
	)
	if s.objects != nil && len(keys) > 0 {
		s.objects.DeleteObjects(ctx, keys)
	}
	return nil
}
