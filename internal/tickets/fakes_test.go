package tickets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/internal/notifications"
	"github.com/campusbuzz/backend/pkg/apperr"
	"github.com/campusbuzz/backend/pkg/queue"
)

type memoryEvents struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
}

func newMemoryEvents() *memoryEvents {
	return &memoryEvents{events: map[uuid.UUID]*models.Event{}}
}

func (m *memoryEvents) add(e models.Event) *models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.events[e.ID] = &e
	return &e
}

func (m *memoryEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, apperr.NotFound("event not found")
	}
	cp := *e
	return &cp, nil
}

type memoryTickets struct {
	mu      sync.Mutex
	events  *memoryEvents
	tickets map[uuid.UUID]*models.Ticket

	failCreate   error
	beforeVerify func(id uuid.UUID)
}

func newMemoryTickets(events *memoryEvents) *memoryTickets {
	return &memoryTickets{events: events, tickets: map[uuid.UUID]*models.Ticket{}}
}

func (m *memoryTickets) Create(_ context.Context, t *models.Ticket) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.tickets {
		if other.UserID == t.UserID && other.EventID == t.EventID {
			return errDuplicateTicket
		}
	}
	m.events.mu.Lock()
	defer m.events.mu.Unlock()
	e, ok := m.events.events[t.EventID]
	if !ok {
		return errors.New("foreign key violation")
	}
	if e.Capacity != nil && e.AttendeesCount+t.Quantity > *e.Capacity {
		return errSoldOut
	}
	e.AttendeesCount += t.Quantity
	t.CreatedAt = time.UnixMilli(t.IssuedAtMs).UTC()
	cp := *t
	m.tickets[t.ID] = &cp
	return nil
}

func (m *memoryTickets) GetByID(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, apperr.NotFound("ticket not found")
	}
	cp := *t
	return &cp, nil
}

func (m *memoryTickets) Exists(_ context.Context, userID, eventID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.UserID == userID && t.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryTickets) filter(keep func(*models.Ticket) bool) []models.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Ticket{}
	for _, t := range m.tickets {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryTickets) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Ticket, error) {
	return m.filter(func(t *models.Ticket) bool { return t.UserID == userID }), nil
}

func (m *memoryTickets) ListAll(context.Context) ([]models.Ticket, error) {
	return m.filter(func(*models.Ticket) bool { return true }), nil
}

func (m *memoryTickets) MarkVerified(_ context.Context, id, verifierID uuid.UUID, at time.Time) (bool, error) {
	if m.beforeVerify != nil {
		m.beforeVerify(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok || t.Verified {
		return false, nil
	}
	t.Verified, t.VerifiedAt, t.VerifiedBy = true, &at, &verifierID
	return true, nil
}

func (m *memoryTickets) SetQRImageKey(_ context.Context, id uuid.UUID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return apperr.NotFound("ticket not found")
	}
	t.QRImageKey = &key
	return nil
}

func (m *memoryTickets) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

type staticUsers map[uuid.UUID]*models.User

func (s staticUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Message
	to   []uuid.UUID
}

func (r *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, msg notifications.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to = append(r.to, userID)
	r.sent = append(r.sent, msg)
}

type recordingQueue struct {
	jobs []queue.TicketQRUploadPayload
	err  error
}

func (r *recordingQueue) EnqueueTicketQRUpload(_ context.Context, p queue.TicketQRUploadPayload) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, p)
	return nil
}

type memoryObjects struct {
	objects    map[string][]byte
	presignErr error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}}
}

func (m *memoryObjects) Upload(_ context.Context, key, _ string, body io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.objects[key] = buf.Bytes()
	return nil
}

func (m *memoryObjects) PresignedDownloadURL(_ context.Context, key string) (string, error) {
	if m.presignErr != nil {
		return "", m.presignErr
	}
	return "https://bucket.example/" + key + "?sig=1", nil
}

// fixture wires an issuer and verifier over shared in-memory stores.
type fixture struct {
	events   *memoryEvents
	tickets  *memoryTickets
	users    staticUsers
	notifier *recordingNotifier
	jobs     *recordingQueue
	signer   *Signer
	issuer   *Issuer
	verifier *Verifier
	clock    time.Time

	attendee models.User
	admin    models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		events:   newMemoryEvents(),
		notifier: &recordingNotifier{},
		jobs:     &recordingQueue{},
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC),
		attendee: models.User{ID: uuid.New(), Name: "Asha Rao", Email: "asha@campus.edu"},
		admin:    models.User{ID: uuid.New(), Name: "Door Staff", Email: "door@campus.edu", IsAdmin: true},
	}
	f.tickets = newMemoryTickets(f.events)
	f.users = staticUsers{f.attendee.ID: &f.attendee, f.admin.ID: &f.admin}
	signer, err := NewSigner(testSecret)
	require.NoError(t, err)
	f.signer = signer
	f.issuer = NewIssuer(f.tickets, f.events, f.users, signer, f.notifier, f.jobs, zap.NewNop())
	f.issuer.now = func() time.Time { return f.clock }
	f.verifier = NewVerifier(f.tickets, f.events, signer, zap.NewNop())
	f.verifier.now = func() time.Time { return f.clock.Add(48 * time.Hour) }
	return f
}

func (f *fixture) approvedEvent(price string) *models.Event {
	return f.events.add(models.Event{
		OwnerID:    f.admin.ID,
		Title:      "Spring Hack Night",
		Date:       "2026-03-20",
		Time:       "18:30",
		Location:   "Engineering Hall",
		Price:      decimal.RequireFromString(price),
		IsApproved: true,
	})
}

func (f *fixture) book(t *testing.T, eventID uuid.UUID) *models.Ticket {
	t.Helper()
	tk, err := f.issuer.Book(context.Background(), BookInput{UserID: f.attendee.ID, EventID: eventID})
	require.NoError(t, err)
	return tk
}
