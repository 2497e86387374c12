package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusbuzz/backend/pkg/apperr"
	"github.com/campusbuzz/backend/pkg/queue"
)

type fakeSource struct {
	mu      sync.Mutex
	pending []*queue.Job
	retried []*queue.Job
	cancel  context.CancelFunc
}

func (f *fakeSource) Dequeue(context.Context, time.Duration) (*queue.Job, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		f.cancel()
		return nil, "", nil
	}
	job := f.pending[0]
	f.pending = f.pending[1:]
	return job, queue.QueueTickets, nil
}

func (f *fakeSource) Retry(_ context.Context, job *queue.Job, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, job)
	return nil
}

type fakeAdmins struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeAdmins) EventSubmitted(_ context.Context, eventID uuid.UUID, _ string) (int, error) {
	f.calls = append(f.calls, eventID)
	return 2, f.err
}

type fakeQR struct {
	published []uuid.UUID
	err       error
}

func (f *fakeQR) PublishQR(_ context.Context, id uuid.UUID) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.published = append(f.published, id)
	return "tickets/x/" + id.String() + ".png", nil
}

func job(t *testing.T, typ queue.JobType, payload interface{}) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Job{ID: uuid.NewString(), Type: typ, Payload: raw}
}

func TestProcess_EventSubmitted(t *testing.T) {
	admins := &fakeAdmins{}
	p := NewProcessor(nil, admins, nil, nil)
	eventID := uuid.New()

	err := p.Process(context.Background(), job(t, queue.JobTypeEventSubmitted, queue.EventSubmittedPayload{EventID: eventID, Title: "Open Mic"}))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{eventID}, admins.calls)

	admins.err = errors.New("db down")
	err = p.Process(context.Background(), job(t, queue.JobTypeEventSubmitted, queue.EventSubmittedPayload{EventID: eventID}))
	var d *dropError
	assert.ErrorAs(t, err, &d, "fan-out failures are not retried")
}

func TestProcess_TicketQRUpload(t *testing.T) {
	qr := &fakeQR{}
	p := NewProcessor(nil, &fakeAdmins{}, qr, nil)
	ticketID := uuid.New()

	require.NoError(t, p.Process(context.Background(), job(t, queue.JobTypeTicketQRUpload, queue.TicketQRUploadPayload{TicketID: ticketID})))
	assert.Equal(t, []uuid.UUID{ticketID}, qr.published)

	var d *dropError
	qr.err = apperr.NotFound("ticket not found")
	assert.ErrorAs(t, p.Process(context.Background(), job(t, queue.JobTypeTicketQRUpload, queue.TicketQRUploadPayload{TicketID: ticketID})), &d)

	qr.err = errors.New("s3 timeout")
	err := p.Process(context.Background(), job(t, queue.JobTypeTicketQRUpload, queue.TicketQRUploadPayload{TicketID: ticketID}))
	require.Error(t, err)
	assert.False(t, errors.As(err, &d), "storage failures are retried")

	noStorage := NewProcessor(nil, &fakeAdmins{}, nil, nil)
	assert.ErrorAs(t, noStorage.Process(context.Background(), job(t, queue.JobTypeTicketQRUpload, queue.TicketQRUploadPayload{TicketID: ticketID})), &d)
}

func TestProcess_UnknownAndGarbage(t *testing.T) {
	p := NewProcessor(nil, &fakeAdmins{}, &fakeQR{}, nil)
	var d *dropError
	assert.ErrorAs(t, p.Process(context.Background(), &queue.Job{Type: "mystery"}), &d)
	assert.ErrorAs(t, p.Process(context.Background(), &queue.Job{Type: queue.JobTypeTicketQRUpload, Payload: []byte("{")}), &d)
}

func TestRun_RetriesOnlyTransientFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	okTicket := uuid.New()
	src := &fakeSource{cancel: cancel}
	admins := &fakeAdmins{err: errors.New("db down")}
	qr := &fakeQR{}
	src.pending = []*queue.Job{
		job(t, queue.JobTypeTicketQRUpload, queue.TicketQRUploadPayload{TicketID: okTicket}),
		job(t, queue.JobTypeEventSubmitted, queue.EventSubmittedPayload{EventID: uuid.New()}),
	}

	p := NewProcessor(src, admins, qr, nil)
	p.backoff = time.Millisecond

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, []uuid.UUID{okTicket}, qr.published)
	assert.Len(t, admins.calls, 1)
	assert.Empty(t, src.retried)
}

func TestRun_RetriesFailedUpload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{cancel: cancel}
	failing := job(t, queue.JobTypeTicketQRUpload, queue.TicketQRUploadPayload{TicketID: uuid.New()})
	src.pending = []*queue.Job{failing}

	p := NewProcessor(src, &fakeAdmins{}, &fakeQR{err: errors.New("s3 timeout")}, nil)
	p.backoff = time.Millisecond
	p.Run(ctx)

	require.Len(t, src.retried, 1)
	assert.Equal(t, failing.ID, src.retried[0].ID)
}
