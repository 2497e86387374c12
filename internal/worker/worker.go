package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/internal/metrics"
	"github.com/campusbuzz/backend/pkg/apperr"
	"github.com/campusbuzz/backend/pkg/queue"
)

// DequeueTimeout bounds each blocking pop so the loop notices shutdown.
const DequeueTimeout = 5 * time.Second

// JobSource is the queue the processor drains.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job, key string) error
}

// AdminNotifier tells every admin about a submitted event.
type AdminNotifier interface {
	EventSubmitted(ctx context.Context, eventID uuid.UUID, title string) (int, error)
}

// QRPublisher renders a ticket's QR image and stores it.
type QRPublisher interface {
	PublishQR(ctx context.Context, ticketID uuid.UUID) (string, error)
}

// dropError marks a failure that retrying cannot fix.
type dropError struct{ err error }

func (e *dropError) Error() string { return e.err.Error() }
func (e *dropError) Unwrap() error { return e.err }

func drop(err error) error { return &dropError{err: err} }

// Processor executes admin fan-out and QR upload jobs.
type Processor struct {
	jobs    JobSource
	admins  AdminNotifier
	qr      QRPublisher
	logger  *zap.Logger
	backoff time.Duration
}

// NewProcessor creates a job processor. qr may be nil when object storage is not configured;
// QR jobs are then dropped.
func NewProcessor(jobs JobSource, admins AdminNotifier, qr QRPublisher, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{jobs: jobs, admins: admins, qr: qr, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEventSubmitted:
		var payload queue.EventSubmittedPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return drop(fmt.Errorf("unmarshal payload: %w", err))
		}
		n, err := p.admins.EventSubmitted(ctx, payload.EventID, payload.Title)
		if err != nil {
			// Notifications are best-effort; a failed fan-out is not retried.
			return drop(fmt.Errorf("admin fan-out: %w", err))
		}
		p.logger.Info("admins notified of submitted event", zap.String("event_id", payload.EventID.String()), zap.Int("admins", n))
		return nil

	case queue.JobTypeTicketQRUpload:
		var payload queue.TicketQRUploadPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return drop(fmt.Errorf("unmarshal payload: %w", err))
		}
		if p.qr == nil {
			return drop(errors.New("object storage not configured"))
		}
		key, err := p.qr.PublishQR(ctx, payload.TicketID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return drop(fmt.Errorf("ticket %s: %w", payload.TicketID, err))
			}
			return fmt.Errorf("publish qr: %w", err)
		}
		p.logger.Info("ticket qr uploaded", zap.String("ticket_id", payload.TicketID.String()), zap.String("s3_key", key))
		return nil

	default:
		return drop(fmt.Errorf("unknown job type: %s", job.Type))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, key, err := p.jobs.Dequeue(ctx, DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		err = p.Process(ctx, job)
		if err == nil {
			metrics.JobProcessed(string(job.Type), "ok")
			continue
		}
		var d *dropError
		if errors.As(err, &d) {
			metrics.JobProcessed(string(job.Type), "dropped")
			p.logger.Warn("job dropped", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Error(err))
			continue
		}
		metrics.JobProcessed(string(job.Type), "failed")
		p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		if reErr := p.jobs.Retry(ctx, job, key); reErr != nil {
			p.logger.Error("retry enqueue failed", zap.Error(reErr))
		}
		p.sleep(ctx)
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
