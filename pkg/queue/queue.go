package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueNotifications is the Redis list key for notification fan-out jobs.
	QueueNotifications = "worker:notifications"
	// QueueTickets is the Redis list key for ticket QR upload jobs.
	QueueTickets = "worker:tickets"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeEventSubmitted JobType = "event_submitted"
	JobTypeTicketQRUpload JobType = "ticket_qr_upload"
)

// EventSubmittedPayload asks the worker to tell every admin about a pending event.
type EventSubmittedPayload struct {
	EventID uuid.UUID `json:"event_id"`
	Title   string    `json:"title"`
	OwnerID uuid.UUID `json:"owner_id"`
}

// TicketQRUploadPayload asks the worker to render a ticket's QR image and store it.
type TicketQRUploadPayload struct {
	TicketID uuid.UUID `json:"ticket_id"`
	EventID  uuid.UUID `json:"event_id"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
	newID  func() string
	now    func() time.Time
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		client: client,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
	}
}

// EnqueueEventSubmitted enqueues the admin fan-out for a newly submitted event.
func (q *Queue) EnqueueEventSubmitted(ctx context.Context, payload EventSubmittedPayload) error {
	job, err := q.enqueue(ctx, QueueNotifications, JobTypeEventSubmitted, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued event submitted job", zap.String("job_id", job.ID), zap.String("event_id", payload.EventID.String()))
	return nil
}

// EnqueueTicketQRUpload enqueues eager QR rendering for a ticket.
func (q *Queue) EnqueueTicketQRUpload(ctx context.Context, payload TicketQRUploadPayload) error {
	job, err := q.enqueue(ctx, QueueTickets, JobTypeTicketQRUpload, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued ticket qr job", zap.String("job_id", job.ID), zap.String("ticket_id", payload.TicketID.String()))
	return nil
}

func (q *Queue) enqueue(ctx context.Context, key string, typ JobType, payload interface{}) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        q.newID(),
		Type:      typ,
		Payload:   body,
		Attempt:   0,
		CreatedAt: q.now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return nil, fmt.Errorf("rpush: %w", err)
	}
	return job, nil
}

// Dequeue blocks up to timeout for a job on any work queue. Returns job and key (queue name);
// a nil job with nil error means the wait timed out or the entry was unreadable.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueNotifications, QueueTickets).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job on key with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job, key string) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// Depths returns the current length of every queue, keyed by list name.
func (q *Queue) Depths(ctx context.Context) (map[string]int64, error) {
	keys := []string{QueueNotifications, QueueTickets, QueueDLQ}
	pipe := q.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.LLen(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("llen: %w", err)
	}
	out := make(map[string]int64, len(keys))
	for i, k := range keys {
		out[k] = cmds[i].Val()
	}
	return out, nil
}
