// Package metrics exposes Prometheus counters for bookings, verification,
// notifications, cleanup and the job queue.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	ticketsBooked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campusbuzz_tickets_booked_total",
			Help: "Tickets issued",
		},
	)

	bookingFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbuzz_ticket_booking_failures_total",
			Help: "Rejected or failed bookings by error kind",
		},
		[]string{"kind"},
	)

	verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbuzz_ticket_verifications_total",
			Help: "Ticket verification outcomes",
		},
		[]string{"result"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbuzz_notifications_total",
			Help: "Notification inserts by status",
		},
		[]string{"status"},
	)

	cleanupDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbuzz_cleanup_deleted_total",
			Help: "Rows removed by maintenance cleanup",
		},
		[]string{"action"},
	)

	jobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbuzz_jobs_processed_total",
			Help: "Background jobs by type and status",
		},
		[]string{"type", "status"},
	)

	queueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "campusbuzz_job_queue_length",
			Help: "Current length of each job queue",
		},
		[]string{"queue"},
	)
)

func TicketBooked()                   { ticketsBooked.Inc() }
func BookingFailed(kind string)       { bookingFailures.WithLabelValues(kind).Inc() }
func Verification(result string)      { verifications.WithLabelValues(result).Inc() }
func NotificationCreated()            { notifications.WithLabelValues("created").Inc() }
func NotificationFailed()             { notifications.WithLabelValues("failed").Inc() }
func JobProcessed(typ, status string) { jobsProcessed.WithLabelValues(typ, status).Inc() }

// CleanupDeleted records n rows removed by action.
func CleanupDeleted(action string, n int) {
	if n > 0 {
		cleanupDeleted.WithLabelValues(action).Add(float64(n))
	}
}

// QueueDepther reports the length of every job queue.
type QueueDepther interface {
	Depths(ctx context.Context) (map[string]int64, error)
}

// CollectQueueDepths samples queue lengths every interval until ctx is done.
func CollectQueueDepths(ctx context.Context, q QueueDepther, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depths, err := q.Depths(ctx)
			if err != nil {
				logger.Warn("collect queue depths", zap.Error(err))
				continue
			}
			for name, n := range depths {
				queueLength.WithLabelValues(name).Set(float64(n))
			}
		}
	}
}
