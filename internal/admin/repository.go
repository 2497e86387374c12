package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Overview holds site-wide totals.
type Overview struct {
	TotalEvents     int             `json:"totalEvents"`
	ApprovedEvents  int             `json:"approvedEvents"`
	PendingEvents   int             `json:"pendingEvents"`
	TotalTickets    int             `json:"totalTickets"`
	VerifiedTickets int             `json:"verifiedTickets"`
	TotalUsers      int             `json:"totalUsers"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
}

// RecentTicket is a ticket row for the activity feed.
type RecentTicket struct {
	ID           uuid.UUID       `json:"id"`
	EventID      uuid.UUID       `json:"eventId"`
	EventName    string          `json:"eventName"`
	AttendeeName string          `json:"attendeeName"`
	UserEmail    string          `json:"userEmail"`
	Price        decimal.Decimal `json:"price"`
	Verified     bool            `json:"verified"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// MonthlyStat counts events created in one calendar month.
type MonthlyStat struct {
	Year           int `json:"year"`
	Month          int `json:"month"`
	EventsCreated  int `json:"eventsCreated"`
	ApprovedEvents int `json:"approvedEvents"`
}

// Repository runs the dashboard aggregates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an admin repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Overview counts events, tickets and users and sums ticket revenue.
func (r *Repository) Overview(ctx context.Context) (*Overview, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM events),
		(SELECT COUNT(*) FROM events WHERE is_approved),
		(SELECT COUNT(*) FROM tickets),
		(SELECT COUNT(*) FROM tickets WHERE verified),
		(SELECT COUNT(*) FROM users),
		(SELECT COALESCE(SUM((details->>'price')::numeric * quantity), 0) FROM tickets)`
	var o Overview
	err := r.pool.QueryRow(ctx, q).Scan(&o.TotalEvents, &o.ApprovedEvents, &o.TotalTickets, &o.VerifiedTickets,
		&o.TotalUsers, &o.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("dashboard overview: %w", err)
	}
	o.PendingEvents = o.TotalEvents - o.ApprovedEvents
	return &o, nil
}

// RecentTickets returns the latest bookings.
func (r *Repository) RecentTickets(ctx context.Context, limit int) ([]RecentTicket, error) {
	const q = `SELECT t.id, t.event_id, t.details->>'event_name', t.details->>'attendee_name', u.email,
		(t.details->>'price')::numeric, t.verified, t.created_at
		FROM tickets t JOIN users u ON u.id = t.user_id
		ORDER BY t.created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent tickets: %w", err)
	}
	defer rows.Close()
	list := []RecentTicket{}
	for rows.Next() {
		var t RecentTicket
		if err := rows.Scan(&t.ID, &t.EventID, &t.EventName, &t.AttendeeName, &t.UserEmail, &t.Price, &t.Verified, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent ticket: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// MonthlyStats groups events created in the last months calendar months.
func (r *Repository) MonthlyStats(ctx context.Context, months int) ([]MonthlyStat, error) {
	const q = `SELECT EXTRACT(YEAR FROM created_at)::int, EXTRACT(MONTH FROM created_at)::int,
		COUNT(*), COUNT(*) FILTER (WHERE is_approved)
		FROM events WHERE created_at >= NOW() - make_interval(months => $1)
		GROUP BY 1, 2 ORDER BY 1, 2`
	rows, err := r.pool.Query(ctx, q, months)
	if err != nil {
		return nil, fmt.Errorf("monthly stats: %w", err)
	}
	defer rows.Close()
	list := []MonthlyStat{}
	for rows.Next() {
		var s MonthlyStat
		if err := rows.Scan(&s.Year, &s.Month, &s.EventsCreated, &s.ApprovedEvents); err != nil {
			return nil, fmt.Errorf("scan monthly stat: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
