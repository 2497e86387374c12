package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/pkg/apperr"
)

const selectEvents = `SELECT e.id, e.owner_id, u.name, u.email, e.title, e.description, e.event_date::text, e.event_time,
	e.location, e.category, e.price, e.host, e.image, e.is_approved, e.capacity, e.attendees_count, e.created_at, e.updated_at
	FROM events e JOIN users u ON u.id = e.owner_id`

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	var owner models.EventOwner
	err := row.Scan(&e.ID, &e.OwnerID, &owner.Name, &owner.Email, &e.Title, &e.Description, &e.Date, &e.Time,
		&e.Location, &e.Category, &e.Price, &e.Host, &e.Image, &e.IsApproved, &e.Capacity, &e.AttendeesCount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Owner = &owner
	return &e, nil
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Create inserts a new event and fills id, counters and timestamps.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (owner_id, title, description, event_date, event_time, location, category, price, host, image, is_approved, capacity)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, attendees_count, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.OwnerID, e.Title, e.Description, e.Date, e.Time, e.Location, e.Category,
		e.Price, e.Host, e.Image, e.IsApproved, e.Capacity).
		Scan(&e.ID, &e.AttendeesCount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, selectEvents+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("event not found")
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns events ordered by date ascending, optionally only approved ones.
func (r *Repository) List(ctx context.Context, approvedOnly bool) ([]models.Event, error) {
	q := selectEvents
	if approvedOnly {
		q += ` WHERE e.is_approved`
	}
	return r.list(ctx, q+` ORDER BY e.event_date ASC, e.event_time ASC`)
}

// ListPending returns unapproved events, newest first, optionally for one owner.
func (r *Repository) ListPending(ctx context.Context, ownerID *uuid.UUID) ([]models.Event, error) {
	if ownerID != nil {
		return r.list(ctx, selectEvents+` WHERE NOT e.is_approved AND e.owner_id = $1 ORDER BY e.created_at DESC`, *ownerID)
	}
	return r.list(ctx, selectEvents+` WHERE NOT e.is_approved ORDER BY e.created_at DESC`)
}

// Approve sets is_approved. Reports whether this call changed it.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE events SET is_approved = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_approved`, id)
	if err != nil {
		return false, fmt.Errorf("approve event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes an event and its tickets in one transaction and returns the
// stored QR image keys of the removed tickets.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) ([]string, error) {
	var keys []string
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		keys, err = deleteTickets(ctx, tx, `DELETE FROM tickets WHERE event_id = $1 RETURNING qr_image_key`, id)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("event not found")
		}
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete event: %w", err)
	}
	return keys, nil
}

// DeleteOlderThan removes events dated more than days ago together with their tickets.
// Returns the number of events removed and the QR image keys of removed tickets.
func (r *Repository) DeleteOlderThan(ctx context.Context, days int) (int64, []string, error) {
	var (
		keys    []string
		deleted int64
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		keys, err = deleteTickets(ctx, tx, `DELETE FROM tickets WHERE event_id IN (
			SELECT id FROM events WHERE event_date < CURRENT_DATE - $1::int) RETURNING qr_image_key`, days)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM events WHERE event_date < CURRENT_DATE - $1::int`, days)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("delete old events: %w", err)
	}
	return deleted, keys, nil
}

func deleteTickets(ctx context.Context, tx pgx.Tx, q string, arg interface{}) ([]string, error) {
	rows, err := tx.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key *string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		if key != nil && *key != "" {
			keys = append(keys, *key)
		}
	}
	return keys, rows.Err()
}

// Recent returns the most recently created events.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.Event, error) {
	return r.list(ctx, selectEvents+` ORDER BY e.created_at DESC LIMIT $1`, limit)
}

// TopByAttendance returns approved events with the most attendees.
func (r *Repository) TopByAttendance(ctx context.Context, limit int) ([]models.Event, error) {
	return r.list(ctx, selectEvents+` WHERE e.is_approved ORDER BY e.attendees_count DESC, e.event_date ASC LIMIT $1`, limit)
}
