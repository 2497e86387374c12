package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/pkg/apperr"
	"github.com/campusbuzz/backend/pkg/database"
)

const ticketColumns = `id, user_id, event_id, details, quantity, verified, verified_at, verified_by, issued_at_ms, qr_image_key, created_at`

var (
	errDuplicateTicket = apperr.Conflict("you already have a ticket for this event")
	errSoldOut         = apperr.Conflict("event is sold out")
)

// Repository handles ticket persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a ticket repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.UserID, &t.EventID, &t.Details, &t.Quantity, &t.Verified, &t.VerifiedAt, &t.VerifiedBy,
		&t.IssuedAtMs, &t.QRImageKey, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts t and takes its seats from the event in one transaction.
// A second ticket for the same (user, event) and a full event are both Conflict.
func (r *Repository) Create(ctx context.Context, t *models.Ticket) error {
	const insert = `INSERT INTO tickets (id, user_id, event_id, details, quantity, issued_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	const reserve = `UPDATE events SET attendees_count = attendees_count + $2, updated_at = NOW()
		WHERE id = $1 AND (capacity IS NULL OR attendees_count + $2 <= capacity)`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insert, t.ID, t.UserID, t.EventID, t.Details, t.Quantity, t.IssuedAtMs).
			Scan(&t.CreatedAt); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, reserve, t.EventID, t.Quantity)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errSoldOut
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err, "tickets_user_event_key"):
		return errDuplicateTicket
	case apperr.Is(err, apperr.KindConflict):
		return err
	default:
		return fmt.Errorf("insert ticket: %w", err)
	}
}

// GetByID returns a ticket by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("ticket not found")
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// Exists reports whether userID already holds a ticket for eventID.
func (r *Repository) Exists(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE user_id = $1 AND event_id = $2)`, userID, eventID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check ticket: %w", err)
	}
	return ok, nil
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]models.Ticket, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()
	list := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// ListByUser returns userID's tickets, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListAll returns every ticket, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY created_at DESC`)
}

// MarkVerified flips an unverified ticket to verified. Reports whether this call did it.
func (r *Repository) MarkVerified(ctx context.Context, id, verifierID uuid.UUID, at time.Time) (bool, error) {
	const q = `UPDATE tickets SET verified = TRUE, verified_at = $2, verified_by = $3
		WHERE id = $1 AND NOT verified`
	tag, err := r.pool.Exec(ctx, q, id, at, verifierID)
	if err != nil {
		return false, fmt.Errorf("mark ticket verified: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetQRImageKey records where the rendered QR image was stored.
func (r *Repository) SetQRImageKey(ctx context.Context, id uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tickets SET qr_image_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("set qr image key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("ticket not found")
	}
	return nil
}

// DeleteUnverifiedOlderThan removes unverified tickets older than days whose event
// date has passed, and gives their seats back. Returns the count and stored image keys.
func (r *Repository) DeleteUnverifiedOlderThan(ctx context.Context, days int) (int64, []string, error) {
	const q = `WITH gone AS (
			DELETE FROM tickets t USING events e
			WHERE t.event_id = e.id AND NOT t.verified
				AND t.created_at < NOW() - make_interval(days => $1)
				AND e.event_date < CURRENT_DATE
			RETURNING t.event_id, t.quantity, t.qr_image_key
		), released AS (
			UPDATE events e SET attendees_count = GREATEST(e.attendees_count - g.n, 0)
			FROM (SELECT event_id, SUM(quantity)::int AS n FROM gone GROUP BY event_id) g
			WHERE e.id = g.event_id
		)
		SELECT qr_image_key FROM gone`

	rows, err := r.pool.Query(ctx, q, days)
	if err != nil {
		return 0, nil, fmt.Errorf("delete unverified tickets: %w", err)
	}
	defer rows.Close()
	var (
		n    int64
		keys []string
	)
	for rows.Next() {
		var key *string
		if err := rows.Scan(&key); err != nil {
			return 0, nil, fmt.Errorf("scan deleted ticket: %w", err)
		}
		n++
		if key != nil && *key != "" {
			keys = append(keys, *key)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("delete unverified tickets: %w", err)
	}
	return n, keys, nil
}
