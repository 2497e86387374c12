package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/pkg/apperr"
)

// Repository handles notification persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notification repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores n and fills its id and created_at.
func (r *Repository) Insert(ctx context.Context, n *models.Notification) error {
	const q = `INSERT INTO notifications (user_id, title, message, type, event_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, read, created_at`
	err := r.pool.QueryRow(ctx, q, n.UserID, n.Title, n.Message, string(n.Type), n.EventID).
		Scan(&n.ID, &n.Read, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListRecent returns the user's newest notifications, at most limit.
func (r *Repository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	const q = `SELECT id, user_id, title, message, type, read, event_id, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	list := make([]models.Notification, 0, limit)
	for rows.Next() {
		var n models.Notification
		var typ string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &n.Read, &n.EventID, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = models.NotificationType(typ)
		list = append(list, n)
	}
	return list, rows.Err()
}

// CountUnread returns how many of the user's notifications are unread.
func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead marks one notification read. Someone else's notification is NotFound.
func (r *Repository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read.
func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteReadOlderThan removes read notifications older than days. Used by maintenance cleanup.
func (r *Repository) DeleteReadOlderThan(ctx context.Context, days int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE read AND created_at < NOW() - make_interval(days => $1)`, days)
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
