package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opsdesk/opsdesk/internal/database"
	"github.com/opsdesk/opsdesk/internal/models"
)

// NotificationRepository serves per-user notifications. Mark operations are
// idempotent: re-marking a read notification affects zero rows and succeeds.
type NotificationRepository interface {
	List(ctx context.Context, userID string) ([]*models.Notification, error)
	Insert(ctx context.Context, n *models.Notification) error
	MarkRead(ctx context.Context, id, userID string) (int64, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// NotificationSQLRepository uses sqlx struct scanning; notifications are a
// flat table with no joined views.
type NotificationSQLRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationSQLRepository {
	return &NotificationSQLRepository{db: db}
}

// List returns the user's notifications newest-first.
func (r *NotificationSQLRepository) List(ctx context.Context, userID string) ([]*models.Notification, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, user_id, title, message, ` + database.ReadColumn() + `, created_at, updated_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC`)

	notifications := []*models.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (r *NotificationSQLRepository) Insert(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	t := now()
	n.CreatedAt = t
	n.UpdatedAt = t

	query := database.ConvertPlaceholders(`
		INSERT INTO notifications (id, user_id, title, message, ` + database.ReadColumn() + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, n.ID, n.UserID, n.Title, n.Message, n.Read, n.CreatedAt, n.UpdatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// MarkRead flags one notification as read. The user_id predicate scopes
// the mutation to the owner: another user's id affects zero rows. Zero
// rows also means already read or absent; all three are success.
func (r *NotificationSQLRepository) MarkRead(ctx context.Context, id, userID string) (int64, error) {
	query := database.ConvertPlaceholders(`
		UPDATE notifications
		SET ` + database.ReadColumn() + ` = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND ` + database.ReadColumn() + ` = ?`)
	res, err := r.db.ExecContext(ctx, query, true, now(), id, userID, false)
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notification read rows: %w", err)
	}
	return n, nil
}

// MarkAllRead flags every unread notification for the user.
func (r *NotificationSQLRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	query := database.ConvertPlaceholders(`
		UPDATE notifications
		SET ` + database.ReadColumn() + ` = ?, updated_at = ?
		WHERE user_id = ? AND ` + database.ReadColumn() + ` = ?`)
	res, err := r.db.ExecContext(ctx, query, true, now(), userID, false)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read rows: %w", err)
	}
	return n, nil
}

func (r *NotificationSQLRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	query := database.ConvertPlaceholders(`
		SELECT COUNT(*) FROM notifications
		WHERE user_id = ? AND ` + database.ReadColumn() + ` = ?`)
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, false); err != nil {
		return 0, fmt.Errorf("unread notification count: %w", err)
	}
	return count, nil
}
