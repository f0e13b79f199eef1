package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
)

const notificationColumns = `id, recipient_id, type, message, read, related_id::text, related_kind, created_at`

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		n           domain.Notification
		relatedID   *string
		relatedKind *string
	)
	if err := row.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Message, &n.Read, &relatedID, &relatedKind, &n.CreatedAt); err != nil {
		return nil, err
	}
	if relatedID != nil {
		ref := &domain.RelatedRef{ID: *relatedID}
		if relatedKind != nil {
			ref.Kind = domain.RelatedKind(*relatedKind)
		}
		n.Related = ref
	}
	return &n, nil
}

// CreateNotification inserts a notification.
func (r *Repository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	const query = `INSERT INTO notifications (id, recipient_id, type, message, read, related_id, related_kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var relatedID, relatedKind any
	if n.Related != nil {
		relatedID = nilIfEmpty(n.Related.ID)
		relatedKind = nilIfEmpty(string(n.Related.Kind))
	}
	if _, err := r.db.Exec(ctx, query, n.ID, n.RecipientID, n.Type, n.Message, n.Read, relatedID, relatedKind, n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", mapWriteError(err))
	}
	return nil
}

// GetNotificationByID fetches a notification.
func (r *Repository) GetNotificationByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	n, err := scanNotification(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapReadError(err)
	}
	return n, nil
}

// ListNotifications returns the recipient's newest notifications first.
func (r *Repository) ListNotifications(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", mapReadError(err))
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// CountUnreadNotifications counts unread notifications of a recipient.
func (r *Repository) CountUnreadNotifications(ctx context.Context, recipientID string) (int, error) {
	const query = `SELECT COUNT(1) FROM notifications WHERE recipient_id = $1 AND NOT read`
	var count int
	if err := r.db.QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", mapReadError(err))
	}
	return count, nil
}

// MarkNotificationRead flags a notification as read.
func (r *Repository) MarkNotificationRead(ctx context.Context, id string) (*domain.Notification, error) {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 RETURNING ` + notificationColumns
	n, err := scanNotification(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapReadError(err)
	}
	return n, nil
}

// MarkAllNotificationsRead flags every unread notification of a recipient.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int, error) {
	const query = `UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND NOT read`
	tag, err := r.db.Exec(ctx, query, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", mapWriteError(err))
	}
	return int(tag.RowsAffected()), nil
}

// DeleteNotification removes a notification.
func (r *Repository) DeleteNotification(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", mapReadError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
