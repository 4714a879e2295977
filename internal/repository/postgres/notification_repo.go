package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"pbxconnect-backend/internal/domain"
	apperrors "pbxconnect-backend/pkg/errors"
)

// NotificationRepository stores in-app notifications produced by recording
// shares and call events.
//
// Assumed table:
//
//	notifications (
//	  notification_id UUID PRIMARY KEY,
//	  user_id UUID NOT NULL,
//	  type TEXT NOT NULL,
//	  title TEXT NOT NULL,
//	  body TEXT NOT NULL,
//	  data JSONB NOT NULL DEFAULT '{}',
//	  is_read BOOLEAN NOT NULL DEFAULT false,
//	  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	  read_at TIMESTAMPTZ
//	)
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create inserts a notification row
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (notification_id, user_id, type, title, body, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`

	_, err := r.pool.Exec(ctx, query,
		n.NotificationID,
		n.UserID,
		n.Type,
		n.Title,
		n.Body,
		n.Data,
	)
	if err != nil {
		return apperrors.DatabaseError(fmt.Errorf("failed to create notification: %w", err))
	}

	return nil
}

// ListUnread returns the user's unread notifications, oldest first, so a
// reconnecting client can catch up in delivery order.
func (r *NotificationRepository) ListUnread(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT notification_id, user_id, type, title, body, data, is_read, created_at, read_at
		FROM notifications
		WHERE user_id = $1 AND is_read = false
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to list notifications: %w", err))
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		if err := rows.Scan(
			&n.NotificationID,
			&n.UserID,
			&n.Type,
			&n.Title,
			&n.Body,
			&n.Data,
			&n.IsRead,
			&n.CreatedAt,
			&n.ReadAt,
		); err != nil {
			return nil, apperrors.DatabaseError(fmt.Errorf("failed to scan notification: %w", err))
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to iterate notifications: %w", err))
	}

	return notifications, nil
}

// MarkRead flags a notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = now()
		WHERE notification_id = $1 AND user_id = $2 AND is_read = false
	`

	if _, err := r.pool.Exec(ctx, query, notificationID, userID); err != nil {
		return apperrors.DatabaseError(fmt.Errorf("failed to mark notification read: %w", err))
	}

	return nil
}
