package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gtxlabs/gtxips/internal/model"
)

// CreateNotifications inserts a batch of notifications.
func (s *SQLiteStorage) CreateNotifications(ctx context.Context, notifications []model.Notification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range notifications {
		if err := validateNotification(&notifications[i]); err != nil {
			return fmt.Errorf("notification %d: %w", i, err)
		}
	}

	now := time.Now().UTC()
	for i := range notifications {
		n := &notifications[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO notifications (id, user_id, title, message, type, is_read, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			n.ID, n.UserID, n.Title, n.Message, n.Type, n.Read, n.CreatedAt,
		)
		if err != nil {
			return translateError(err, "insert notification")
		}
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *SQLiteStorage) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, title, message, type, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead flags a notification as read.
func (s *SQLiteStorage) MarkNotificationRead(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.q.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return expectOneRow(res, "notification", id)
}
