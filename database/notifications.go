package database

import (
	"context"
	"fmt"

	"anketa-network/models"

	"github.com/google/uuid"
)

// CreateNotification stores a notification and returns it with its ID and timestamp.
func (s *Store) CreateNotification(ctx context.Context, req models.CreateNotificationRequest) (models.Notification, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, req.UserID, req.Type, req.Title, req.Message, req.ActorID, now)
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to read notification id: %w", err)
	}
	return models.Notification{
		ID:        id,
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		ActorID:   req.ActorID,
		CreatedAt: now,
	}, nil
}

// GetNotifications retrieves the newest notifications for a user
func (s *Store) GetNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, message, actor_id, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.ActorID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// GetUnreadCount returns the count of unread notifications for a user
func (s *Store) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = FALSE", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkAsRead marks one notification as read. It reports a not_found error when the
// notification does not exist or belongs to someone else.
func (s *Store) MarkAsRead(ctx context.Context, notificationID int64, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?", notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NewError(models.KindNotFound, "notification %d not found", notificationID)
	}
	return nil
}

// MarkAllAsRead marks all notifications as read for a user
func (s *Store) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE user_id = ? AND is_read = FALSE", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
