package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"transferx/internal/model"
)

// NotificationRepository handles notification persistence.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new NotificationRepository instance.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create records a notification for a club.
func (r *NotificationRepository) Create(ctx context.Context, recipientClubID uuid.UUID, kind, message, link string, relatedPlayerID *uuid.UUID) (*model.Notification, error) {
	const query = `
		INSERT INTO notifications (id, recipient_club_id, kind, message, link, related_player_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, recipient_club_id, kind, message, link, related_player_id, created_at, read_at
	`

	var n model.Notification
	err := r.pool.QueryRow(ctx, query, uuid.New(), recipientClubID, kind, message, link, relatedPlayerID).Scan(
		&n.ID,
		&n.RecipientClubID,
		&n.Kind,
		&n.Message,
		&n.Link,
		&n.RelatedPlayerID,
		&n.CreatedAt,
		&n.ReadAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return &n, nil
}

// ListByRecipient retrieves a club's notifications, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientClubID uuid.UUID, limit int) ([]*model.Notification, error) {
	const query = `
		SELECT id, recipient_club_id, kind, message, link, related_player_id, created_at, read_at
		FROM notifications
		WHERE recipient_club_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, recipientClubID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		var n model.Notification
		err := rows.Scan(
			&n.ID,
			&n.RecipientClubID,
			&n.Kind,
			&n.Message,
			&n.Link,
			&n.RelatedPlayerID,
			&n.CreatedAt,
			&n.ReadAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead marks a notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE notifications SET read_at = NOW() WHERE id = $1 AND read_at IS NULL`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	return nil
}
