package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"transferx/internal/model"
)

// EventRepository handles the append-only auction audit trail. Events
// are inserted inside the transaction that performs the transition and
// are never updated or deleted outside the season reset.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository instance.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Append records one auction state transition. actorClubID is nil for
// system-triggered events such as the lazy auto-close.
func (r *EventRepository) Append(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, eventType string, actorClubID *uuid.UUID, payload map[string]any) (*model.AuctionEvent, error) {
	const query = `
		INSERT INTO auction_events (auction_id, event_type, actor_club_id, payload, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, auction_id, event_type, actor_club_id, payload, created_at
	`

	var ev model.AuctionEvent
	err := tx.QueryRow(ctx, query, auctionID, eventType, actorClubID, payload).Scan(
		&ev.ID,
		&ev.AuctionID,
		&ev.EventType,
		&ev.ActorClubID,
		&ev.Payload,
		&ev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	return &ev, nil
}

// ListByAuction retrieves an auction's events oldest first, forming the
// timeline shown in the UI.
func (r *EventRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*model.AuctionEvent, error) {
	const query = `
		SELECT id, auction_id, event_type, actor_club_id, payload, created_at
		FROM auction_events
		WHERE auction_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*model.AuctionEvent
	for rows.Next() {
		var ev model.AuctionEvent
		err := rows.Scan(
			&ev.ID,
			&ev.AuctionID,
			&ev.EventType,
			&ev.ActorClubID,
			&ev.Payload,
			&ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// CountByType counts an auction's events of one type.
func (r *EventRepository) CountByType(ctx context.Context, auctionID uuid.UUID, eventType string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM auction_events
		WHERE auction_id = $1 AND event_type = $2
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, auctionID, eventType).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	return count, nil
}

// DeleteAll removes every event. Part of the administrative season
// reset, the only sanctioned deletion of audit history.
func (r *EventRepository) DeleteAll(ctx context.Context, tx pgx.Tx) (int64, error) {
	result, err := tx.Exec(ctx, `DELETE FROM auction_events`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return result.RowsAffected(), nil
}
