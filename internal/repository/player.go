package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"transferx/internal/model"
)

// Common errors for player operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
)

// PlayerRepository handles player persistence.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

// Create creates a new player.
func (r *PlayerRepository) Create(ctx context.Context, name string, age int, position string, currentClubID *uuid.UUID) (*model.Player, error) {
	const query = `
		INSERT INTO players (id, name, age, position, current_club_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, name, age, position, current_club_id, created_at
	`

	var player model.Player
	err := r.pool.QueryRow(ctx, query, uuid.New(), name, age, position, currentClubID).Scan(
		&player.ID,
		&player.Name,
		&player.Age,
		&player.Position,
		&player.CurrentClubID,
		&player.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	return &player, nil
}

// GetByID retrieves a player by their identity.
func (r *PlayerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Player, error) {
	const query = `
		SELECT id, name, age, position, current_club_id, created_at
		FROM players
		WHERE id = $1
	`

	var player model.Player
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&player.ID,
		&player.Name,
		&player.Age,
		&player.Position,
		&player.CurrentClubID,
		&player.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return &player, nil
}

// UpdateCurrentClub moves a player to a new club. Called by the deal
// finalization bridge after a completed transfer.
func (r *PlayerRepository) UpdateCurrentClub(ctx context.Context, id uuid.UUID, clubID *uuid.UUID) error {
	const query = `UPDATE players SET current_club_id = $2 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, clubID)
	if err != nil {
		return fmt.Errorf("failed to update player club: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}

	return nil
}

// ListByClub retrieves the players currently registered to a club.
func (r *PlayerRepository) ListByClub(ctx context.Context, clubID uuid.UUID) ([]*model.Player, error) {
	const query = `
		SELECT id, name, age, position, current_club_id, created_at
		FROM players
		WHERE current_club_id = $1
		ORDER BY name ASC
	`

	rows, err := r.pool.Query(ctx, query, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		var player model.Player
		err := rows.Scan(
			&player.ID,
			&player.Name,
			&player.Age,
			&player.Position,
			&player.CurrentClubID,
			&player.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, &player)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}
