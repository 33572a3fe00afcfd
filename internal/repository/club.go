package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"transferx/internal/model"
	"transferx/internal/pkg/db"
)

// Common errors for club operations.
var (
	ErrClubNotFound  = errors.New("club not found")
	ErrClubNameTaken = errors.New("club name already taken")
)

// ClubRepository handles club persistence.
type ClubRepository struct {
	pool *pgxpool.Pool
}

// NewClubRepository creates a new ClubRepository instance.
func NewClubRepository(pool *pgxpool.Pool) *ClubRepository {
	return &ClubRepository{pool: pool}
}

// Create creates a new club.
func (r *ClubRepository) Create(ctx context.Context, name, country, city, leagueName string) (*model.Club, error) {
	const query = `
		INSERT INTO clubs (id, name, country, city, league_name, verified_status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'UNVERIFIED', NOW())
		RETURNING id, name, country, city, league_name, verified_status, created_at
	`

	var club model.Club
	err := r.pool.QueryRow(ctx, query, uuid.New(), name, country, city, leagueName).Scan(
		&club.ID,
		&club.Name,
		&club.Country,
		&club.City,
		&club.LeagueName,
		&club.VerifiedStatus,
		&club.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrClubNameTaken
		}
		return nil, fmt.Errorf("failed to create club: %w", err)
	}

	return &club, nil
}

// GetByID retrieves a club by its identity.
func (r *ClubRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Club, error) {
	const query = `
		SELECT id, name, country, city, league_name, verified_status, created_at
		FROM clubs
		WHERE id = $1
	`

	var club model.Club
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&club.ID,
		&club.Name,
		&club.Country,
		&club.City,
		&club.LeagueName,
		&club.VerifiedStatus,
		&club.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to get club: %w", err)
	}

	return &club, nil
}

// Exists checks if a club with the given identity exists.
func (r *ClubRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM clubs WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check club existence: %w", err)
	}

	return exists, nil
}

// UpdateVerifiedStatus updates a club's verification status.
func (r *ClubRepository) UpdateVerifiedStatus(ctx context.Context, id uuid.UUID, status string) error {
	const query = `UPDATE clubs SET verified_status = $2 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update verified status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrClubNotFound
	}

	return nil
}
