package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"transferx/internal/model"
)

// Common errors for auction operations.
var (
	ErrAuctionNotFound = errors.New("auction not found")
)

const auctionColumns = `id, player_id, seller_club_id, deadline, reserve_price,
		min_increment, status, accepted_bid_id, closed_at, created_at`

// AuctionRepository handles auction persistence.
type AuctionRepository struct {
	pool *pgxpool.Pool
}

// NewAuctionRepository creates a new AuctionRepository instance.
func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

func scanAuction(row pgx.Row) (*model.Auction, error) {
	var a model.Auction
	err := row.Scan(
		&a.ID,
		&a.PlayerID,
		&a.SellerClubID,
		&a.Deadline,
		&a.ReservePrice,
		&a.MinIncrement,
		&a.Status,
		&a.AcceptedBidID,
		&a.ClosedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create creates a new OPEN auction.
func (r *AuctionRepository) Create(ctx context.Context, playerID, sellerClubID uuid.UUID, deadline time.Time, reservePrice, minIncrement *decimal.Decimal) (*model.Auction, error) {
	query := `
		INSERT INTO auctions (id, player_id, seller_club_id, deadline, reserve_price, min_increment, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'OPEN', NOW())
		RETURNING ` + auctionColumns

	auction, err := scanAuction(r.pool.QueryRow(ctx, query,
		uuid.New(), playerID, sellerClubID, deadline, reservePrice, minIncrement))
	if err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	return auction, nil
}

// GetByID retrieves an auction without locking. Display reads only;
// callers must not authorize mutations from this snapshot.
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	auction, err := scanAuction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return auction, nil
}

// GetForUpdate retrieves an auction under an exclusive row lock. All
// bid placements and acceptances on one auction serialize on this lock.
func (r *AuctionRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`

	auction, err := scanAuction(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to lock auction: %w", err)
	}

	return auction, nil
}

// MarkClosed marks an auction CLOSED with the given close time.
func (r *AuctionRepository) MarkClosed(ctx context.Context, tx pgx.Tx, id uuid.UUID, closedAt time.Time) error {
	const query = `
		UPDATE auctions
		SET status = 'CLOSED', closed_at = $2
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id, closedAt)
	if err != nil {
		return fmt.Errorf("failed to close auction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAuctionNotFound
	}

	return nil
}

// MarkAccepted marks an auction ACCEPTED, recording the winning bid and
// close time. The sole path that sets accepted_bid_id.
func (r *AuctionRepository) MarkAccepted(ctx context.Context, tx pgx.Tx, id, acceptedBidID uuid.UUID, closedAt time.Time) error {
	const query = `
		UPDATE auctions
		SET status = 'ACCEPTED', accepted_bid_id = $2, closed_at = $3
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id, acceptedBidID, closedAt)
	if err != nil {
		return fmt.Errorf("failed to accept auction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAuctionNotFound
	}

	return nil
}

// UpdateDeadline moves an auction's deadline. Used by the anti-sniping
// extension.
func (r *AuctionRepository) UpdateDeadline(ctx context.Context, tx pgx.Tx, id uuid.UUID, deadline time.Time) error {
	const query = `UPDATE auctions SET deadline = $2 WHERE id = $1`

	result, err := tx.Exec(ctx, query, id, deadline)
	if err != nil {
		return fmt.Errorf("failed to update deadline: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAuctionNotFound
	}

	return nil
}

// ListOpen retrieves OPEN auctions ordered by nearest deadline first.
// Rows may include expired auctions whose lazy close has not run yet.
func (r *AuctionRepository) ListOpen(ctx context.Context, limit int) ([]*model.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = 'OPEN'
		ORDER BY deadline ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*model.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, auction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	return auctions, nil
}

// DeleteAll removes every auction. Part of the administrative season
// reset; events and bids must be deleted first.
func (r *AuctionRepository) DeleteAll(ctx context.Context, tx pgx.Tx) (int64, error) {
	result, err := tx.Exec(ctx, `DELETE FROM auctions`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete auctions: %w", err)
	}
	return result.RowsAffected(), nil
}
