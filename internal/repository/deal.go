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

// Common errors for deal operations.
var (
	ErrDealNotFound = errors.New("deal not found")
)

const dealColumns = `id, auction_id, bid_id, buyer_club_id, seller_club_id, player_id,
		agreed_fee, agreed_wage_weekly, status, created_at, completed_at`

// DealRepository handles transfer deal persistence.
type DealRepository struct {
	pool *pgxpool.Pool
}

// NewDealRepository creates a new DealRepository instance.
func NewDealRepository(pool *pgxpool.Pool) *DealRepository {
	return &DealRepository{pool: pool}
}

func scanDeal(row pgx.Row) (*model.Deal, error) {
	var d model.Deal
	err := row.Scan(
		&d.ID,
		&d.AuctionID,
		&d.BidID,
		&d.BuyerClubID,
		&d.SellerClubID,
		&d.PlayerID,
		&d.AgreedFee,
		&d.AgreedWageWeekly,
		&d.Status,
		&d.CreatedAt,
		&d.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create records a completed deal produced by the finalization bridge.
func (r *DealRepository) Create(ctx context.Context, deal *model.Deal) (*model.Deal, error) {
	query := `
		INSERT INTO deals (id, auction_id, bid_id, buyer_club_id, seller_club_id, player_id,
			agreed_fee, agreed_wage_weekly, status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), $10)
		RETURNING ` + dealColumns

	created, err := scanDeal(r.pool.QueryRow(ctx, query,
		uuid.New(),
		deal.AuctionID,
		deal.BidID,
		deal.BuyerClubID,
		deal.SellerClubID,
		deal.PlayerID,
		deal.AgreedFee,
		deal.AgreedWageWeekly,
		deal.Status,
		deal.CompletedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}

	return created, nil
}

// GetByID retrieves a deal by its identity.
func (r *DealRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`

	deal, err := scanDeal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	return deal, nil
}

// ListByClub retrieves the deals a club participated in, newest first.
func (r *DealRepository) ListByClub(ctx context.Context, clubID uuid.UUID, limit int) ([]*model.Deal, error) {
	query := `
		SELECT ` + dealColumns + `
		FROM deals
		WHERE buyer_club_id = $1 OR seller_club_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, clubID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer rows.Close()

	var deals []*model.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, deal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deals: %w", err)
	}

	return deals, nil
}
