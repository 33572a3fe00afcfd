package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"transferx/internal/model"
)

// Common errors for bid operations.
var (
	ErrBidNotFound = errors.New("bid not found")
)

const bidColumns = `id, auction_id, buyer_club_id, amount, wage_offer_weekly,
		reserved_transfer_amount, reserved_wage_weekly, notes, status, created_at`

// BidRepository handles bid persistence. A partial unique index on
// (auction_id, buyer_club_id) WHERE status = 'ACTIVE' backs the
// one-active-bid-per-buyer invariant at the storage level.
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates a new BidRepository instance.
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

func scanBid(row pgx.Row) (*model.Bid, error) {
	var b model.Bid
	err := row.Scan(
		&b.ID,
		&b.AuctionID,
		&b.BuyerClubID,
		&b.Amount,
		&b.WageOfferWeekly,
		&b.ReservedTransferAmount,
		&b.ReservedWageWeekly,
		&b.Notes,
		&b.Status,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBids(rows pgx.Rows) ([]*model.Bid, error) {
	defer rows.Close()

	var bids []*model.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// Create creates a new ACTIVE bid with its reservation snapshot equal
// to the offer.
func (r *BidRepository) Create(ctx context.Context, tx pgx.Tx, auctionID, buyerClubID uuid.UUID, amount, wageOfferWeekly decimal.Decimal, notes string) (*model.Bid, error) {
	query := `
		INSERT INTO bids (id, auction_id, buyer_club_id, amount, wage_offer_weekly,
			reserved_transfer_amount, reserved_wage_weekly, notes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $4, $5, $6, 'ACTIVE', NOW())
		RETURNING ` + bidColumns

	bid, err := scanBid(tx.QueryRow(ctx, query, uuid.New(), auctionID, buyerClubID, amount, wageOfferWeekly, notes))
	if err != nil {
		return nil, fmt.Errorf("failed to create bid: %w", err)
	}

	return bid, nil
}

// GetByID retrieves a bid by its identity.
func (r *BidRepository) GetByID(ctx context.Context, q Querier, id uuid.UUID) (*model.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`

	bid, err := scanBid(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}

	return bid, nil
}

// GetForUpdate retrieves a bid under an exclusive row lock.
func (r *BidRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1 FOR UPDATE`

	bid, err := scanBid(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to lock bid: %w", err)
	}

	return bid, nil
}

// ActiveByAuctionForUpdate retrieves all ACTIVE bids on an auction,
// ordered by creation time, each under an exclusive row lock.
func (r *BidRepository) ActiveByAuctionForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) ([]*model.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1 AND status = 'ACTIVE'
		ORDER BY created_at ASC
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active bids: %w", err)
	}

	return scanBids(rows)
}

// ActiveByAuctionAndBuyer retrieves the buyer's ACTIVE bid on an
// auction under an exclusive row lock, or nil if the buyer has none.
func (r *BidRepository) ActiveByAuctionAndBuyer(ctx context.Context, tx pgx.Tx, auctionID, buyerClubID uuid.UUID) (*model.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1 AND buyer_club_id = $2 AND status = 'ACTIVE'
		FOR UPDATE
	`

	bid, err := scanBid(tx.QueryRow(ctx, query, auctionID, buyerClubID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get buyer bid: %w", err)
	}

	return bid, nil
}

// BestActiveOther retrieves the highest ACTIVE bid on an auction from
// any buyer other than the given one, or nil if there is none. Ties
// break in favour of the earlier bid.
func (r *BidRepository) BestActiveOther(ctx context.Context, tx pgx.Tx, auctionID, excludeBuyerClubID uuid.UUID) (*model.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1 AND status = 'ACTIVE' AND buyer_club_id <> $2
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`

	bid, err := scanBid(tx.QueryRow(ctx, query, auctionID, excludeBuyerClubID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get best other bid: %w", err)
	}

	return bid, nil
}

// BestActiveAmount returns the maximum amount among ACTIVE bids on an
// auction, or nil if there are none.
func (r *BidRepository) BestActiveAmount(ctx context.Context, q Querier, auctionID uuid.UUID) (*decimal.Decimal, error) {
	const query = `
		SELECT MAX(amount)
		FROM bids
		WHERE auction_id = $1 AND status = 'ACTIVE'
	`

	var best *decimal.Decimal
	if err := q.QueryRow(ctx, query, auctionID).Scan(&best); err != nil {
		return nil, fmt.Errorf("failed to get best bid amount: %w", err)
	}

	return best, nil
}

// UpdateOffer updates a bid's amount, wage offer, and reservation
// snapshot in place. Used on the replace path.
func (r *BidRepository) UpdateOffer(ctx context.Context, tx pgx.Tx, bid *model.Bid) error {
	const query = `
		UPDATE bids
		SET amount = $2,
		    wage_offer_weekly = $3,
		    reserved_transfer_amount = $4,
		    reserved_wage_weekly = $5
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query,
		bid.ID,
		bid.Amount,
		bid.WageOfferWeekly,
		bid.ReservedTransferAmount,
		bid.ReservedWageWeekly,
	)
	if err != nil {
		return fmt.Errorf("failed to update bid offer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBidNotFound
	}

	return nil
}

// UpdateStatus transitions a bid to a new status.
func (r *BidRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	const query = `UPDATE bids SET status = $2 WHERE id = $1`

	result, err := tx.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update bid status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBidNotFound
	}

	return nil
}

// ListByAuction retrieves all bids on an auction, newest first.
func (r *BidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*model.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}

	return scanBids(rows)
}

// DeleteAll removes every bid. Part of the administrative season reset.
func (r *BidRepository) DeleteAll(ctx context.Context, tx pgx.Tx) (int64, error) {
	result, err := tx.Exec(ctx, `DELETE FROM bids`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bids: %w", err)
	}
	return result.RowsAffected(), nil
}
