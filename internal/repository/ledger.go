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

// Common errors for ledger operations.
var (
	ErrLedgerNotFound = errors.New("club ledger not found")
)

const ledgerColumns = `club_id, transfer_budget_total, wage_budget_weekly_total,
		transfer_reserved, wage_reserved_weekly, transfer_committed, wage_committed_weekly, updated_at`

// LedgerRepository handles club ledger persistence. Every mutation goes
// through GetOrCreateForUpdate + Save inside one transaction so the row
// stays exclusively locked for the whole reserve/release/commit.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func scanLedger(row pgx.Row) (*model.ClubLedger, error) {
	var l model.ClubLedger
	err := row.Scan(
		&l.ClubID,
		&l.TransferBudgetTotal,
		&l.WageBudgetWeeklyTotal,
		&l.TransferReserved,
		&l.WageReservedWeekly,
		&l.TransferCommitted,
		&l.WageCommittedWeekly,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByClubID retrieves a club's ledger without locking it. Only for
// display reads; mutations must use GetOrCreateForUpdate.
func (r *LedgerRepository) GetByClubID(ctx context.Context, clubID uuid.UUID) (*model.ClubLedger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM club_ledgers WHERE club_id = $1`

	ledger, err := scanLedger(r.pool.QueryRow(ctx, query, clubID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLedgerNotFound
		}
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}

	return ledger, nil
}

// GetOrCreateForUpdate retrieves a club's ledger under an exclusive row
// lock, creating a zero-budget row first if the club has none yet. The
// lock is held until the enclosing transaction ends.
func (r *LedgerRepository) GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, clubID uuid.UUID) (*model.ClubLedger, error) {
	// Insert-if-absent first so the locking select always finds a row.
	const insertQuery = `
		INSERT INTO club_ledgers (club_id)
		VALUES ($1)
		ON CONFLICT (club_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insertQuery, clubID); err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	query := `SELECT ` + ledgerColumns + ` FROM club_ledgers WHERE club_id = $1 FOR UPDATE`

	ledger, err := scanLedger(tx.QueryRow(ctx, query, clubID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock ledger: %w", err)
	}

	return ledger, nil
}

// Save persists the reserved/committed balances of a ledger previously
// locked with GetOrCreateForUpdate.
func (r *LedgerRepository) Save(ctx context.Context, tx pgx.Tx, ledger *model.ClubLedger) error {
	const query = `
		UPDATE club_ledgers
		SET transfer_reserved = $2,
		    wage_reserved_weekly = $3,
		    transfer_committed = $4,
		    wage_committed_weekly = $5,
		    updated_at = NOW()
		WHERE club_id = $1
	`

	result, err := tx.Exec(ctx, query,
		ledger.ClubID,
		ledger.TransferReserved,
		ledger.WageReservedWeekly,
		ledger.TransferCommitted,
		ledger.WageCommittedWeekly,
	)
	if err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLedgerNotFound
	}

	return nil
}

// SetBudgets sets a club's budget ceilings. Administrative operation.
func (r *LedgerRepository) SetBudgets(ctx context.Context, clubID uuid.UUID, transferTotal, wageWeeklyTotal decimal.Decimal) (*model.ClubLedger, error) {
	query := `
		INSERT INTO club_ledgers (club_id, transfer_budget_total, wage_budget_weekly_total)
		VALUES ($1, $2, $3)
		ON CONFLICT (club_id) DO UPDATE
		SET transfer_budget_total = EXCLUDED.transfer_budget_total,
		    wage_budget_weekly_total = EXCLUDED.wage_budget_weekly_total,
		    updated_at = NOW()
		RETURNING ` + ledgerColumns

	ledger, err := scanLedger(r.pool.QueryRow(ctx, query, clubID, transferTotal, wageWeeklyTotal))
	if err != nil {
		return nil, fmt.Errorf("failed to set budgets: %w", err)
	}

	return ledger, nil
}

// ResetAll zeroes reserved and committed balances on every ledger while
// preserving budget totals. Part of the administrative season reset.
func (r *LedgerRepository) ResetAll(ctx context.Context, tx pgx.Tx) (int64, error) {
	const query = `
		UPDATE club_ledgers
		SET transfer_reserved = 0,
		    wage_reserved_weekly = 0,
		    transfer_committed = 0,
		    wage_committed_weekly = 0,
		    updated_at = NOW()
	`

	result, err := tx.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to reset ledgers: %w", err)
	}

	return result.RowsAffected(), nil
}
