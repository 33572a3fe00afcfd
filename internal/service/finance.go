package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"transferx/internal/model"
	"transferx/internal/pkg/db"
	"transferx/internal/repository"
)

// FinanceService owns club ledger mutations. Reserve, Release, and
// Commit each take the ledger row lock for the duration of the
// mutation; the lock-free validation helper exists so the auction state
// machine can compose validate-then-reserve under its own transaction.
type FinanceService struct {
	pool       *pgxpool.Pool
	ledgerRepo *repository.LedgerRepository
}

// NewFinanceService creates a new FinanceService instance.
func NewFinanceService(pool *pgxpool.Pool, ledgerRepo *repository.LedgerRepository) *FinanceService {
	return &FinanceService{
		pool:       pool,
		ledgerRepo: ledgerRepo,
	}
}

// GetOrCreateLedger returns a club's ledger, creating a zero-budget row
// on first need.
func (s *FinanceService) GetOrCreateLedger(ctx context.Context, clubID uuid.UUID) (*model.ClubLedger, error) {
	var ledger *model.ClubLedger
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		ledger, err = s.ledgerRepo.GetOrCreateForUpdate(ctx, tx, clubID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create ledger: %w", err)
	}
	return ledger, nil
}

// SetBudgets sets a club's budget ceilings. Administrative operation.
func (s *FinanceService) SetBudgets(ctx context.Context, clubID uuid.UUID, transferTotal, wageWeeklyTotal decimal.Decimal) (*model.ClubLedger, error) {
	return s.ledgerRepo.SetBudgets(ctx, clubID, transferTotal, wageWeeklyTotal)
}

// ValidateBudgetForBid fails with InsufficientBudgetError when either
// remaining budget cannot cover the requested addition. It must be
// evaluated against a ledger loaded under the same lock as the
// subsequent reserve; validating a stale snapshot reintroduces the
// double-spend race.
func (s *FinanceService) ValidateBudgetForBid(ledger *model.ClubLedger, addTransfer, addWage decimal.Decimal) error {
	return validateBudgetForBid(ledger, addTransfer, addWage)
}

func validateBudgetForBid(ledger *model.ClubLedger, addTransfer, addWage decimal.Decimal) error {
	if ledger.TransferRemaining().LessThan(addTransfer) {
		return &InsufficientBudgetError{
			Dimension: BudgetTransfer,
			Remaining: ledger.TransferRemaining(),
			Requested: addTransfer,
		}
	}
	if ledger.WageRemainingWeekly().LessThan(addWage) {
		return &InsufficientBudgetError{
			Dimension: BudgetWage,
			Remaining: ledger.WageRemainingWeekly(),
			Requested: addWage,
		}
	}
	return nil
}

// Reserve earmarks the given deltas on a club's ledger under its row
// lock. The caller is responsible for prior budget validation.
func (s *FinanceService) Reserve(ctx context.Context, clubID uuid.UUID, transferDelta, wageDelta decimal.Decimal) (*model.ClubLedger, error) {
	return s.mutate(ctx, clubID, func(l *model.ClubLedger) {
		l.ApplyReserve(transferDelta, wageDelta)
	})
}

// Release returns the given deltas from a club's reserved balances,
// clamped at zero.
func (s *FinanceService) Release(ctx context.Context, clubID uuid.UUID, transferDelta, wageDelta decimal.Decimal) (*model.ClubLedger, error) {
	return s.mutate(ctx, clubID, func(l *model.ClubLedger) {
		l.ApplyRelease(transferDelta, wageDelta)
	})
}

// Commit moves the given amounts from reserved into committed on a
// club's ledger under its row lock.
func (s *FinanceService) Commit(ctx context.Context, clubID uuid.UUID, transferAmount, wageAmount decimal.Decimal) (*model.ClubLedger, error) {
	return s.mutate(ctx, clubID, func(l *model.ClubLedger) {
		l.ApplyCommit(transferAmount, wageAmount)
	})
}

func (s *FinanceService) mutate(ctx context.Context, clubID uuid.UUID, apply func(*model.ClubLedger)) (*model.ClubLedger, error) {
	var ledger *model.ClubLedger
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		ledger, err = s.ledgerRepo.GetOrCreateForUpdate(ctx, tx, clubID)
		if err != nil {
			return err
		}
		apply(ledger)
		return s.ledgerRepo.Save(ctx, tx, ledger)
	})
	if err != nil {
		return nil, err
	}
	return ledger, nil
}
