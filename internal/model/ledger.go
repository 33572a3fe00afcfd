package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClubLedger tracks a club's transfer and wage budgets together with the
// reserved and committed sub-balances. One row per club, created lazily
// on first need.
//
// All amounts are fixed-point decimals with two fractional digits.
// Reserved and committed never go negative: releases clamp at zero.
type ClubLedger struct {
	ClubID                uuid.UUID       `db:"club_id"`
	TransferBudgetTotal   decimal.Decimal `db:"transfer_budget_total"`
	WageBudgetWeeklyTotal decimal.Decimal `db:"wage_budget_weekly_total"`
	TransferReserved      decimal.Decimal `db:"transfer_reserved"`
	WageReservedWeekly    decimal.Decimal `db:"wage_reserved_weekly"`
	TransferCommitted     decimal.Decimal `db:"transfer_committed"`
	WageCommittedWeekly   decimal.Decimal `db:"wage_committed_weekly"`
	UpdatedAt             time.Time       `db:"updated_at"`
}

// TransferRemaining returns the transfer budget still available for new
// reservations.
func (l *ClubLedger) TransferRemaining() decimal.Decimal {
	return l.TransferBudgetTotal.Sub(l.TransferReserved).Sub(l.TransferCommitted)
}

// WageRemainingWeekly returns the weekly wage budget still available for
// new reservations.
func (l *ClubLedger) WageRemainingWeekly() decimal.Decimal {
	return l.WageBudgetWeeklyTotal.Sub(l.WageReservedWeekly).Sub(l.WageCommittedWeekly)
}

// ApplyReserve earmarks the given non-negative deltas against the
// reserved balances. It performs no budget validation; callers must run
// the budget check under the same lock before reserving.
func (l *ClubLedger) ApplyReserve(transferDelta, wageDelta decimal.Decimal) {
	l.TransferReserved = l.TransferReserved.Add(transferDelta)
	l.WageReservedWeekly = l.WageReservedWeekly.Add(wageDelta)
}

// ApplyRelease returns the given deltas from the reserved balances,
// clamped at zero. A double release is a no-op once the balance hits
// zero rather than an error.
func (l *ClubLedger) ApplyRelease(transferDelta, wageDelta decimal.Decimal) {
	l.TransferReserved = clampZero(l.TransferReserved.Sub(transferDelta))
	l.WageReservedWeekly = clampZero(l.WageReservedWeekly.Sub(wageDelta))
}

// ApplyCommit moves the given amounts from reserved (clamped at zero)
// into committed. Used exactly once per winning bid.
func (l *ClubLedger) ApplyCommit(transferAmount, wageAmount decimal.Decimal) {
	l.TransferReserved = clampZero(l.TransferReserved.Sub(transferAmount))
	l.WageReservedWeekly = clampZero(l.WageReservedWeekly.Sub(wageAmount))
	l.TransferCommitted = l.TransferCommitted.Add(transferAmount)
	l.WageCommittedWeekly = l.WageCommittedWeekly.Add(wageAmount)
}

// ApplySeasonReset zeroes reserved and committed balances while
// preserving the budget totals.
func (l *ClubLedger) ApplySeasonReset() {
	l.TransferReserved = decimal.Zero
	l.WageReservedWeekly = decimal.Zero
	l.TransferCommitted = decimal.Zero
	l.WageCommittedWeekly = decimal.Zero
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
