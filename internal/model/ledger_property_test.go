// Package model provides domain types for the transfer market.
// Property-based tests for ClubLedger arithmetic.
package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// money draws a non-negative two-decimal amount in cents.
func money(t *rapid.T, label string, maxCents int64) decimal.Decimal {
	cents := rapid.Int64Range(0, maxCents).Draw(t, label)
	return decimal.New(cents, -2)
}

func newTestLedger(transferTotal, wageTotal decimal.Decimal) *ClubLedger {
	return &ClubLedger{
		ClubID:                uuid.New(),
		TransferBudgetTotal:   transferTotal,
		WageBudgetWeeklyTotal: wageTotal,
		TransferReserved:      decimal.Zero,
		WageReservedWeekly:    decimal.Zero,
		TransferCommitted:     decimal.Zero,
		WageCommittedWeekly:   decimal.Zero,
	}
}

// TestReserveReleaseRoundTripProperty verifies that reserving and then
// releasing the same amounts restores the ledger exactly.
func TestReserveReleaseRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ledger := newTestLedger(money(t, "transferTotal", 100000000), money(t, "wageTotal", 10000000))

		transferDelta := money(t, "transferDelta", 100000000)
		wageDelta := money(t, "wageDelta", 10000000)

		remainingBefore := ledger.TransferRemaining()
		wageRemainingBefore := ledger.WageRemainingWeekly()

		ledger.ApplyReserve(transferDelta, wageDelta)

		if !ledger.TransferReserved.Equal(transferDelta) {
			t.Fatalf("TransferReserved mismatch after reserve: expected %s, got %s",
				transferDelta, ledger.TransferReserved)
		}
		if !ledger.TransferRemaining().Equal(remainingBefore.Sub(transferDelta)) {
			t.Fatalf("TransferRemaining mismatch after reserve: expected %s, got %s",
				remainingBefore.Sub(transferDelta), ledger.TransferRemaining())
		}

		ledger.ApplyRelease(transferDelta, wageDelta)

		if !ledger.TransferReserved.IsZero() || !ledger.WageReservedWeekly.IsZero() {
			t.Fatalf("Reserved balances not restored to zero: transfer=%s, wage=%s",
				ledger.TransferReserved, ledger.WageReservedWeekly)
		}
		if !ledger.TransferRemaining().Equal(remainingBefore) {
			t.Fatalf("TransferRemaining not restored: expected %s, got %s",
				remainingBefore, ledger.TransferRemaining())
		}
		if !ledger.WageRemainingWeekly().Equal(wageRemainingBefore) {
			t.Fatalf("WageRemainingWeekly not restored: expected %s, got %s",
				wageRemainingBefore, ledger.WageRemainingWeekly())
		}
	})
}

// TestReleaseClampsAtZeroProperty verifies that releasing more than is
// reserved never drives the reserved balances negative.
func TestReleaseClampsAtZeroProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ledger := newTestLedger(money(t, "transferTotal", 100000000), money(t, "wageTotal", 10000000))

		reserved := money(t, "reserved", 50000000)
		ledger.ApplyReserve(reserved, decimal.Zero)

		// Over-release by an arbitrary excess
		excess := money(t, "excess", 50000000)
		ledger.ApplyRelease(reserved.Add(excess), decimal.Zero)

		if ledger.TransferReserved.IsNegative() {
			t.Fatalf("TransferReserved went negative: %s", ledger.TransferReserved)
		}
		if !ledger.TransferReserved.IsZero() {
			t.Fatalf("TransferReserved should clamp to zero, got %s", ledger.TransferReserved)
		}

		// A second release of anything is a no-op at zero
		ledger.ApplyRelease(money(t, "doubleRelease", 50000000), decimal.Zero)
		if !ledger.TransferReserved.IsZero() {
			t.Fatalf("Double release moved reserved off zero: %s", ledger.TransferReserved)
		}
	})
}

// TestCommitConservationProperty verifies that committing a reserved
// amount moves it from reserved to committed without changing the sum
// of reserved+committed, so remaining stays constant across the commit.
func TestCommitConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ledger := newTestLedger(money(t, "transferTotal", 100000000), money(t, "wageTotal", 10000000))

		reservedCents := rapid.Int64Range(1, 50000000).Draw(t, "reservedCents")
		reserved := decimal.New(reservedCents, -2)
		wageCents := rapid.Int64Range(0, 5000000).Draw(t, "wageCents")
		wage := decimal.New(wageCents, -2)

		ledger.ApplyReserve(reserved, wage)

		remainingBefore := ledger.TransferRemaining()
		wageRemainingBefore := ledger.WageRemainingWeekly()

		ledger.ApplyCommit(reserved, wage)

		if !ledger.TransferReserved.IsZero() {
			t.Fatalf("TransferReserved should be zero after full commit, got %s", ledger.TransferReserved)
		}
		if !ledger.TransferCommitted.Equal(reserved) {
			t.Fatalf("TransferCommitted mismatch: expected %s, got %s", reserved, ledger.TransferCommitted)
		}
		if !ledger.TransferRemaining().Equal(remainingBefore) {
			t.Fatalf("TransferRemaining changed across commit: before=%s, after=%s",
				remainingBefore, ledger.TransferRemaining())
		}
		if !ledger.WageRemainingWeekly().Equal(wageRemainingBefore) {
			t.Fatalf("WageRemainingWeekly changed across commit: before=%s, after=%s",
				wageRemainingBefore, ledger.WageRemainingWeekly())
		}
	})
}

// TestSeasonResetProperty verifies that a season reset zeroes reserved
// and committed balances while budget totals survive untouched.
func TestSeasonResetProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		transferTotal := money(t, "transferTotal", 100000000)
		wageTotal := money(t, "wageTotal", 10000000)
		ledger := newTestLedger(transferTotal, wageTotal)

		ledger.ApplyReserve(money(t, "reserve", 50000000), money(t, "wageReserve", 5000000))
		ledger.ApplyCommit(money(t, "commit", 20000000), money(t, "wageCommit", 2000000))

		ledger.ApplySeasonReset()

		if !ledger.TransferReserved.IsZero() || !ledger.TransferCommitted.IsZero() ||
			!ledger.WageReservedWeekly.IsZero() || !ledger.WageCommittedWeekly.IsZero() {
			t.Fatalf("Season reset left non-zero balances: %+v", ledger)
		}
		if !ledger.TransferBudgetTotal.Equal(transferTotal) {
			t.Fatalf("Transfer budget total changed: expected %s, got %s",
				transferTotal, ledger.TransferBudgetTotal)
		}
		if !ledger.WageBudgetWeeklyTotal.Equal(wageTotal) {
			t.Fatalf("Wage budget total changed: expected %s, got %s",
				wageTotal, ledger.WageBudgetWeeklyTotal)
		}
		if !ledger.TransferRemaining().Equal(transferTotal) {
			t.Fatalf("TransferRemaining should equal total after reset: expected %s, got %s",
				transferTotal, ledger.TransferRemaining())
		}
	})
}
