// Package service provides business logic implementations.
// Property-based tests for the bid placement and replacement rules.
package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"transferx/internal/model"
)

// cents draws a two-decimal amount in the given cent range.
func cents(t *rapid.T, label string, min, max int64) decimal.Decimal {
	return decimal.New(rapid.Int64Range(min, max).Draw(t, label), -2)
}

// BidPlacementResult represents the outcome of a simulated bid placement.
type BidPlacementResult struct {
	ReservedTransferBefore decimal.Decimal
	ReservedTransferAfter  decimal.Decimal
	ReservedWageBefore     decimal.Decimal
	ReservedWageAfter      decimal.Decimal
	Success                bool
	Error                  error
}

// simulateBidPlacement mirrors the validation and reservation logic in
// AuctionService.PlaceBid for a fresh bid (no existing bid to replace),
// without database dependencies.
func simulateBidPlacement(ledger *model.ClubLedger, best, minIncrement *decimal.Decimal, amount, wage decimal.Decimal) BidPlacementResult {
	result := BidPlacementResult{
		ReservedTransferBefore: ledger.TransferReserved,
		ReservedWageBefore:     ledger.WageReservedWeekly,
	}
	fail := func(err error) BidPlacementResult {
		result.Error = err
		result.ReservedTransferAfter = ledger.TransferReserved
		result.ReservedWageAfter = ledger.WageReservedWeekly
		return result
	}

	if amount.Sign() <= 0 {
		return fail(ErrInvalidAmount)
	}
	if wage.IsNegative() {
		return fail(ErrInvalidWageOffer)
	}

	if best != nil && minIncrement != nil {
		required := best.Add(*minIncrement)
		if amount.LessThan(required) {
			return fail(&BidTooLowError{Required: required, Best: *best, Increment: *minIncrement})
		}
	}

	if err := validateBudgetForBid(ledger, amount, wage); err != nil {
		return fail(err)
	}

	ledger.ApplyReserve(amount, wage)
	result.Success = true
	result.ReservedTransferAfter = ledger.TransferReserved
	result.ReservedWageAfter = ledger.WageReservedWeekly
	return result
}

// simulateBidReplacement mirrors AuctionService.replaceBid: per-dimension
// deltas, validating only the increases.
func simulateBidReplacement(ledger *model.ClubLedger, oldAmount, oldWage, newAmount, newWage decimal.Decimal) error {
	deltaTransfer := newAmount.Sub(oldAmount)
	deltaWage := newWage.Sub(oldWage)

	addTransfer := decimal.Max(deltaTransfer, decimal.Zero)
	addWage := decimal.Max(deltaWage, decimal.Zero)
	if addTransfer.IsPositive() || addWage.IsPositive() {
		if err := validateBudgetForBid(ledger, addTransfer, addWage); err != nil {
			return err
		}
		ledger.ApplyReserve(addTransfer, addWage)
	}

	subTransfer := decimal.Min(deltaTransfer, decimal.Zero).Abs()
	subWage := decimal.Min(deltaWage, decimal.Zero).Abs()
	if subTransfer.IsPositive() || subWage.IsPositive() {
		ledger.ApplyRelease(subTransfer, subWage)
	}

	return nil
}

// TestBidReservationConservationProperty verifies that a successful bid
// placement increases the reserved balances by exactly the offered
// amounts and leaves budget totals untouched.
func TestBidReservationConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		transferTotal := cents(t, "transferTotal", 1, 100000000)
		wageTotal := cents(t, "wageTotal", 0, 10000000)
		ledger := &model.ClubLedger{
			ClubID:                uuid.New(),
			TransferBudgetTotal:   transferTotal,
			WageBudgetWeeklyTotal: wageTotal,
		}

		// Offer within budget so the placement must succeed
		amount := decimal.New(rapid.Int64Range(1, transferTotal.Mul(decimal.New(100, 0)).IntPart()).Draw(t, "amountCents"), -2)
		wage := decimal.Zero
		if wageTotal.IsPositive() {
			wage = decimal.New(rapid.Int64Range(0, wageTotal.Mul(decimal.New(100, 0)).IntPart()).Draw(t, "wageCents"), -2)
		}

		result := simulateBidPlacement(ledger, nil, nil, amount, wage)
		if !result.Success {
			t.Fatalf("Placement should succeed within budget: amount=%s, wage=%s, error=%v",
				amount, wage, result.Error)
		}

		expectedTransfer := result.ReservedTransferBefore.Add(amount)
		if !result.ReservedTransferAfter.Equal(expectedTransfer) {
			t.Fatalf("Reserved transfer mismatch: expected %s, got %s",
				expectedTransfer, result.ReservedTransferAfter)
		}
		expectedWage := result.ReservedWageBefore.Add(wage)
		if !result.ReservedWageAfter.Equal(expectedWage) {
			t.Fatalf("Reserved wage mismatch: expected %s, got %s",
				expectedWage, result.ReservedWageAfter)
		}
		if !ledger.TransferBudgetTotal.Equal(transferTotal) {
			t.Fatalf("Budget total changed: expected %s, got %s",
				transferTotal, ledger.TransferBudgetTotal)
		}
	})
}

// TestBidRejectionLeavesLedgerUntouchedProperty verifies that every
// rejected placement leaves the reserved balances exactly as they were.
func TestBidRejectionLeavesLedgerUntouchedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		transferTotal := cents(t, "transferTotal", 0, 10000000)
		ledger := &model.ClubLedger{
			ClubID:              uuid.New(),
			TransferBudgetTotal: transferTotal,
		}

		// Offer above the remaining budget
		overshoot := transferTotal.Add(cents(t, "overshoot", 1, 10000000))

		result := simulateBidPlacement(ledger, nil, nil, overshoot, decimal.Zero)
		if result.Success {
			t.Fatalf("Placement above budget should fail: total=%s, amount=%s",
				transferTotal, overshoot)
		}

		var budgetErr *InsufficientBudgetError
		if !errors.As(result.Error, &budgetErr) {
			t.Fatalf("Expected InsufficientBudgetError, got %v", result.Error)
		}
		if budgetErr.Dimension != BudgetTransfer {
			t.Fatalf("Expected transfer dimension, got %s", budgetErr.Dimension)
		}
		if !result.ReservedTransferAfter.Equal(result.ReservedTransferBefore) {
			t.Fatalf("Failed placement mutated reserved balance: before=%s, after=%s",
				result.ReservedTransferBefore, result.ReservedTransferAfter)
		}
	})
}

// TestMinimumIncrementRuleProperty verifies that with a best bid and a
// minimum increment configured, exactly the bids at or above
// best+increment pass the threshold check.
func TestMinimumIncrementRuleProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ledger := &model.ClubLedger{
			ClubID:              uuid.New(),
			TransferBudgetTotal: decimal.New(1000000000, -2),
		}

		best := cents(t, "best", 100, 50000000)
		increment := cents(t, "increment", 1, 1000000)
		amount := cents(t, "amount", 1, 60000000)

		result := simulateBidPlacement(ledger, &best, &increment, amount, decimal.Zero)

		required := best.Add(increment)
		if amount.GreaterThanOrEqual(required) {
			if !result.Success {
				t.Fatalf("Bid at or above %s should pass, amount=%s, error=%v",
					required, amount, result.Error)
			}
		} else {
			var tooLow *BidTooLowError
			if !errors.As(result.Error, &tooLow) {
				t.Fatalf("Bid below %s should fail with BidTooLowError, amount=%s, got %v",
					required, amount, result.Error)
			}
			if !tooLow.Required.Equal(required) {
				t.Fatalf("Required mismatch: expected %s, got %s", required, tooLow.Required)
			}
		}
	})
}

// TestBidReplacementDeltaProperty verifies that replacing a bid adjusts
// the reservation to exactly the new offer, regardless of the direction
// of each dimension's change.
func TestBidReplacementDeltaProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ledger := &model.ClubLedger{
			ClubID:                uuid.New(),
			TransferBudgetTotal:   decimal.New(1000000000, -2),
			WageBudgetWeeklyTotal: decimal.New(100000000, -2),
		}

		oldAmount := cents(t, "oldAmount", 1, 50000000)
		oldWage := cents(t, "oldWage", 0, 5000000)
		ledger.ApplyReserve(oldAmount, oldWage)

		// New offer may raise one dimension and lower the other
		newAmount := cents(t, "newAmount", 1, 50000000)
		newWage := cents(t, "newWage", 0, 5000000)

		if err := simulateBidReplacement(ledger, oldAmount, oldWage, newAmount, newWage); err != nil {
			t.Fatalf("Replacement within budget should succeed: %v", err)
		}

		if !ledger.TransferReserved.Equal(newAmount) {
			t.Fatalf("Reserved transfer should equal new offer: expected %s, got %s",
				newAmount, ledger.TransferReserved)
		}
		if !ledger.WageReservedWeekly.Equal(newWage) {
			t.Fatalf("Reserved wage should equal new offer: expected %s, got %s",
				newWage, ledger.WageReservedWeekly)
		}
	})
}

// TestAntiSnipingDecisionProperty verifies the extension decision: a bid
// inside the closing window extends the deadline by the configured step,
// a bid outside it leaves the deadline alone.
func TestAntiSnipingDecisionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		window := time.Duration(rapid.Int64Range(1, 30).Draw(t, "windowMinutes")) * time.Minute
		extension := time.Duration(rapid.Int64Range(1, 30).Draw(t, "extendMinutes")) * time.Minute

		now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
		untilDeadline := time.Duration(rapid.Int64Range(1, 3600).Draw(t, "untilDeadlineSeconds")) * time.Second
		deadline := now.Add(untilDeadline)

		// Decision mirrored from AuctionService.maybeExtendDeadline
		extended := deadline.Sub(now) <= window

		if untilDeadline <= window && !extended {
			t.Fatalf("Bid %s before deadline with window %s should extend", untilDeadline, window)
		}
		if untilDeadline > window && extended {
			t.Fatalf("Bid %s before deadline with window %s should not extend", untilDeadline, window)
		}
		if extended {
			newDeadline := deadline.Add(extension)
			if !newDeadline.After(deadline) {
				t.Fatalf("Extension must move the deadline forward: old=%s, new=%s", deadline, newDeadline)
			}
			if newDeadline.Sub(deadline) != extension {
				t.Fatalf("Extension step mismatch: expected %s, got %s", extension, newDeadline.Sub(deadline))
			}
		}
	})
}
