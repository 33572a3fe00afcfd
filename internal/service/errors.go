// Package service provides business logic implementations.
package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Auction domain errors.
var (
	ErrAuctionNotOpen   = errors.New("auction is not open")
	ErrInvalidAmount    = errors.New("bid amount must be positive")
	ErrInvalidWageOffer = errors.New("wage offer must not be negative")
	ErrInvalidPrice     = errors.New("reserve price and minimum increment must be positive")
	ErrNotAuctionOwner  = errors.New("only the seller can accept bids")
	ErrBidMismatch      = errors.New("bid does not belong to this auction")
	ErrBidNotActive     = errors.New("bid is not active")
	ErrNoActiveBid      = errors.New("no active bid to withdraw")
	ErrInvalidDeadline  = errors.New("auction deadline must be in the future")
)

// Budget dimensions reported by InsufficientBudgetError.
const (
	BudgetTransfer = "transfer"
	BudgetWage     = "wage"
)

// BidTooLowError reports a bid below the current best plus the minimum
// increment, carrying the exact required minimum for client display.
type BidTooLowError struct {
	Required  decimal.Decimal
	Best      decimal.Decimal
	Increment decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf(
		"bid must be at least %s (current best %s + minimum increment %s)",
		e.Required.StringFixed(2), e.Best.StringFixed(2), e.Increment.StringFixed(2),
	)
}

// InsufficientBudgetError reports which budget dimension would go
// negative.
type InsufficientBudgetError struct {
	Dimension string
	Remaining decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBudgetError) Error() string {
	return fmt.Sprintf(
		"insufficient %s budget: %s remaining, %s requested",
		e.Dimension, e.Remaining.StringFixed(2), e.Requested.StringFixed(2),
	)
}
