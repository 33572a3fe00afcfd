// Package model defines the data models for the transfer market system.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Club represents a football club participating in the transfer market.
type Club struct {
	ID             uuid.UUID `db:"id"`
	Name           string    `db:"name"`
	Country        string    `db:"country"`
	City           string    `db:"city"`
	LeagueName     string    `db:"league_name"`
	VerifiedStatus string    `db:"verified_status"`
	CreatedAt      time.Time `db:"created_at"`
}

// Club verification statuses.
const (
	ClubUnverified = "UNVERIFIED"
	ClubPending    = "PENDING"
	ClubVerified   = "VERIFIED"
)

// Player represents a player that can be listed for auction.
type Player struct {
	ID            uuid.UUID  `db:"id"`
	Name          string     `db:"name"`
	Age           int        `db:"age"`
	Position      string     `db:"position"`
	CurrentClubID *uuid.UUID `db:"current_club_id"`
	CreatedAt     time.Time  `db:"created_at"`
}

// Player positions.
const (
	PositionGoalkeeper = "GK"
	PositionDefender   = "DEF"
	PositionMidfielder = "MID"
	PositionForward    = "FWD"
)

// Auction represents a timed auction for a player.
type Auction struct {
	ID            uuid.UUID        `db:"id"`
	PlayerID      uuid.UUID        `db:"player_id"`
	SellerClubID  uuid.UUID        `db:"seller_club_id"`
	Deadline      time.Time        `db:"deadline"`
	ReservePrice  *decimal.Decimal `db:"reserve_price"`
	MinIncrement  *decimal.Decimal `db:"min_increment"`
	Status        string           `db:"status"`
	AcceptedBidID *uuid.UUID       `db:"accepted_bid_id"`
	ClosedAt      *time.Time       `db:"closed_at"`
	CreatedAt     time.Time        `db:"created_at"`
}

// Auction statuses. An auction is terminal once ACCEPTED or CLOSED.
const (
	AuctionOpen     = "OPEN"
	AuctionAccepted = "ACCEPTED"
	AuctionClosed   = "CLOSED"
)

// IsExpired reports whether the auction deadline has passed. Status may
// still read OPEN in storage until the next operation runs the lazy close.
func (a *Auction) IsExpired(now time.Time) bool {
	return !a.Deadline.After(now)
}

// Bid represents a club's offer on an auction. There is at most one
// ACTIVE bid per (auction, buyer); repeat bids mutate it in place.
type Bid struct {
	ID                     uuid.UUID       `db:"id"`
	AuctionID              uuid.UUID       `db:"auction_id"`
	BuyerClubID            uuid.UUID       `db:"buyer_club_id"`
	Amount                 decimal.Decimal `db:"amount"`
	WageOfferWeekly        decimal.Decimal `db:"wage_offer_weekly"`
	ReservedTransferAmount decimal.Decimal `db:"reserved_transfer_amount"`
	ReservedWageWeekly     decimal.Decimal `db:"reserved_wage_weekly"`
	Notes                  string          `db:"notes"`
	Status                 string          `db:"status"`
	CreatedAt              time.Time       `db:"created_at"`
}

// Bid statuses.
const (
	BidActive    = "ACTIVE"
	BidWithdrawn = "WITHDRAWN"
	BidAccepted  = "ACCEPTED"
	BidRejected  = "REJECTED"
)

// AuctionEvent is one entry in the append-only auction audit trail.
// Events are never mutated or deleted; they form the authoritative
// history independent of current row state.
type AuctionEvent struct {
	ID          int64          `db:"id"`
	AuctionID   uuid.UUID      `db:"auction_id"`
	EventType   string         `db:"event_type"`
	ActorClubID *uuid.UUID     `db:"actor_club_id"`
	Payload     map[string]any `db:"payload"`
	CreatedAt   time.Time      `db:"created_at"`
}

// Auction event types.
const (
	EventBidPlaced       = "BID_PLACED"
	EventBidReplaced     = "BID_REPLACED"
	EventBidAccepted     = "BID_ACCEPTED"
	EventAuctionClosed   = "AUCTION_CLOSED"
	EventAuctionExtended = "AUCTION_EXTENDED"
)

// Deal is the record produced by the finalization bridge when a bid
// is accepted.
type Deal struct {
	ID               uuid.UUID       `db:"id"`
	AuctionID        *uuid.UUID      `db:"auction_id"`
	BidID            *uuid.UUID      `db:"bid_id"`
	BuyerClubID      uuid.UUID       `db:"buyer_club_id"`
	SellerClubID     uuid.UUID       `db:"seller_club_id"`
	PlayerID         uuid.UUID       `db:"player_id"`
	AgreedFee        decimal.Decimal `db:"agreed_fee"`
	AgreedWageWeekly decimal.Decimal `db:"agreed_wage_weekly"`
	Status           string          `db:"status"`
	CreatedAt        time.Time       `db:"created_at"`
	CompletedAt      *time.Time      `db:"completed_at"`
}

// Deal statuses.
const (
	DealInProgress = "IN_PROGRESS"
	DealCompleted  = "COMPLETED"
	DealCollapsed  = "COLLAPSED"
)

// Notification is a message for a club, written by fire-and-forget
// side effects after the financial transaction commits.
type Notification struct {
	ID              uuid.UUID  `db:"id"`
	RecipientClubID uuid.UUID  `db:"recipient_club_id"`
	Kind            string     `db:"kind"`
	Message         string     `db:"message"`
	Link            string     `db:"link"`
	RelatedPlayerID *uuid.UUID `db:"related_player_id"`
	CreatedAt       time.Time  `db:"created_at"`
	ReadAt          *time.Time `db:"read_at"`
}

// Notification kinds.
const (
	NotifyOutbid  = "OUTBID"
	NotifyDeal    = "DEAL"
	NotifyAuction = "AUCTION"
)
