package service

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"transferx/internal/config"
	"transferx/internal/model"
	"transferx/internal/pkg/db"
	"transferx/internal/pkg/lock"
	"transferx/internal/repository"
)

// lockWaitTimeout caps how long a bid waits on the in-process
// per-auction lock before giving up with lock.ErrLockTimeout.
const lockWaitTimeout = 5 * time.Second

// AuctionService owns the auction and bid lifecycle: it validates bid
// legality, drives ledger reservations, applies the anti-sniping
// deadline policy, and appends the audit trail.
//
// Calling convention: every public entry point that reads or mutates an
// auction runs the lazy expiry guard first. There is no background
// sweep; an expired auction stays OPEN in storage until the next
// operation touches it, so skipping the guard would accept bids on a
// dead auction.
//
// Lock order is always auction row first, then ledger rows in club-ID
// order. Both PlaceBid and AcceptBid follow it, so the two paths cannot
// deadlock against each other.
type AuctionService struct {
	pool        *pgxpool.Pool
	auctionRepo *repository.AuctionRepository
	bidRepo     *repository.BidRepository
	ledgerRepo  *repository.LedgerRepository
	eventRepo   *repository.EventRepository
	notifier    Notifier
	finalizer   DealFinalizer
	cfg         config.AuctionConfig
	locks       *lock.KeyedLock
	now         func() time.Time
}

// NewAuctionService creates a new AuctionService instance.
func NewAuctionService(
	pool *pgxpool.Pool,
	auctionRepo *repository.AuctionRepository,
	bidRepo *repository.BidRepository,
	ledgerRepo *repository.LedgerRepository,
	eventRepo *repository.EventRepository,
	notifier Notifier,
	finalizer DealFinalizer,
	cfg config.AuctionConfig,
) *AuctionService {
	return &AuctionService{
		pool:        pool,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		ledgerRepo:  ledgerRepo,
		eventRepo:   eventRepo,
		notifier:    notifier,
		finalizer:   finalizer,
		cfg:         cfg,
		locks:       lock.NewKeyedLock(),
		now:         time.Now,
	}
}

// CreateAuction lists a player for auction with an OPEN status.
func (s *AuctionService) CreateAuction(ctx context.Context, playerID, sellerClubID uuid.UUID, deadline time.Time, reservePrice, minIncrement *decimal.Decimal) (*model.Auction, error) {
	if !deadline.After(s.now()) {
		return nil, ErrInvalidDeadline
	}
	if reservePrice != nil && reservePrice.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if minIncrement != nil && minIncrement.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}

	return s.auctionRepo.Create(ctx, playerID, sellerClubID, deadline, reservePrice, minIncrement)
}

// PlaceBid places a new bid, or replaces the buyer's existing active
// bid on the same auction, adjusting the buyer's ledger reservation by
// the difference. The whole operation runs in one transaction holding
// the auction row lock and the buyer's ledger row lock.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID, buyerClubID uuid.UUID, amount, wageOfferWeekly decimal.Decimal, notes string) (*model.Bid, error) {
	var bid *model.Bid
	var effects []func()

	// Bids are the hot path: bound the in-process lock wait instead of
	// queueing indefinitely behind a busy auction.
	err := s.locks.WithLockContext(ctx, auctionID, lockWaitTimeout, func() error {
		return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			now := s.now()

			auction, err := s.auctionRepo.GetForUpdate(ctx, tx, auctionID)
			if err != nil {
				return err
			}

			// An expired-but-unprocessed auction must never accept a
			// new bid; run the lazy close before anything else.
			if _, err := s.closeExpiredLocked(ctx, tx, auction, now); err != nil {
				return err
			}

			if auction.SellerClubID == buyerClubID || auction.Status != model.AuctionOpen {
				return ErrAuctionNotOpen
			}
			if amount.Sign() <= 0 {
				return ErrInvalidAmount
			}
			if wageOfferWeekly.IsNegative() {
				return ErrInvalidWageOffer
			}

			best, err := s.bidRepo.BestActiveAmount(ctx, tx, auctionID)
			if err != nil {
				return err
			}
			if best != nil && auction.MinIncrement != nil {
				required := best.Add(*auction.MinIncrement)
				if amount.LessThan(required) {
					return &BidTooLowError{
						Required:  required,
						Best:      *best,
						Increment: *auction.MinIncrement,
					}
				}
			}

			// Captured before the mutation so the outbid check compares
			// against the pre-bid state.
			bestOther, err := s.bidRepo.BestActiveOther(ctx, tx, auctionID, buyerClubID)
			if err != nil {
				return err
			}

			ledger, err := s.ledgerRepo.GetOrCreateForUpdate(ctx, tx, buyerClubID)
			if err != nil {
				return err
			}

			existing, err := s.bidRepo.ActiveByAuctionAndBuyer(ctx, tx, auctionID, buyerClubID)
			if err != nil {
				return err
			}

			if existing != nil {
				bid, err = s.replaceBid(ctx, tx, auction, existing, ledger, amount, wageOfferWeekly)
			} else {
				bid, err = s.createBid(ctx, tx, auction, buyerClubID, ledger, amount, wageOfferWeekly, notes)
			}
			if err != nil {
				return err
			}

			if err := s.maybeExtendDeadline(ctx, tx, auction, now); err != nil {
				return err
			}

			if bestOther != nil && amount.GreaterThan(bestOther.Amount) {
				outbid := bestOther.BuyerClubID
				playerID := auction.PlayerID
				link := fmt.Sprintf("/auctions/%s/", auction.ID)
				effects = append(effects, func() {
					s.notifier.Notify(ctx, outbid, model.NotifyOutbid,
						"You have been outbid.", link, &playerID)
				})
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Side effects run only after the transaction has committed so a
	// notifier failure cannot roll back the reservation.
	for _, fn := range effects {
		fn()
	}

	return bid, nil
}

// replaceBid mutates the buyer's existing active bid in place,
// adjusting the reservation by the per-dimension deltas. A replace can
// net-increase one dimension while net-decreasing the other; the two
// are never conflated.
func (s *AuctionService) replaceBid(ctx context.Context, tx pgx.Tx, auction *model.Auction, existing *model.Bid, ledger *model.ClubLedger, amount, wageOfferWeekly decimal.Decimal) (*model.Bid, error) {
	deltaTransfer := amount.Sub(existing.ReservedTransferAmount)
	deltaWage := wageOfferWeekly.Sub(existing.ReservedWageWeekly)

	addTransfer := decimal.Max(deltaTransfer, decimal.Zero)
	addWage := decimal.Max(deltaWage, decimal.Zero)
	if addTransfer.IsPositive() || addWage.IsPositive() {
		if err := validateBudgetForBid(ledger, addTransfer, addWage); err != nil {
			return nil, err
		}
		ledger.ApplyReserve(addTransfer, addWage)
	}

	subTransfer := decimal.Min(deltaTransfer, decimal.Zero).Abs()
	subWage := decimal.Min(deltaWage, decimal.Zero).Abs()
	if subTransfer.IsPositive() || subWage.IsPositive() {
		ledger.ApplyRelease(subTransfer, subWage)
	}

	if err := s.ledgerRepo.Save(ctx, tx, ledger); err != nil {
		return nil, err
	}

	existing.Amount = amount
	existing.WageOfferWeekly = wageOfferWeekly
	existing.ReservedTransferAmount = amount
	existing.ReservedWageWeekly = wageOfferWeekly
	if err := s.bidRepo.UpdateOffer(ctx, tx, existing); err != nil {
		return nil, err
	}

	buyerID := existing.BuyerClubID
	_, err := s.eventRepo.Append(ctx, tx, auction.ID, model.EventBidReplaced, &buyerID, map[string]any{
		"type":           "replace",
		"delta_transfer": deltaTransfer.StringFixed(2),
		"delta_wage":     deltaWage.StringFixed(2),
	})
	if err != nil {
		return nil, err
	}

	return existing, nil
}

// createBid reserves the full offer and creates a new active bid.
func (s *AuctionService) createBid(ctx context.Context, tx pgx.Tx, auction *model.Auction, buyerClubID uuid.UUID, ledger *model.ClubLedger, amount, wageOfferWeekly decimal.Decimal, notes string) (*model.Bid, error) {
	if err := validateBudgetForBid(ledger, amount, wageOfferWeekly); err != nil {
		return nil, err
	}
	ledger.ApplyReserve(amount, wageOfferWeekly)
	if err := s.ledgerRepo.Save(ctx, tx, ledger); err != nil {
		return nil, err
	}

	bid, err := s.bidRepo.Create(ctx, tx, auction.ID, buyerClubID, amount, wageOfferWeekly, notes)
	if err != nil {
		return nil, err
	}

	_, err = s.eventRepo.Append(ctx, tx, auction.ID, model.EventBidPlaced, &buyerClubID, map[string]any{
		"type":   "new",
		"amount": amount.StringFixed(2),
	})
	if err != nil {
		return nil, err
	}

	return bid, nil
}

// AcceptBid accepts an active bid: the winner's reservation converts to
// a commitment, every other active bid is rejected with its reservation
// released, and the auction becomes ACCEPTED. This is the sole path by
// which committed balances increase.
func (s *AuctionService) AcceptBid(ctx context.Context, auctionID, bidID, actorClubID uuid.UUID) error {
	var auction *model.Auction
	var winning *model.Bid

	err := s.locks.WithLock(auctionID, func() error {
		return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			now := s.now()

			var err error
			auction, err = s.auctionRepo.GetForUpdate(ctx, tx, auctionID)
			if err != nil {
				return err
			}

			if _, err := s.closeExpiredLocked(ctx, tx, auction, now); err != nil {
				return err
			}

			if auction.SellerClubID != actorClubID {
				return ErrNotAuctionOwner
			}
			if auction.Status != model.AuctionOpen {
				return ErrAuctionNotOpen
			}

			winning, err = s.bidRepo.GetForUpdate(ctx, tx, bidID)
			if err != nil {
				return err
			}
			if winning.AuctionID != auction.ID {
				return ErrBidMismatch
			}
			if winning.Status != model.BidActive {
				return ErrBidNotActive
			}

			active, err := s.bidRepo.ActiveByAuctionForUpdate(ctx, tx, auctionID)
			if err != nil {
				return err
			}
			losers := make([]*model.Bid, 0, len(active))
			clubIDs := []uuid.UUID{winning.BuyerClubID}
			for _, b := range active {
				if b.ID == winning.ID {
					continue
				}
				losers = append(losers, b)
				clubIDs = append(clubIDs, b.BuyerClubID)
			}

			ledgers, err := s.lockLedgers(ctx, tx, clubIDs)
			if err != nil {
				return err
			}

			winnerLedger := ledgers[winning.BuyerClubID]
			winnerLedger.ApplyCommit(winning.ReservedTransferAmount, winning.ReservedWageWeekly)
			if err := s.ledgerRepo.Save(ctx, tx, winnerLedger); err != nil {
				return err
			}
			if err := s.bidRepo.UpdateStatus(ctx, tx, winning.ID, model.BidAccepted); err != nil {
				return err
			}
			winning.Status = model.BidAccepted

			if err := s.auctionRepo.MarkAccepted(ctx, tx, auction.ID, winning.ID, now); err != nil {
				return err
			}
			auction.Status = model.AuctionAccepted
			auction.AcceptedBidID = &winning.ID
			auction.ClosedAt = &now

			for _, loser := range losers {
				ledger := ledgers[loser.BuyerClubID]
				ledger.ApplyRelease(loser.ReservedTransferAmount, loser.ReservedWageWeekly)
				if err := s.ledgerRepo.Save(ctx, tx, ledger); err != nil {
					return err
				}
				if err := s.bidRepo.UpdateStatus(ctx, tx, loser.ID, model.BidRejected); err != nil {
					return err
				}
			}

			// Acceptance below the reserve price is permitted; it is
			// only flagged for the audit trail.
			belowReserve := auction.ReservePrice != nil && winning.Amount.LessThan(*auction.ReservePrice)

			_, err = s.eventRepo.Append(ctx, tx, auction.ID, model.EventBidAccepted, &actorClubID, map[string]any{
				"bid_id":                winning.ID.String(),
				"amount":                winning.Amount.StringFixed(2),
				"below_reserve":         belowReserve,
				"committed_transfer":    winning.ReservedTransferAmount.StringFixed(2),
				"committed_wage_weekly": winning.ReservedWageWeekly.StringFixed(2),
			})
			return err
		})
	})
	if err != nil {
		return err
	}

	// The bridge runs only after the commit; the ledger state it sees
	// is final.
	if s.finalizer != nil {
		if _, err := s.finalizer.FinalizeDeal(ctx, auction, winning); err != nil {
			log.Error().
				Err(err).
				Str("auction_id", auction.ID.String()).
				Str("bid_id", winning.ID.String()).
				Msg("Deal finalization failed after acceptance")
		}
	}

	return nil
}

// WithdrawBid withdraws the buyer's active bid while the auction is
// still open, releasing its reservation.
func (s *AuctionService) WithdrawBid(ctx context.Context, auctionID, buyerClubID uuid.UUID) error {
	return s.locks.WithLock(auctionID, func() error {
		return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			now := s.now()

			auction, err := s.auctionRepo.GetForUpdate(ctx, tx, auctionID)
			if err != nil {
				return err
			}

			if _, err := s.closeExpiredLocked(ctx, tx, auction, now); err != nil {
				return err
			}
			if auction.Status != model.AuctionOpen {
				return ErrAuctionNotOpen
			}

			existing, err := s.bidRepo.ActiveByAuctionAndBuyer(ctx, tx, auctionID, buyerClubID)
			if err != nil {
				return err
			}
			if existing == nil {
				return ErrNoActiveBid
			}

			ledger, err := s.ledgerRepo.GetOrCreateForUpdate(ctx, tx, buyerClubID)
			if err != nil {
				return err
			}
			ledger.ApplyRelease(existing.ReservedTransferAmount, existing.ReservedWageWeekly)
			if err := s.ledgerRepo.Save(ctx, tx, ledger); err != nil {
				return err
			}

			return s.bidRepo.UpdateStatus(ctx, tx, existing.ID, model.BidWithdrawn)
		})
	})
}

// CloseIfExpired closes the auction if its deadline has passed,
// rejecting all active bids and releasing their reservations. Returns
// true if it performed the close. Idempotent: closing an already-closed
// auction is a no-op.
func (s *AuctionService) CloseIfExpired(ctx context.Context, auctionID uuid.UUID) (bool, error) {
	// Fast path: an unlocked read to skip the transaction entirely.
	// The authoritative check repeats under the lock.
	auction, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return false, err
	}
	now := s.now()
	if auction.Status != model.AuctionOpen || !auction.IsExpired(now) {
		return false, nil
	}

	var closed bool
	err = s.locks.WithLock(auctionID, func() error {
		return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			locked, err := s.auctionRepo.GetForUpdate(ctx, tx, auctionID)
			if err != nil {
				return err
			}
			closed, err = s.closeExpiredLocked(ctx, tx, locked, now)
			return err
		})
	})
	if err != nil {
		return false, err
	}

	return closed, nil
}

// closeExpiredLocked performs the lazy close under an already-held
// auction row lock: re-checks expiry, releases every active bidder's
// reservation, rejects the bids, and appends one AUCTION_CLOSED event.
// The auction struct is updated in place so callers see the final
// status.
func (s *AuctionService) closeExpiredLocked(ctx context.Context, tx pgx.Tx, auction *model.Auction, now time.Time) (bool, error) {
	if auction.Status != model.AuctionOpen || !auction.IsExpired(now) {
		return false, nil
	}

	active, err := s.bidRepo.ActiveByAuctionForUpdate(ctx, tx, auction.ID)
	if err != nil {
		return false, err
	}

	clubIDs := make([]uuid.UUID, 0, len(active))
	for _, b := range active {
		clubIDs = append(clubIDs, b.BuyerClubID)
	}
	ledgers, err := s.lockLedgers(ctx, tx, clubIDs)
	if err != nil {
		return false, err
	}

	for _, bid := range active {
		ledger := ledgers[bid.BuyerClubID]
		ledger.ApplyRelease(bid.ReservedTransferAmount, bid.ReservedWageWeekly)
		if err := s.ledgerRepo.Save(ctx, tx, ledger); err != nil {
			return false, err
		}
		if err := s.bidRepo.UpdateStatus(ctx, tx, bid.ID, model.BidRejected); err != nil {
			return false, err
		}
	}

	if err := s.auctionRepo.MarkClosed(ctx, tx, auction.ID, now); err != nil {
		return false, err
	}
	auction.Status = model.AuctionClosed
	auction.ClosedAt = &now

	_, err = s.eventRepo.Append(ctx, tx, auction.ID, model.EventAuctionClosed, nil, map[string]any{
		"released": true,
		"count":    len(active),
	})
	if err != nil {
		return false, err
	}

	log.Info().
		Str("auction_id", auction.ID.String()).
		Int("bids_released", len(active)).
		Msg("Auction closed at deadline")

	return true, nil
}

// maybeExtendDeadline applies the anti-sniping policy: a bid landing
// inside the closing window pushes the deadline forward and records an
// AUCTION_EXTENDED event. Successive late bids re-check against the new
// deadline, so an auction keeps extending while bidding continues.
func (s *AuctionService) maybeExtendDeadline(ctx context.Context, tx pgx.Tx, auction *model.Auction, now time.Time) error {
	if !s.cfg.AntiSnipingEnabled {
		return nil
	}
	if auction.Deadline.Sub(now) > s.cfg.SnipingWindow() {
		return nil
	}

	oldDeadline := auction.Deadline
	newDeadline := auction.Deadline.Add(s.cfg.SnipingExtension())
	if err := s.auctionRepo.UpdateDeadline(ctx, tx, auction.ID, newDeadline); err != nil {
		return err
	}
	auction.Deadline = newDeadline

	_, err := s.eventRepo.Append(ctx, tx, auction.ID, model.EventAuctionExtended, nil, map[string]any{
		"old_deadline": oldDeadline.Format(time.RFC3339),
		"new_deadline": newDeadline.Format(time.RFC3339),
		"reason":       "anti_sniping",
	})
	return err
}

// lockLedgers acquires the ledger row locks for the given clubs in
// club-ID order, the deterministic order shared by every code path that
// locks more than one ledger.
func (s *AuctionService) lockLedgers(ctx context.Context, tx pgx.Tx, clubIDs []uuid.UUID) (map[uuid.UUID]*model.ClubLedger, error) {
	sorted := make([]uuid.UUID, 0, len(clubIDs))
	seen := make(map[uuid.UUID]bool, len(clubIDs))
	for _, id := range clubIDs {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	slices.SortFunc(sorted, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})

	ledgers := make(map[uuid.UUID]*model.ClubLedger, len(sorted))
	for _, id := range sorted {
		ledger, err := s.ledgerRepo.GetOrCreateForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		ledgers[id] = ledger
	}

	return ledgers, nil
}

// BestActiveBidAmount returns the highest active bid amount, or nil if
// there are no active bids. Unlocked display read; mutations re-derive
// this inside their own transaction.
func (s *AuctionService) BestActiveBidAmount(ctx context.Context, auctionID uuid.UUID) (*decimal.Decimal, error) {
	return s.bidRepo.BestActiveAmount(ctx, s.pool, auctionID)
}

// MinimumNextBid returns best + min_increment when both exist; nil
// otherwise. No minimum is enforced without an increment configured.
func (s *AuctionService) MinimumNextBid(ctx context.Context, auctionID uuid.UUID) (*decimal.Decimal, error) {
	auction, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	best, err := s.bidRepo.BestActiveAmount(ctx, s.pool, auctionID)
	if err != nil {
		return nil, err
	}
	if best == nil || auction.MinIncrement == nil {
		return nil, nil
	}
	minimum := best.Add(*auction.MinIncrement)
	return &minimum, nil
}

// IsReserveMet returns nil when no reserve price is set; otherwise
// whether the best active bid meets it (false with no bids yet).
func (s *AuctionService) IsReserveMet(ctx context.Context, auctionID uuid.UUID) (*bool, error) {
	auction, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.ReservePrice == nil {
		return nil, nil
	}
	best, err := s.bidRepo.BestActiveAmount(ctx, s.pool, auctionID)
	if err != nil {
		return nil, err
	}
	met := best != nil && best.GreaterThanOrEqual(*auction.ReservePrice)
	return &met, nil
}

// GetAuction retrieves an auction after running the lazy expiry guard,
// so callers never observe a stale OPEN status.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*model.Auction, error) {
	if _, err := s.CloseIfExpired(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.auctionRepo.GetByID(ctx, auctionID)
}

// ListOpenAuctions returns open auctions ordered by soonest deadline.
// Rows past their deadline are lazily closed and dropped from the
// result, so a listing never shows a stale OPEN auction.
func (s *AuctionService) ListOpenAuctions(ctx context.Context, limit int) ([]*model.Auction, error) {
	auctions, err := s.auctionRepo.ListOpen(ctx, limit)
	if err != nil {
		return nil, err
	}

	now := s.now()
	open := auctions[:0]
	for _, auction := range auctions {
		if auction.Deadline.After(now) {
			open = append(open, auction)
			continue
		}
		if _, err := s.CloseIfExpired(ctx, auction.ID); err != nil {
			return nil, err
		}
	}
	return open, nil
}

// Timeline returns the auction's audit trail, oldest first.
func (s *AuctionService) Timeline(ctx context.Context, auctionID uuid.UUID) ([]*model.AuctionEvent, error) {
	return s.eventRepo.ListByAuction(ctx, auctionID)
}
