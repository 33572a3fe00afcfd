package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"transferx/internal/model"
	"transferx/internal/repository"
)

// DealFinalizer converts an accepted bid into a binding transfer deal.
// It is invoked after the acceptance transaction has committed; the
// committed ledger state is already final by the time it runs.
type DealFinalizer interface {
	FinalizeDeal(ctx context.Context, auction *model.Auction, winningBid *model.Bid) (*model.Deal, error)
}

// DealService implements the finalization bridge under the
// direct-commit model: acceptance immediately produces a COMPLETED deal
// and registers the player with the buying club.
type DealService struct {
	dealRepo   *repository.DealRepository
	playerRepo *repository.PlayerRepository
	notifier   Notifier
	now        func() time.Time
}

// NewDealService creates a new DealService instance.
func NewDealService(dealRepo *repository.DealRepository, playerRepo *repository.PlayerRepository, notifier Notifier) *DealService {
	return &DealService{
		dealRepo:   dealRepo,
		playerRepo: playerRepo,
		notifier:   notifier,
		now:        time.Now,
	}
}

// FinalizeDeal records the deal for an accepted bid and moves the
// player to the buying club.
func (s *DealService) FinalizeDeal(ctx context.Context, auction *model.Auction, winningBid *model.Bid) (*model.Deal, error) {
	completedAt := s.now()
	deal, err := s.dealRepo.Create(ctx, &model.Deal{
		AuctionID:        &auction.ID,
		BidID:            &winningBid.ID,
		BuyerClubID:      winningBid.BuyerClubID,
		SellerClubID:     auction.SellerClubID,
		PlayerID:         auction.PlayerID,
		AgreedFee:        winningBid.ReservedTransferAmount,
		AgreedWageWeekly: winningBid.ReservedWageWeekly,
		Status:           model.DealCompleted,
		CompletedAt:      &completedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to finalize deal: %w", err)
	}

	buyerID := winningBid.BuyerClubID
	if err := s.playerRepo.UpdateCurrentClub(ctx, auction.PlayerID, &buyerID); err != nil {
		// The deal stands; the registration move is repairable.
		log.Error().
			Err(err).
			Str("deal_id", deal.ID.String()).
			Str("player_id", auction.PlayerID.String()).
			Msg("Failed to move player to buying club")
	}

	s.notifier.Notify(ctx, winningBid.BuyerClubID, model.NotifyDeal,
		"Your bid was accepted and the transfer is complete.",
		fmt.Sprintf("/deals/%s/", deal.ID), &auction.PlayerID)

	return deal, nil
}
