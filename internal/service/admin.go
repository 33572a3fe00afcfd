package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"transferx/internal/pkg/db"
	"transferx/internal/repository"
)

// AdminService holds administrative operations that sit outside the
// auction state machine.
type AdminService struct {
	pool        *pgxpool.Pool
	ledgerRepo  *repository.LedgerRepository
	auctionRepo *repository.AuctionRepository
	bidRepo     *repository.BidRepository
	eventRepo   *repository.EventRepository
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(
	pool *pgxpool.Pool,
	ledgerRepo *repository.LedgerRepository,
	auctionRepo *repository.AuctionRepository,
	bidRepo *repository.BidRepository,
	eventRepo *repository.EventRepository,
) *AdminService {
	return &AdminService{
		pool:        pool,
		ledgerRepo:  ledgerRepo,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		eventRepo:   eventRepo,
	}
}

// SeasonReset zeroes every ledger's reserved and committed balances
// (budget totals are preserved) and deletes all auctions, bids, and
// events, as one transaction. Deals survive as historical records.
func (s *AdminService) SeasonReset(ctx context.Context) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		ledgers, err := s.ledgerRepo.ResetAll(ctx, tx)
		if err != nil {
			return err
		}

		events, err := s.eventRepo.DeleteAll(ctx, tx)
		if err != nil {
			return err
		}
		bids, err := s.bidRepo.DeleteAll(ctx, tx)
		if err != nil {
			return err
		}
		auctions, err := s.auctionRepo.DeleteAll(ctx, tx)
		if err != nil {
			return err
		}

		log.Info().
			Int64("ledgers_reset", ledgers).
			Int64("events_deleted", events).
			Int64("bids_deleted", bids).
			Int64("auctions_deleted", auctions).
			Msg("Season reset completed")

		return nil
	})
}
