package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"transferx/internal/pkg/db"
)

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create clubs table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS clubs (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			country VARCHAR(100) NOT NULL DEFAULT '',
			city VARCHAR(100) NOT NULL DEFAULT '',
			league_name VARCHAR(100) NOT NULL DEFAULT '',
			verified_status VARCHAR(20) NOT NULL DEFAULT 'UNVERIFIED',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: clubs table created")

	// Migration 2: Create players table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			age INT NOT NULL,
			position VARCHAR(50) NOT NULL,
			current_club_id UUID REFERENCES clubs(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_players_club ON players(current_club_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: players table created")

	// Migration 3: Create club_ledgers table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS club_ledgers (
			club_id UUID PRIMARY KEY REFERENCES clubs(id) ON DELETE CASCADE,
			transfer_budget_total NUMERIC(12,2) NOT NULL DEFAULT 0,
			wage_budget_weekly_total NUMERIC(12,2) NOT NULL DEFAULT 0,
			transfer_reserved NUMERIC(12,2) NOT NULL DEFAULT 0,
			wage_reserved_weekly NUMERIC(12,2) NOT NULL DEFAULT 0,
			transfer_committed NUMERIC(12,2) NOT NULL DEFAULT 0,
			wage_committed_weekly NUMERIC(12,2) NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: club_ledgers table created")

	// Migration 4: Create auctions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS auctions (
			id UUID PRIMARY KEY,
			player_id UUID NOT NULL REFERENCES players(id),
			seller_club_id UUID NOT NULL REFERENCES clubs(id),
			deadline TIMESTAMPTZ NOT NULL,
			reserve_price NUMERIC(12,2),
			min_increment NUMERIC(12,2),
			status VARCHAR(20) NOT NULL DEFAULT 'OPEN',
			accepted_bid_id UUID,
			closed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_auctions_status_deadline ON auctions(status, deadline);
		CREATE INDEX IF NOT EXISTS idx_auctions_seller ON auctions(seller_club_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: auctions table created")

	// Migration 5: Create bids table
	// The partial unique index backs the one-active-bid-per-buyer invariant.
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bids (
			id UUID PRIMARY KEY,
			auction_id UUID NOT NULL REFERENCES auctions(id) ON DELETE CASCADE,
			buyer_club_id UUID NOT NULL REFERENCES clubs(id),
			amount NUMERIC(12,2) NOT NULL,
			wage_offer_weekly NUMERIC(12,2) NOT NULL DEFAULT 0,
			reserved_transfer_amount NUMERIC(12,2) NOT NULL,
			reserved_wage_weekly NUMERIC(12,2) NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_one_active_per_buyer
			ON bids(auction_id, buyer_club_id) WHERE status = 'ACTIVE';
		CREATE INDEX IF NOT EXISTS idx_bids_auction_status ON bids(auction_id, status);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: bids table created")

	// Migration 6: Link accepted bids back from auctions
	_, err = pool.Exec(ctx, `
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'fk_auctions_accepted_bid'
			) THEN
				ALTER TABLE auctions
					ADD CONSTRAINT fk_auctions_accepted_bid
					FOREIGN KEY (accepted_bid_id) REFERENCES bids(id) ON DELETE SET NULL;
			END IF;
		END $$;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 6: accepted bid constraint created")

	// Migration 7: Create auction_events table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS auction_events (
			id BIGSERIAL PRIMARY KEY,
			auction_id UUID NOT NULL REFERENCES auctions(id) ON DELETE CASCADE,
			event_type VARCHAR(30) NOT NULL,
			actor_club_id UUID REFERENCES clubs(id),
			payload JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_auction_events_auction_time ON auction_events(auction_id, created_at);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 7: auction_events table created")

	// Migration 8: Create deals table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS deals (
			id UUID PRIMARY KEY,
			auction_id UUID REFERENCES auctions(id) ON DELETE SET NULL,
			bid_id UUID REFERENCES bids(id) ON DELETE SET NULL,
			buyer_club_id UUID NOT NULL REFERENCES clubs(id),
			seller_club_id UUID NOT NULL REFERENCES clubs(id),
			player_id UUID NOT NULL REFERENCES players(id),
			agreed_fee NUMERIC(12,2) NOT NULL,
			agreed_wage_weekly NUMERIC(12,2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'IN_PROGRESS',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_deals_buyer ON deals(buyer_club_id);
		CREATE INDEX IF NOT EXISTS idx_deals_seller ON deals(seller_club_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 8: deals table created")

	// Migration 9: Create notifications table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY,
			recipient_club_id UUID NOT NULL REFERENCES clubs(id) ON DELETE CASCADE,
			kind VARCHAR(30) NOT NULL,
			message TEXT NOT NULL,
			link TEXT NOT NULL DEFAULT '',
			related_player_id UUID REFERENCES players(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			read_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_recipient_time
			ON notifications(recipient_club_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 9: notifications table created")

	log.Info().Msg("All database migrations completed successfully")
	return nil
}
