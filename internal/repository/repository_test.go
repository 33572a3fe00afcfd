// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"transferx/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = runMigrations(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// runMigrations applies the database schema
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
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
		CREATE TABLE IF NOT EXISTS players (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			age INT NOT NULL,
			position VARCHAR(50) NOT NULL,
			current_club_id UUID REFERENCES clubs(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
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
		CREATE TABLE IF NOT EXISTS auction_events (
			id BIGSERIAL PRIMARY KEY,
			auction_id UUID NOT NULL REFERENCES auctions(id) ON DELETE CASCADE,
			event_type VARCHAR(30) NOT NULL,
			actor_club_id UUID REFERENCES clubs(id),
			payload JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
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
	`)
	return err
}

func createTestClub(t *testing.T, pool *pgxpool.Pool, name string) *model.Club {
	club, err := NewClubRepository(pool).Create(context.Background(), name, "England", "London", "Premier League")
	require.NoError(t, err)
	return club
}

func createTestPlayer(t *testing.T, pool *pgxpool.Pool, clubID *uuid.UUID) *model.Player {
	player, err := NewPlayerRepository(pool).Create(context.Background(), "Test Player", 24, "ST", clubID)
	require.NoError(t, err)
	return player
}

func createTestAuction(t *testing.T, pool *pgxpool.Pool, playerID, sellerID uuid.UUID, deadline time.Time) *model.Auction {
	reserve := decimal.New(500000, -2)
	increment := decimal.New(10000, -2)
	auction, err := NewAuctionRepository(pool).Create(context.Background(), playerID, sellerID, deadline, &reserve, &increment)
	require.NoError(t, err)
	return auction
}

// inTx runs fn inside a committed transaction.
func inTx(t *testing.T, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) {
	err := pgx.BeginTxFunc(context.Background(), pool, pgx.TxOptions{}, fn)
	require.NoError(t, err)
}

// ============================================================================
// LedgerRepository Tests
// ============================================================================

func TestLedgerRepository_GetOrCreateForUpdate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewLedgerRepository(pool)
	ctx := context.Background()
	club := createTestClub(t, pool, "Arsenal")

	// First call creates a zero-balance row
	inTx(t, pool, func(tx pgx.Tx) error {
		ledger, err := repo.GetOrCreateForUpdate(ctx, tx, club.ID)
		require.NoError(t, err)
		assert.Equal(t, club.ID, ledger.ClubID)
		assert.True(t, ledger.TransferBudgetTotal.IsZero())
		assert.True(t, ledger.TransferReserved.IsZero())
		assert.True(t, ledger.TransferCommitted.IsZero())
		return nil
	})

	// Second call returns the same row
	inTx(t, pool, func(tx pgx.Tx) error {
		ledger, err := repo.GetOrCreateForUpdate(ctx, tx, club.ID)
		require.NoError(t, err)
		assert.Equal(t, club.ID, ledger.ClubID)
		return nil
	})
}

func TestLedgerRepository_SetBudgetsAndSave(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewLedgerRepository(pool)
	ctx := context.Background()
	club := createTestClub(t, pool, "Chelsea")

	// SetBudgets creates the row with the given ceilings
	ledger, err := repo.SetBudgets(ctx, club.ID, decimal.New(10000000, -2), decimal.New(500000, -2))
	require.NoError(t, err)
	assert.Equal(t, "100000.00", ledger.TransferBudgetTotal.StringFixed(2))
	assert.Equal(t, "5000.00", ledger.WageBudgetWeeklyTotal.StringFixed(2))

	// Save persists reserved/committed changes under a lock
	inTx(t, pool, func(tx pgx.Tx) error {
		l, err := repo.GetOrCreateForUpdate(ctx, tx, club.ID)
		require.NoError(t, err)
		l.ApplyReserve(decimal.New(2500050, -2), decimal.New(100000, -2))
		return repo.Save(ctx, tx, l)
	})

	reloaded, err := repo.GetByClubID(ctx, club.ID)
	require.NoError(t, err)
	assert.Equal(t, "25000.50", reloaded.TransferReserved.StringFixed(2))
	assert.Equal(t, "1000.00", reloaded.WageReservedWeekly.StringFixed(2))
	assert.Equal(t, "74999.50", reloaded.TransferRemaining().StringFixed(2))

	// SetBudgets on an existing row updates the ceilings only
	updated, err := repo.SetBudgets(ctx, club.ID, decimal.New(20000000, -2), decimal.New(800000, -2))
	require.NoError(t, err)
	assert.Equal(t, "200000.00", updated.TransferBudgetTotal.StringFixed(2))
	assert.Equal(t, "25000.50", updated.TransferReserved.StringFixed(2))
}

func TestLedgerRepository_GetByClubID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewLedgerRepository(pool)
	_, err := repo.GetByClubID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrLedgerNotFound)
}

// ============================================================================
// AuctionRepository Tests
// ============================================================================

func TestAuctionRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAuctionRepository(pool)
	ctx := context.Background()

	seller := createTestClub(t, pool, "Liverpool")
	player := createTestPlayer(t, pool, &seller.ID)
	deadline := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	auction := createTestAuction(t, pool, player.ID, seller.ID, deadline)
	assert.Equal(t, model.AuctionOpen, auction.Status)
	assert.Nil(t, auction.AcceptedBidID)
	assert.Nil(t, auction.ClosedAt)

	fetched, err := repo.GetByID(ctx, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.ID, fetched.ID)
	assert.Equal(t, player.ID, fetched.PlayerID)
	assert.True(t, fetched.Deadline.Equal(deadline))
	require.NotNil(t, fetched.ReservePrice)
	assert.Equal(t, "5000.00", fetched.ReservePrice.StringFixed(2))

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAuctionNotFound)
}

func TestAuctionRepository_MarkClosedAndListOpen(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAuctionRepository(pool)
	ctx := context.Background()

	seller := createTestClub(t, pool, "Everton")
	player := createTestPlayer(t, pool, &seller.ID)
	a1 := createTestAuction(t, pool, player.ID, seller.ID, time.Now().Add(time.Hour))
	a2 := createTestAuction(t, pool, player.ID, seller.ID, time.Now().Add(2*time.Hour))

	open, err := repo.ListOpen(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	closedAt := time.Now().UTC()
	inTx(t, pool, func(tx pgx.Tx) error {
		return repo.MarkClosed(ctx, tx, a1.ID, closedAt)
	})

	open, err = repo.ListOpen(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, a2.ID, open[0].ID)

	closed, err := repo.GetByID(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AuctionClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
}

// ============================================================================
// BidRepository Tests
// ============================================================================

func TestBidRepository_CreateAndQueries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewBidRepository(pool)
	ctx := context.Background()

	seller := createTestClub(t, pool, "Spurs")
	buyerA := createTestClub(t, pool, "Newcastle")
	buyerB := createTestClub(t, pool, "Villa")
	player := createTestPlayer(t, pool, &seller.ID)
	auction := createTestAuction(t, pool, player.ID, seller.ID, time.Now().Add(time.Hour))

	var bidA *model.Bid
	inTx(t, pool, func(tx pgx.Tx) error {
		var err error
		bidA, err = repo.Create(ctx, tx, auction.ID, buyerA.ID, decimal.New(600000, -2), decimal.New(20000, -2), "first offer")
		require.NoError(t, err)
		_, err = repo.Create(ctx, tx, auction.ID, buyerB.ID, decimal.New(700000, -2), decimal.New(25000, -2), "")
		return err
	})

	// Reservation snapshot equals the offer at creation
	assert.Equal(t, bidA.Amount.StringFixed(2), bidA.ReservedTransferAmount.StringFixed(2))
	assert.Equal(t, model.BidActive, bidA.Status)

	best, err := repo.BestActiveAmount(ctx, pool, auction.ID)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "7000.00", best.StringFixed(2))

	inTx(t, pool, func(tx pgx.Tx) error {
		existing, err := repo.ActiveByAuctionAndBuyer(ctx, tx, auction.ID, buyerA.ID)
		require.NoError(t, err)
		require.NotNil(t, existing)
		assert.Equal(t, bidA.ID, existing.ID)

		none, err := repo.ActiveByAuctionAndBuyer(ctx, tx, auction.ID, seller.ID)
		require.NoError(t, err)
		assert.Nil(t, none)

		// BestActiveOther excludes the given buyer
		other, err := repo.BestActiveOther(ctx, tx, auction.ID, buyerB.ID)
		require.NoError(t, err)
		require.NotNil(t, other)
		assert.Equal(t, bidA.ID, other.ID)

		active, err := repo.ActiveByAuctionForUpdate(ctx, tx, auction.ID)
		require.NoError(t, err)
		assert.Len(t, active, 2)
		return nil
	})
}

func TestBidRepository_OneActiveBidPerBuyer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewBidRepository(pool)
	ctx := context.Background()

	seller := createTestClub(t, pool, "Brighton")
	buyer := createTestClub(t, pool, "Fulham")
	player := createTestPlayer(t, pool, &seller.ID)
	auction := createTestAuction(t, pool, player.ID, seller.ID, time.Now().Add(time.Hour))

	var first *model.Bid
	inTx(t, pool, func(tx pgx.Tx) error {
		var err error
		first, err = repo.Create(ctx, tx, auction.ID, buyer.ID, decimal.New(600000, -2), decimal.Zero, "")
		return err
	})

	// A second active bid by the same buyer violates the partial unique index
	err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := repo.Create(ctx, tx, auction.ID, buyer.ID, decimal.New(650000, -2), decimal.Zero, "")
		return err
	})
	assert.Error(t, err)

	// Once the first bid leaves ACTIVE, a new bid is allowed
	inTx(t, pool, func(tx pgx.Tx) error {
		return repo.UpdateStatus(ctx, tx, first.ID, model.BidWithdrawn)
	})
	inTx(t, pool, func(tx pgx.Tx) error {
		_, err := repo.Create(ctx, tx, auction.ID, buyer.ID, decimal.New(650000, -2), decimal.Zero, "")
		return err
	})
}

func TestBidRepository_UpdateOffer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewBidRepository(pool)
	ctx := context.Background()

	seller := createTestClub(t, pool, "Wolves")
	buyer := createTestClub(t, pool, "Brentford")
	player := createTestPlayer(t, pool, &seller.ID)
	auction := createTestAuction(t, pool, player.ID, seller.ID, time.Now().Add(time.Hour))

	var bid *model.Bid
	inTx(t, pool, func(tx pgx.Tx) error {
		var err error
		bid, err = repo.Create(ctx, tx, auction.ID, buyer.ID, decimal.New(600000, -2), decimal.New(10000, -2), "")
		return err
	})

	bid.Amount = decimal.New(800000, -2)
	bid.WageOfferWeekly = decimal.New(15000, -2)
	bid.ReservedTransferAmount = bid.Amount
	bid.ReservedWageWeekly = bid.WageOfferWeekly
	inTx(t, pool, func(tx pgx.Tx) error {
		return repo.UpdateOffer(ctx, tx, bid)
	})

	reloaded, err := repo.GetByID(ctx, pool, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, "8000.00", reloaded.Amount.StringFixed(2))
	assert.Equal(t, "8000.00", reloaded.ReservedTransferAmount.StringFixed(2))
	assert.Equal(t, "150.00", reloaded.WageOfferWeekly.StringFixed(2))
}

// ============================================================================
// EventRepository Tests
// ============================================================================

func TestEventRepository_AppendAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEventRepository(pool)
	ctx := context.Background()

	seller := createTestClub(t, pool, "Palace")
	buyer := createTestClub(t, pool, "Forest")
	player := createTestPlayer(t, pool, &seller.ID)
	auction := createTestAuction(t, pool, player.ID, seller.ID, time.Now().Add(time.Hour))

	inTx(t, pool, func(tx pgx.Tx) error {
		_, err := repo.Append(ctx, tx, auction.ID, model.EventBidPlaced, &buyer.ID, map[string]any{
			"type":   "new",
			"amount": "6000.00",
		})
		require.NoError(t, err)
		_, err = repo.Append(ctx, tx, auction.ID, model.EventAuctionClosed, nil, map[string]any{
			"released": true,
			"count":    1,
		})
		return err
	})

	events, err := repo.ListByAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Oldest first, payload round-trips through JSONB
	assert.Equal(t, model.EventBidPlaced, events[0].EventType)
	require.NotNil(t, events[0].ActorClubID)
	assert.Equal(t, buyer.ID, *events[0].ActorClubID)
	assert.Equal(t, "6000.00", events[0].Payload["amount"])

	assert.Equal(t, model.EventAuctionClosed, events[1].EventType)
	assert.Nil(t, events[1].ActorClubID)
	assert.Equal(t, true, events[1].Payload["released"])

	count, err := repo.CountByType(ctx, auction.ID, model.EventBidPlaced)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// ============================================================================
// DealRepository and NotificationRepository Tests
// ============================================================================

func TestDealRepository_CreateAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDealRepository(pool)
	ctx := context.Background()

	seller := createTestClub(t, pool, "Leeds")
	buyer := createTestClub(t, pool, "Burnley")
	player := createTestPlayer(t, pool, &seller.ID)

	completedAt := time.Now().UTC()
	deal, err := repo.Create(ctx, &model.Deal{
		BuyerClubID:      buyer.ID,
		SellerClubID:     seller.ID,
		PlayerID:         player.ID,
		AgreedFee:        decimal.New(1200000, -2),
		AgreedWageWeekly: decimal.New(30000, -2),
		Status:           model.DealCompleted,
		CompletedAt:      &completedAt,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, deal.ID)
	assert.Equal(t, model.DealCompleted, deal.Status)

	forBuyer, err := repo.ListByClub(ctx, buyer.ID, 10)
	require.NoError(t, err)
	require.Len(t, forBuyer, 1)
	assert.Equal(t, "12000.00", forBuyer[0].AgreedFee.StringFixed(2))

	forSeller, err := repo.ListByClub(ctx, seller.ID, 10)
	require.NoError(t, err)
	assert.Len(t, forSeller, 1)
}

func TestNotificationRepository_CreateAndMarkRead(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewNotificationRepository(pool)
	ctx := context.Background()

	club := createTestClub(t, pool, "Sunderland")
	player := createTestPlayer(t, pool, &club.ID)

	n, err := repo.Create(ctx, club.ID, model.NotifyOutbid, "You have been outbid.", "/auctions/x/", &player.ID)
	require.NoError(t, err)
	assert.Nil(t, n.ReadAt)

	list, err := repo.ListByRecipient(ctx, club.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	err = repo.MarkRead(ctx, n.ID)
	require.NoError(t, err)

	list, err = repo.ListByRecipient(ctx, club.ID, 10)
	require.NoError(t, err)
	require.NotNil(t, list[0].ReadAt)
}
