// Package main is the entry point for the transferx market server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"transferx/internal/config"
	"transferx/internal/handler"
	"transferx/internal/pkg/db"
	"transferx/internal/repository"
	"transferx/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	clubRepo := repository.NewClubRepository(dbPool.Pool)
	playerRepo := repository.NewPlayerRepository(dbPool.Pool)
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)
	auctionRepo := repository.NewAuctionRepository(dbPool.Pool)
	bidRepo := repository.NewBidRepository(dbPool.Pool)
	eventRepo := repository.NewEventRepository(dbPool.Pool)
	dealRepo := repository.NewDealRepository(dbPool.Pool)
	notificationRepo := repository.NewNotificationRepository(dbPool.Pool)

	// Initialize services
	notifier := service.NewRepoNotifier(notificationRepo)
	dealService := service.NewDealService(dealRepo, playerRepo, notifier)
	financeService := service.NewFinanceService(dbPool.Pool, ledgerRepo)
	auctionService := service.NewAuctionService(
		dbPool.Pool,
		auctionRepo,
		bidRepo,
		ledgerRepo,
		eventRepo,
		notifier,
		dealService,
		cfg.Auction,
	)
	clubService := service.NewClubService(clubRepo, playerRepo, dealRepo, notificationRepo)
	adminService := service.NewAdminService(dbPool.Pool, ledgerRepo, auctionRepo, bidRepo, eventRepo)

	log.Info().
		Bool("anti_sniping", cfg.Auction.AntiSnipingEnabled).
		Int("sniping_window_minutes", cfg.Auction.SnipingWindowMinutes).
		Int("sniping_extend_minutes", cfg.Auction.SnipingExtendMinutes).
		Msg("Auction policy configured")

	// Initialize HTTP server
	h := handler.New(auctionService, financeService, clubService, adminService)
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h.Routes(),
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Server is starting...")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}
