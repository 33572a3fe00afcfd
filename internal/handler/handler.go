// Package handler exposes the auction and ledger operations over a
// thin JSON API for the surrounding collaborators.
package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"transferx/internal/service"
)

// Handler holds the service dependencies for all HTTP endpoints.
type Handler struct {
	auctionService *service.AuctionService
	financeService *service.FinanceService
	clubService    *service.ClubService
	adminService   *service.AdminService
	validate       *validator.Validate
}

// New creates a new Handler instance.
func New(
	auctionService *service.AuctionService,
	financeService *service.FinanceService,
	clubService *service.ClubService,
	adminService *service.AdminService,
) *Handler {
	return &Handler{
		auctionService: auctionService,
		financeService: financeService,
		clubService:    clubService,
		adminService:   adminService,
		validate:       validator.New(),
	}
}

// Routes returns the HTTP routing table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auctions", h.handleCreateAuction)
	mux.HandleFunc("GET /auctions", h.handleListAuctions)
	mux.HandleFunc("GET /auctions/{id}", h.handleGetAuction)
	mux.HandleFunc("GET /auctions/{id}/events", h.handleTimeline)
	mux.HandleFunc("POST /auctions/{id}/bids", h.handlePlaceBid)
	mux.HandleFunc("POST /auctions/{id}/accept", h.handleAcceptBid)
	mux.HandleFunc("POST /auctions/{id}/withdraw", h.handleWithdrawBid)
	mux.HandleFunc("POST /auctions/{id}/close", h.handleCloseIfExpired)

	mux.HandleFunc("POST /clubs", h.handleCreateClub)
	mux.HandleFunc("GET /clubs/{id}", h.handleGetClub)
	mux.HandleFunc("POST /clubs/{id}/verify", h.handleVerifyClub)
	mux.HandleFunc("GET /clubs/{id}/squad", h.handleSquad)
	mux.HandleFunc("GET /clubs/{id}/deals", h.handleClubDeals)
	mux.HandleFunc("GET /clubs/{id}/notifications", h.handleClubNotifications)
	mux.HandleFunc("POST /notifications/{id}/read", h.handleMarkNotificationRead)

	mux.HandleFunc("POST /players", h.handleCreatePlayer)

	mux.HandleFunc("GET /clubs/{id}/ledger", h.handleGetLedger)
	mux.HandleFunc("PUT /clubs/{id}/budgets", h.handleSetBudgets)

	mux.HandleFunc("POST /admin/season-reset", h.handleSeasonReset)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}
