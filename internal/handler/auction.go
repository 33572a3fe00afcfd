package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"transferx/internal/model"
)

// auctionResponse is the wire form of an auction, including the
// derived display-only read queries.
type auctionResponse struct {
	ID             string     `json:"id"`
	PlayerID       string     `json:"player_id"`
	SellerClubID   string     `json:"seller_club_id"`
	Deadline       time.Time  `json:"deadline"`
	MinIncrement   *string    `json:"min_increment,omitempty"`
	Status         string     `json:"status"`
	AcceptedBidID  *string    `json:"accepted_bid_id,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	BestBid        *string    `json:"best_bid,omitempty"`
	MinimumNextBid *string    `json:"minimum_next_bid,omitempty"`
	ReserveMet     *bool      `json:"reserve_met,omitempty"`
}

type eventResponse struct {
	ID          int64          `json:"id"`
	EventType   string         `json:"event_type"`
	ActorClubID *string        `json:"actor_club_id,omitempty"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toEventResponse(ev *model.AuctionEvent) eventResponse {
	resp := eventResponse{
		ID:        ev.ID,
		EventType: ev.EventType,
		Payload:   ev.Payload,
		CreatedAt: ev.CreatedAt,
	}
	if ev.ActorClubID != nil {
		v := ev.ActorClubID.String()
		resp.ActorClubID = &v
	}
	return resp
}

type bidResponse struct {
	ID              string `json:"id"`
	AuctionID       string `json:"auction_id"`
	BuyerClubID     string `json:"buyer_club_id"`
	Amount          string `json:"amount"`
	WageOfferWeekly string `json:"wage_offer_weekly"`
	Status          string `json:"status"`
}

func toBidResponse(b *model.Bid) bidResponse {
	return bidResponse{
		ID:              b.ID.String(),
		AuctionID:       b.AuctionID.String(),
		BuyerClubID:     b.BuyerClubID.String(),
		Amount:          b.Amount.StringFixed(2),
		WageOfferWeekly: b.WageOfferWeekly.StringFixed(2),
		Status:          b.Status,
	}
}

type createAuctionRequest struct {
	PlayerID     string  `json:"player_id" validate:"required,uuid"`
	SellerClubID string  `json:"seller_club_id" validate:"required,uuid"`
	Deadline     string  `json:"deadline" validate:"required"`
	ReservePrice *string `json:"reserve_price,omitempty"`
	MinIncrement *string `json:"min_increment,omitempty"`
}

type placeBidRequest struct {
	BuyerClubID     string `json:"buyer_club_id" validate:"required,uuid"`
	Amount          string `json:"amount" validate:"required"`
	WageOfferWeekly string `json:"wage_offer_weekly"`
	Notes           string `json:"notes"`
}

type acceptBidRequest struct {
	BidID       string `json:"bid_id" validate:"required,uuid"`
	ActorClubID string `json:"actor_club_id" validate:"required,uuid"`
}

type withdrawBidRequest struct {
	BuyerClubID string `json:"buyer_club_id" validate:"required,uuid"`
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

func parseOptionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (h *Handler) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid player_id"})
		return
	}
	sellerClubID, err := uuid.Parse(req.SellerClubID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid seller_club_id"})
		return
	}
	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid deadline, expected RFC3339"})
		return
	}
	reservePrice, err := parseOptionalDecimal(req.ReservePrice)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid reserve_price"})
		return
	}
	minIncrement, err := parseOptionalDecimal(req.MinIncrement)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid min_increment"})
		return
	}

	auction, err := h.auctionService.CreateAuction(r.Context(), playerID, sellerClubID, deadline, reservePrice, minIncrement)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toAuctionResponse(r, auction, false))
}

// toAuctionResponse builds the wire form; withDerived adds the
// display-only best-bid queries. The reserve price itself is never
// exposed to bidders.
func (h *Handler) toAuctionResponse(r *http.Request, a *model.Auction, withDerived bool) auctionResponse {
	resp := auctionResponse{
		ID:           a.ID.String(),
		PlayerID:     a.PlayerID.String(),
		SellerClubID: a.SellerClubID.String(),
		Deadline:     a.Deadline,
		Status:       a.Status,
		ClosedAt:     a.ClosedAt,
	}
	if a.MinIncrement != nil {
		v := a.MinIncrement.StringFixed(2)
		resp.MinIncrement = &v
	}
	if a.AcceptedBidID != nil {
		v := a.AcceptedBidID.String()
		resp.AcceptedBidID = &v
	}
	if !withDerived {
		return resp
	}

	if best, err := h.auctionService.BestActiveBidAmount(r.Context(), a.ID); err == nil && best != nil {
		v := best.StringFixed(2)
		resp.BestBid = &v
	}
	if minNext, err := h.auctionService.MinimumNextBid(r.Context(), a.ID); err == nil && minNext != nil {
		v := minNext.StringFixed(2)
		resp.MinimumNextBid = &v
	}
	if met, err := h.auctionService.IsReserveMet(r.Context(), a.ID); err == nil {
		resp.ReserveMet = met
	}

	return resp
}

func (h *Handler) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	auctions, err := h.auctionService.ListOpenAuctions(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]auctionResponse, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, h.toAuctionResponse(r, a, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid auction id"})
		return
	}

	auction, err := h.auctionService.GetAuction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toAuctionResponse(r, auction, true))
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid auction id"})
		return
	}

	events, err := h.auctionService.Timeline(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toEventResponse(ev))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid auction id"})
		return
	}

	var req placeBidRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	buyerClubID, err := uuid.Parse(req.BuyerClubID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid buyer_club_id"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid amount"})
		return
	}
	wage := decimal.Zero
	if req.WageOfferWeekly != "" {
		wage, err = decimal.NewFromString(req.WageOfferWeekly)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid wage_offer_weekly"})
			return
		}
	}

	var bid *model.Bid
	err = withRetry(func() error {
		var err error
		bid, err = h.auctionService.PlaceBid(r.Context(), auctionID, buyerClubID, amount, wage, req.Notes)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBidResponse(bid))
}

func (h *Handler) handleAcceptBid(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid auction id"})
		return
	}

	var req acceptBidRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	bidID, err := uuid.Parse(req.BidID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid bid_id"})
		return
	}
	actorClubID, err := uuid.Parse(req.ActorClubID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid actor_club_id"})
		return
	}

	err = withRetry(func() error {
		return h.auctionService.AcceptBid(r.Context(), auctionID, bidID, actorClubID)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleWithdrawBid(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid auction id"})
		return
	}

	var req withdrawBidRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	buyerClubID, err := uuid.Parse(req.BuyerClubID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid buyer_club_id"})
		return
	}

	if err := h.auctionService.WithdrawBid(r.Context(), auctionID, buyerClubID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleCloseIfExpired(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid auction id"})
		return
	}

	closed, err := h.auctionService.CloseIfExpired(r.Context(), auctionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"closed": closed})
}
