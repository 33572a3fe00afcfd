package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"transferx/internal/model"
)

type clubResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Country        string    `json:"country"`
	City           string    `json:"city"`
	LeagueName     string    `json:"league_name"`
	VerifiedStatus string    `json:"verified_status"`
	CreatedAt      time.Time `json:"created_at"`
}

func toClubResponse(c *model.Club) clubResponse {
	return clubResponse{
		ID:             c.ID.String(),
		Name:           c.Name,
		Country:        c.Country,
		City:           c.City,
		LeagueName:     c.LeagueName,
		VerifiedStatus: c.VerifiedStatus,
		CreatedAt:      c.CreatedAt,
	}
}

type playerResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	Position      string  `json:"position"`
	CurrentClubID *string `json:"current_club_id,omitempty"`
}

func toPlayerResponse(p *model.Player) playerResponse {
	resp := playerResponse{
		ID:       p.ID.String(),
		Name:     p.Name,
		Age:      p.Age,
		Position: p.Position,
	}
	if p.CurrentClubID != nil {
		v := p.CurrentClubID.String()
		resp.CurrentClubID = &v
	}
	return resp
}

type dealResponse struct {
	ID               string     `json:"id"`
	AuctionID        *string    `json:"auction_id,omitempty"`
	BuyerClubID      string     `json:"buyer_club_id"`
	SellerClubID     string     `json:"seller_club_id"`
	PlayerID         string     `json:"player_id"`
	AgreedFee        string     `json:"agreed_fee"`
	AgreedWageWeekly string     `json:"agreed_wage_weekly"`
	Status           string     `json:"status"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func toDealResponse(d *model.Deal) dealResponse {
	resp := dealResponse{
		ID:               d.ID.String(),
		BuyerClubID:      d.BuyerClubID.String(),
		SellerClubID:     d.SellerClubID.String(),
		PlayerID:         d.PlayerID.String(),
		AgreedFee:        d.AgreedFee.StringFixed(2),
		AgreedWageWeekly: d.AgreedWageWeekly.StringFixed(2),
		Status:           d.Status,
		CompletedAt:      d.CompletedAt,
	}
	if d.AuctionID != nil {
		v := d.AuctionID.String()
		resp.AuctionID = &v
	}
	return resp
}

type notificationResponse struct {
	ID              string     `json:"id"`
	Kind            string     `json:"kind"`
	Message         string     `json:"message"`
	Link            string     `json:"link,omitempty"`
	RelatedPlayerID *string    `json:"related_player_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
}

func toNotificationResponse(n *model.Notification) notificationResponse {
	resp := notificationResponse{
		ID:        n.ID.String(),
		Kind:      n.Kind,
		Message:   n.Message,
		Link:      n.Link,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
	if n.RelatedPlayerID != nil {
		v := n.RelatedPlayerID.String()
		resp.RelatedPlayerID = &v
	}
	return resp
}

type createClubRequest struct {
	Name       string `json:"name" validate:"required"`
	Country    string `json:"country"`
	City       string `json:"city"`
	LeagueName string `json:"league_name"`
}

type createPlayerRequest struct {
	Name          string  `json:"name" validate:"required"`
	Age           int     `json:"age" validate:"gt=0"`
	Position      string  `json:"position" validate:"required"`
	CurrentClubID *string `json:"current_club_id,omitempty"`
}

func (h *Handler) handleCreateClub(w http.ResponseWriter, r *http.Request) {
	var req createClubRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	club, err := h.clubService.Register(r.Context(), req.Name, req.Country, req.City, req.LeagueName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toClubResponse(club))
}

func (h *Handler) handleGetClub(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid club id"})
		return
	}

	club, err := h.clubService.GetClub(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toClubResponse(club))
}

func (h *Handler) handleVerifyClub(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid club id"})
		return
	}

	if err := h.clubService.Verify(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var clubID *uuid.UUID
	if req.CurrentClubID != nil && *req.CurrentClubID != "" {
		id, err := uuid.Parse(*req.CurrentClubID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid current_club_id"})
			return
		}
		clubID = &id
	}

	player, err := h.clubService.RegisterPlayer(r.Context(), req.Name, req.Age, req.Position, clubID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPlayerResponse(player))
}

func (h *Handler) handleSquad(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid club id"})
		return
	}

	players, err := h.clubService.Squad(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]playerResponse, 0, len(players))
	for _, p := range players {
		resp = append(resp, toPlayerResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleClubDeals(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid club id"})
		return
	}

	deals, err := h.clubService.Deals(r.Context(), id, 50)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]dealResponse, 0, len(deals))
	for _, d := range deals {
		resp = append(resp, toDealResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleClubNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid club id"})
		return
	}

	notifications, err := h.clubService.Notifications(r.Context(), id, 50)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid notification id"})
		return
	}

	if err := h.clubService.MarkNotificationRead(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
