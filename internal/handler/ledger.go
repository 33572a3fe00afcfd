package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"transferx/internal/model"
)

// ledgerResponse is the wire form of a club ledger, with the derived
// remaining balances included for display.
type ledgerResponse struct {
	ClubID                string    `json:"club_id"`
	TransferBudgetTotal   string    `json:"transfer_budget_total"`
	WageBudgetWeeklyTotal string    `json:"wage_budget_weekly_total"`
	TransferReserved      string    `json:"transfer_reserved"`
	WageReservedWeekly    string    `json:"wage_reserved_weekly"`
	TransferCommitted     string    `json:"transfer_committed"`
	WageCommittedWeekly   string    `json:"wage_committed_weekly"`
	TransferRemaining     string    `json:"transfer_remaining"`
	WageRemainingWeekly   string    `json:"wage_remaining_weekly"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func toLedgerResponse(l *model.ClubLedger) ledgerResponse {
	return ledgerResponse{
		ClubID:                l.ClubID.String(),
		TransferBudgetTotal:   l.TransferBudgetTotal.StringFixed(2),
		WageBudgetWeeklyTotal: l.WageBudgetWeeklyTotal.StringFixed(2),
		TransferReserved:      l.TransferReserved.StringFixed(2),
		WageReservedWeekly:    l.WageReservedWeekly.StringFixed(2),
		TransferCommitted:     l.TransferCommitted.StringFixed(2),
		WageCommittedWeekly:   l.WageCommittedWeekly.StringFixed(2),
		TransferRemaining:     l.TransferRemaining().StringFixed(2),
		WageRemainingWeekly:   l.WageRemainingWeekly().StringFixed(2),
		UpdatedAt:             l.UpdatedAt,
	}
}

type setBudgetsRequest struct {
	TransferBudgetTotal   string `json:"transfer_budget_total" validate:"required"`
	WageBudgetWeeklyTotal string `json:"wage_budget_weekly_total" validate:"required"`
}

func (h *Handler) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid club id"})
		return
	}

	ledger, err := h.financeService.GetOrCreateLedger(r.Context(), clubID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLedgerResponse(ledger))
}

func (h *Handler) handleSetBudgets(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid club id"})
		return
	}

	var req setBudgetsRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	transferTotal, err := decimal.NewFromString(req.TransferBudgetTotal)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transfer_budget_total"})
		return
	}
	wageTotal, err := decimal.NewFromString(req.WageBudgetWeeklyTotal)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid wage_budget_weekly_total"})
		return
	}

	ledger, err := h.financeService.SetBudgets(r.Context(), clubID, transferTotal, wageTotal)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLedgerResponse(ledger))
}
