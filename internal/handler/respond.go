package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"transferx/internal/pkg/db"
	"transferx/internal/pkg/lock"
	"transferx/internal/repository"
	"transferx/internal/service"
)

// errorResponse is the JSON body returned for failed operations.
type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps a service error onto an HTTP status and a client
// message. Validation errors carry actionable detail; authorization
// errors stay opaque.
func writeError(w http.ResponseWriter, err error) {
	var tooLow *service.BidTooLowError
	if errors.As(err, &tooLow) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: tooLow.Error(),
			Details: map[string]string{
				"minimum":   tooLow.Required.StringFixed(2),
				"best":      tooLow.Best.StringFixed(2),
				"increment": tooLow.Increment.StringFixed(2),
			},
		})
		return
	}

	var insufficient *service.InsufficientBudgetError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: insufficient.Error(),
			Details: map[string]string{
				"dimension": insufficient.Dimension,
				"remaining": insufficient.Remaining.StringFixed(2),
			},
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidWageOffer),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidDeadline):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrAuctionNotOpen),
		errors.Is(err, service.ErrBidMismatch),
		errors.Is(err, service.ErrBidNotActive),
		errors.Is(err, service.ErrNoActiveBid):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrClubNameTaken):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotAuctionOwner):
		// No auction internals leak to unauthorized actors.
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, repository.ErrAuctionNotFound),
		errors.Is(err, repository.ErrBidNotFound),
		errors.Is(err, repository.ErrClubNotFound),
		errors.Is(err, repository.ErrPlayerNotFound),
		errors.Is(err, repository.ErrDealNotFound),
		errors.Is(err, repository.ErrLedgerNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, lock.ErrLockTimeout), db.IsTransientContention(err):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "conflicting update, try again"})
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// withRetry runs op once more when the first attempt fails on database
// contention. Domain invariants are re-validated on the retry since
// nothing was partially committed.
func withRetry(op func() error) error {
	err := op()
	if err != nil && db.IsTransientContention(err) {
		err = op()
	}
	return err
}
