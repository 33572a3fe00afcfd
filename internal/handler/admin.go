package handler

import (
	"net/http"
)

func (h *Handler) handleSeasonReset(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.SeasonReset(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
