package handlers

import (
	"net/http"

	"readloom/internal/middleware"
)

func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	balance, err := h.users.GetPoints(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load balance")
		return
	}
	query := r.URL.Query()
	history, err := h.ledger.ListByUser(r.Context(), userID, parseInt(query.Get("limit"), 50), parseInt(query.Get("offset"), 0))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"balance":      balance,
		"transactions": history,
	})
}
