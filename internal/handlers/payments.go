package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"readloom/internal/logger"
	"readloom/internal/middleware"
	"readloom/internal/services"

	"go.uber.org/zap"
)

type checkoutRequest struct {
	Points int64 `json:"points"`
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := h.paymentSvc.CreateCheckout(r.Context(), userID, req.Points)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "points must be a positive multiple of 10")
		case errors.Is(err, services.ErrPaymentProvider):
			respondError(w, http.StatusBadGateway, "payment provider unavailable")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create checkout")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"session_id":   session.ID,
		"redirect_url": session.RedirectURL,
	})
}

// PaymentSuccess is the browser return path. The session id identifies the
// purchase; the amount and settlement state come from the provider, never from
// the caller. Repeat visits report already_credited without moving points.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("order_id")
	}
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	owner, err := h.paymentSvc.SessionOwner(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondError(w, http.StatusNotFound, "checkout session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if owner != userID {
		respondError(w, http.StatusForbidden, "not your checkout session")
		return
	}

	result, err := h.paymentSvc.Confirm(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateCredit):
			respondJSON(w, http.StatusOK, map[string]string{"status": "already_credited"})
		case errors.Is(err, services.ErrPaymentNotSettled):
			respondError(w, http.StatusConflict, "payment not settled")
		case errors.Is(err, services.ErrNotFound):
			respondError(w, http.StatusNotFound, "checkout session not found")
		case errors.Is(err, services.ErrPaymentProvider):
			respondError(w, http.StatusBadGateway, "payment provider unavailable")
		default:
			respondError(w, http.StatusInternalServerError, "failed to confirm payment")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "credited",
		"points":  result.Points,
		"balance": result.Balance,
	})
}

type paymentNotification struct {
	OrderID string `json:"order_id"`
}

// PaymentNotify is the provider webhook. It re-verifies against the provider
// before crediting and acknowledges duplicates and pending payments with 200
// so the provider stops retrying.
func (h *Handler) PaymentNotify(w http.ResponseWriter, r *http.Request) {
	var note paymentNotification
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil || note.OrderID == "" {
		respondError(w, http.StatusBadRequest, "invalid notification")
		return
	}

	_, err := h.paymentSvc.Confirm(r.Context(), note.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateCredit):
			respondJSON(w, http.StatusOK, map[string]string{"status": "already_credited"})
		case errors.Is(err, services.ErrPaymentNotSettled):
			respondJSON(w, http.StatusOK, map[string]string{"status": "pending"})
		case errors.Is(err, services.ErrNotFound):
			respondError(w, http.StatusNotFound, "unknown order")
		default:
			logger.Log.Error("payment notification failed", zap.String("order_id", note.OrderID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to process notification")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "credited"})
}
