package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"readloom/internal/middleware"
	"readloom/internal/services"
	"readloom/internal/store"
	"readloom/internal/video"

	"github.com/go-chi/chi/v5"
)

type requestExchangeRequest struct {
	BookID          string `json:"book_id"`
	ExchangePointID string `json:"exchange_point_id"`
}

func (h *Handler) RequestExchange(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req requestExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BookID == "" {
		respondError(w, http.StatusBadRequest, "book_id is required")
		return
	}

	exchangeID, err := h.exchangeSvc.Request(r.Context(), services.RequestExchangeInput{
		ToUserID:        userID,
		BookID:          req.BookID,
		ExchangePointID: stringPtrOrNil(req.ExchangePointID),
	})
	if err != nil {
		h.respondExchangeError(w, err)
		return
	}

	exchange, err := h.exchanges.GetByID(r.Context(), exchangeID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load exchange")
		return
	}
	respondJSON(w, http.StatusCreated, exchange)
}

func (h *Handler) ListExchanges(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)
	exchanges, err := h.exchanges.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list exchanges")
		return
	}
	respondJSON(w, http.StatusOK, exchanges)
}

func (h *Handler) ApproveExchange(w http.ResponseWriter, r *http.Request) {
	h.transitionExchange(w, r, h.exchangeSvc.Approve)
}

func (h *Handler) RejectExchange(w http.ResponseWriter, r *http.Request) {
	h.transitionExchange(w, r, h.exchangeSvc.Reject)
}

func (h *Handler) CancelExchange(w http.ResponseWriter, r *http.Request) {
	h.transitionExchange(w, r, h.exchangeSvc.Cancel)
}

func (h *Handler) CompleteExchange(w http.ResponseWriter, r *http.Request) {
	h.transitionExchange(w, r, h.exchangeSvc.Complete)
}

func (h *Handler) transitionExchange(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, exchangeID, actorID string) error) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	exchangeID := chi.URLParam(r, "id")
	if err := apply(r.Context(), exchangeID, userID); err != nil {
		h.respondExchangeError(w, err)
		return
	}
	exchange, err := h.exchanges.GetByID(r.Context(), exchangeID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load exchange")
		return
	}
	respondJSON(w, http.StatusOK, exchange)
}

// CreateExchangeRoom opens a video room for an approved or completed exchange
// so both sides can coordinate the handover.
func (h *Handler) CreateExchangeRoom(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	exchangeID := chi.URLParam(r, "id")

	exchange, err := h.exchanges.GetByID(r.Context(), exchangeID)
	if err != nil {
		respondError(w, http.StatusNotFound, "exchange not found")
		return
	}
	if userID != exchange.FromUserID && userID != exchange.ToUserID {
		isAdmin, err := h.users.IsAdmin(r.Context(), userID)
		if err != nil || !isAdmin {
			respondError(w, http.StatusForbidden, "not a party to this exchange")
			return
		}
	}
	if exchange.Status != store.StatusApproved && exchange.Status != store.StatusCompleted {
		respondError(w, http.StatusConflict, "exchange is not approved")
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), exchangeID)
	if err != nil {
		if errors.Is(err, video.ErrUnavailable) {
			respondError(w, http.StatusBadGateway, "video provider unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	respondJSON(w, http.StatusOK, room)
}

func (h *Handler) respondExchangeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrForbidden):
		respondError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, services.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid exchange transition")
	case errors.Is(err, services.ErrOwnershipConflict):
		respondError(w, http.StatusConflict, "book ownership changed")
	case errors.Is(err, services.ErrNotAvailable):
		respondError(w, http.StatusBadRequest, "book not available")
	case errors.Is(err, services.ErrSelfExchange):
		respondError(w, http.StatusBadRequest, "cannot request your own book")
	case errors.Is(err, services.ErrInsufficientBalance):
		respondError(w, http.StatusBadRequest, "insufficient points balance")
	case errors.Is(err, services.ErrExchangePointInactive):
		respondError(w, http.StatusBadRequest, "exchange point inactive")
	default:
		respondError(w, http.StatusInternalServerError, "exchange operation failed")
	}
}
