package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"readloom/internal/middleware"
	"readloom/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type exchangePointRequest struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (req exchangePointRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if req.Latitude < -90 || req.Latitude > 90 {
		return "latitude out of range"
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return "longitude out of range"
	}
	return ""
}

func (h *Handler) ListExchangePoints(w http.ResponseWriter, r *http.Request) {
	points, err := h.exchangePoints.ListActive(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list exchange points")
		return
	}
	respondJSON(w, http.StatusOK, points)
}

func (h *Handler) CreateExchangePoint(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req exchangePointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if message := req.validate(); message != "" {
		respondError(w, http.StatusBadRequest, message)
		return
	}

	pointID := uuid.NewString()
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.exchangePoints.Create(r.Context(), tx, store.ExchangePointInput{
			ID:        pointID,
			Name:      req.Name,
			Address:   req.Address,
			City:      req.City,
			Country:   req.Country,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		}); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, userID, "create_exchange_point", "exchange_point", pointID, "{}")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create exchange point")
		return
	}

	point, err := h.exchangePoints.GetByID(r.Context(), pointID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load exchange point")
		return
	}
	respondJSON(w, http.StatusCreated, point)
}

func (h *Handler) UpdateExchangePoint(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	pointID := chi.URLParam(r, "id")
	var req exchangePointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if message := req.validate(); message != "" {
		respondError(w, http.StatusBadRequest, message)
		return
	}

	var rows int64
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		updated, err := h.exchangePoints.Update(r.Context(), tx, store.ExchangePointInput{
			ID:        pointID,
			Name:      req.Name,
			Address:   req.Address,
			City:      req.City,
			Country:   req.Country,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		})
		if err != nil {
			return err
		}
		rows = updated
		if rows == 0 {
			return nil
		}
		return h.audit.Log(r.Context(), tx, userID, "update_exchange_point", "exchange_point", pointID, "{}")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update exchange point")
		return
	}
	if rows == 0 {
		respondError(w, http.StatusNotFound, "exchange point not found")
		return
	}

	point, err := h.exchangePoints.GetByID(r.Context(), pointID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load exchange point")
		return
	}
	respondJSON(w, http.StatusOK, point)
}

// DeactivateExchangePoint retires a pickup location. Rows stay in place so
// historical exchanges keep their reference; new requests simply cannot pick
// the point anymore.
func (h *Handler) DeactivateExchangePoint(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	pointID := chi.URLParam(r, "id")

	referenced, err := h.exchangePoints.IsReferenced(r.Context(), pointID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check exchange point")
		return
	}

	var rows int64
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		updated, err := h.exchangePoints.SetActive(r.Context(), tx, pointID, false)
		if err != nil {
			return err
		}
		rows = updated
		if rows == 0 {
			return nil
		}
		return h.audit.Log(r.Context(), tx, userID, "deactivate_exchange_point", "exchange_point", pointID, "{}")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to deactivate exchange point")
		return
	}
	if rows == 0 {
		respondError(w, http.StatusNotFound, "exchange point not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "deactivated", "referenced": referenced})
}
