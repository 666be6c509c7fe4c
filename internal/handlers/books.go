package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"readloom/internal/middleware"
	"readloom/internal/models"
	"readloom/internal/store"
	"readloom/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type createBookRequest struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Condition   string   `json:"condition"`
	Location    string   `json:"location"`
	Images      []string `json:"images"`
	Chapters    []string `json:"chapters"`
	PointsCost  int64    `json:"points_cost"`
}

func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" {
		respondError(w, http.StatusBadRequest, "title and author are required")
		return
	}
	if err := validator.ValidateCondition(req.Condition); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PointsCost <= 0 {
		respondError(w, http.StatusBadRequest, "points_cost must be positive")
		return
	}

	bookID := uuid.NewString()
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.books.Create(r.Context(), tx, store.BookInput{
			ID:             bookID,
			Title:          req.Title,
			Author:         req.Author,
			Description:    req.Description,
			Condition:      req.Condition,
			Location:       req.Location,
			Images:         req.Images,
			Chapters:       req.Chapters,
			PointsCost:     req.PointsCost,
			CurrentOwnerID: userID,
		}); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, userID, "create_book", "book", bookID, "{}")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create book")
		return
	}

	book, err := h.books.GetByID(r.Context(), bookID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load book")
		return
	}
	respondJSON(w, http.StatusCreated, book)
}

func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.BookFilter{
		Search:        query.Get("search"),
		Condition:     query.Get("condition"),
		Location:      query.Get("location"),
		AvailableOnly: query.Get("available") == "true",
		Limit:         parseInt(query.Get("limit"), 50),
		Offset:        parseInt(query.Get("offset"), 0),
	}
	books, err := h.books.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list books")
		return
	}
	respondJSON(w, http.StatusOK, books)
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	book, err := h.books.GetByID(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "book not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load book")
		return
	}
	if book.IsDeleted && !h.canSeeDeleted(r, book) {
		respondError(w, http.StatusNotFound, "book not found")
		return
	}
	respondJSON(w, http.StatusOK, book)
}

// canSeeDeleted lets the owner and admins fetch a soft-deleted listing. The
// route carries optional auth, so an anonymous request has no user id and a
// deleted book stays a 404 for it.
func (h *Handler) canSeeDeleted(r *http.Request, book models.Book) bool {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return false
	}
	if book.CurrentOwnerID == userID {
		return true
	}
	isAdmin, err := h.users.IsAdmin(r.Context(), userID)
	return err == nil && isAdmin
}

type setAvailabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

func (h *Handler) SetBookAvailability(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	bookID := chi.URLParam(r, "id")
	var req setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	book, status, message := h.loadOwnedBook(r, bookID, userID)
	if status != 0 {
		respondError(w, status, message)
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.books.SetAvailability(r.Context(), tx, book.ID, req.IsAvailable)
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update book")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": book.ID, "is_available": req.IsAvailable})
}

// SoftDeleteBook hides a listing without destroying its exchange history. A
// book with an in-flight exchange stays visible until that exchange resolves.
func (h *Handler) SoftDeleteBook(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	bookID := chi.URLParam(r, "id")
	book, status, message := h.loadOwnedBook(r, bookID, userID)
	if status != 0 {
		respondError(w, status, message)
		return
	}
	active, err := h.exchanges.HasActiveForBook(r.Context(), book.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check exchanges")
		return
	}
	if active {
		respondError(w, http.StatusConflict, "book has an active exchange")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.books.SetDeleted(r.Context(), tx, book.ID, true); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, userID, "delete_book", "book", book.ID, "{}")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete book")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) RestoreBook(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	bookID := chi.URLParam(r, "id")
	book, status, message := h.loadOwnedBook(r, bookID, userID)
	if status != 0 {
		respondError(w, status, message)
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.books.SetDeleted(r.Context(), tx, book.ID, false); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, userID, "restore_book", "book", book.ID, "{}")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to restore book")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// loadOwnedBook fetches the book and checks the caller is its owner or an
// admin. A zero status means the check passed.
func (h *Handler) loadOwnedBook(r *http.Request, bookID, userID string) (models.Book, int, string) {
	book, err := h.books.GetByID(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Book{}, http.StatusNotFound, "book not found"
		}
		return models.Book{}, http.StatusInternalServerError, "failed to load book"
	}
	if book.CurrentOwnerID != userID {
		isAdmin, err := h.users.IsAdmin(r.Context(), userID)
		if err != nil {
			return models.Book{}, http.StatusInternalServerError, "failed to load user"
		}
		if !isAdmin {
			return models.Book{}, http.StatusForbidden, "not the book owner"
		}
	}
	return book, 0, ""
}
