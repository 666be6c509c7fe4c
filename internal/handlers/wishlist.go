package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"readloom/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

// ToggleWishlist adds the book to the caller's wishlist, or removes it when
// already present. The insert is conflict-free, so two concurrent toggles of
// the same pair settle as one add and one remove rather than an error.
func (h *Handler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
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
	if book.IsDeleted {
		respondError(w, http.StatusNotFound, "book not found")
		return
	}

	var wishlisted bool
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		added, err := h.wishlist.Add(r.Context(), tx, userID, bookID)
		if err != nil {
			return err
		}
		if added > 0 {
			wishlisted = true
			return nil
		}
		if _, err := h.wishlist.Remove(r.Context(), tx, userID, bookID); err != nil {
			return err
		}
		wishlisted = false
		return nil
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update wishlist")
		return
	}

	count, err := h.wishlist.CountByBook(r.Context(), bookID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count wishlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"wishlisted": wishlisted, "count": count})
}

func (h *Handler) MyWishlist(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	bookIDs, err := h.wishlist.ListBookIDsByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list wishlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"book_ids": bookIDs})
}

func (h *Handler) WishlistCount(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	count, err := h.wishlist.CountByBook(r.Context(), bookID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count wishlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"count": count})
}
