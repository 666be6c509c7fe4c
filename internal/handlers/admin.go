package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"readloom/internal/middleware"
	"readloom/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	users, err := h.users.ListAll(r.Context(), parseInt(query.Get("limit"), 50), parseInt(query.Get("offset"), 0))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	logs, err := h.audit.List(r.Context(), query.Get("action"), parseInt(query.Get("limit"), 50), parseInt(query.Get("offset"), 0))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list audit logs")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

// ReconcilePoints reports any user whose stored balance disagrees with the sum
// of their ledger rows. An empty list means the books balance.
func (h *Handler) ReconcilePoints(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.ledger.Reconcile(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reconcile")
		return
	}
	mismatched := make([]store.BalanceDrift, 0)
	for _, drift := range drifts {
		if drift.Difference != 0 {
			mismatched = append(mismatched, drift)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"checked":    len(drifts),
		"mismatched": mismatched,
	})
}

// PurgeBook permanently removes a listing. Any exchange history at all keeps
// the row; purge is for listings nobody ever transacted on.
func (h *Handler) PurgeBook(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	bookID := chi.URLParam(r, "id")

	if _, err := h.books.GetByID(r.Context(), bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "book not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load book")
		return
	}
	referenced, err := h.exchanges.HasAnyForBook(r.Context(), bookID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check exchanges")
		return
	}
	if referenced {
		respondError(w, http.StatusConflict, "book has exchange history; soft-delete instead")
		return
	}

	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.books.Purge(r.Context(), tx, bookID); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, userID, "purge_book", "book", bookID, "{}")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to purge book")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

func (h *Handler) ListFlaggedPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	posts, err := h.forum.ListFlagged(r.Context(), parseInt(query.Get("limit"), 50), parseInt(query.Get("offset"), 0))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list flagged posts")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

type flagPostRequest struct {
	Flagged bool `json:"flagged"`
}

// FlagForumPost is the admin override for the automated moderation verdict,
// in either direction.
func (h *Handler) FlagForumPost(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	postID := chi.URLParam(r, "id")
	var req flagPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var rows int64
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		updated, err := h.forum.SetPostFlagged(r.Context(), tx, postID, req.Flagged)
		if err != nil {
			return err
		}
		rows = updated
		if rows == 0 {
			return nil
		}
		return h.audit.Log(r.Context(), tx, userID, "flag_post", "forum_post", postID, "{}")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update post")
		return
	}
	if rows == 0 {
		respondError(w, http.StatusNotFound, "post not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": postID, "is_flagged": req.Flagged})
}
