package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"readloom/internal/auth"
	"readloom/internal/middleware"
	"readloom/internal/models"
	"readloom/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type postChatMessageRequest struct {
	BookID  string `json:"book_id"`
	Message string `json:"message"`
}

// PostChatMessage persists the message and broadcasts it to the book's room
// only after the transaction commits, so every subscriber payload carries a
// real database id.
func (h *Handler) PostChatMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req postChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	message := strings.TrimSpace(req.Message)
	if req.BookID == "" || message == "" {
		respondError(w, http.StatusBadRequest, "book_id and message are required")
		return
	}

	book, err := h.books.GetByID(r.Context(), req.BookID)
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
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	var saved models.ChatMessage
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		inserted, err := h.chat.Insert(r.Context(), tx, req.BookID, userID, user.DisplayName, message)
		if err != nil {
			return err
		}
		saved = inserted
		return nil
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to post message")
		return
	}

	h.hub.BroadcastMessage(req.BookID, saved)
	respondJSON(w, http.StatusCreated, saved)
}

// ListChatMessages returns a book's messages in insertion order, ascending by
// id, so clients can resume and de-duplicate against live broadcasts.
func (h *Handler) ListChatMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	bookID := query.Get("book_id")
	if bookID == "" {
		respondError(w, http.StatusBadRequest, "book_id is required")
		return
	}
	messages, err := h.chat.ListByBook(r.Context(), bookID, parseInt(query.Get("limit"), 200))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

func (h *Handler) WSChat(w http.ResponseWriter, r *http.Request) {
	bookID := r.URL.Query().Get("book_id")
	if bookID == "" {
		respondError(w, http.StatusBadRequest, "book_id is required")
		return
	}
	websocket.ServeWS(w, r, h.hub, websocket.BookRoom(bookID))
}

// WSPoints streams balance updates for the authenticated user. Browsers cannot
// set headers on websocket requests, so the token rides a query parameter.
func (h *Handler) WSPoints(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseToken(h.cfg.JWTSecret, r.URL.Query().Get("token"))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, websocket.UserRoom(claims.UserID))
}
