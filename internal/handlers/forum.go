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

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxForumContentLength = 5000

type createForumPostRequest struct {
	BookID      string `json:"book_id"`
	Content     string `json:"content"`
	IsAnonymous bool   `json:"is_anonymous"`
}

type createForumReplyRequest struct {
	Content     string `json:"content"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// CreateForumPost stores the post whether or not moderation flags it. A
// flagged post is hidden from listings but kept for admin review; an
// unreachable moderation service lets content through unflagged.
func (h *Handler) CreateForumPost(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req createForumPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" || len(content) > maxForumContentLength {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	flagged := h.moderator.Check(r.Context(), content)
	var author *string
	if !req.IsAnonymous {
		author = &userID
	}
	postID := uuid.NewString()
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.forum.CreatePost(r.Context(), tx, store.ForumPostInput{
			ID:          postID,
			AuthorID:    author,
			BookID:      stringPtrOrNil(req.BookID),
			Content:     content,
			IsAnonymous: req.IsAnonymous,
			IsFlagged:   flagged,
		})
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	post, err := h.forum.GetPost(r.Context(), postID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load post")
		return
	}
	respondJSON(w, http.StatusCreated, publicPost(post))
}

func (h *Handler) CreateForumReply(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	postID := chi.URLParam(r, "id")
	var req createForumReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" || len(content) > maxForumContentLength {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if _, err := h.forum.GetPost(r.Context(), postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "post not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load post")
		return
	}

	flagged := h.moderator.Check(r.Context(), content)
	var author *string
	if !req.IsAnonymous {
		author = &userID
	}
	replyID := uuid.NewString()
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.forum.CreateReply(r.Context(), tx, store.ForumReplyInput{
			ID:          replyID,
			PostID:      postID,
			AuthorID:    author,
			Content:     content,
			IsAnonymous: req.IsAnonymous,
			IsFlagged:   flagged,
		})
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create reply")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": replyID, "post_id": postID})
}

func (h *Handler) ListForumPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	posts, err := h.forum.ListPosts(r.Context(), query.Get("book_id"), parseInt(query.Get("limit"), 50), parseInt(query.Get("offset"), 0))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	out := make([]models.ForumPost, 0, len(posts))
	for _, post := range posts {
		out = append(out, publicPost(post))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) GetForumPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	post, err := h.forum.GetPost(r.Context(), postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "post not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load post")
		return
	}
	if post.IsFlagged {
		respondError(w, http.StatusNotFound, "post not found")
		return
	}
	replies, err := h.forum.ListReplies(r.Context(), postID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load replies")
		return
	}
	out := make([]models.ForumReply, 0, len(replies))
	for _, reply := range replies {
		out = append(out, publicReply(reply))
	}
	respondJSON(w, http.StatusOK, map[string]any{"post": publicPost(post), "replies": out})
}

// Anonymous content is written with a NULL author; stripping on the way out
// covers rows that predate that rule.
func publicPost(post models.ForumPost) models.ForumPost {
	if post.IsAnonymous {
		post.AuthorID = nil
	}
	return post
}

func publicReply(reply models.ForumReply) models.ForumReply {
	if reply.IsAnonymous {
		reply.AuthorID = nil
	}
	return reply
}
