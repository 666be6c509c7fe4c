package store

import (
	"context"

	"readloom/internal/models"
)

type ForumStore struct {
	db DB
}

func NewForumStore(db DB) *ForumStore {
	return &ForumStore{db: db}
}

type ForumPostInput struct {
	ID          string
	AuthorID    *string
	BookID      *string
	Content     string
	IsAnonymous bool
	IsFlagged   bool
}

type ForumReplyInput struct {
	ID          string
	PostID      string
	AuthorID    *string
	Content     string
	IsAnonymous bool
	IsFlagged   bool
}

func (s *ForumStore) CreatePost(ctx context.Context, tx Execer, input ForumPostInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO forum_posts (id, author_id, book_id, content, is_anonymous, is_flagged)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, input.ID, input.AuthorID, input.BookID, input.Content, input.IsAnonymous, input.IsFlagged)
	return err
}

func (s *ForumStore) CreateReply(ctx context.Context, tx Execer, input ForumReplyInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO forum_replies (id, post_id, author_id, content, is_anonymous, is_flagged)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, input.ID, input.PostID, input.AuthorID, input.Content, input.IsAnonymous, input.IsFlagged)
	return err
}

func (s *ForumStore) GetPost(ctx context.Context, postID string) (models.ForumPost, error) {
	var row models.ForumPost
	err := s.db.GetContext(ctx, &row, `
		SELECT id, author_id, book_id, content, is_anonymous, is_flagged, created_at
		FROM forum_posts
		WHERE id = $1
	`, postID)
	if err != nil {
		return models.ForumPost{}, err
	}
	return row, nil
}

// ListPosts returns unflagged posts, optionally scoped to one book. Flagged rows
// stay in the table but never appear here.
func (s *ForumStore) ListPosts(ctx context.Context, bookID string, limit, offset int) ([]models.ForumPost, error) {
	query := `
		SELECT id, author_id, book_id, content, is_anonymous, is_flagged, created_at
		FROM forum_posts
		WHERE is_flagged = FALSE
	`
	args := []any{}
	param := 1
	if bookID != "" {
		query += " AND book_id = $" + itoa(param)
		args = append(args, bookID)
		param++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(param) + " OFFSET $" + itoa(param+1)
	args = append(args, limit, offset)

	var rows []models.ForumPost
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ForumStore) ListReplies(ctx context.Context, postID string) ([]models.ForumReply, error) {
	var rows []models.ForumReply
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, post_id, author_id, content, is_anonymous, is_flagged, created_at
		FROM forum_replies
		WHERE post_id = $1 AND is_flagged = FALSE
		ORDER BY created_at ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ForumStore) ListFlagged(ctx context.Context, limit, offset int) ([]models.ForumPost, error) {
	var rows []models.ForumPost
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, author_id, book_id, content, is_anonymous, is_flagged, created_at
		FROM forum_posts
		WHERE is_flagged = TRUE
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ForumStore) SetPostFlagged(ctx context.Context, tx Execer, postID string, flagged bool) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE forum_posts SET is_flagged = $1 WHERE id = $2
	`, flagged, postID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
