package store

import (
	"context"

	"readloom/internal/models"
)

type ChatStore struct {
	db DB
}

func NewChatStore(db DB) *ChatStore {
	return &ChatStore{db: db}
}

// Insert appends a message and returns its database-assigned id. The bigserial
// id is the ordering guarantee consumers de-duplicate and sort on.
func (s *ChatStore) Insert(ctx context.Context, tx Tx, bookID, userID, displayName, message string) (models.ChatMessage, error) {
	var row models.ChatMessage
	err := tx.GetContext(ctx, &row, `
		INSERT INTO chat_messages (book_id, user_id, display_name, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, book_id, user_id, display_name, message, created_at
	`, bookID, userID, displayName, message)
	if err != nil {
		return models.ChatMessage{}, err
	}
	return row, nil
}

func (s *ChatStore) ListByBook(ctx context.Context, bookID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}
	var rows []models.ChatMessage
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, book_id, user_id, display_name, message, created_at
		FROM chat_messages
		WHERE book_id = $1
		ORDER BY id ASC
		LIMIT $2
	`, bookID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
