package store

import (
	"context"

	"readloom/internal/models"
)

const (
	StatusRequested = "REQUESTED"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

type ExchangeStore struct {
	db DB
}

func NewExchangeStore(db DB) *ExchangeStore {
	return &ExchangeStore{db: db}
}

type ExchangeInput struct {
	ID              string
	BookID          string
	FromUserID      string
	ToUserID        string
	ExchangePointID *string
	PointsCost      int64
}

func (s *ExchangeStore) Create(ctx context.Context, tx Execer, input ExchangeInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO exchanges (id, book_id, from_user_id, to_user_id, exchange_point_id, status, points_cost, escrowed)
		VALUES ($1, $2, $3, $4, $5, 'REQUESTED', $6, FALSE)
	`, input.ID, input.BookID, input.FromUserID, input.ToUserID, input.ExchangePointID, input.PointsCost)
	return err
}

func (s *ExchangeStore) GetByID(ctx context.Context, exchangeID string) (models.Exchange, error) {
	var row models.Exchange
	err := s.db.GetContext(ctx, &row, `
		SELECT id, book_id, from_user_id, to_user_id, exchange_point_id, status, points_cost, escrowed, created_at, updated_at
		FROM exchanges
		WHERE id = $1
	`, exchangeID)
	if err != nil {
		return models.Exchange{}, err
	}
	return row, nil
}

func (s *ExchangeStore) GetForUpdate(ctx context.Context, tx Getter, exchangeID string) (models.Exchange, error) {
	var row models.Exchange
	err := tx.GetContext(ctx, &row, `
		SELECT id, book_id, from_user_id, to_user_id, exchange_point_id, status, points_cost, escrowed, created_at, updated_at
		FROM exchanges
		WHERE id = $1
		FOR UPDATE
	`, exchangeID)
	if err != nil {
		return models.Exchange{}, err
	}
	return row, nil
}

// Transition flips the status only when the row is still in fromStatus. Zero rows
// affected means a concurrent transition won; callers treat it as invalid.
func (s *ExchangeStore) Transition(ctx context.Context, tx Execer, exchangeID, fromStatus, toStatus string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE exchanges
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, toStatus, exchangeID, fromStatus)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ExchangeStore) SetEscrowed(ctx context.Context, tx Execer, exchangeID string, escrowed bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE exchanges SET escrowed = $1, updated_at = NOW() WHERE id = $2
	`, escrowed, exchangeID)
	return err
}

func (s *ExchangeStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Exchange, error) {
	var rows []models.Exchange
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, book_id, from_user_id, to_user_id, exchange_point_id, status, points_cost, escrowed, created_at, updated_at
		FROM exchanges
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// HasActiveForBook reports whether any non-terminal exchange references the book.
func (s *ExchangeStore) HasActiveForBook(ctx context.Context, bookID string) (bool, error) {
	var active bool
	err := s.db.GetContext(ctx, &active, `
		SELECT EXISTS(
			SELECT 1 FROM exchanges
			WHERE book_id = $1 AND status IN ('REQUESTED', 'APPROVED')
		)
	`, bookID)
	return active, err
}

func (s *ExchangeStore) HasAnyForBook(ctx context.Context, bookID string) (bool, error) {
	var any bool
	err := s.db.GetContext(ctx, &any, `
		SELECT EXISTS(SELECT 1 FROM exchanges WHERE book_id = $1)
	`, bookID)
	return any, err
}
