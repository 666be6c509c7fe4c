package store

import (
	"context"
	"time"
)

type PaymentSessionStore struct {
	db DB
}

func NewPaymentSessionStore(db DB) *PaymentSessionStore {
	return &PaymentSessionStore{db: db}
}

type PaymentSession struct {
	SessionID   string    `db:"session_id"`
	UserID      string    `db:"user_id"`
	Points      int64     `db:"points"`
	AmountCents int64     `db:"amount_cents"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

func (s *PaymentSessionStore) Create(ctx context.Context, sessionID, userID string, pointsAmount, amountCents int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_sessions (session_id, user_id, points, amount_cents, status)
		VALUES ($1, $2, $3, $4, 'pending')
	`, sessionID, userID, pointsAmount, amountCents)
	return err
}

func (s *PaymentSessionStore) GetByID(ctx context.Context, sessionID string) (PaymentSession, error) {
	var row PaymentSession
	err := s.db.GetContext(ctx, &row, `
		SELECT session_id, user_id, points, amount_cents, status, created_at
		FROM payment_sessions
		WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return PaymentSession{}, err
	}
	return row, nil
}

func (s *PaymentSessionStore) MarkSettled(ctx context.Context, tx Execer, sessionID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE payment_sessions SET status = 'settled' WHERE session_id = $1
	`, sessionID)
	return err
}
