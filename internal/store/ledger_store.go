package store

import (
	"context"

	"readloom/internal/models"
)

type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

type PointTransactionInput struct {
	ID          string
	UserID      string
	Amount      int64
	Kind        string
	Description string
	ExchangeID  *string
}

func (s *LedgerStore) InsertTransaction(ctx context.Context, tx Execer, input PointTransactionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO point_transactions (id, user_id, amount, kind, description, exchange_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, input.ID, input.UserID, input.Amount, input.Kind, input.Description, input.ExchangeID)
	return err
}

// RecordCredit claims a payment source reference. The primary key on source_ref
// makes the claim exactly-once: a second call with the same reference affects
// zero rows.
func (s *LedgerStore) RecordCredit(ctx context.Context, tx Execer, sourceRef, userID string, amount int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO point_credits (source_ref, user_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_ref) DO NOTHING
	`, sourceRef, userID, amount)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *LedgerStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.PointTransaction, error) {
	var rows []models.PointTransaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, amount, kind, description, exchange_id, created_at
		FROM point_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type BalanceDrift struct {
	UserID     string `db:"user_id"`
	Stored     int64  `db:"stored"`
	Calculated int64  `db:"calculated"`
	Difference int64  `db:"difference"`
}

// Reconcile compares each stored balance against the sum of its ledger rows.
func (s *LedgerStore) Reconcile(ctx context.Context) ([]BalanceDrift, error) {
	var rows []BalanceDrift
	err := s.db.SelectContext(ctx, &rows, `
		SELECT u.id AS user_id,
		       u.points AS stored,
		       COALESCE(SUM(t.amount), 0) AS calculated,
		       (u.points - COALESCE(SUM(t.amount), 0)) AS difference
		FROM users u
		LEFT JOIN point_transactions t ON t.user_id = u.id
		GROUP BY u.id, u.points
		ORDER BY u.id
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
