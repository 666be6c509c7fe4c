package store

import (
	"context"

	"readloom/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, tx Execer, id, email, passwordHash, displayName string, startingPoints int64) error {
	query := `
		INSERT INTO users (id, email, password_hash, display_name, points)
		VALUES ($1, lower($2), $3, $4, $5)
	`
	_, err := tx.ExecContext(ctx, query, id, email, passwordHash, displayName, startingPoints)
	return err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, password_hash, display_name, points, is_admin, created_at
		FROM users
		WHERE email = lower($1)
	`, email)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, password_hash, display_name, points, is_admin, created_at
		FROM users
		WHERE id = $1
	`, userID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool
	err := s.db.GetContext(ctx, &isAdmin, `SELECT is_admin FROM users WHERE id = $1`, userID)
	return isAdmin, err
}

// AdjustPoints applies a delta to a user's balance. The WHERE clause refuses any
// update that would take the balance below zero; callers interpret zero rows
// affected as an insufficient balance.
func (s *UserStore) AdjustPoints(ctx context.Context, tx Execer, userID string, delta int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET points = points + $1, updated_at = NOW()
		WHERE id = $2 AND points + $1 >= 0
	`, delta, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *UserStore) GetPoints(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.db.GetContext(ctx, &balance, `SELECT points FROM users WHERE id = $1`, userID)
	return balance, err
}

func (s *UserStore) ListAll(ctx context.Context, limit, offset int) ([]models.User, error) {
	var rows []models.User
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, email, '' AS password_hash, display_name, points, is_admin, created_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
