package store

import (
	"context"
	"strings"

	"readloom/internal/models"

	"github.com/lib/pq"
)

type BookStore struct {
	db DB
}

func NewBookStore(db DB) *BookStore {
	return &BookStore{db: db}
}

type BookInput struct {
	ID             string
	Title          string
	Author         string
	Description    string
	Condition      string
	Location       string
	Images         []string
	Chapters       []string
	PointsCost     int64
	CurrentOwnerID string
}

type BookFilter struct {
	Search        string
	Condition     string
	Location      string
	AvailableOnly bool
	Limit         int
	Offset        int
}

func (s *BookStore) Create(ctx context.Context, tx Execer, input BookInput) error {
	query := `
		INSERT INTO books (id, title, author, description, condition, location, images, chapters, points_cost, current_owner_id, is_available, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, FALSE)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.Title, input.Author, input.Description, input.Condition, input.Location,
		pq.StringArray(input.Images), pq.StringArray(input.Chapters), input.PointsCost, input.CurrentOwnerID,
	)
	return err
}

func (s *BookStore) GetByID(ctx context.Context, bookID string) (models.Book, error) {
	var row models.Book
	err := s.db.GetContext(ctx, &row, `
		SELECT id, title, author, description, condition, location, images, chapters,
		       points_cost, current_owner_id, is_available, is_deleted, created_at, updated_at
		FROM books
		WHERE id = $1
	`, bookID)
	if err != nil {
		return models.Book{}, err
	}
	return row, nil
}

func (s *BookStore) GetForUpdate(ctx context.Context, tx Getter, bookID string) (models.Book, error) {
	var row models.Book
	err := tx.GetContext(ctx, &row, `
		SELECT id, title, author, description, condition, location, images, chapters,
		       points_cost, current_owner_id, is_available, is_deleted, created_at, updated_at
		FROM books
		WHERE id = $1
		FOR UPDATE
	`, bookID)
	if err != nil {
		return models.Book{}, err
	}
	return row, nil
}

func (s *BookStore) List(ctx context.Context, filter BookFilter) ([]models.Book, error) {
	query := `
		SELECT id, title, author, description, condition, location, images, chapters,
		       points_cost, current_owner_id, is_available, is_deleted, created_at, updated_at
		FROM books
		WHERE is_deleted = FALSE
	`
	args := []any{}
	param := 1
	if filter.Search != "" {
		query += " AND (title ILIKE '%' || $" + itoa(param) + " || '%' OR author ILIKE '%' || $" + itoa(param) + " || '%')"
		args = append(args, escapeLike(filter.Search))
		param++
	}
	if filter.Condition != "" {
		query += " AND condition = $" + itoa(param)
		args = append(args, filter.Condition)
		param++
	}
	if filter.Location != "" {
		query += " AND location ILIKE '%' || $" + itoa(param) + " || '%'"
		args = append(args, escapeLike(filter.Location))
		param++
	}
	if filter.AvailableOnly {
		query += " AND is_available = TRUE"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(param) + " OFFSET $" + itoa(param+1)
	args = append(args, limit, filter.Offset)

	var rows []models.Book
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// escapeLike neutralizes LIKE metacharacters so user input matches literally
// inside the '%' || $n || '%' patterns above. Postgres treats backslash as the
// pattern escape character by default.
func escapeLike(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "%", `\%`)
	value = strings.ReplaceAll(value, "_", `\_`)
	return value
}

func (s *BookStore) SetAvailability(ctx context.Context, tx Execer, bookID string, isAvailable bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE books SET is_available = $1, updated_at = NOW() WHERE id = $2
	`, isAvailable, bookID)
	return err
}

func (s *BookStore) SetDeleted(ctx context.Context, tx Execer, bookID string, isDeleted bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE books SET is_deleted = $1, updated_at = NOW() WHERE id = $2
	`, isDeleted, bookID)
	return err
}

func (s *BookStore) Purge(ctx context.Context, tx Execer, bookID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, bookID)
	return err
}

// TransferOwner moves the book to a new owner only while the expected owner still
// holds it. Zero rows affected means the book changed hands concurrently.
func (s *BookStore) TransferOwner(ctx context.Context, tx Execer, bookID, expectedOwnerID, newOwnerID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE books
		SET current_owner_id = $1, is_available = FALSE, updated_at = NOW()
		WHERE id = $2 AND current_owner_id = $3
	`, newOwnerID, bookID, expectedOwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
