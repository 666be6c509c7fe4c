package store

import "context"

type WishlistStore struct {
	db DB
}

func NewWishlistStore(db DB) *WishlistStore {
	return &WishlistStore{db: db}
}

func (s *WishlistStore) Add(ctx context.Context, tx Execer, userID, bookID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO wishlist_entries (user_id, book_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, book_id) DO NOTHING
	`, userID, bookID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *WishlistStore) Remove(ctx context.Context, tx Execer, userID, bookID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM wishlist_entries WHERE user_id = $1 AND book_id = $2
	`, userID, bookID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *WishlistStore) CountByBook(ctx context.Context, bookID string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM wishlist_entries WHERE book_id = $1
	`, bookID)
	return count, err
}

func (s *WishlistStore) ListBookIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT book_id FROM wishlist_entries WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
