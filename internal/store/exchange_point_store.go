package store

import (
	"context"

	"readloom/internal/models"
)

type ExchangePointStore struct {
	db DB
}

func NewExchangePointStore(db DB) *ExchangePointStore {
	return &ExchangePointStore{db: db}
}

type ExchangePointInput struct {
	ID        string
	Name      string
	Address   string
	City      string
	Country   string
	Latitude  float64
	Longitude float64
}

func (s *ExchangePointStore) Create(ctx context.Context, tx Execer, input ExchangePointInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO exchange_points (id, name, address, city, country, latitude, longitude, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
	`, input.ID, input.Name, input.Address, input.City, input.Country, input.Latitude, input.Longitude)
	return err
}

func (s *ExchangePointStore) Update(ctx context.Context, tx Execer, input ExchangePointInput) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE exchange_points
		SET name = $1, address = $2, city = $3, country = $4, latitude = $5, longitude = $6
		WHERE id = $7
	`, input.Name, input.Address, input.City, input.Country, input.Latitude, input.Longitude, input.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ExchangePointStore) GetByID(ctx context.Context, id string) (models.ExchangePoint, error) {
	var row models.ExchangePoint
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, address, city, country, latitude, longitude, is_active, created_at
		FROM exchange_points
		WHERE id = $1
	`, id)
	if err != nil {
		return models.ExchangePoint{}, err
	}
	return row, nil
}

func (s *ExchangePointStore) ListActive(ctx context.Context) ([]models.ExchangePoint, error) {
	var rows []models.ExchangePoint
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, address, city, country, latitude, longitude, is_active, created_at
		FROM exchange_points
		WHERE is_active = TRUE
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ExchangePointStore) SetActive(ctx context.Context, tx Execer, id string, isActive bool) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE exchange_points SET is_active = $1 WHERE id = $2
	`, isActive, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ExchangePointStore) IsReferenced(ctx context.Context, id string) (bool, error) {
	var referenced bool
	err := s.db.GetContext(ctx, &referenced, `
		SELECT EXISTS(SELECT 1 FROM exchanges WHERE exchange_point_id = $1)
	`, id)
	return referenced, err
}
