package store

import (
	"context"

	"readloom/internal/models"

	"github.com/google/uuid"
)

// AuditStore records who did what to which entity. Writes always ride the
// caller's transaction so an audit row never outlives a rolled-back action.
type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Log(ctx context.Context, tx Execer, actorID, action, entityType, entityID, data string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_user_id, action, entity_type, entity_id, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), actorID, action, entityType, entityID, data)
	return err
}

// List returns recent audit rows, newest first. An empty action matches all.
func (s *AuditStore) List(ctx context.Context, action string, limit, offset int) ([]models.AuditLog, error) {
	logs := []models.AuditLog{}
	err := s.db.SelectContext(ctx, &logs, `
		SELECT id, actor_user_id, action, entity_type, entity_id, data, created_at
		FROM audit_logs
		WHERE ($1 = '' OR action = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, action, limit, offset)
	if err != nil {
		return nil, err
	}
	return logs, nil
}
