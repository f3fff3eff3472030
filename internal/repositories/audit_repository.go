package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"orgchat/internal/models"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

type auditRepository struct {
	DB *sql.DB
}

func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{DB: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	var values []byte
	if entry.NewValues != nil {
		values, _ = json.Marshal(entry.NewValues)
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO audit_logs (organization_id, user_id, action, entity_type, entity_id, new_values)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.OrganizationID, entry.UserID, entry.Action, entry.EntityType, entry.EntityID, values)
	return err
}
