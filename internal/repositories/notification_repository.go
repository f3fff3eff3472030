package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"orgchat/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetPreference(ctx context.Context, userID, orgID string) (*models.NotificationPreference, error)
}

type notificationRepository struct {
	DB *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{DB: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}
	const q = `
		INSERT INTO notifications (id, user_id, organization_id, type, title, message, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return r.DB.QueryRowContext(ctx, q,
		n.ID, n.UserID, n.OrganizationID, n.Type, n.Title, n.Message, data,
	).Scan(&n.CreatedAt)
}

func (r *notificationRepository) GetPreference(ctx context.Context, userID, orgID string) (*models.NotificationPreference, error) {
	const q = `
		SELECT user_id, organization_id, email_enabled, in_app_enabled, COALESCE(preferences, '{}')
		FROM notification_preferences
		WHERE user_id = $1 AND organization_id = $2
		LIMIT 1
	`
	p := &models.NotificationPreference{}
	var raw []byte
	err := r.DB.QueryRowContext(ctx, q, userID, orgID).
		Scan(&p.UserID, &p.OrganizationID, &p.EmailEnabled, &p.InAppEnabled, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	return p, nil
}
