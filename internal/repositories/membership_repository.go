package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"orgchat/internal/models"
)

// MembershipRepository reads organization membership rows.
type MembershipRepository interface {
	FindActive(ctx context.Context, userID, orgID string) (*models.OrganizationMember, error)
	// FilterActive returns the subset of userIDs that are ACTIVE members of orgID.
	FilterActive(ctx context.Context, orgID string, userIDs []string) ([]string, error)
}

type membershipRepository struct {
	DB *sql.DB
}

func NewMembershipRepository(db *sql.DB) MembershipRepository {
	return &membershipRepository{DB: db}
}

func (r *membershipRepository) FindActive(ctx context.Context, userID, orgID string) (*models.OrganizationMember, error) {
	const q = `
		SELECT id, organization_id, user_id, COALESCE(role_id, 0), status, created_at
		FROM organization_members
		WHERE user_id = $1 AND organization_id = $2 AND status = 'active'
		LIMIT 1
	`
	m := &models.OrganizationMember{}
	err := r.DB.QueryRowContext(ctx, q, userID, orgID).
		Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.RoleID, &m.Status, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *membershipRepository) FilterActive(ctx context.Context, orgID string, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	const q = `
		SELECT DISTINCT user_id
		FROM organization_members
		WHERE organization_id = $1 AND status = 'active' AND user_id = ANY($2)
	`
	rows, err := r.DB.QueryContext(ctx, q, orgID, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
