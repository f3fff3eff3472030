package repositories

import (
	"context"
	"database/sql"
	"errors"
)

type EntitlementRepository interface {
	// GetPackageSlug returns the slug of the organization's package, "" if none.
	GetPackageSlug(ctx context.Context, orgID string) (string, error)
	HasActiveFeature(ctx context.Context, orgID, featureSlug string) (bool, error)
}

type entitlementRepository struct {
	DB *sql.DB
}

func NewEntitlementRepository(db *sql.DB) EntitlementRepository {
	return &entitlementRepository{DB: db}
}

func (r *entitlementRepository) GetPackageSlug(ctx context.Context, orgID string) (string, error) {
	const q = `
		SELECT COALESCE(p.slug, '')
		FROM organizations o
		LEFT JOIN packages p ON p.id = o.package_id
		WHERE o.id = $1
	`
	var slug string
	err := r.DB.QueryRowContext(ctx, q, orgID).Scan(&slug)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return slug, err
}

func (r *entitlementRepository) HasActiveFeature(ctx context.Context, orgID, featureSlug string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM organization_package_features opf
			JOIN package_features pf ON pf.id = opf.feature_id
			WHERE opf.organization_id = $1
			  AND pf.slug = $2
			  AND opf.status = 'active'
			  AND opf.cancelled_at IS NULL
		)
	`
	var ok bool
	if err := r.DB.QueryRowContext(ctx, q, orgID, featureSlug).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
