package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"orgchat/internal/repositories"
)

type EntitlementChecker interface {
	HasChatAccess(ctx context.Context, orgID string) bool
}

// EntitlementService grants chat when the organization's package bundles it
// or an active chat feature was purchased. Lookups are never cached.
type EntitlementService struct {
	repo        repositories.EntitlementRepository
	tiers       map[string]struct{}
	featureSlug string
	log         *zap.Logger
}

func NewEntitlementService(repo repositories.EntitlementRepository, tiers []string, featureSlug string, log *zap.Logger) *EntitlementService {
	set := make(map[string]struct{}, len(tiers))
	for _, t := range tiers {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &EntitlementService{repo: repo, tiers: set, featureSlug: featureSlug, log: log}
}

// HasChatAccess fails closed: any lookup error means no access.
func (s *EntitlementService) HasChatAccess(ctx context.Context, orgID string) bool {
	if orgID == "" {
		return false
	}
	slug, err := s.repo.GetPackageSlug(ctx, orgID)
	if err != nil {
		s.log.Warn("[entitlement] package lookup failed", zap.String("organization_id", orgID), zap.Error(err))
		return false
	}
	if _, ok := s.tiers[strings.ToLower(slug)]; ok {
		return true
	}

	ok, err := s.repo.HasActiveFeature(ctx, orgID, s.featureSlug)
	if err != nil {
		s.log.Warn("[entitlement] feature lookup failed", zap.String("organization_id", orgID), zap.Error(err))
		return false
	}
	return ok
}

func requireChatAccess(ctx context.Context, c EntitlementChecker, orgID string) error {
	if !c.HasChatAccess(ctx, orgID) {
		return ErrNoChatAccess
	}
	return nil
}
