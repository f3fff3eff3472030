package services

import (
	"context"
	"errors"
	"fmt"

	"orgchat/internal/models"
	"orgchat/internal/repositories"
)

type MembershipValidator interface {
	VerifyMembership(ctx context.Context, userID, orgID string) (*models.OrganizationMember, error)
	// VerifyChatMembership loads the chat and the caller's ACTIVE membership in it.
	VerifyChatMembership(ctx context.Context, userID, orgID, chatID string) (*models.Chat, *models.ChatMember, error)
}

type MembershipService struct {
	orgMembers repositories.MembershipRepository
	chats      repositories.ChatRepository
}

func NewMembershipService(orgMembers repositories.MembershipRepository, chats repositories.ChatRepository) *MembershipService {
	return &MembershipService{orgMembers: orgMembers, chats: chats}
}

func (s *MembershipService) VerifyMembership(ctx context.Context, userID, orgID string) (*models.OrganizationMember, error) {
	if userID == "" || orgID == "" {
		return nil, ErrNotOrgMember
	}
	m, err := s.orgMembers.FindActive(ctx, userID, orgID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotOrgMember
	}
	if err != nil {
		return nil, fmt.Errorf("lookup organization membership: %w", err)
	}
	return m, nil
}

func (s *MembershipService) VerifyChatMembership(ctx context.Context, userID, orgID, chatID string) (*models.Chat, *models.ChatMember, error) {
	if _, err := s.VerifyMembership(ctx, userID, orgID); err != nil {
		return nil, nil, err
	}
	chat, err := s.chats.GetByID(ctx, chatID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, ErrChatNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load chat: %w", err)
	}
	// other tenants' and deleted chats look absent
	if chat.OrganizationID != orgID || chat.Status == models.ChatStatusDeleted {
		return nil, nil, ErrChatNotFound
	}
	member := chat.ActiveMember(userID)
	if member == nil {
		return nil, nil, ErrNotChatMember
	}
	return chat, member, nil
}
