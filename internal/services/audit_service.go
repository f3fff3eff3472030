package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"orgchat/internal/models"
	"orgchat/internal/repositories"
)

const (
	AuditChatCreated       = "chat.created"
	AuditChatUpdated       = "chat.updated"
	AuditChatDeleted       = "chat.deleted"
	AuditChatArchived      = "chat.archived"
	AuditChatMembersAdded  = "chat.members.added"
	AuditChatMemberRemoved = "chat.member.removed"
	AuditChatLeft          = "chat.left"
	AuditMessageDeleted    = "message.deleted"
)

type AuditLogger interface {
	Log(entry models.AuditLog)
}

// AuditService writes audit records in the background; failures are only logged.
type AuditService struct {
	repo    repositories.AuditRepository
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAuditService(repo repositories.AuditRepository, log *zap.Logger) *AuditService {
	return &AuditService{repo: repo, log: log, timeout: 5 * time.Second}
}

func (s *AuditService) Log(entry models.AuditLog) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.repo.Create(ctx, &entry); err != nil {
			s.log.Warn("[audit] write failed",
				zap.String("action", entry.Action),
				zap.String("entity_id", entry.EntityID),
				zap.Error(err))
		}
	}()
}

// Close waits for in-flight writes.
func (s *AuditService) Close() {
	s.wg.Wait()
}
