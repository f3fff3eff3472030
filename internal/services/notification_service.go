package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"orgchat/internal/models"
	"orgchat/internal/repositories"
)

// Presence reports whether a user has at least one live connection.
type Presence interface {
	IsOnline(userID string) bool
}

type NotificationInput struct {
	UserID         string
	OrganizationID string
	Type           models.NotificationType
	Title          string
	Message        string
	Link           *models.NotificationLink
	Metadata       map[string]any
}

type NotificationDispatcher interface {
	// CreateNotification returns nil, nil when the recipient disabled the class in-app.
	CreateNotification(ctx context.Context, in NotificationInput) (*models.Notification, error)
}

type NotificationService struct {
	repo     repositories.NotificationRepository
	presence Presence
	pusher   *PushDispatcher
	log      *zap.Logger
}

// NewNotificationService wires offline push only when both presence and pusher are set.
func NewNotificationService(repo repositories.NotificationRepository, presence Presence, pusher *PushDispatcher, log *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, presence: presence, pusher: pusher, log: log}
}

func (s *NotificationService) CreateNotification(ctx context.Context, in NotificationInput) (*models.Notification, error) {
	pref, err := s.repo.GetPreference(ctx, in.UserID, in.OrganizationID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.log.Warn("[notify] preference lookup failed, defaulting to enabled",
				zap.String("user_id", in.UserID), zap.Error(err))
		}
		pref = nil
	}
	if !pref.Allows(in.Type, "in_app") {
		return nil, nil
	}

	data := map[string]any{}
	if in.Link != nil {
		data["link"] = in.Link
	}
	if len(in.Metadata) > 0 {
		data["metadata"] = in.Metadata
	}
	n := &models.Notification{
		UserID:         in.UserID,
		OrganizationID: in.OrganizationID,
		Type:           in.Type,
		Title:          in.Title,
		Message:        in.Message,
		Data:           data,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if in.Type == models.NotificationChatMention && s.pusher != nil && s.presence != nil &&
		!s.presence.IsOnline(in.UserID) {
		s.pusher.Enqueue(PushJob{Notification: n, Preference: pref})
	}
	return n, nil
}
