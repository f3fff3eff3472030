package models

import "time"

type NotificationType string

const (
	NotificationChatInitiated  NotificationType = "chat.initiated"
	NotificationChatGroupAdded NotificationType = "chat.group_added"
	NotificationChatMention    NotificationType = "chat.mention"
	NotificationChatUnread     NotificationType = "chat.unread"
)

// PreferenceKey maps a type onto the per-class switch in NotificationPreference.
func (t NotificationType) PreferenceKey() string {
	switch t {
	case NotificationChatInitiated, NotificationChatGroupAdded, NotificationChatMention, NotificationChatUnread:
		return "chat_messages"
	}
	return "other"
}

type NotificationLink struct {
	Route  string         `json:"route"`
	Params map[string]any `json:"params,omitempty"`
}

type Notification struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	OrganizationID string           `json:"organization_id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Data           map[string]any   `json:"data"`
	CreatedAt      time.Time        `json:"created_at"`
}

type ChannelPreference struct {
	Email *bool `json:"email,omitempty"`
	InApp *bool `json:"in_app,omitempty"`
}

type NotificationPreference struct {
	UserID         string                       `json:"user_id"`
	OrganizationID string                       `json:"organization_id"`
	EmailEnabled   bool                         `json:"email_enabled"`
	InAppEnabled   bool                         `json:"in_app_enabled"`
	Preferences    map[string]ChannelPreference `json:"preferences"`
}

// Allows reports whether the channel ("email" or "in_app") is enabled for t.
func (p *NotificationPreference) Allows(t NotificationType, channel string) bool {
	if p == nil {
		return true
	}
	if channel == "email" && !p.EmailEnabled {
		return false
	}
	if channel == "in_app" && !p.InAppEnabled {
		return false
	}
	cp, ok := p.Preferences[t.PreferenceKey()]
	if !ok {
		return true
	}
	if channel == "email" && cp.Email != nil && !*cp.Email {
		return false
	}
	if channel == "in_app" && cp.InApp != nil && !*cp.InApp {
		return false
	}
	return true
}

type AuditLog struct {
	OrganizationID string         `json:"organization_id"`
	UserID         string         `json:"user_id"`
	Action         string         `json:"action"`
	EntityType     string         `json:"entity_type"`
	EntityID       string         `json:"entity_id"`
	NewValues      map[string]any `json:"new_values,omitempty"`
}
