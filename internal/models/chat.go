package models

import "time"

type ChatType string

const (
	ChatTypeDirect ChatType = "direct"
	ChatTypeGroup  ChatType = "group"
)

type ChatStatus string

const (
	ChatStatusActive   ChatStatus = "active"
	ChatStatusArchived ChatStatus = "archived"
	ChatStatusDeleted  ChatStatus = "deleted"
)

type ChatMemberRole string

const (
	ChatRoleOwner  ChatMemberRole = "owner"
	ChatRoleAdmin  ChatMemberRole = "admin"
	ChatRoleMember ChatMemberRole = "member"
)

type ChatMemberStatus string

const (
	MemberStatusActive  ChatMemberStatus = "active"
	MemberStatusRemoved ChatMemberStatus = "removed"
	MemberStatusLeft    ChatMemberStatus = "left"
)

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeAudio  MessageType = "audio"
	MessageTypeVideo  MessageType = "video"
	MessageTypeSystem MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeAudio, MessageTypeVideo, MessageTypeSystem:
		return true
	}
	return false
}

// MessageStatus only tracks whether a message is live or soft-deleted.
// Delivery receipts are not modelled.
type MessageStatus string

const (
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusDeleted MessageStatus = "deleted"
)

type Chat struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organization_id"`
	Type           ChatType      `json:"type"`
	Name           *string       `json:"name"`
	Description    *string       `json:"description"`
	AvatarURL      *string       `json:"avatar_url"`
	CreatedBy      string        `json:"created_by"`
	Status         ChatStatus    `json:"status"`
	LastMessageAt  *time.Time    `json:"last_message_at"`
	LastMessageID  *string       `json:"last_message_id"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Members        []*ChatMember `json:"members,omitempty"`
}

// ActiveMember returns the caller's ACTIVE membership row, or nil.
func (c *Chat) ActiveMember(userID string) *ChatMember {
	for _, m := range c.Members {
		if m.UserID == userID && m.Status == MemberStatusActive {
			return m
		}
	}
	return nil
}

func (c *Chat) Member(userID string) *ChatMember {
	for _, m := range c.Members {
		if m.UserID == userID {
			return m
		}
	}
	return nil
}

type ChatMember struct {
	ID          int64            `json:"id"`
	ChatID      string           `json:"chat_id"`
	UserID      string           `json:"user_id"`
	Role        ChatMemberRole   `json:"role"`
	Status      ChatMemberStatus `json:"status"`
	UnreadCount int              `json:"unread_count"`
	LastReadAt  *time.Time       `json:"last_read_at"`
	CreatedAt   time.Time        `json:"created_at"`
	User        *User            `json:"user,omitempty"`
}

type Message struct {
	ID          string              `json:"id"`
	ChatID      string              `json:"chat_id"`
	SenderID    string              `json:"sender_id"`
	Type        MessageType         `json:"type"`
	Content     *string             `json:"content"`
	ReplyToID   *string             `json:"reply_to_id"`
	Status      MessageStatus       `json:"status"`
	IsEdited    bool                `json:"is_edited"`
	EditedAt    *time.Time          `json:"edited_at"`
	CreatedAt   time.Time           `json:"created_at"`
	DeletedAt   *time.Time          `json:"deleted_at,omitempty"`
	Sender      *User               `json:"sender,omitempty"`
	Attachments []MessageAttachment `json:"attachments"`
	Reactions   []MessageReaction   `json:"reactions,omitempty"`

	// organization of the owning chat, filled on single-message lookups
	OrganizationID string `json:"-"`
}

type MessageAttachment struct {
	ID           int64     `json:"id"`
	MessageID    string    `json:"message_id"`
	FileName     string    `json:"file_name"`
	FileURL      string    `json:"file_url"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
}

type MessageReaction struct {
	ID        int64     `json:"id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatFilter defines the available parameters for listing chats.
type ChatFilter struct {
	Type   *ChatType
	Status *ChatStatus
	Search string
	Page   int
	Limit  int
}

type MessageQuery struct {
	Page            int
	Limit           int
	BeforeMessageID string
}

type ChatPage struct {
	Chats []*Chat `json:"chats"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}

type MessagePage struct {
	Messages []*Message `json:"messages"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}
