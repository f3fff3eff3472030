package models

import (
	"strings"
	"time"
)

type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	EmailVerified bool   `json:"-"`
	Status        string `json:"-"`

	// linked Telegram chat for offline pushes, 0 when not linked
	TelegramChatID int64 `json:"-"`
}

// FullName is "first last" trimmed, possibly empty.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName falls back to the email when no name is set.
func (u *User) DisplayName() string {
	if u == nil {
		return "User"
	}
	if n := u.FullName(); n != "" {
		return n
	}
	return u.Email
}

type OrganizationMemberStatus string

const (
	OrgMemberActive   OrganizationMemberStatus = "active"
	OrgMemberRevoked  OrganizationMemberStatus = "revoked"
	OrgMemberInactive OrganizationMemberStatus = "inactive"
)

type OrganizationMember struct {
	ID             string                   `json:"id"`
	OrganizationID string                   `json:"organization_id"`
	UserID         string                   `json:"user_id"`
	RoleID         int                      `json:"role_id"`
	Status         OrganizationMemberStatus `json:"status"`
	JoinedAt       time.Time                `json:"joined_at"`
}
