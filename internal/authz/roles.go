package authz

import "orgchat/internal/models"

// CanManageGroup covers update, archive, add and remove member.
func CanManageGroup(role models.ChatMemberRole) bool {
	return role == models.ChatRoleOwner || role == models.ChatRoleAdmin
}

func IsOwner(role models.ChatMemberRole) bool {
	return role == models.ChatRoleOwner
}

// CanDeleteMessage: the sender, or a moderator of the chat.
func CanDeleteMessage(role models.ChatMemberRole, isSender bool) bool {
	return isSender || CanManageGroup(role)
}
