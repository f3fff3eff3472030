package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"orgchat/internal/authz"
	"orgchat/internal/config"
	"orgchat/internal/models"
	"orgchat/internal/pdf"
	"orgchat/internal/repositories"
)

type CreateChatInput struct {
	Type        models.ChatType `json:"type"`
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	AvatarURL   *string         `json:"avatar_url"`
	MemberIDs   []string        `json:"member_ids"`
}

type UpdateChatInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	AvatarURL   *string `json:"avatar_url"`
}

type AttachmentInput struct {
	FileName     string  `json:"file_name"`
	FileURL      string  `json:"file_url"`
	FileType     string  `json:"file_type"`
	FileSize     int64   `json:"file_size"`
	ThumbnailURL *string `json:"thumbnail_url"`
}

type SendMessageInput struct {
	Type        models.MessageType `json:"type"`
	Content     *string            `json:"content"`
	ReplyToID   *string            `json:"reply_to_id"`
	Attachments []AttachmentInput  `json:"attachments"`
}

type ChatServiceDeps struct {
	Chats       repositories.ChatRepository
	Messages    repositories.MessageRepository
	Users       repositories.UserRepository
	OrgMembers  repositories.MembershipRepository
	Membership  MembershipValidator
	Entitlement EntitlementChecker
	Notifier    NotificationDispatcher
	Audit       AuditLogger
	Transcripts pdf.TranscriptGenerator
	Config      config.ChatConfig
	Logger      *zap.Logger
}

// ChatService holds the chat and message rules; transports call into it.
type ChatService struct {
	chats       repositories.ChatRepository
	messages    repositories.MessageRepository
	users       repositories.UserRepository
	orgMembers  repositories.MembershipRepository
	membership  MembershipValidator
	entitlement EntitlementChecker
	notifier    NotificationDispatcher
	audit       AuditLogger
	transcripts pdf.TranscriptGenerator
	cfg         config.ChatConfig
	log         *zap.Logger
}

func NewChatService(d ChatServiceDeps) *ChatService {
	return &ChatService{
		chats:       d.Chats,
		messages:    d.Messages,
		users:       d.Users,
		orgMembers:  d.OrgMembers,
		membership:  d.Membership,
		entitlement: d.Entitlement,
		notifier:    d.Notifier,
		audit:       d.Audit,
		transcripts: d.Transcripts,
		cfg:         d.Config,
		log:         d.Logger,
	}
}

func (s *ChatService) CreateChat(ctx context.Context, userID, orgID string, in CreateChatInput) (*models.Chat, error) {
	if err := requireChatAccess(ctx, s.entitlement, orgID); err != nil {
		return nil, err
	}
	if _, err := s.membership.VerifyMembership(ctx, userID, orgID); err != nil {
		return nil, err
	}

	others := uniqueIDs(in.MemberIDs, userID)
	switch in.Type {
	case models.ChatTypeDirect:
		if len(others) != 1 {
			return nil, NewValidationError("Direct chat requires exactly one other member")
		}
	case models.ChatTypeGroup:
		if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
			return nil, NewValidationError("Group chat requires a name")
		}
	default:
		return nil, NewValidationError("Invalid chat type %q", in.Type)
	}

	if err := s.requireOrgMembers(ctx, orgID, others); err != nil {
		return nil, err
	}

	if in.Type == models.ChatTypeDirect {
		id, err := s.chats.FindDirectID(ctx, orgID, userID, others[0])
		switch {
		case err == nil:
			return s.chats.GetByID(ctx, id)
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, fmt.Errorf("find direct chat: %w", err)
		}
	}

	chat := &models.Chat{
		OrganizationID: orgID,
		Type:           in.Type,
		CreatedBy:      userID,
		Status:         models.ChatStatusActive,
	}
	creatorRole := models.ChatRoleMember
	if in.Type == models.ChatTypeGroup {
		name := strings.TrimSpace(*in.Name)
		chat.Name = &name
		chat.Description = in.Description
		chat.AvatarURL = in.AvatarURL
		creatorRole = models.ChatRoleOwner
	}
	members := []*models.ChatMember{{UserID: userID, Role: creatorRole}}
	for _, id := range others {
		members = append(members, &models.ChatMember{UserID: id, Role: models.ChatRoleMember})
	}
	if err := s.chats.Create(ctx, chat, members); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	created, err := s.chats.GetByID(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("reload chat: %w", err)
	}

	creator := memberUser(created, userID)
	creatorName := personName(creator)
	for _, id := range others {
		title := creatorName + " started a conversation"
		message := creatorName + " started a conversation with you"
		if created.Type == models.ChatTypeGroup {
			title = "Added to " + groupName(created)
			message = fmt.Sprintf("%s added you to the group %q", creatorName, groupName(created))
		}
		s.notify(ctx, NotificationInput{
			UserID:         id,
			OrganizationID: orgID,
			Type:           models.NotificationChatInitiated,
			Title:          title,
			Message:        message,
			Link:           chatLink(created.ID),
			Metadata: map[string]any{
				"chat_id":         created.ID,
				"chat_name":       created.Name,
				"chat_type":       created.Type,
				"created_by_id":   userID,
				"created_by_name": creatorName,
			},
		})
	}

	s.audit.Log(models.AuditLog{
		OrganizationID: orgID,
		UserID:         userID,
		Action:         AuditChatCreated,
		EntityType:     "chat",
		EntityID:       created.ID,
		NewValues:      map[string]any{"type": created.Type, "name": created.Name, "member_ids": others},
	})
	return created, nil
}

func (s *ChatService) FindAll(ctx context.Context, userID, orgID string, f models.ChatFilter) (*models.ChatPage, error) {
	if err := requireChatAccess(ctx, s.entitlement, orgID); err != nil {
		return nil, err
	}
	if _, err := s.membership.VerifyMembership(ctx, userID, orgID); err != nil {
		return nil, err
	}
	f.Page, f.Limit = s.paging(f.Page, f.Limit, s.cfg.DefaultChatPageSize)

	chats, total, err := s.chats.List(ctx, userID, orgID, f)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []*models.Chat{}
	}
	return &models.ChatPage{Chats: chats, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *ChatService) FindOne(ctx context.Context, userID, orgID, chatID string) (*models.Chat, error) {
	chat, _, err := s.membership.VerifyChatMembership(ctx, userID, orgID, chatID)
	return chat, err
}

func (s *ChatService) UpdateChat(ctx context.Context, userID, orgID, chatID string, in UpdateChatInput) (*models.Chat, error) {
	chat, member, err := s.membership.VerifyChatMembership(ctx, userID, orgID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Type != models.ChatTypeGroup {
		return nil, NewValidationError("Only group chats can be updated")
	}
	if !authz.CanManageGroup(member.Role) {
		return nil, NewAuthorizationError("Only owners and admins can update the chat")
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, NewValidationError("Group chat requires a name")
		}
		in.Name = &name
	}

	if err := s.chats.Update(ctx, chatID, in.Name, in.Description, in.AvatarURL); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	s.audit.Log(models.AuditLog{
		OrganizationID: orgID,
		UserID:         userID,
		Action:         AuditChatUpdated,
		EntityType:     "chat",
		EntityID:       chatID,
		NewValues:      in.Changes(),
	})
	return s.chats.GetByID(ctx, chatID)
}

// Changes lists the fields that were set, keyed by their json names.
func (in UpdateChatInput) Changes() map[string]any {
	out := map[string]any{}
	if in.Name != nil {
		out["name"] = *in.Name
	}
	if in.Description != nil {
		out["description"] = *in.Description
	}
	if in.AvatarURL != nil {
		out["avatar_url"] = *in.AvatarURL
	}
	return out
}

// DeleteChat soft-deletes a group chat; OWNER only.
func (s *ChatService) DeleteChat(ctx context.Context, userID, orgID, chatID string) error {
	chat, member, err := s.membership.VerifyChatMembership(ctx, userID, orgID, chatID)
	if err != nil {
		return err
	}
	if chat.Type != models.ChatTypeGroup {
		return NewValidationError("Only group chats can be deleted")
	}
	if !authz.IsOwner(member.Role) {
		return NewAuthorizationError("Only the owner can delete the chat")
	}
	if !canTransition(chat.Status, models.ChatStatusDeleted, ChatTransitions) {
		return NewValidationError("Chat cannot be deleted from status %s", chat.Status)
	}
	if err := s.chats.UpdateStatus(ctx, chatID, models.ChatStatusDeleted); err != nil {
		return err
	}
	s.audit.Log(models.AuditLog{
		OrganizationID: orgID,
		UserID:         userID,
		Action:         AuditChatDeleted,
		EntityType:     "chat",
		EntityID:       chatID,
	})
	return nil
}

// ArchiveChat toggles ACTIVE and ARCHIVED. Any member may archive a direct chat.
func (s *ChatService) ArchiveChat(ctx context.Context, userID, orgID, chatID string, archive bool) (*models.Chat, error) {
	chat, member, err := s.membership.VerifyChatMembership(ctx, userID, orgID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Type == models.ChatTypeGroup && !authz.CanManageGroup(member.Role) {
		return nil, NewAuthorizationError("Only owners and admins can archive the chat")
	}
	target := models.ChatStatusActive
	if archive {
		target = models.ChatStatusArchived
	}
	if chat.Status == target {
		return chat, nil
	}
	if !canTransition(chat.Status, target, ChatTransitions) {
		return nil, NewValidationError("Chat cannot move from %s to %s", chat.Status, target)
	}
	if err := s.chats.UpdateStatus(ctx, chatID, target); err != nil {
		return nil, err
	}
	chat.Status = target
	s.audit.Log(models.AuditLog{
		OrganizationID: orgID,
		UserID:         userID,
		Action:         AuditChatArchived,
		EntityType:     "chat",
		EntityID:       chatID,
		NewValues:      map[string]any{"archived": archive},
	})
	return chat, nil
}

// AddMembers returns the members that were actually added; ids already ACTIVE are skipped.
func (s *ChatService) AddMembers(ctx context.Context, userID, orgID, chatID string, userIDs []string) ([]*models.ChatMember, error) {
	chat, member, err := s.membership.VerifyChatMembership(ctx, userID, orgID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Type != models.ChatTypeGroup {
		return nil, NewValidationError("Members can only be added to group chats")
	}
	if !authz.CanManageGroup(member.Role) {
		return nil, NewAuthorizationError("Only owners and admins can add members")
	}

	var candidates []string
	for _, id := range uniqueIDs(userIDs, "") {
		if chat.ActiveMember(id) == nil {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return []*models.ChatMember{}, nil
	}
	if err := s.requireOrgMembers(ctx, orgID, candidates); err != nil {
		return nil, err
	}
	if err := s.chats.AddMembers(ctx, chatID, candidates, models.ChatRoleMember); err != nil {
		return nil, fmt.Errorf("add members: %w", err)
	}

	updated, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("reload chat: %w", err)
	}
	adderName := personName(memberUser(updated, userID))
	added := make([]*models.ChatMember, 0, len(candidates))
	for _, id := range candidates {
		if m := updated.ActiveMember(id); m != nil {
			added = append(added, m)
		}
		s.notify(ctx, NotificationInput{
			UserID:         id,
			OrganizationID: orgID,
			Type:           models.NotificationChatGroupAdded,
			Title:          "Added to " + groupName(updated),
			Message:        fmt.Sprintf("%s added you to the group %q", adderName, groupName(updated)),
			Link:           chatLink(chatID),
			Metadata: map[string]any{
				"chat_id":       chatID,
				"chat_name":     updated.Name,
				"added_by_id":   userID,
				"added_by_name": adderName,
			},
		})
	}

	s.audit.Log(models.AuditLog{
		OrganizationID: orgID,
		UserID:         userID,
		Action:         AuditChatMembersAdded,
		EntityType:     "chat",
		EntityID:       chatID,
		NewValues:      map[string]any{"member_ids": candidates},
	})
	return added, nil
}

func (s *ChatService) RemoveMember(ctx context.Context, userID, orgID, chatID, targetID string) error {
	chat, member, err := s.membership.VerifyChatMembership(ctx, userID, orgID, chatID)
	if err != nil {
		return err
	}
	if chat.Type != models.ChatTypeGroup {
		return NewValidationError("Members can only be removed from group chats")
	}
	if !authz.CanManageGroup(member.Role) {
		return NewAuthorizationError("Only owners and admins can remove members")
	}
	target := chat.ActiveMember(targetID)
	if target == nil {
		return NewNotFoundError("member not found")
	}
	if authz.IsOwner(target.Role) {
		return NewValidationError("Cannot remove the chat owner")
	}
	if !canTransition(target.Status, models.MemberStatusRemoved, MemberTransitions) {
		return NewValidationError("Member cannot be removed")
	}
	if err := s.chats.SetMemberStatus(ctx, chatID, targetID, models.MemberStatusRemoved); err != nil {
		return err
	}
	s.audit.Log(models.AuditLog{
		OrganizationID: orgID,
		UserID:         userID,
		Action:         AuditChatMemberRemoved,
		EntityType:     "chat",
		EntityID:       chatID,
		NewValues:      map[string]any{"user_id": targetID},
	})
	return nil
}

func (s *ChatService) LeaveChat(ctx context.Context, userID, orgID, chatID string) error {
	chat, member, err := s.membership.VerifyChatMembership(ctx, userID, orgID, chatID)
	if err != nil {
		return err
	}
	if chat.Type == models.ChatTypeGroup && authz.IsOwner(member.Role) {
		return NewValidationError("Chat owner cannot leave the group. Transfer ownership or delete the chat instead")
	}
	if err := s.chats.SetMemberStatus(ctx, chatID, userID, models.MemberStatusLeft); err != nil {
		return err
	}
	s.audit.Log(models.AuditLog{
		OrganizationID: orgID,
		UserID:         userID,
		Action:         AuditChatLeft,
		EntityType:     "chat",
		EntityID:       chatID,
	})
	return nil
}

func (s *ChatService) SendMessage(ctx context.Context, userID, orgID, chatID string, in SendMessageInput) (*models.Message, error) {
	chat, member, err := s.membership.VerifyChatMembership(ctx, userID, orgID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Status != models.ChatStatusActive {
		return nil, NewValidationError("Chat is archived")
	}

	if in.Type == "" {
		in.Type = models.MessageTypeText
	}
	if !in.Type.Valid() || in.Type == models.MessageTypeSystem {
		return nil, NewValidationError("Invalid message type %q", in.Type)
	}
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		in.Content = nil
	}
	if in.Content == nil && len(in.Attachments) == 0 {
		return nil, NewValidationError("Message must have content or attachments")
	}
	for _, a := range in.Attachments {
		if a.FileURL == "" || a.FileName == "" {
			return nil, NewValidationError("Attachment requires file_name and file_url")
		}
	}
	if in.ReplyToID != nil && *in.ReplyToID != "" {
		parent, err := s.messages.GetByID(ctx, *in.ReplyToID)
		if errors.Is(err, repositories.ErrNotFound) || (err == nil && (parent.ChatID != chatID || parent.DeletedAt != nil)) {
			return nil, NewNotFoundError("reply target not found")
		}
		if err != nil {
			return nil, err
		}
	} else {
		in.ReplyToID = nil
	}

	msg := &models.Message{
		ChatID:    chatID,
		SenderID:  userID,
		Type:      in.Type,
		Content:   in.Content,
		ReplyToID: in.ReplyToID,
		Status:    models.MessageStatusSent,
	}
	for _, a := range in.Attachments {
		msg.Attachments = append(msg.Attachments, models.MessageAttachment{
			FileName:     a.FileName,
			FileURL:      a.FileURL,
			FileType:     a.FileType,
			FileSize:     a.FileSize,
			ThumbnailURL: a.ThumbnailURL,
		})
	}
	if msg.Attachments == nil {
		msg.Attachments = []models.MessageAttachment{}
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	msg.Sender = member.User
	msg.OrganizationID = orgID

	s.notifyRecipients(ctx, chat, msg)
	return msg, nil
}

// notifyRecipients sends a mention or an unread notification to every other
// ACTIVE member. Failures are logged and never fail the send.
func (s *ChatService) notifyRecipients(ctx context.Context, chat *models.Chat, msg *models.Message) {
	senderName := personName(msg.Sender)
	tokens := []string{}
	if msg.Content != nil {
		tokens = extractMentions(*msg.Content)
	}
	text := preview(msg.Content)
	meta := map[string]any{
		"chat_id":     chat.ID,
		"chat_name":   chat.Name,
		"sender_id":   msg.SenderID,
		"sender_name": senderName,
		"message_id":  msg.ID,
	}

	for _, m := range chat.Members {
		if m.UserID == msg.SenderID || m.Status != models.MemberStatusActive {
			continue
		}
		in := NotificationInput{
			UserID:         m.UserID,
			OrganizationID: chat.OrganizationID,
			Link:           chatLink(chat.ID),
			Metadata:       meta,
		}
		if isMentioned(m.User, tokens) {
			in.Type = models.NotificationChatMention
			if chat.Type == models.ChatTypeGroup {
				in.Title = fmt.Sprintf("%s mentioned you in %s", senderName, groupName(chat))
				in.Message = fmt.Sprintf("%s mentioned you in %s: %s", senderName, groupName(chat), text)
			} else {
				in.Title = senderName + " mentioned you"
				in.Message = fmt.Sprintf("%s mentioned you: %s", senderName, text)
			}
		} else {
			body := text
			if body == "" {
				body = "Sent an attachment"
			}
			in.Type = models.NotificationChatUnread
			if chat.Type == models.ChatTypeGroup {
				in.Title = "New message in " + groupName(chat)
				in.Message = senderName + ": " + body
			} else {
				in.Title = "New message from " + senderName
				in.Message = body
			}
		}
		s.notify(ctx, in)
	}
}

// GetMessages returns a page in chronological order and marks the chat read for the caller.
func (s *ChatService) GetMessages(ctx context.Context, userID, orgID, chatID string, q models.MessageQuery) (*models.MessagePage, error) {
	if _, _, err := s.membership.VerifyChatMembership(ctx, userID, orgID, chatID); err != nil {
		return nil, err
	}
	q.Page, q.Limit = s.paging(q.Page, q.Limit, s.cfg.DefaultMsgPageSize)

	msgs, total, err := s.messages.List(ctx, chatID, q)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}

	if err := s.chats.MarkRead(ctx, chatID, userID); err != nil {
		s.log.Warn("[chat] mark read failed",
			zap.String("chat_id", chatID), zap.String("user_id", userID), zap.Error(err))
	}
	return &models.MessagePage{Messages: msgs, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// DeleteMessage soft-deletes; allowed for the sender and for OWNER/ADMIN.
func (s *ChatService) DeleteMessage(ctx context.Context, userID, orgID, chatID, messageID string) (*models.Message, error) {
	msg, member, err := s.loadMessage(ctx, userID, orgID, chatID, messageID)
	if err != nil {
		return nil, err
	}
	if !authz.CanDeleteMessage(member.Role, msg.SenderID == userID) {
		return nil, NewAuthorizationError("You can only delete your own messages")
	}
	if err := s.messages.SoftDelete(ctx, messageID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	now := time.Now()
	msg.DeletedAt = &now
	msg.Status = models.MessageStatusDeleted

	s.audit.Log(models.AuditLog{
		OrganizationID: orgID,
		UserID:         userID,
		Action:         AuditMessageDeleted,
		EntityType:     "message",
		EntityID:       messageID,
		NewValues:      map[string]any{"chat_id": chatID},
	})
	return msg, nil
}

func (s *ChatService) AddReaction(ctx context.Context, userID, orgID, chatID, messageID, emoji string) error {
	emoji, err := normalizeEmoji(emoji)
	if err != nil {
		return err
	}
	if _, _, err := s.loadMessage(ctx, userID, orgID, chatID, messageID); err != nil {
		return err
	}
	return s.messages.AddReaction(ctx, messageID, userID, emoji)
}

func (s *ChatService) RemoveReaction(ctx context.Context, userID, orgID, chatID, messageID, emoji string) error {
	emoji, err := normalizeEmoji(emoji)
	if err != nil {
		return err
	}
	if _, _, err := s.loadMessage(ctx, userID, orgID, chatID, messageID); err != nil {
		return err
	}
	if err := s.messages.RemoveReaction(ctx, messageID, userID, emoji); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NewNotFoundError("reaction not found")
		}
		return err
	}
	return nil
}

func normalizeEmoji(emoji string) (string, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > 32 {
		return "", NewValidationError("Invalid emoji")
	}
	return emoji, nil
}

// ExportChat renders the live transcript to PDF and returns the file path.
func (s *ChatService) ExportChat(ctx context.Context, userID, orgID, chatID string) (string, error) {
	chat, member, err := s.membership.VerifyChatMembership(ctx, userID, orgID, chatID)
	if err != nil {
		return "", err
	}
	msgs, err := s.messages.ListForExport(ctx, chatID)
	if err != nil {
		return "", err
	}

	data := pdf.TranscriptData{
		ChatID:     chat.ID,
		ChatName:   chatTitle(chat, userID),
		ExportedBy: personName(member.User),
		ExportedAt: time.Now(),
	}
	for _, m := range msgs {
		line := pdf.TranscriptLine{Author: personName(m.Sender), SentAt: m.CreatedAt}
		if m.Content != nil {
			line.Text = *m.Content
		}
		for _, a := range m.Attachments {
			line.Attachments = append(line.Attachments, a.FileName)
		}
		data.Lines = append(data.Lines, line)
	}
	return s.transcripts.GenerateTranscript(data)
}

// VerifyOrgMember fails with ErrNotOrgMember unless the user is an ACTIVE
// member of the organization.
func (s *ChatService) VerifyOrgMember(ctx context.Context, userID, orgID string) error {
	_, err := s.membership.VerifyMembership(ctx, userID, orgID)
	return err
}

// ActiveChatIDs lists the ACTIVE chats the user is an ACTIVE member of.
func (s *ChatService) ActiveChatIDs(ctx context.Context, userID, orgID string) ([]string, error) {
	return s.chats.ListActiveChatIDs(ctx, userID, orgID)
}

func (s *ChatService) loadMessage(ctx context.Context, userID, orgID, chatID, messageID string) (*models.Message, *models.ChatMember, error) {
	_, member, err := s.membership.VerifyChatMembership(ctx, userID, orgID, chatID)
	if err != nil {
		return nil, nil, err
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if msg.ChatID != chatID || msg.DeletedAt != nil {
		return nil, nil, ErrMessageNotFound
	}
	return msg, member, nil
}

func (s *ChatService) requireOrgMembers(ctx context.Context, orgID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	active, err := s.orgMembers.FilterActive(ctx, orgID, ids)
	if err != nil {
		return fmt.Errorf("resolve members: %w", err)
	}
	ok := make(map[string]struct{}, len(active))
	for _, id := range active {
		ok[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, found := ok[id]; !found {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return NewValidationError("Users are not active members of this organization: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (s *ChatService) notify(ctx context.Context, in NotificationInput) {
	if _, err := s.notifier.CreateNotification(ctx, in); err != nil {
		s.log.Warn("[chat] notification failed",
			zap.String("user_id", in.UserID),
			zap.String("type", string(in.Type)),
			zap.Error(err))
	}
}

func (s *ChatService) paging(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if s.cfg.MaxPageSize > 0 && limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	return page, limit
}

func uniqueIDs(ids []string, exclude string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == exclude {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func memberUser(c *models.Chat, userID string) *models.User {
	if m := c.Member(userID); m != nil {
		return m.User
	}
	return nil
}

func chatLink(chatID string) *models.NotificationLink {
	return &models.NotificationLink{Route: "/chat", Params: map[string]any{"chatId": chatID}}
}

// chatTitle names a direct chat after the other participant.
func chatTitle(c *models.Chat, viewerID string) string {
	if c.Type == models.ChatTypeGroup {
		return groupName(c)
	}
	for _, m := range c.Members {
		if m.UserID != viewerID {
			return personName(m.User)
		}
	}
	return "Direct chat"
}
