// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"orgchat/internal/models"
	"orgchat/internal/repositories"
)

// Store backs every fake repository; use the accessor methods to get the
// individual interfaces.
type Store struct {
	mu sync.Mutex

	seq        int
	base       time.Time
	users      map[string]*models.User
	orgMembers map[string]map[string]models.OrganizationMemberStatus
	packages   map[string]string
	features   map[string]map[string]bool
	chats      map[string]*models.Chat
	messages   map[string]*models.Message
	reactions  map[string]models.MessageReaction

	Notifications []*models.Notification
	Preferences   map[string]*models.NotificationPreference
	AuditLogs     []models.AuditLog

	// FailEntitlement makes entitlement lookups return an error.
	FailEntitlement bool
}

func NewStore() *Store {
	return &Store{
		base:        time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		users:       map[string]*models.User{},
		orgMembers:  map[string]map[string]models.OrganizationMemberStatus{},
		packages:    map[string]string{},
		features:    map[string]map[string]bool{},
		chats:       map[string]*models.Chat{},
		messages:    map[string]*models.Message{},
		reactions:   map[string]models.MessageReaction{},
		Preferences: map[string]*models.NotificationPreference{},
	}
}

func (s *Store) next() (int, time.Time) {
	s.seq++
	return s.seq, s.base.Add(time.Duration(s.seq) * time.Second)
}

// AddUser registers a verified user as an ACTIVE member of orgID.
func (s *Store) AddUser(orgID string, u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Status == "" {
		u.Status = "active"
	}
	s.users[u.ID] = u
	if orgID == "" {
		return
	}
	if s.orgMembers[orgID] == nil {
		s.orgMembers[orgID] = map[string]models.OrganizationMemberStatus{}
	}
	s.orgMembers[orgID][u.ID] = models.OrgMemberActive
}

func (s *Store) SetOrgMemberStatus(orgID, userID string, st models.OrganizationMemberStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orgMembers[orgID] == nil {
		s.orgMembers[orgID] = map[string]models.OrganizationMemberStatus{}
	}
	s.orgMembers[orgID][userID] = st
}

func (s *Store) SetPackage(orgID, slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages[orgID] = slug
}

func (s *Store) SetFeature(orgID, slug string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.features[orgID] == nil {
		s.features[orgID] = map[string]bool{}
	}
	s.features[orgID][slug] = active
}

// Member returns a copy of the chat member row, or nil.
func (s *Store) Member(chatID, userID string) *models.ChatMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.chats[chatID]
	if c == nil {
		return nil
	}
	for _, m := range c.Members {
		if m.UserID == userID {
			cp := *m
			return &cp
		}
	}
	return nil
}

func (s *Store) ChatStatus(chatID string) models.ChatStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.chats[chatID]; c != nil {
		return c.Status
	}
	return ""
}

func (s *Store) ChatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

// NotificationsFor returns the notifications persisted for userID.
func (s *Store) NotificationsFor(userID string) []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Notification
	for _, n := range s.Notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) Chats() repositories.ChatRepository { return chatRepo{s} }
func (s *Store) Messages() repositories.MessageRepository { return messageRepo{s} }
func (s *Store) Users() repositories.UserRepository { return userRepo{s} }
func (s *Store) OrgMembers() repositories.MembershipRepository { return membershipRepo{s} }
func (s *Store) Entitlements() repositories.EntitlementRepository { return entitlementRepo{s} }
func (s *Store) NotificationRepo() repositories.NotificationRepository { return notificationRepo{s} }
func (s *Store) Audit() repositories.AuditRepository { return auditRepo{s} }

func (s *Store) copyChat(c *models.Chat) *models.Chat {
	cp := *c
	cp.Members = make([]*models.ChatMember, 0, len(c.Members))
	for _, m := range c.Members {
		mc := *m
		mc.User = s.users[m.UserID]
		cp.Members = append(cp.Members, &mc)
	}
	return &cp
}

func (s *Store) copyMessage(m *models.Message) *models.Message {
	cp := *m
	cp.Attachments = append([]models.MessageAttachment{}, m.Attachments...)
	cp.Sender = s.users[m.SenderID]
	if c := s.chats[m.ChatID]; c != nil {
		cp.OrganizationID = c.OrganizationID
	}
	cp.Reactions = nil
	for _, r := range s.reactions {
		if r.MessageID == m.ID {
			cp.Reactions = append(cp.Reactions, r)
		}
	}
	return &cp
}

type chatRepo struct{ s *Store }

func (r chatRepo) Create(_ context.Context, chat *models.Chat, members []*models.ChatMember) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n, now := s.next()
	if chat.ID == "" {
		chat.ID = fmt.Sprintf("chat-%d", n)
	}
	if chat.Status == "" {
		chat.Status = models.ChatStatusActive
	}
	chat.CreatedAt, chat.UpdatedAt = now, now
	stored := *chat
	stored.Members = nil
	for _, m := range members {
		id, at := s.next()
		m.ID = int64(id)
		m.ChatID = chat.ID
		m.Status = models.MemberStatusActive
		m.CreatedAt = at
		mc := *m
		stored.Members = append(stored.Members, &mc)
	}
	s.chats[chat.ID] = &stored
	chat.Members = members
	return nil
}

func (r chatRepo) FindDirectID(_ context.Context, orgID, userA, userB string) (string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chats {
		if c.OrganizationID != orgID || c.Type != models.ChatTypeDirect || c.Status != models.ChatStatusActive {
			continue
		}
		if c.ActiveMember(userA) != nil && c.ActiveMember(userB) != nil {
			return id, nil
		}
	}
	return "", repositories.ErrNotFound
}

func (r chatRepo) GetByID(_ context.Context, id string) (*models.Chat, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return s.copyChat(c), nil
}

func (r chatRepo) ListMembers(ctx context.Context, chatID string) ([]*models.ChatMember, error) {
	c, err := r.GetByID(ctx, chatID)
	if err != nil {
		return nil, nil
	}
	return c.Members, nil
}

func (r chatRepo) List(_ context.Context, userID, orgID string, f models.ChatFilter) ([]*models.Chat, int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	status := models.ChatStatusActive
	if f.Status != nil {
		status = *f.Status
	}
	var out []*models.Chat
	for _, c := range s.chats {
		if c.OrganizationID != orgID || c.ActiveMember(userID) == nil || c.Status != status {
			continue
		}
		if f.Type != nil && c.Type != *f.Type {
			continue
		}
		if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
			if c.Name == nil || !strings.Contains(strings.ToLower(*c.Name), q) {
				continue
			}
		}
		out = append(out, s.copyChat(c))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt != nil && !a.LastMessageAt.Equal(*b.LastMessageAt):
			return a.LastMessageAt.After(*b.LastMessageAt)
		case a.LastMessageAt != nil && b.LastMessageAt == nil:
			return true
		case a.LastMessageAt == nil && b.LastMessageAt != nil:
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	total := len(out)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (r chatRepo) Update(_ context.Context, chatID string, name, description, avatarURL *string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return repositories.ErrNotFound
	}
	if name != nil {
		c.Name = name
	}
	if description != nil {
		c.Description = description
	}
	if avatarURL != nil {
		c.AvatarURL = avatarURL
	}
	return nil
}

func (r chatRepo) UpdateStatus(_ context.Context, chatID string, status models.ChatStatus) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return repositories.ErrNotFound
	}
	c.Status = status
	return nil
}

func (r chatRepo) AddMembers(_ context.Context, chatID string, userIDs []string, role models.ChatMemberRole) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return repositories.ErrNotFound
	}
	for _, id := range userIDs {
		if m := c.Member(id); m != nil {
			m.Status = models.MemberStatusActive
			m.Role = role
			m.UnreadCount = 0
			continue
		}
		n, at := s.next()
		c.Members = append(c.Members, &models.ChatMember{
			ID: int64(n), ChatID: chatID, UserID: id, Role: role,
			Status: models.MemberStatusActive, CreatedAt: at,
		})
	}
	return nil
}

func (r chatRepo) SetMemberStatus(_ context.Context, chatID, userID string, status models.ChatMemberStatus) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return repositories.ErrNotFound
	}
	m := c.Member(userID)
	if m == nil {
		return repositories.ErrNotFound
	}
	m.Status = status
	return nil
}

func (r chatRepo) MarkRead(_ context.Context, chatID, userID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.chats[chatID]; c != nil {
		if m := c.Member(userID); m != nil {
			_, at := s.next()
			m.UnreadCount = 0
			m.LastReadAt = &at
		}
	}
	return nil
}

func (r chatRepo) ListActiveChatIDs(_ context.Context, userID, orgID string) ([]string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, c := range s.chats {
		if c.OrganizationID == orgID && c.Status == models.ChatStatusActive && c.ActiveMember(userID) != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, msg *models.Message) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[msg.ChatID]
	if !ok {
		return repositories.ErrNotFound
	}
	n, now := s.next()
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg-%d", n)
	}
	if msg.Status == "" {
		msg.Status = models.MessageStatusSent
	}
	msg.CreatedAt = now
	for i := range msg.Attachments {
		id, at := s.next()
		msg.Attachments[i].ID = int64(id)
		msg.Attachments[i].MessageID = msg.ID
		msg.Attachments[i].CreatedAt = at
	}
	stored := *msg
	stored.Attachments = append([]models.MessageAttachment{}, msg.Attachments...)
	s.messages[msg.ID] = &stored

	c.LastMessageAt = &now
	id := msg.ID
	c.LastMessageID = &id
	for _, m := range c.Members {
		if m.UserID != msg.SenderID && m.Status == models.MemberStatusActive {
			m.UnreadCount++
		}
	}
	return nil
}

func (r messageRepo) GetByID(_ context.Context, id string) (*models.Message, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return s.copyMessage(m), nil
}

func (r messageRepo) live(chatID string) []*models.Message {
	var out []*models.Message
	for _, m := range r.s.messages {
		if m.ChatID == chatID && m.DeletedAt == nil {
			out = append(out, r.s.copyMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r messageRepo) List(_ context.Context, chatID string, q models.MessageQuery) ([]*models.Message, int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	all := r.live(chatID)
	if q.BeforeMessageID != "" {
		if cursor, ok := s.messages[q.BeforeMessageID]; ok {
			var before []*models.Message
			for _, m := range all {
				if m.CreatedAt.Before(cursor.CreatedAt) {
					before = append(before, m)
				}
			}
			all = before
		}
		q.Page = 1
	}
	// newest first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	total := len(all)
	start := (q.Page - 1) * q.Limit
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r messageRepo) ListForExport(_ context.Context, chatID string) ([]*models.Message, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.live(chatID), nil
}

func (r messageRepo) SoftDelete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok || m.DeletedAt != nil {
		return repositories.ErrNotFound
	}
	_, at := s.next()
	m.DeletedAt = &at
	m.Status = models.MessageStatusDeleted
	return nil
}

func reactionKey(messageID, userID, emoji string) string {
	return messageID + "|" + userID + "|" + emoji
}

func (r messageRepo) AddReaction(_ context.Context, messageID, userID, emoji string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reactionKey(messageID, userID, emoji)
	if _, ok := s.reactions[k]; ok {
		return nil
	}
	n, at := s.next()
	s.reactions[k] = models.MessageReaction{ID: int64(n), MessageID: messageID, UserID: userID, Emoji: emoji, CreatedAt: at}
	return nil
}

func (r messageRepo) RemoveReaction(_ context.Context, messageID, userID, emoji string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reactionKey(messageID, userID, emoji)
	if _, ok := s.reactions[k]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.reactions, k)
	return nil
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, err := r.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

type membershipRepo struct{ s *Store }

func (r membershipRepo) FindActive(_ context.Context, userID, orgID string) (*models.OrganizationMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.orgMembers[orgID][userID] != models.OrgMemberActive {
		return nil, repositories.ErrNotFound
	}
	return &models.OrganizationMember{
		ID:             orgID + ":" + userID,
		OrganizationID: orgID,
		UserID:         userID,
		Status:         models.OrgMemberActive,
	}, nil
}

func (r membershipRepo) FilterActive(_ context.Context, orgID string, userIDs []string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for _, id := range userIDs {
		if r.s.orgMembers[orgID][id] == models.OrgMemberActive {
			out = append(out, id)
		}
	}
	return out, nil
}

type entitlementRepo struct{ s *Store }

func (r entitlementRepo) GetPackageSlug(_ context.Context, orgID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailEntitlement {
		return "", fmt.Errorf("entitlement store unavailable")
	}
	return r.s.packages[orgID], nil
}

func (r entitlementRepo) HasActiveFeature(_ context.Context, orgID, featureSlug string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailEntitlement {
		return false, fmt.Errorf("entitlement store unavailable")
	}
	return r.s.features[orgID][featureSlug], nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seq, at := r.s.next()
	n.ID = fmt.Sprintf("notif-%d", seq)
	n.CreatedAt = at
	r.s.Notifications = append(r.s.Notifications, n)
	return nil
}

func (r notificationRepo) GetPreference(_ context.Context, userID, orgID string) (*models.NotificationPreference, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.Preferences[userID+"|"+orgID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

type auditRepo struct{ s *Store }

func (r auditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.AuditLogs = append(r.s.AuditLogs, *entry)
	return nil
}
