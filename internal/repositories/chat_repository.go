package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"orgchat/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type ChatRepository interface {
	Create(ctx context.Context, chat *models.Chat, members []*models.ChatMember) error
	FindDirectID(ctx context.Context, orgID, userA, userB string) (string, error)
	GetByID(ctx context.Context, id string) (*models.Chat, error)
	ListMembers(ctx context.Context, chatID string) ([]*models.ChatMember, error)
	List(ctx context.Context, userID, orgID string, f models.ChatFilter) ([]*models.Chat, int, error)
	Update(ctx context.Context, chatID string, name, description, avatarURL *string) error
	UpdateStatus(ctx context.Context, chatID string, status models.ChatStatus) error
	AddMembers(ctx context.Context, chatID string, userIDs []string, role models.ChatMemberRole) error
	SetMemberStatus(ctx context.Context, chatID, userID string, status models.ChatMemberStatus) error
	MarkRead(ctx context.Context, chatID, userID string) error
	ListActiveChatIDs(ctx context.Context, userID, orgID string) ([]string, error)
}

type chatRepository struct {
	DB *sql.DB
}

func NewChatRepository(db *sql.DB) ChatRepository {
	return &chatRepository{DB: db}
}

const chatColumns = `c.id, c.organization_id, c.type, c.name, c.description, c.avatar_url,
		c.created_by, c.status, c.last_message_at, c.last_message_id, c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(s rowScanner) (*models.Chat, error) {
	c := &models.Chat{}
	var name, description, avatar, lastID sql.NullString
	var lastAt sql.NullTime
	if err := s.Scan(
		&c.ID, &c.OrganizationID, &c.Type, &name, &description, &avatar,
		&c.CreatedBy, &c.Status, &lastAt, &lastID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Name = nullString(name)
	c.Description = nullString(description)
	c.AvatarURL = nullString(avatar)
	c.LastMessageID = nullString(lastID)
	if lastAt.Valid {
		t := lastAt.Time
		c.LastMessageAt = &t
	}
	return c, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func (r *chatRepository) Create(ctx context.Context, chat *models.Chat, members []*models.ChatMember) error {
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	if chat.Status == "" {
		chat.Status = models.ChatStatusActive
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO chats (id, organization_id, type, name, description, avatar_url, created_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	if err := tx.QueryRowContext(ctx, q,
		chat.ID, chat.OrganizationID, chat.Type, chat.Name, chat.Description, chat.AvatarURL,
		chat.CreatedBy, chat.Status,
	).Scan(&chat.CreatedAt, &chat.UpdatedAt); err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}

	const mq = `
		INSERT INTO chat_members (chat_id, user_id, role, status)
		VALUES ($1, $2, $3, 'active')
		RETURNING id, created_at
	`
	for _, m := range members {
		m.ChatID = chat.ID
		m.Status = models.MemberStatusActive
		if err := tx.QueryRowContext(ctx, mq, chat.ID, m.UserID, m.Role).Scan(&m.ID, &m.CreatedAt); err != nil {
			return fmt.Errorf("insert chat member %s: %w", m.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	chat.Members = members
	return nil
}

// FindDirectID returns the ACTIVE direct chat both users are ACTIVE in.
func (r *chatRepository) FindDirectID(ctx context.Context, orgID, userA, userB string) (string, error) {
	const q = `
		SELECT c.id
		FROM chats c
		JOIN chat_members m1 ON m1.chat_id = c.id AND m1.user_id = $2 AND m1.status = 'active'
		JOIN chat_members m2 ON m2.chat_id = c.id AND m2.user_id = $3 AND m2.status = 'active'
		WHERE c.organization_id = $1 AND c.type = 'direct' AND c.status = 'active'
		ORDER BY c.created_at ASC
		LIMIT 1
	`
	var id string
	err := r.DB.QueryRowContext(ctx, q, orgID, userA, userB).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *chatRepository) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	q := `SELECT ` + chatColumns + ` FROM chats c WHERE c.id = $1`
	chat, err := scanChat(r.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	members, err := r.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	chat.Members = members
	return chat, nil
}

const memberQuery = `
		SELECT m.id, m.chat_id, m.user_id, m.role, m.status, m.unread_count, m.last_read_at, m.created_at,
		       u.email, COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), COALESCE(u.avatar_url, '')
		FROM chat_members m
		JOIN users u ON u.id = m.user_id
`

func scanMembers(rows *sql.Rows) ([]*models.ChatMember, error) {
	defer rows.Close()
	var out []*models.ChatMember
	for rows.Next() {
		m := &models.ChatMember{User: &models.User{}}
		var lastRead sql.NullTime
		if err := rows.Scan(
			&m.ID, &m.ChatID, &m.UserID, &m.Role, &m.Status, &m.UnreadCount, &lastRead, &m.CreatedAt,
			&m.User.Email, &m.User.FirstName, &m.User.LastName, &m.User.AvatarURL,
		); err != nil {
			return nil, err
		}
		m.User.ID = m.UserID
		if lastRead.Valid {
			t := lastRead.Time
			m.LastReadAt = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *chatRepository) ListMembers(ctx context.Context, chatID string) ([]*models.ChatMember, error) {
	rows, err := r.DB.QueryContext(ctx, memberQuery+` WHERE m.chat_id = $1 ORDER BY m.created_at, m.id`, chatID)
	if err != nil {
		return nil, err
	}
	return scanMembers(rows)
}

func (r *chatRepository) List(ctx context.Context, userID, orgID string, f models.ChatFilter) ([]*models.Chat, int, error) {
	where := []string{
		"c.organization_id = $1",
		"EXISTS (SELECT 1 FROM chat_members cm WHERE cm.chat_id = c.id AND cm.user_id = $2 AND cm.status = 'active')",
	}
	args := []any{orgID, userID}
	i := 3

	if f.Type != nil {
		where = append(where, fmt.Sprintf("c.type = $%d", i))
		args = append(args, *f.Type)
		i++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("c.status = $%d", i))
		args = append(args, *f.Status)
		i++
	} else {
		where = append(where, "c.status = 'active'")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, fmt.Sprintf("(c.name ILIKE $%d OR c.description ILIKE $%d)", i, i))
		args = append(args, "%"+s+"%")
		i++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats c WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count chats: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + chatColumns + ` FROM chats c WHERE ` + cond +
		fmt.Sprintf(" ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, f.Limit, offset)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []*models.Chat
	byID := map[string]*models.Chat{}
	var ids []string
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, 0, err
		}
		chats = append(chats, c)
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return chats, total, nil
	}

	mrows, err := r.DB.QueryContext(ctx,
		memberQuery+` WHERE m.chat_id = ANY($1) AND m.status = 'active' ORDER BY m.created_at, m.id`,
		pq.Array(ids))
	if err != nil {
		return nil, 0, fmt.Errorf("list chat members: %w", err)
	}
	members, err := scanMembers(mrows)
	if err != nil {
		return nil, 0, err
	}
	for _, m := range members {
		if c := byID[m.ChatID]; c != nil {
			c.Members = append(c.Members, m)
		}
	}
	return chats, total, nil
}

func (r *chatRepository) Update(ctx context.Context, chatID string, name, description, avatarURL *string) error {
	const q = `
		UPDATE chats
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    avatar_url = COALESCE($4, avatar_url),
		    updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, q, chatID, name, description, avatarURL)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *chatRepository) UpdateStatus(ctx context.Context, chatID string, status models.ChatStatus) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE chats SET status = $2, updated_at = NOW() WHERE id = $1`, chatID, status)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// AddMembers inserts new rows and reactivates LEFT/REMOVED ones.
func (r *chatRepository) AddMembers(ctx context.Context, chatID string, userIDs []string, role models.ChatMemberRole) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO chat_members (chat_id, user_id, role, status)
		VALUES ($1, $2, $3, 'active')
		ON CONFLICT (chat_id, user_id)
		DO UPDATE SET status = 'active', role = EXCLUDED.role, unread_count = 0, updated_at = NOW()
	`
	for _, id := range userIDs {
		if _, err := tx.ExecContext(ctx, q, chatID, id, role); err != nil {
			return fmt.Errorf("upsert chat member %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (r *chatRepository) SetMemberStatus(ctx context.Context, chatID, userID string, status models.ChatMemberStatus) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE chat_members SET status = $3, updated_at = NOW() WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID, status)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *chatRepository) MarkRead(ctx context.Context, chatID, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE chat_members SET unread_count = 0, last_read_at = NOW() WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID)
	return err
}

func (r *chatRepository) ListActiveChatIDs(ctx context.Context, userID, orgID string) ([]string, error) {
	const q = `
		SELECT c.id
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id
		WHERE m.user_id = $1 AND m.status = 'active'
		  AND c.organization_id = $2 AND c.status = 'active'
	`
	rows, err := r.DB.QueryContext(ctx, q, userID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
