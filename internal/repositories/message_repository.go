package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"orgchat/internal/models"
)

type MessageRepository interface {
	// Create persists the message with its attachments, moves the chat's
	// last-message pointer and bumps unread_count for every other ACTIVE
	// member, all in one transaction.
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	List(ctx context.Context, chatID string, q models.MessageQuery) ([]*models.Message, int, error)
	ListForExport(ctx context.Context, chatID string) ([]*models.Message, error)
	SoftDelete(ctx context.Context, id string) error
	AddReaction(ctx context.Context, messageID, userID, emoji string) error
	RemoveReaction(ctx context.Context, messageID, userID, emoji string) error
}

type messageRepository struct {
	DB *sql.DB
}

func NewMessageRepository(db *sql.DB) MessageRepository {
	return &messageRepository{DB: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Status == "" {
		msg.Status = models.MessageStatusSent
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO messages (id, chat_id, sender_id, type, content, reply_to_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	if err := tx.QueryRowContext(ctx, q,
		msg.ID, msg.ChatID, msg.SenderID, msg.Type, msg.Content, msg.ReplyToID, msg.Status,
	).Scan(&msg.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	const aq = `
		INSERT INTO message_attachments (message_id, file_name, file_url, file_type, file_size, thumbnail_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	for i := range msg.Attachments {
		a := &msg.Attachments[i]
		a.MessageID = msg.ID
		if err := tx.QueryRowContext(ctx, aq,
			msg.ID, a.FileName, a.FileURL, a.FileType, a.FileSize, a.ThumbnailURL,
		).Scan(&a.ID, &a.CreatedAt); err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE chats SET last_message_at = $2, last_message_id = $3, updated_at = NOW() WHERE id = $1`,
		msg.ChatID, msg.CreatedAt, msg.ID); err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}

	// set-based, so concurrent senders never lose an increment
	if _, err := tx.ExecContext(ctx, `
		UPDATE chat_members
		SET unread_count = unread_count + 1
		WHERE chat_id = $1 AND user_id <> $2 AND status = 'active'
	`, msg.ChatID, msg.SenderID); err != nil {
		return fmt.Errorf("increment unread: %w", err)
	}

	return tx.Commit()
}

const messageColumns = `m.id, m.chat_id, m.sender_id, m.type, m.content, m.reply_to_id, m.status,
		m.is_edited, m.edited_at, m.created_at, m.deleted_at`

func scanMessage(s rowScanner, extra ...any) (*models.Message, error) {
	m := &models.Message{}
	var content, replyTo sql.NullString
	var editedAt, deletedAt sql.NullTime
	dest := []any{
		&m.ID, &m.ChatID, &m.SenderID, &m.Type, &content, &replyTo, &m.Status,
		&m.IsEdited, &editedAt, &m.CreatedAt, &deletedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	m.Content = nullString(content)
	m.ReplyToID = nullString(replyTo)
	if editedAt.Valid {
		t := editedAt.Time
		m.EditedAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	m.Attachments = []models.MessageAttachment{}
	return m, nil
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	q := `SELECT ` + messageColumns + `, c.organization_id
		FROM messages m
		JOIN chats c ON c.id = m.chat_id
		WHERE m.id = $1`
	var orgID string
	msg, err := scanMessage(r.DB.QueryRowContext(ctx, q, id), &orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	msg.OrganizationID = orgID
	return msg, nil
}

const senderJoin = `
		JOIN users u ON u.id = m.sender_id`

const senderColumns = `, u.email, COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), COALESCE(u.avatar_url, '')`

func (r *messageRepository) scanWithSenders(rows *sql.Rows) ([]*models.Message, error) {
	defer rows.Close()
	var out []*models.Message
	for rows.Next() {
		u := &models.User{}
		msg, err := scanMessage(rows, &u.Email, &u.FirstName, &u.LastName, &u.AvatarURL)
		if err != nil {
			return nil, err
		}
		u.ID = msg.SenderID
		msg.Sender = u
		out = append(out, msg)
	}
	return out, rows.Err()
}

// List returns one page of live messages, newest first.
func (r *messageRepository) List(ctx context.Context, chatID string, mq models.MessageQuery) ([]*models.Message, int, error) {
	cond := `m.chat_id = $1 AND m.deleted_at IS NULL`
	args := []any{chatID}
	if mq.BeforeMessageID != "" {
		cond += ` AND m.created_at < (SELECT created_at FROM messages WHERE id = $2)`
		args = append(args, mq.BeforeMessageID)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages m WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	offset := (mq.Page - 1) * mq.Limit
	if offset < 0 || mq.BeforeMessageID != "" {
		offset = 0
	}
	n := len(args)
	q := `SELECT ` + messageColumns + senderColumns + ` FROM messages m` + senderJoin +
		` WHERE ` + cond +
		fmt.Sprintf(` ORDER BY m.created_at DESC, m.id DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, mq.Limit, offset)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	msgs, err := r.scanWithSenders(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachExtras(ctx, msgs); err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// ListForExport returns every live message in chronological order.
func (r *messageRepository) ListForExport(ctx context.Context, chatID string) ([]*models.Message, error) {
	q := `SELECT ` + messageColumns + senderColumns + ` FROM messages m` + senderJoin + `
		WHERE m.chat_id = $1 AND m.deleted_at IS NULL
		ORDER BY m.created_at ASC, m.id ASC`
	rows, err := r.DB.QueryContext(ctx, q, chatID)
	if err != nil {
		return nil, fmt.Errorf("export messages: %w", err)
	}
	msgs, err := r.scanWithSenders(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachExtras(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) attachExtras(ctx context.Context, msgs []*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	byID := make(map[string]*models.Message, len(msgs))
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	arows, err := r.DB.QueryContext(ctx, `
		SELECT id, message_id, file_name, file_url, file_type, file_size, thumbnail_url, created_at
		FROM message_attachments
		WHERE message_id = ANY($1)
		ORDER BY id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list attachments: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var a models.MessageAttachment
		var thumb sql.NullString
		if err := arows.Scan(&a.ID, &a.MessageID, &a.FileName, &a.FileURL, &a.FileType, &a.FileSize, &thumb, &a.CreatedAt); err != nil {
			return err
		}
		a.ThumbnailURL = nullString(thumb)
		if m := byID[a.MessageID]; m != nil {
			m.Attachments = append(m.Attachments, a)
		}
	}
	if err := arows.Err(); err != nil {
		return err
	}

	rrows, err := r.DB.QueryContext(ctx, `
		SELECT id, message_id, user_id, emoji, created_at
		FROM message_reactions
		WHERE message_id = ANY($1)
		ORDER BY id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list reactions: %w", err)
	}
	defer rrows.Close()
	for rrows.Next() {
		var rc models.MessageReaction
		if err := rrows.Scan(&rc.ID, &rc.MessageID, &rc.UserID, &rc.Emoji, &rc.CreatedAt); err != nil {
			return err
		}
		if m := byID[rc.MessageID]; m != nil {
			m.Reactions = append(m.Reactions, rc)
		}
	}
	return rrows.Err()
}

func (r *messageRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE messages SET status = 'deleted', deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *messageRepository) AddReaction(ctx context.Context, messageID, userID, emoji string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO message_reactions (message_id, user_id, emoji)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, user_id, emoji) DO NOTHING
	`, messageID, userID, emoji)
	return err
}

func (r *messageRepository) RemoveReaction(ctx context.Context, messageID, userID, emoji string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
