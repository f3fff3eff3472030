package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TelegramLink is a one-time code a user sends to the bot to bind a Telegram chat.
type TelegramLink struct {
	ID        int64
	UserID    string
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

type TelegramLinkRepository interface {
	Create(ctx context.Context, userID, code string, ttl time.Duration) (*TelegramLink, error)
	// Consume marks a live code used and stores telegramChatID on its user.
	Consume(ctx context.Context, code string, telegramChatID int64) (*TelegramLink, error)
}

type telegramLinkRepository struct {
	DB *sql.DB
}

func NewTelegramLinkRepository(db *sql.DB) TelegramLinkRepository {
	return &telegramLinkRepository{DB: db}
}

func (r *telegramLinkRepository) Create(ctx context.Context, userID, code string, ttl time.Duration) (*TelegramLink, error) {
	expiresAt := time.Now().Add(ttl)

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO telegram_links (user_id, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, code, expires_at, used, created_at
	`, userID, code, expiresAt)

	var l TelegramLink
	if err := row.Scan(&l.ID, &l.UserID, &l.Code, &l.ExpiresAt, &l.Used, &l.CreatedAt); err != nil {
		return nil, fmt.Errorf("create telegram link: %w", err)
	}
	return &l, nil
}

func (r *telegramLinkRepository) Consume(ctx context.Context, code string, telegramChatID int64) (*TelegramLink, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var l TelegramLink
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, code, expires_at, used, created_at
		FROM telegram_links
		WHERE code = $1
		FOR UPDATE
	`, code).Scan(&l.ID, &l.UserID, &l.Code, &l.ExpiresAt, &l.Used, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	// used and expired codes look absent
	if l.Used || time.Now().After(l.ExpiresAt) {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `UPDATE telegram_links SET used = true WHERE id = $1`, l.ID); err != nil {
		return nil, fmt.Errorf("mark telegram link used: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET telegram_chat_id = $1 WHERE id = $2`, telegramChatID, l.UserID); err != nil {
		return nil, fmt.Errorf("link telegram chat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	l.Used = true
	return &l, nil
}
