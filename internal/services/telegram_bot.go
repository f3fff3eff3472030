package services

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"orgchat/internal/models"
)

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramService struct {
	bot telegramSender
	log *zap.Logger
}

func NewTelegramService(botToken string, log *zap.Logger) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Info("[tg] authorized", zap.String("bot", bot.Self.UserName))
	return &TelegramService{bot: bot, log: log}, nil
}

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	if t == nil || t.bot == nil || chatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

func (t *TelegramService) Name() string { return "telegram" }

// Push skips users without a linked Telegram chat.
func (t *TelegramService) Push(_ context.Context, user *models.User, n *models.Notification) error {
	if user == nil || user.TelegramChatID == 0 {
		return nil
	}
	text := fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(n.Title), html.EscapeString(n.Message))
	return t.SendMessage(user.TelegramChatID, text)
}
