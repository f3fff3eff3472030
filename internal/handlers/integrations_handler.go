package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"orgchat/internal/repositories"
	"orgchat/internal/utils"
)

const linkCodeTTL = 30 * time.Minute

// TelegramMessenger sends HTML text to a Telegram chat.
type TelegramMessenger interface {
	SendMessage(chatID int64, text string) error
}

// IntegrationsHandler binds a Telegram chat to a user so offline mentions can
// be pushed there.
type IntegrationsHandler struct {
	tg    TelegramMessenger
	links repositories.TelegramLinkRepository
	log   *zap.Logger
}

func NewIntegrationsHandler(tg TelegramMessenger, links repositories.TelegramLinkRepository, log *zap.Logger) *IntegrationsHandler {
	return &IntegrationsHandler{tg: tg, links: links, log: log}
}

type tgUpdate struct {
	Message *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// Webhook always answers 200, otherwise Telegram keeps redelivering the update.
func (h *IntegrationsHandler) Webhook(c *gin.Context) {
	var up tgUpdate
	if err := c.ShouldBindJSON(&up); err != nil || up.Message == nil {
		h.log.Debug("[tg:webhook] ignored update", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	text := strings.TrimSpace(up.Message.Text)
	chatID := up.Message.Chat.ID

	switch {
	case strings.HasPrefix(text, "/start"):
		h.reply(chatID, "Привет! Чтобы получать уведомления об упоминаниях, отправьте:\n<code>/link &lt;код&gt;</code>")

	case strings.HasPrefix(text, "/link"):
		code, ok := utils.NormalizeLinkCode(strings.TrimPrefix(text, "/link"))
		if !ok {
			h.reply(chatID, "Неверный формат кода. Отправьте ровно 32 символа HEX:\n<code>/link 0123456789ABCDEF0123456789ABCDEF</code>")
			break
		}
		link, err := h.links.Consume(c.Request.Context(), code, chatID)
		if errors.Is(err, repositories.ErrNotFound) {
			h.reply(chatID, "Код недействителен или истёк. Сгенерируйте новый в личном кабинете.")
			break
		}
		if err != nil {
			h.log.Error("[tg:webhook] link failed", zap.Int64("tg_chat_id", chatID), zap.Error(err))
			h.reply(chatID, "Не удалось привязать аккаунт, попробуйте позже.")
			break
		}
		h.log.Info("[tg:webhook] linked", zap.String("user_id", link.UserID), zap.Int64("tg_chat_id", chatID))
		h.reply(chatID, "Готово! Аккаунт привязан. Упоминания в чатах будут приходить сюда, пока вы не в сети.")

	default:
		h.reply(chatID, "Не понял команду. Используйте <code>/link &lt;код&gt;</code>.")
	}
	c.Status(http.StatusOK)
}

func (h *IntegrationsHandler) reply(chatID int64, text string) {
	if err := h.tg.SendMessage(chatID, text); err != nil {
		h.log.Warn("[tg:webhook] reply failed", zap.Int64("tg_chat_id", chatID), zap.Error(err))
	}
}

// @Summary      Код привязки Telegram
// @Tags         Integrations
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /integrations/telegram/request-link [post]
func (h *IntegrationsHandler) RequestTelegramLink(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	code, err := utils.NewLinkCode()
	if err != nil {
		h.log.Error("[tg:link] code generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot create link"})
		return
	}
	link, err := h.links.Create(c.Request.Context(), userID, code, linkCodeTTL)
	if err != nil {
		h.log.Error("[tg:link] create failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot create link"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":       link.Code,
		"expires_at": link.ExpiresAt,
		"hint":       "Откройте чат с ботом и отправьте: /link " + link.Code,
	})
}
