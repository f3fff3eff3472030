package handlers

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"orgchat/internal/models"
	"orgchat/internal/services"
)

// ChatAPI is the chat service surface the REST handlers call.
type ChatAPI interface {
	CreateChat(ctx context.Context, userID, orgID string, in services.CreateChatInput) (*models.Chat, error)
	FindAll(ctx context.Context, userID, orgID string, f models.ChatFilter) (*models.ChatPage, error)
	FindOne(ctx context.Context, userID, orgID, chatID string) (*models.Chat, error)
	UpdateChat(ctx context.Context, userID, orgID, chatID string, in services.UpdateChatInput) (*models.Chat, error)
	DeleteChat(ctx context.Context, userID, orgID, chatID string) error
	ArchiveChat(ctx context.Context, userID, orgID, chatID string, archive bool) (*models.Chat, error)
	AddMembers(ctx context.Context, userID, orgID, chatID string, userIDs []string) ([]*models.ChatMember, error)
	RemoveMember(ctx context.Context, userID, orgID, chatID, targetID string) error
	LeaveChat(ctx context.Context, userID, orgID, chatID string) error
	GetMessages(ctx context.Context, userID, orgID, chatID string, q models.MessageQuery) (*models.MessagePage, error)
	DeleteMessage(ctx context.Context, userID, orgID, chatID, messageID string) (*models.Message, error)
	AddReaction(ctx context.Context, userID, orgID, chatID, messageID, emoji string) error
	RemoveReaction(ctx context.Context, userID, orgID, chatID, messageID, emoji string) error
	ExportChat(ctx context.Context, userID, orgID, chatID string) (string, error)
	VerifyOrgMember(ctx context.Context, userID, orgID string) error
}

// Realtime pushes REST mutations to live sockets. Messages are sent through it
// so REST and socket sends share one ordered path per chat.
type Realtime interface {
	SendMessage(ctx context.Context, userID, orgID, chatID string, in services.SendMessageInput) (*models.Message, error)
	ChatCreated(ctx context.Context, chat *models.Chat)
	MembersAdded(ctx context.Context, orgID, chatID string, members []*models.ChatMember)
	MemberRemoved(ctx context.Context, chatID, userID string)
	ChatUpdated(ctx context.Context, chatID string, updates map[string]any)
	ChatArchived(ctx context.Context, chatID string, archived bool)
	ChatDeleted(ctx context.Context, chatID string)
	MessageDeleted(ctx context.Context, chatID, messageID string)
	ReactionChanged(ctx context.Context, chatID, messageID, userID, emoji string, removed bool)
	OnlineUsers(orgID string) []string
}

type ChatHandler struct {
	chats ChatAPI
	rt    Realtime
	log   *zap.Logger
}

func NewChatHandler(chats ChatAPI, rt Realtime, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, rt: rt, log: log}
}

type addMembersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1"`
}

type archiveRequest struct {
	Archived *bool `json:"archived"`
}

type reactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// @Summary      Создать чат
// @Description  DIRECT возвращает существующий активный чат между двумя пользователями
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        chat  body      services.CreateChatInput  true  "Параметры чата"
// @Success      201   {object}  models.Chat
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /chats [post]
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	var req services.CreateChatInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	chat, err := h.chats.CreateChat(c.Request.Context(), userID, orgID, req)
	if err != nil {
		respondError(c, h.log, "chat.create", err)
		return
	}
	h.rt.ChatCreated(c.Request.Context(), chat)
	c.JSON(http.StatusCreated, chat)
}

// @Summary      Список чатов
// @Tags         Chats
// @Produce      json
// @Param        type    query     string  false  "direct | group"
// @Param        status  query     string  false  "active | archived"
// @Param        search  query     string  false  "поиск по названию"
// @Param        page    query     int     false  "страница"
// @Param        limit   query     int     false  "размер страницы"
// @Success      200     {object}  models.ChatPage
// @Failure      403     {object}  map[string]string
// @Router       /chats [get]
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	f := models.ChatFilter{
		Search: c.Query("search"),
		Page:   queryInt(c, "page", 0),
		Limit:  queryInt(c, "limit", 0),
	}
	if v := c.Query("type"); v != "" {
		t := models.ChatType(v)
		if t != models.ChatTypeDirect && t != models.ChatTypeGroup {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
			return
		}
		f.Type = &t
	}
	if v := c.Query("status"); v != "" {
		s := models.ChatStatus(v)
		if s != models.ChatStatusActive && s != models.ChatStatusArchived {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		f.Status = &s
	}
	page, err := h.chats.FindAll(c.Request.Context(), userID, orgID, f)
	if err != nil {
		respondError(c, h.log, "chat.list", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /chats/:id
func (h *ChatHandler) GetChat(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	chat, err := h.chats.FindOne(c.Request.Context(), userID, orgID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, "chat.get", err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// @Summary      Изменить групповой чат
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "ID чата"
// @Param        chat  body      services.UpdateChatInput  true  "Изменения"
// @Success      200   {object}  models.Chat
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /chats/{id} [put]
func (h *ChatHandler) UpdateChat(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	chatID := c.Param("id")
	var req services.UpdateChatInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	chat, err := h.chats.UpdateChat(c.Request.Context(), userID, orgID, chatID, req)
	if err != nil {
		respondError(c, h.log, "chat.update", err)
		return
	}
	h.rt.ChatUpdated(c.Request.Context(), chatID, req.Changes())
	c.JSON(http.StatusOK, chat)
}

// DELETE /chats/:id
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	chatID := c.Param("id")
	if err := h.chats.DeleteChat(c.Request.Context(), userID, orgID, chatID); err != nil {
		respondError(c, h.log, "chat.delete", err)
		return
	}
	h.rt.ChatDeleted(c.Request.Context(), chatID)
	c.JSON(http.StatusOK, gin.H{"message": "chat deleted"})
}

// PUT /chats/:id/archive  {"archived": false} restores; an empty body archives.
func (h *ChatHandler) ArchiveChat(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	chatID := c.Param("id")
	var req archiveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	archive := req.Archived == nil || *req.Archived
	chat, err := h.chats.ArchiveChat(c.Request.Context(), userID, orgID, chatID, archive)
	if err != nil {
		respondError(c, h.log, "chat.archive", err)
		return
	}
	h.rt.ChatArchived(c.Request.Context(), chatID, archive)
	c.JSON(http.StatusOK, chat)
}

// @Summary      Экспорт переписки в PDF
// @Tags         Chats
// @Produce      application/pdf
// @Param        id  path  string  true  "ID чата"
// @Success      200
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /chats/{id}/export [get]
func (h *ChatHandler) ExportChat(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	path, err := h.chats.ExportChat(c.Request.Context(), userID, orgID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, "chat.export", err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// POST /chats/:id/members
func (h *ChatHandler) AddMembers(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	chatID := c.Param("id")
	var req addMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added, err := h.chats.AddMembers(c.Request.Context(), userID, orgID, chatID, req.UserIDs)
	if err != nil {
		respondError(c, h.log, "chat.members.add", err)
		return
	}
	if added == nil {
		added = []*models.ChatMember{}
	}
	h.rt.MembersAdded(c.Request.Context(), orgID, chatID, added)
	c.JSON(http.StatusOK, gin.H{"members": added})
}

// DELETE /chats/:id/members/:memberId
func (h *ChatHandler) RemoveMember(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	chatID, target := c.Param("id"), c.Param("memberId")
	if err := h.chats.RemoveMember(c.Request.Context(), userID, orgID, chatID, target); err != nil {
		respondError(c, h.log, "chat.members.remove", err)
		return
	}
	h.rt.MemberRemoved(c.Request.Context(), chatID, target)
	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

// POST /chats/:id/leave
func (h *ChatHandler) LeaveChat(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	chatID := c.Param("id")
	if err := h.chats.LeaveChat(c.Request.Context(), userID, orgID, chatID); err != nil {
		respondError(c, h.log, "chat.leave", err)
		return
	}
	h.rt.MemberRemoved(c.Request.Context(), chatID, userID)
	c.JSON(http.StatusOK, gin.H{"message": "left chat"})
}

// @Summary      Отправить сообщение
// @Tags         Messages
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "ID чата"
// @Param        message  body      services.SendMessageInput  true  "Сообщение"
// @Success      201      {object}  models.Message
// @Failure      400      {object}  map[string]string
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /chats/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	var req services.SendMessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.rt.SendMessage(c.Request.Context(), userID, orgID, c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "message.send", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// @Summary      История сообщений
// @Description  Сбрасывает счётчик непрочитанных у вызывающего
// @Tags         Messages
// @Produce      json
// @Param        id                 path      string  true   "ID чата"
// @Param        page               query     int     false  "страница"
// @Param        limit              query     int     false  "размер страницы"
// @Param        before_message_id  query     string  false  "курсор"
// @Success      200                {object}  models.MessagePage
// @Failure      403                {object}  map[string]string
// @Failure      404                {object}  map[string]string
// @Router       /chats/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	q := models.MessageQuery{
		Page:            queryInt(c, "page", 0),
		Limit:           queryInt(c, "limit", 0),
		BeforeMessageID: c.Query("before_message_id"),
	}
	page, err := h.chats.GetMessages(c.Request.Context(), userID, orgID, c.Param("id"), q)
	if err != nil {
		respondError(c, h.log, "message.list", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// DELETE /chats/:id/messages/:messageId
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	chatID, messageID := c.Param("id"), c.Param("messageId")
	msg, err := h.chats.DeleteMessage(c.Request.Context(), userID, orgID, chatID, messageID)
	if err != nil {
		respondError(c, h.log, "message.delete", err)
		return
	}
	h.rt.MessageDeleted(c.Request.Context(), chatID, messageID)
	c.JSON(http.StatusOK, msg)
}

// POST /chats/:id/messages/:messageId/reactions
func (h *ChatHandler) AddReaction(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	chatID, messageID := c.Param("id"), c.Param("messageId")
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.chats.AddReaction(c.Request.Context(), userID, orgID, chatID, messageID, req.Emoji); err != nil {
		respondError(c, h.log, "reaction.add", err)
		return
	}
	h.rt.ReactionChanged(c.Request.Context(), chatID, messageID, userID, req.Emoji, false)
	c.JSON(http.StatusOK, gin.H{"message": "reaction added"})
}

// DELETE /chats/:id/messages/:messageId/reactions/:emoji
func (h *ChatHandler) RemoveReaction(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	chatID, messageID, emoji := c.Param("id"), c.Param("messageId"), c.Param("emoji")
	if err := h.chats.RemoveReaction(c.Request.Context(), userID, orgID, chatID, messageID, emoji); err != nil {
		respondError(c, h.log, "reaction.remove", err)
		return
	}
	h.rt.ReactionChanged(c.Request.Context(), chatID, messageID, userID, emoji, true)
	c.JSON(http.StatusOK, gin.H{"message": "reaction removed"})
}

// @Summary      Кто онлайн
// @Tags         Presence
// @Produce      json
// @Success      200  {object}  map[string][]string
// @Failure      403  {object}  map[string]string
// @Router       /presence [get]
func (h *ChatHandler) Presence(c *gin.Context) {
	userID, orgID := getUserAndOrg(c)
	// X-Organization-ID is caller-controlled
	if err := h.chats.VerifyOrgMember(c.Request.Context(), userID, orgID); err != nil {
		respondError(c, h.log, "presence", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": h.rt.OnlineUsers(orgID)})
}
