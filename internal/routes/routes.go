package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"orgchat/internal/handlers"
	"orgchat/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	verifier *middleware.TokenVerifier,
	limiter *middleware.RateLimiter,
	chatHandler *handlers.ChatHandler,
	integrationsHandler *handlers.IntegrationsHandler, // может быть nil, если Telegram выключен
	ws http.HandlerFunc,
) *gin.Engine {

	// ---- public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// сокет сам проверяет токен при рукопожатии
	r.GET("/ws", gin.WrapF(ws))

	if integrationsHandler != nil {
		r.POST("/integrations/telegram/webhook", integrationsHandler.Webhook)
	}

	// ---- protected
	r.Use(middleware.AuthMiddleware(verifier))
	r.Use(limiter.Middleware())

	if integrationsHandler != nil {
		r.POST("/integrations/telegram/request-link", integrationsHandler.RequestTelegramLink)
	}

	org := r.Group("/", middleware.RequireOrganization())

	// CHATS
	chats := org.Group("/chats")
	{
		chats.POST("", chatHandler.CreateChat)
		chats.GET("", chatHandler.ListChats)
		chats.GET("/:id", chatHandler.GetChat)
		chats.PUT("/:id", chatHandler.UpdateChat)
		chats.DELETE("/:id", chatHandler.DeleteChat)
		chats.PUT("/:id/archive", chatHandler.ArchiveChat)
		chats.GET("/:id/export", chatHandler.ExportChat)

		chats.POST("/:id/members", chatHandler.AddMembers)
		chats.DELETE("/:id/members/:memberId", chatHandler.RemoveMember)
		chats.POST("/:id/leave", chatHandler.LeaveChat)

		chats.POST("/:id/messages", chatHandler.SendMessage)
		chats.GET("/:id/messages", chatHandler.GetMessages)
		chats.DELETE("/:id/messages/:messageId", chatHandler.DeleteMessage)
		chats.POST("/:id/messages/:messageId/reactions", chatHandler.AddReaction)
		chats.DELETE("/:id/messages/:messageId/reactions/:emoji", chatHandler.RemoveReaction)
	}

	// PRESENCE
	org.GET("/presence", chatHandler.Presence)

	return r
}
