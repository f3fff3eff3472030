package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"orgchat/internal/services"
)

// getUserAndOrg reads what AuthMiddleware put into the context.
func getUserAndOrg(c *gin.Context) (userID, orgID string) {
	return c.GetString("user_id"), c.GetString("organization_id")
}

// queryInt is lenient: a missing or malformed value yields fallback.
func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func statusFor(err error) int {
	switch services.KindOf(err) {
	case services.KindAuthentication:
		return http.StatusUnauthorized
	case services.KindAuthorization, services.KindEntitlement:
		return http.StatusForbidden
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps a service error onto a status code; internal errors are
// logged and hidden from the client.
func respondError(c *gin.Context, log *zap.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("["+op+"] failed",
			zap.String("user_id", c.GetString("user_id")),
			zap.String("organization_id", c.GetString("organization_id")),
			zap.String("chat_id", c.Param("id")),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
