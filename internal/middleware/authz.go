package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireOrganization rejects requests that carry no organization scope.
// Membership itself is verified by the services.
func RequireOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get("user_id"); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if c.GetString("organization_id") == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "organization is required (X-Organization-ID header or token claim)"})
			return
		}
		c.Next()
	}
}
