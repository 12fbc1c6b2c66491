package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/uplinehq/agencytree-backend/internal/logger"
)

// APIKey gates the API behind a static key compared against the X-Api-Key
// header. An empty configured key disables the check entirely.
func APIKey(log *logger.Logger, key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	if key == "" {
		if log != nil {
			log.Warn("API_KEY not set, API authentication disabled")
		}
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		got := strings.TrimSpace(c.GetHeader("X-Api-Key"))
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid api key"})
			return
		}
		c.Next()
	}
}
