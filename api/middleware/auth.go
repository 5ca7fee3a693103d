package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/termharvest/models"
)

// ContextKeyAPIKey is where Auth stores the accepted key.
const ContextKeyAPIKey = "api_key"

// Auth returns API-key authentication middleware for the status API.
//
// Accepted headers:
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//
// If apiKeys is empty, the middleware is a no-op.
func Auth(apiKeys []string) gin.HandlerFunc {
	var keys [][]byte
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := extractAPIKey(c)
		if key == "" {
			unauthorized(c, "missing API key: provide X-API-Key header or Authorization: Bearer <key>")
			return
		}
		if !knownKey(keys, key) {
			unauthorized(c, "invalid API key")
			return
		}

		c.Set(ContextKeyAPIKey, key)
		c.Next()
	}
}

func knownKey(keys [][]byte, key string) bool {
	candidate := []byte(key)
	for _, k := range keys {
		if subtle.ConstantTimeCompare(k, candidate) == 1 {
			return true
		}
	}
	return false
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.APIResponse{
		Error: &models.ErrorDetail{Code: models.ErrCodeUnauthorized, Message: msg},
	})
}

// extractAPIKey tries X-API-Key first, then Authorization: Bearer.
func extractAPIKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
