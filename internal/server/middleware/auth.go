package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/prism-copy/internal/core/domain"
)

// Auth checks for a valid Bearer token against the configured static keys.
// With no keys configured every request is let through (local development).
func Auth(staticKeys []string) gin.HandlerFunc {
	keys := make([][]byte, 0, len(staticKeys))
	for _, k := range staticKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, domain.UnauthorizedError("Missing Authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, domain.UnauthorizedError("Invalid Authorization header format"))
			return
		}

		token := []byte(parts[1])
		for _, k := range keys {
			if subtle.ConstantTimeCompare(token, k) == 1 {
				c.Next()
				return
			}
		}

		abort(c, domain.UnauthorizedError("Invalid API Key"))
	}
}

// abort records the problem for ErrorHandler and stops the chain.
func abort(c *gin.Context, p *domain.Problem) {
	_ = c.Error(p)
	c.Abort()
}
