package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carlsburger/GastroCore-sub000/internal/security"
)

const bearerPrefix = "bearer "

// Auth returns a middleware that validates the Bearer access token and
// stores the asserted principal on the request context. Requests
// without a valid token are rejected with 401.
func Auth(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			abortUnauthorized(c)
			return
		}
		principal, err := tokens.ValidateAccess(token)
		if err != nil {
			abortUnauthorized(c)
			return
		}
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"kind": "UNAUTHENTICATED", "message": "missing or invalid authorization"},
	})
}

// extractBearer returns the Bearer token from an Authorization header
// value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
