package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carlsburger/GastroCore-sub000/internal/security"
)

// TerminalKeyHeader carries the shared key presented by kiosk terminals.
const TerminalKeyHeader = "X-Terminal-Key"

// terminalVerifiedKey marks requests that presented a valid terminal key.
const terminalVerifiedKey = "middleware.terminal_verified"

// TerminalKey verifies the X-Terminal-Key header when present and
// records the outcome for handlers that accept terminal-sourced events.
// It never rejects on its own; requests that claim source=TERMINAL
// without a verified key are refused by the handler.
func TerminalKey(verifier *security.TerminalKeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(TerminalKeyHeader)
		if verifier.Verify(key) {
			c.Set(terminalVerifiedKey, true)
		}
		c.Next()
	}
}

// TerminalVerified reports whether the current request presented a
// valid terminal key.
func TerminalVerified(c *gin.Context) bool {
	return c.GetBool(terminalVerifiedKey)
}

// RejectUnverifiedTerminal writes the standard refusal for a
// terminal-sourced event without a verified key.
func RejectUnverifiedTerminal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"kind": "UNAUTHENTICATED", "message": "terminal key required for terminal-sourced events"},
	})
}
