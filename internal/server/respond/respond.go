// Package respond maps domain errors onto the HTTP error envelope shared
// by every endpoint: {"error": {"kind": ..., "message": ...}}.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
	"github.com/carlsburger/GastroCore-sub000/internal/platform/rbac"
)

// Error writes err as the standard error envelope. Domain error kinds
// map to stable status codes; anything unrecognized is logged and
// reported as a generic 500 without leaking internals.
func Error(c *gin.Context, log *logrus.Logger, err error) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		writeKind(c, statusFor(derr.Kind), string(derr.Kind), derr.Message)
		return
	}
	switch {
	case errors.Is(err, rbac.ErrUnauthenticated):
		writeKind(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
	case errors.Is(err, rbac.ErrForbidden):
		writeKind(c, http.StatusForbidden, "PERMISSION_DENIED", "insufficient role")
	default:
		if log != nil {
			log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		}
		writeKind(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// ValidationError writes a 400 with kind VALIDATION, for request
// malformations caught before the engine is reached.
func ValidationError(c *gin.Context, message string) {
	writeKind(c, http.StatusBadRequest, string(domain.KindValidation), message)
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotLinked:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeKind(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"kind": kind, "message": message},
	})
}
