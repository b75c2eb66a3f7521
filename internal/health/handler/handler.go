// Package handler serves liveness and readiness for Kubernetes, load
// balancers, and CI.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports storage reachability. *sql.DB satisfies it; the
// in-memory stores have no pinger and readiness degrades to liveness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves /healthz and /readyz.
type Handler struct {
	db Pinger
}

// New returns a Handler. db may be nil.
func New(db Pinger) *Handler {
	return &Handler{db: db}
}

// Register mounts the health routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Live)
	r.GET("/readyz", h.Ready)
}

// Live always reports ok while the process is serving.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports ok when storage is reachable.
func (h *Handler) Ready(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
