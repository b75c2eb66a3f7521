// Package server assembles the HTTP API: middleware chain, route
// groups, and the health endpoint.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	adminhandler "github.com/carlsburger/GastroCore-sub000/internal/admin/handler"
	attendancehandler "github.com/carlsburger/GastroCore-sub000/internal/attendance/handler"
	healthhandler "github.com/carlsburger/GastroCore-sub000/internal/health/handler"
	"github.com/carlsburger/GastroCore-sub000/internal/security"
	"github.com/carlsburger/GastroCore-sub000/internal/server/middleware"
)

// Deps holds everything the router mounts.
type Deps struct {
	Log          *logrus.Logger
	Tokens       *security.TokenProvider
	TerminalKeys *security.TerminalKeyVerifier
	Attendance   *attendancehandler.Handler
	Admin        *adminhandler.Handler
	Health       *healthhandler.Handler
}

// NewRouter builds the gin engine with the full middleware chain and
// all route groups mounted. The health probes are the only
// unauthenticated routes.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Log))

	if d.Health != nil {
		d.Health.Register(r)
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.Auth(d.Tokens), middleware.TerminalKey(d.TerminalKeys))

	d.Attendance.Register(v1.Group("/attendance"))
	d.Admin.Register(v1.Group("/admin"))
	return r
}
