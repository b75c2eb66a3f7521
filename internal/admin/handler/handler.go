// Package handler exposes the back-office attendance API: session
// listings, event audit, and corrections. Every route is role-gated.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	attendancehandler "github.com/carlsburger/GastroCore-sub000/internal/attendance/handler"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
	"github.com/carlsburger/GastroCore-sub000/internal/attendance/engine"
	"github.com/carlsburger/GastroCore-sub000/internal/attendance/repository"
	"github.com/carlsburger/GastroCore-sub000/internal/platform/rbac"
	"github.com/carlsburger/GastroCore-sub000/internal/server/respond"
)

const (
	dayKeyLayout     = "2006-01-02"
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// Handler serves the admin endpoints. Listings require manager or
// admin; corrections require admin.
type Handler struct {
	engine *engine.Engine
	log    *logrus.Logger
}

// New returns a Handler.
func New(eng *engine.Engine, log *logrus.Logger) *Handler {
	return &Handler{engine: eng, log: log}
}

// Register mounts the admin routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/:id", h.GetSession)
	r.POST("/sessions/:id/correction", h.Correct)
	r.GET("/events", h.ListEvents)
}

// ListSessions returns sessions filtered by ?day=&employee_id=&state=
// with limit/offset pagination.
func (h *Handler) ListSessions(c *gin.Context) {
	if _, err := rbac.RequireManager(c.Request.Context()); err != nil {
		respond.Error(c, h.log, err)
		return
	}

	filter := repository.SessionFilter{
		DayKey:     c.Query("day"),
		EmployeeID: c.Query("employee_id"),
	}
	if filter.DayKey != "" {
		if _, err := time.Parse(dayKeyLayout, filter.DayKey); err != nil {
			respond.ValidationError(c, "day must be a date formatted YYYY-MM-DD")
			return
		}
	}
	if raw := c.Query("state"); raw != "" {
		state, err := domain.ParseSessionState(raw)
		if err != nil {
			respond.ValidationError(c, err.Error())
			return
		}
		filter.State = state
	}
	var err error
	filter.Limit, filter.Offset, err = pagination(c)
	if err != nil {
		respond.ValidationError(c, err.Error())
		return
	}

	entries, err := h.engine.ListSessions(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	out := make([]attendancehandler.StatusEntryView, len(entries))
	for i, e := range entries {
		out[i] = attendancehandler.NewStatusEntryView(e)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// GetSession returns one session with its full event history.
func (h *Handler) GetSession(c *gin.Context) {
	if _, err := rbac.RequireManager(c.Request.Context()); err != nil {
		respond.Error(c, h.log, err)
		return
	}

	session, events, totals, err := h.engine.SessionWithEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	eventViews := make([]*attendancehandler.EventView, len(events))
	for i, e := range events {
		eventViews[i] = attendancehandler.NewEventView(e)
	}
	c.JSON(http.StatusOK, gin.H{
		"session": attendancehandler.NewSessionView(session),
		"totals":  attendancehandler.NewTotalsView(totals),
		"events":  eventViews,
	})
}

// breakInput is one break in a correction request.
type breakInput struct {
	StartAt time.Time  `json:"start_at" binding:"required"`
	EndAt   *time.Time `json:"end_at"`
}

// correctionRequest is the body of POST /sessions/:id/correction. Absent
// fields leave the session's recorded values untouched; breaks, when
// present, replace the break list wholesale.
type correctionRequest struct {
	ClockInAt  *time.Time    `json:"clock_in_at"`
	ClockOutAt *time.Time    `json:"clock_out_at"`
	Breaks     *[]breakInput `json:"breaks"`
	Reason     string        `json:"reason"`
}

// Correct applies an admin override to a session. Requires role admin
// and a reason; the before and after values are captured on the
// appended correction event.
func (h *Handler) Correct(c *gin.Context) {
	if _, err := rbac.RequireAdmin(c.Request.Context()); err != nil {
		respond.Error(c, h.log, err)
		return
	}

	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.ValidationError(c, "malformed request body")
		return
	}

	in := engine.CorrectionInput{
		ClockInAt:  req.ClockInAt,
		ClockOutAt: req.ClockOutAt,
		Reason:     req.Reason,
	}
	if req.Breaks != nil {
		breaks := make([]domain.BreakEntry, len(*req.Breaks))
		for i, b := range *req.Breaks {
			breaks[i] = domain.BreakEntry{StartAt: b.StartAt.UTC()}
			if b.EndAt != nil {
				end := b.EndAt.UTC()
				breaks[i].EndAt = &end
				breaks[i].Duration = end.Sub(breaks[i].StartAt)
			}
		}
		in.Breaks = &breaks
	}

	res, err := h.engine.ApplyCorrection(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, attendancehandler.NewMutationView(res))
}

// ListEvents returns raw events filtered by ?employee_id=&from=&to=
// (RFC 3339 bounds) with limit/offset pagination.
func (h *Handler) ListEvents(c *gin.Context) {
	if _, err := rbac.RequireManager(c.Request.Context()); err != nil {
		respond.Error(c, h.log, err)
		return
	}

	filter := repository.EventFilter{EmployeeID: c.Query("employee_id")}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respond.ValidationError(c, "from must be an RFC 3339 timestamp")
			return
		}
		filter.From = t.UTC()
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respond.ValidationError(c, "to must be an RFC 3339 timestamp")
			return
		}
		filter.To = t.UTC()
	}
	var err error
	filter.Limit, filter.Offset, err = pagination(c)
	if err != nil {
		respond.ValidationError(c, err.Error())
		return
	}

	events, err := h.engine.ListEvents(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	out := make([]*attendancehandler.EventView, len(events))
	for i, e := range events {
		out[i] = attendancehandler.NewEventView(e)
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

// pagination parses ?limit=&offset= with bounds applied.
func pagination(c *gin.Context) (limit, offset int32, err error) {
	limit = defaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, 0, errInvalidPagination("limit")
		}
		if n > maxPageLimit {
			n = maxPageLimit
		}
		limit = int32(n)
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, 0, errInvalidPagination("offset")
		}
		offset = int32(n)
	}
	return limit, offset, nil
}

type errInvalidPagination string

func (e errInvalidPagination) Error() string {
	return string(e) + " must be a non-negative integer"
}
