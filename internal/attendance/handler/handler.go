// Package handler exposes the employee-facing attendance API over HTTP.
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
	"github.com/carlsburger/GastroCore-sub000/internal/attendance/engine"
	employeedomain "github.com/carlsburger/GastroCore-sub000/internal/employee/domain"
	employeerepo "github.com/carlsburger/GastroCore-sub000/internal/employee/repository"
	"github.com/carlsburger/GastroCore-sub000/internal/platform/rbac"
	"github.com/carlsburger/GastroCore-sub000/internal/server/middleware"
	"github.com/carlsburger/GastroCore-sub000/internal/server/respond"
)

const dayKeyLayout = "2006-01-02"

// Handler serves the employee attendance endpoints. Every endpoint
// resolves the authenticated principal to an employee first; principals
// without a profile get the not-linked treatment instead of an error
// page.
type Handler struct {
	engine    *engine.Engine
	employees employeerepo.Repository
	log       *logrus.Logger
}

// New returns a Handler.
func New(eng *engine.Engine, employees employeerepo.Repository, log *logrus.Logger) *Handler {
	return &Handler{engine: eng, employees: employees, log: log}
}

// Register mounts the attendance routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/status", h.Status)
	r.GET("/history", h.History)
	r.POST("/clock-in", h.mutation(h.engine.ClockIn))
	r.POST("/clock-out", h.mutation(h.engine.ClockOut))
	r.POST("/break/start", h.mutation(h.engine.BreakStart))
	r.POST("/break/end", h.mutation(h.engine.BreakEnd))
}

// mutationRequest is the optional body of the clock and break endpoints.
type mutationRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Source         string `json:"source"`
}

type mutationFunc func(ctx context.Context, employeeID, idempotencyKey string, source domain.Source) (*engine.Result, error)

// mutation adapts one engine transition into a gin handler. The four
// mutations share request parsing, employee resolution and the terminal
// source check; only the transition differs.
func (h *Handler) mutation(apply mutationFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		emp, err := h.resolveEmployee(c)
		if err != nil {
			respond.Error(c, h.log, err)
			return
		}

		var req mutationRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respond.ValidationError(c, "malformed request body")
			return
		}
		source, err := domain.ParseSource(req.Source)
		if err != nil {
			respond.ValidationError(c, err.Error())
			return
		}
		if source == domain.SourceAdminCorrection {
			respond.ValidationError(c, "source ADMIN_CORRECTION is reserved for corrections")
			return
		}
		if source == domain.SourceTerminal && !middleware.TerminalVerified(c) {
			middleware.RejectUnverifiedTerminal(c)
			return
		}

		res, err := apply(c.Request.Context(), emp.ID, req.IdempotencyKey, source)
		if err != nil {
			respond.Error(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, NewMutationView(res))
	}
}

// statusResponse is the body of GET /status. Linked is false when the
// principal has no employee profile; the rest is omitted in that case.
type statusResponse struct {
	Linked     bool         `json:"linked"`
	EmployeeID string       `json:"employee_id,omitempty"`
	State      string       `json:"state"`
	Session    *SessionView `json:"session,omitempty"`
	Totals     *TotalsView  `json:"totals,omitempty"`
}

// Status reports the caller's attendance state for today. An unlinked
// principal gets linked:false with status 200; it is a reportable
// condition, not a failure.
func (h *Handler) Status(c *gin.Context) {
	p, err := rbac.RequirePrincipal(c.Request.Context())
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	emp, err := h.employees.ResolveByPrincipal(c.Request.Context(), p.UserID, p.Email)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	if emp == nil {
		c.JSON(http.StatusOK, statusResponse{Linked: false, State: "OFF"})
		return
	}

	st, err := h.engine.CurrentStatus(c.Request.Context(), emp.ID)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	resp := statusResponse{Linked: true, EmployeeID: emp.ID, State: "OFF"}
	if st.HasSession {
		totals := NewTotalsView(st.Totals)
		resp.State = string(st.Session.State)
		resp.Session = NewSessionView(st.Session)
		resp.Totals = &totals
	}
	c.JSON(http.StatusOK, resp)
}

// History returns the caller's sessions over an inclusive ?from=&to=
// day range, newest day first.
func (h *Handler) History(c *gin.Context) {
	emp, err := h.resolveEmployee(c)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	from, to := c.Query("from"), c.Query("to")
	if _, err := time.Parse(dayKeyLayout, from); err != nil {
		respond.ValidationError(c, "from must be a date formatted YYYY-MM-DD")
		return
	}
	if _, err := time.Parse(dayKeyLayout, to); err != nil {
		respond.ValidationError(c, "to must be a date formatted YYYY-MM-DD")
		return
	}
	if from > to {
		respond.ValidationError(c, "from must not be after to")
		return
	}

	entries, err := h.engine.History(c.Request.Context(), emp.ID, from, to)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	out := make([]StatusEntryView, len(entries))
	for i, e := range entries {
		out[i] = NewStatusEntryView(e)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// resolveEmployee maps the request principal to an employee, turning an
// unresolvable principal into the not-linked error.
func (h *Handler) resolveEmployee(c *gin.Context) (*employeedomain.Employee, error) {
	p, err := rbac.RequirePrincipal(c.Request.Context())
	if err != nil {
		return nil, err
	}
	emp, err := h.employees.ResolveByPrincipal(c.Request.Context(), p.UserID, p.Email)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, domain.NotLinked("no employee profile is linked to this account")
	}
	return emp, nil
}
