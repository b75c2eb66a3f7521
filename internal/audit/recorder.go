package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/carlsburger/GastroCore-sub000/internal/audit/domain"
	auditrepo "github.com/carlsburger/GastroCore-sub000/internal/audit/repository"
)

// SentinelActorID is recorded when no acting principal is known, e.g.
// punches from a hardware terminal.
const SentinelActorID = "_system"

// ActorExtractor returns the acting principal's user id from the request
// context.
type ActorExtractor func(context.Context) string

// Recorder writes one audit record per engine mutation. Record is
// best-effort: failures are logged and do not affect the caller.
type Recorder interface {
	Record(ctx context.Context, employeeID, action, resource, summary, metadata string)
}

// Logger implements Recorder using the audit repository and an optional
// actor extractor.
type Logger struct {
	repo  auditrepo.Repository
	actor ActorExtractor
	log   *logrus.Logger
}

// NewLogger returns a Recorder that persists to repo and uses actor for
// the acting principal. actor may be nil; then SentinelActorID is used.
func NewLogger(repo auditrepo.Repository, actor ActorExtractor, log *logrus.Logger) *Logger {
	return &Logger{repo: repo, actor: actor, log: log}
}

// Record writes one audit log entry. Best-effort: errors are logged and
// not returned.
func (l *Logger) Record(ctx context.Context, employeeID, action, resource, summary, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	actorID := SentinelActorID
	if l.actor != nil {
		if id := l.actor(ctx); id != "" {
			actorID = id
		}
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		EmployeeID: employeeID,
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		Summary:    summary,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil && l.log != nil {
		l.log.WithError(err).WithFields(logrus.Fields{
			"action": action, "resource": resource,
		}).Error("audit record failed")
	}
}
