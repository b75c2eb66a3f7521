package domain

import "errors"

// ErrorKind is the closed taxonomy of user-visible engine failures.
type ErrorKind string

const (
	// KindConflict is a state-machine violation: double clock-in, clock-out
	// during an open break, break-start while already on break, break-end
	// with no open break, or any mutation of a closed session. Also raised
	// when a concurrent transition wins the conditional update.
	KindConflict ErrorKind = "CONFLICT"
	// KindNotFound means no session exists for the employee and day.
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindValidation is malformed input, e.g. a correction without a reason.
	KindValidation ErrorKind = "VALIDATION"
	// KindNotLinked means the caller has no resolvable employee profile.
	// Reported, never fatal.
	KindNotLinked ErrorKind = "NOT_LINKED"
)

// Error is a user-visible engine failure carrying its taxonomy kind and
// an actionable message. Handlers map kinds to transport status codes.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Conflict(msg string) error   { return &Error{Kind: KindConflict, Message: msg} }
func NotFound(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }
func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func NotLinked(msg string) error  { return &Error{Kind: KindNotLinked, Message: msg} }

// KindOf returns the taxonomy kind of err and true when err is a domain
// Error; otherwise "", false (internal failure).
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

func IsConflict(err error) bool   { k, ok := KindOf(err); return ok && k == KindConflict }
func IsNotFound(err error) bool   { k, ok := KindOf(err); return ok && k == KindNotFound }
func IsValidation(err error) bool { k, ok := KindOf(err); return ok && k == KindValidation }
func IsNotLinked(err error) bool  { k, ok := KindOf(err); return ok && k == KindNotLinked }
