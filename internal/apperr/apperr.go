// Package apperr gives every coordinator error a machine-readable Kind (§7),
// built on stdlib error wrapping rather than a third-party errors library —
// no repo in the pack reaches for one for this.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the taxonomy of §7.
type Kind string

const (
	KindTransient       Kind = "transient"
	KindPermanent       Kind = "permanent"
	KindNotFound        Kind = "not_found"
	KindAgentState      Kind = "agent_state"
	KindCyclicPlan      Kind = "cyclic_plan"
	KindSafetyViolation Kind = "safety_violation"
	KindNoSuchAssignment Kind = "no_such_assignment"
	KindDuplicateAgent  Kind = "duplicate_agent"
	KindTimeout         Kind = "timeout"
	KindNonEmptyBoard   Kind = "non_empty_board"
	KindInvalidStatus   Kind = "invalid_status"
)

// Error wraps an underlying cause with a Kind so callers can branch on it
// without string matching.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a Kind-tagged error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf constructs a Kind-tagged error from a format string.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, walking the unwrap chain. Returns
// KindPermanent if err carries no *Error (treat unknown errors as non-retriable).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPermanent
}

// IsTransient reports whether err should be retried per the backoff policy of §7.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }
