package core

import "fmt"

// SessionStatus is the derived lifecycle state of one generation session.
// Status never changes on its own; every transition is the result of an
// event append (or the explicit begin transition).
type SessionStatus string

const (
	// StatusIdle is the state before generation starts.
	StatusIdle SessionStatus = "idle"

	// StatusGenerating means the pipeline is producing events.
	StatusGenerating SessionStatus = "generating"

	// StatusAwaitingApproval means the pipeline is suspended at the
	// outline checkpoint until the user decides.
	StatusAwaitingApproval SessionStatus = "awaiting_outline_approval"

	// StatusCompleted means the pipeline finished and the artifact (if
	// any) is available.
	StatusCompleted SessionStatus = "completed"

	// StatusError means the pipeline or the transport failed.
	StatusError SessionStatus = "error"

	// StatusCancelled means the user aborted the session.
	StatusCancelled SessionStatus = "cancelled"
)

// Terminal reports whether the status is absorbing: once reached, no
// later event changes it.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// Valid checks if the status is defined.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusGenerating, StatusAwaitingApproval,
		StatusCompleted, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s SessionStatus) String() string {
	return string(s)
}

// ParseSessionStatus converts a string to a SessionStatus with validation.
func ParseSessionStatus(str string) (SessionStatus, error) {
	s := SessionStatus(str)
	if !s.Valid() {
		return "", fmt.Errorf("invalid session status: %s", str)
	}
	return s, nil
}

// Description returns a human-readable description of the status.
func (s SessionStatus) Description() string {
	switch s {
	case StatusIdle:
		return "Ready to generate"
	case StatusGenerating:
		return "Generation in progress"
	case StatusAwaitingApproval:
		return "Waiting for outline approval"
	case StatusCompleted:
		return "Generation completed"
	case StatusError:
		return "Generation failed"
	case StatusCancelled:
		return "Generation cancelled"
	default:
		return "Unknown status"
	}
}
