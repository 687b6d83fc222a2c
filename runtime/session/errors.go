package session

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a session failed.
type ErrorKind string

const (
	KindBrowserStartTimeout    ErrorKind = "BrowserStartTimeout"
	KindTestsStartTimeout      ErrorKind = "TestsStartTimeout"
	KindTestsFinishTimeout     ErrorKind = "TestsFinishTimeout"
	KindLauncherStartError     ErrorKind = "LauncherStartError"
	KindSessionProtocolError   ErrorKind = "SessionProtocolError"
	KindHarnessReportedFailure ErrorKind = "HarnessReportedFailure"
	KindSessionStartError      ErrorKind = "SessionStartError"
	KindSessionError           ErrorKind = "SessionError"
)

// IsTimeout reports whether the kind is one of the supervised timeouts.
func (k ErrorKind) IsTimeout() bool {
	switch k {
	case KindBrowserStartTimeout, KindTestsStartTimeout, KindTestsFinishTimeout:
		return true
	}
	return false
}

// ErrInvalidTransition is matched by every *InvalidTransitionError.
var ErrInvalidTransition = errors.New("invalid session transition")

// InvalidTransitionError is returned when a transition is attempted from or
// to an incompatible status. The store is never mutated when it occurs.
type InvalidTransitionError struct {
	SessionID string
	From      Status
	To        Status
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid session transition %s: %s -> %s (%s)", e.SessionID, e.From, e.To, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidTransition) work.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Error is a fatal error recorded on a session.
type Error struct {
	Kind    ErrorKind `json:"kind" yaml:"kind"`
	Message string    `json:"message" yaml:"message"`
	Stack   string    `json:"stack,omitempty" yaml:"stack,omitempty"`
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Kind) + ": " + e.Message
}
