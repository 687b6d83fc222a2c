package session

import "fmt"

// Status represents the lifecycle state of a session.
type Status string

const (
	StatusScheduled    Status = "scheduled"
	StatusInitializing Status = "initializing"
	StatusStarting     Status = "starting"
	StatusStarted      Status = "started"
	StatusTestStarted  Status = "testStarted"
	StatusTestFinished Status = "testFinished"
	StatusStopping     Status = "stopping"

	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
	StatusStopped  Status = "stopped"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusScheduled, StatusInitializing, StatusStarting, StatusStarted,
	StatusTestStarted, StatusTestFinished, StatusStopping,
	StatusFinished, StatusFailed, StatusStopped,
}

var allowedTransitions = map[Status]map[Status]struct{}{
	StatusScheduled: {
		StatusInitializing: {},
	},
	StatusInitializing: {
		StatusStarting: {},
	},
	StatusStarting: {
		StatusStarted: {},
	},
	StatusStarted: {
		StatusTestStarted:  {},
		StatusTestFinished: {},
	},
	StatusTestStarted: {
		StatusTestFinished: {},
	},
	StatusTestFinished: {
		StatusStopping: {},
	},
	StatusStopping: {
		StatusFinished: {},
	},
	StatusFinished: {},
	StatusFailed:   {},
	StatusStopped:  {},
}

func init() {
	// FAILED, STOPPED and STOPPING are reachable from every non-terminal state.
	for from, targets := range allowedTransitions {
		if from.IsTerminal() {
			continue
		}
		targets[StatusFailed] = struct{}{}
		targets[StatusStopped] = struct{}{}
		if from != StatusStopping {
			targets[StatusStopping] = struct{}{}
		}
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// HoldsSlot reports whether a session in this status occupies a concurrency
// slot of its launcher.
func (s Status) HoldsSlot() bool {
	switch s {
	case StatusInitializing, StatusStarting, StatusStarted,
		StatusTestStarted, StatusTestFinished, StatusStopping:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	_, ok := allowedTransitions[from][to]
	return ok
}

// ValidateTransition returns *InvalidTransitionError for illegal edges.
func ValidateTransition(id string, from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return &InvalidTransitionError{SessionID: id, From: from, To: to, Reason: "unknown status"}
	}
	if from.IsTerminal() {
		return &InvalidTransitionError{SessionID: id, From: from, To: to, Reason: "session is terminal"}
	}
	if !CanTransition(from, to) {
		return &InvalidTransitionError{SessionID: id, From: from, To: to, Reason: "out of order"}
	}
	return nil
}

func (s Status) String() string { return string(s) }

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if !status.Valid() {
		return "", fmt.Errorf("invalid session status: %q", value)
	}
	return status, nil
}
