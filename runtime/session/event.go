package session

import "time"

// EventType identifies a lifecycle signal.
type EventType string

const (
	EventSessionStarted  EventType = "session-started"
	EventTestStarted     EventType = "test-started"
	EventTestFinished    EventType = "test-finished"
	EventSessionFinished EventType = "session-finished"
	EventSessionError    EventType = "session-error"

	// Internal signals re-entering the same pipeline.
	EventTimeout          EventType = "timeout"
	EventTeardownFinished EventType = "teardown-finished"
	EventStartFailed      EventType = "start-failed"
)

// Event is a lifecycle signal for one session. Launchers emit the public
// types; the orchestrator emits the internal ones.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	// TestName identifies the test for test-started.
	TestName string `json:"testName,omitempty"`
	// Result carries the outcome for test-finished.
	Result *TestResult `json:"result,omitempty"`
	// Results optionally carries all results for session-finished.
	Results []*TestResult `json:"results,omitempty"`
	// Passed is the harness verdict for session-finished.
	Passed    *bool       `json:"passed,omitempty"`
	Error     *Error      `json:"error,omitempty"`
	Logs      []*LogEntry `json:"logs,omitempty"`
	UserAgent string      `json:"userAgent,omitempty"`
	// Kind and Generation identify a timeout firing.
	Kind       ErrorKind `json:"kind,omitempty"`
	Generation uint64    `json:"generation,omitempty"`
	At         time.Time `json:"at"`
}

// Bool returns a pointer to v, used for Passed verdicts.
func Bool(v bool) *bool { return &v }
