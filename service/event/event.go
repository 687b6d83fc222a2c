package event

import "time"

// Event types produced for collaborators.
const (
	TypeSessionStatusUpdated = "session-status-updated"
	TypeRunFinished          = "run-finished"
	TypeRunStopped           = "run-stopped"
)

// Context identifies what an event is about.
type Context struct {
	EventType  string `json:"eventType"`
	RunID      string `json:"runId,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	TestFile   string `json:"testFile,omitempty"`
	LauncherID string `json:"launcherId,omitempty"`
	Status     string `json:"status,omitempty"`
}

// Event is a typed notification.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}

// Type returns the event type or an empty string.
func (e *Event[T]) Type() string {
	if e == nil || e.Context == nil {
		return ""
	}
	return e.Context.EventType
}
