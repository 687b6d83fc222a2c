package session

import (
	"time"

	"github.com/viant/wtr/internal/clock"
	"github.com/viant/wtr/internal/idgen"
)

// Session represents one attempt to run one test file in one launcher.
type Session struct {
	ID          string        `json:"id"`
	Seq         uint64        `json:"seq"`
	TestFile    string        `json:"testFile"`
	LauncherID  string        `json:"launcherId"`
	Status      Status        `json:"status"`
	RetryCount  int           `json:"retryCount"`
	Supersedes  string        `json:"supersedes,omitempty"`
	UserAgent   string        `json:"userAgent,omitempty"`
	Passed      *bool         `json:"passed,omitempty"`
	FailureKind ErrorKind     `json:"failureKind,omitempty"`
	TestResults []*TestResult `json:"testResults,omitempty"`
	Errors      []*Error      `json:"errors,omitempty"`
	Logs        []*LogEntry   `json:"logs,omitempty"`
	Summary     *Summary      `json:"summary,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	FinishedAt  *time.Time    `json:"finishedAt,omitempty"`
}

// TestResult is the outcome of an individual test.
type TestResult struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    *Error        `json:"error,omitempty"`
}

// Failed reports whether the test ran and did not pass.
func (r *TestResult) Failed() bool {
	return r != nil && !r.Passed && !r.Skipped
}

// LogEntry is a console message captured from the browser.
type LogEntry struct {
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Summary is computed once all tests of the file completed.
type Summary struct {
	Passed    int  `json:"passed"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
	HadErrors bool `json:"hadErrors"`
}

// New creates a SCHEDULED session for the (file, launcher) pair.
func New(testFile, launcherID string, retryCount int) *Session {
	return &Session{
		ID:         idgen.New(),
		TestFile:   testFile,
		LauncherID: launcherID,
		Status:     StatusScheduled,
		RetryCount: retryCount,
		CreatedAt:  clock.Now(),
	}
}

// Key identifies the (file, launcher) pair a session belongs to.
func (s *Session) Key() Key {
	return Key{TestFile: s.TestFile, LauncherID: s.LauncherID}
}

// Key is a (file, launcher) pair.
type Key struct {
	TestFile   string
	LauncherID string
}

// IsTerminal reports whether the session reached a terminal status.
func (s *Session) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// Failure returns the first fatal error, if any.
func (s *Session) Failure() *Error {
	if len(s.Errors) == 0 {
		return nil
	}
	return s.Errors[0]
}

// ComputeSummary derives the summary from the recorded results and errors.
func (s *Session) ComputeSummary() *Summary {
	ret := &Summary{HadErrors: len(s.Errors) > 0}
	for _, result := range s.TestResults {
		switch {
		case result.Skipped:
			ret.Skipped++
		case result.Passed:
			ret.Passed++
		default:
			ret.Failed++
		}
	}
	return ret
}

// Succeeded reports whether the harness verdict and the recorded results
// allow the session to finish successfully.
func (s *Session) Succeeded() bool {
	if len(s.Errors) > 0 {
		return false
	}
	if s.Passed != nil && !*s.Passed {
		return false
	}
	for _, result := range s.TestResults {
		if result.Failed() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers cannot mutate store state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Passed != nil {
		passed := *s.Passed
		clone.Passed = &passed
	}
	if s.Summary != nil {
		summary := *s.Summary
		clone.Summary = &summary
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		clone.StartedAt = &t
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		clone.FinishedAt = &t
	}
	// Elements are append-only and never mutated after append.
	clone.TestResults = append([]*TestResult(nil), s.TestResults...)
	clone.Errors = append([]*Error(nil), s.Errors...)
	clone.Logs = append([]*LogEntry(nil), s.Logs...)
	return &clone
}
