package orchestrator

import (
	"sort"
	"time"

	"github.com/viant/wtr/runtime/session"
)

// Counts aggregates session outcomes.
type Counts struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Stopped int `json:"stopped"`
}

func (c *Counts) add(s *session.Session) {
	c.Total++
	switch s.Status {
	case session.StatusFinished:
		c.Passed++
	case session.StatusFailed:
		c.Failed++
	case session.StatusStopped:
		c.Stopped++
	}
}

// TestCounts aggregates individual test outcomes.
type TestCounts struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Summary describes the current attempt of every (file, launcher) pair.
type Summary struct {
	Counts

	RunID       string             `json:"runId"`
	Cycle       int                `json:"cycle"`
	PerFile     map[string]*Counts `json:"perFile"`
	PerLauncher map[string]*Counts `json:"perLauncher"`
	Tests       TestCounts         `json:"tests"`
	StartedAt   time.Time          `json:"startedAt"`
	Duration    time.Duration      `json:"duration"`
	Sessions    []*session.Session `json:"sessions,omitempty"`

	// Interrupted is set when the run was stopped before completing.
	Interrupted bool `json:"interrupted,omitempty"`
}

// Success reports whether no current session failed and none is pending.
func (s *Summary) Success() bool {
	return s != nil && s.Failed == 0 && s.Passed+s.Stopped == s.Total
}

// HasFailures reports whether any current session failed.
func (s *Summary) HasFailures() bool {
	return s != nil && s.Failed > 0
}

// NewSummary aggregates the latest session of every (file, launcher) pair.
func NewSummary(runID string, latest map[session.Key]*session.Session, startedAt, now time.Time) *Summary {
	ret := &Summary{
		RunID:       runID,
		PerFile:     map[string]*Counts{},
		PerLauncher: map[string]*Counts{},
		StartedAt:   startedAt,
	}
	if !startedAt.IsZero() {
		ret.Duration = now.Sub(startedAt)
	}
	for _, s := range latest {
		ret.Sessions = append(ret.Sessions, s)
	}
	sort.Slice(ret.Sessions, func(i, j int) bool { return ret.Sessions[i].Seq < ret.Sessions[j].Seq })
	for _, s := range ret.Sessions {
		ret.Counts.add(s)
		counts(ret.PerFile, s.TestFile).add(s)
		counts(ret.PerLauncher, s.LauncherID).add(s)
		for _, result := range s.TestResults {
			switch {
			case result.Skipped:
				ret.Tests.Skipped++
			case result.Passed:
				ret.Tests.Passed++
			default:
				ret.Tests.Failed++
			}
		}
	}
	return ret
}

func counts(m map[string]*Counts, key string) *Counts {
	ret, ok := m[key]
	if !ok {
		ret = &Counts{}
		m[key] = ret
	}
	return ret
}
