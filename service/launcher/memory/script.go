package memory

import "time"

// Test describes one simulated test.
type Test struct {
	Name     string
	Passed   bool
	Skipped  bool
	Duration time.Duration
	Error    string
}

// Script drives the behaviour of a simulated session.
type Script struct {
	// StartDelay elapses before session-started is emitted.
	StartDelay time.Duration
	// HangOnStart never emits session-started.
	HangOnStart bool
	// StartError makes StartSession fail synchronously.
	StartError error
	// Crash emits session-error with this message right after starting.
	Crash string
	Tests []Test
	// HangAfterTests never emits session-finished.
	HangAfterTests bool
	// Verdict overrides the harness verdict; by default it is true when no
	// test failed.
	Verdict *bool
	Logs    []string
}

// PassingScript returns a script running the named passing tests.
func PassingScript(names ...string) *Script {
	ret := &Script{}
	for _, name := range names {
		ret.Tests = append(ret.Tests, Test{Name: name, Passed: true})
	}
	return ret
}

func (s *Script) verdict() bool {
	if s.Verdict != nil {
		return *s.Verdict
	}
	for _, test := range s.Tests {
		if !test.Passed && !test.Skipped {
			return false
		}
	}
	return true
}
