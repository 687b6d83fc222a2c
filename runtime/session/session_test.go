package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_ComputeSummary(t *testing.T) {
	s := New("a.test.js", "chromium", 0)
	s.TestResults = []*TestResult{
		{Name: "a > passes", Passed: true},
		{Name: "a > fails", Passed: false, Error: &Error{Message: "expected 1"}},
		{Name: "a > skipped", Skipped: true},
	}
	summary := s.ComputeSummary()
	assert.Equal(t, &Summary{Passed: 1, Failed: 1, Skipped: 1}, summary)
	assert.False(t, s.Succeeded())

	s.TestResults = s.TestResults[:1]
	assert.True(t, s.Succeeded())
	s.Passed = Bool(false)
	assert.False(t, s.Succeeded())
	s.Passed = Bool(true)
	s.Errors = append(s.Errors, NewError(KindSessionError, "crashed"))
	assert.False(t, s.Succeeded())
	assert.True(t, s.ComputeSummary().HadErrors)
	assert.Equal(t, KindSessionError, s.Failure().Kind)
}

func TestSession_Clone(t *testing.T) {
	now := time.Now()
	s := New("a.test.js", "chromium", 2)
	s.StartedAt = &now
	s.Passed = Bool(true)
	s.TestResults = []*TestResult{{Name: "x", Passed: true}}

	clone := s.Clone()
	assert.Equal(t, s.ID, clone.ID)
	assert.Equal(t, 2, clone.RetryCount)

	clone.TestResults = append(clone.TestResults, &TestResult{Name: "y"})
	*clone.Passed = false
	later := now.Add(time.Second)
	*clone.StartedAt = later

	assert.Len(t, s.TestResults, 1)
	assert.True(t, *s.Passed)
	assert.Equal(t, now, *s.StartedAt)
	assert.Nil(t, (*Session)(nil).Clone())
}

func TestNew_UniqueIDs(t *testing.T) {
	a := New("a.test.js", "chromium", 0)
	b := New("a.test.js", "chromium", 0)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, StatusScheduled, a.Status)
	assert.Equal(t, Key{TestFile: "a.test.js", LauncherID: "chromium"}, a.Key())
}
