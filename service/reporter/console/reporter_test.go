package console

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/orchestrator"
)

func sampleSummary() *orchestrator.Summary {
	passed := session.New("a.test.js", "chromium", 0)
	passed.Status = session.StatusFinished
	passed.TestResults = []*session.TestResult{{Name: "a > works", Passed: true}}

	failed := session.New("b.test.js", "firefox", 1)
	failed.Status = session.StatusFailed
	failed.TestResults = []*session.TestResult{
		{Name: "b > breaks", Error: &session.Error{Message: "expected 1 to equal 2"}},
		{Name: "b > later", Skipped: true},
	}

	timedOut := session.New("c.test.js", "chromium", 0)
	timedOut.Status = session.StatusFailed
	timedOut.Errors = []*session.Error{session.NewError(session.KindBrowserStartTimeout, "browser did not start within 100ms")}

	latest := map[session.Key]*session.Session{}
	for i, s := range []*session.Session{passed, failed, timedOut} {
		s.Seq = uint64(i + 1)
		latest[s.Key()] = s
	}
	started := time.Now().Add(-2 * time.Second)
	ret := orchestrator.NewSummary("run-1", latest, started, started.Add(1500*time.Millisecond))
	ret.Cycle = 2
	return ret
}

func TestReporter_Report(t *testing.T) {
	var out bytes.Buffer
	srv := New(WithWriter(&out))
	assert.Equal(t, Name, srv.Name())
	require.NoError(t, srv.Report(context.Background(), sampleSummary()))

	text := out.String()
	assert.Contains(t, text, "Run run-1")
	assert.Contains(t, text, "cycle 2")
	assert.Contains(t, text, "b.test.js [firefox]")
	assert.Contains(t, text, "retry 1")
	assert.Contains(t, text, "b > breaks")
	assert.Contains(t, text, "expected 1 to equal 2")
	assert.NotContains(t, text, "b > later")
	assert.Contains(t, text, "BrowserStartTimeout: browser did not start within 100ms")
	assert.NotContains(t, text, "a.test.js [chromium]")
	assert.Contains(t, text, "1 passed")
	assert.Contains(t, text, "2 failed")
	assert.Contains(t, text, "(3 total)")
	assert.Contains(t, text, "1 skipped")
	assert.Contains(t, text, "1.5s")
	assert.NotContains(t, text, "stopped before completion")
}

func TestReporter_ReportSession(t *testing.T) {
	aSession := session.New("a.test.js", "chromium", 0)
	aSession.Status = session.StatusStopped

	var quiet bytes.Buffer
	require.NoError(t, New(WithWriter(&quiet)).ReportSession(context.Background(), aSession))
	assert.Empty(t, quiet.String())

	var verbose bytes.Buffer
	srv := New(WithWriter(&verbose), WithSessions(true))
	require.NoError(t, srv.ReportSession(context.Background(), aSession))
	assert.Contains(t, verbose.String(), "a.test.js [chromium]")
	assert.Contains(t, verbose.String(), "stopped")
}

func TestReporter_ReportNil(t *testing.T) {
	var out bytes.Buffer
	assert.NoError(t, New(WithWriter(&out)).Report(context.Background(), nil))
	assert.Empty(t, out.String())
}
