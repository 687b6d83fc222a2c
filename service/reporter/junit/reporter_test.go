package junit

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/orchestrator"
)

func sampleSummary() *orchestrator.Summary {
	chromium := session.New("test/a.test.js", "chromium", 0)
	chromium.Status = session.StatusFailed
	chromium.UserAgent = "Chrome/120"
	chromium.TestResults = []*session.TestResult{
		{Name: "math > adds", Passed: true, Duration: 250 * time.Millisecond},
		{Name: "math > nested > divides", Duration: 500 * time.Millisecond, Error: &session.Error{
			Message: "expected 2\x00 to equal 3",
			Stack:   "AssertionError: expected 2 to equal 3\n    at a.test.js:10",
		}},
		{Name: "skips", Skipped: true},
	}
	chromium.Logs = []*session.LogEntry{{Message: "hello\x1b from page"}}

	firefox := session.New("test/a.test.js", "firefox", 0)
	firefox.Status = session.StatusFailed
	firefox.Errors = []*session.Error{session.NewError(session.KindTestsFinishTimeout, "tests did not finish within 20s")}

	latest := map[session.Key]*session.Session{}
	for i, s := range []*session.Session{firefox, chromium} {
		s.Seq = uint64(i + 1)
		latest[s.Key()] = s
	}
	now := time.Now()
	return orchestrator.NewSummary("run-1", latest, now, now)
}

func TestMarshal(t *testing.T) {
	data, err := Marshal(sampleSummary())
	require.NoError(t, err)
	text := string(data)
	assert.True(t, len(text) > len(xml.Header))
	assert.Equal(t, xml.Header, text[:len(xml.Header)])
	assert.NotContains(t, text, "\x00")
	assert.NotContains(t, text, "\x1b")

	doc := &testSuites{}
	require.NoError(t, xml.Unmarshal(data, doc))
	require.Len(t, doc.Suites, 2)

	chromium := doc.Suites[0]
	assert.Equal(t, "chromium", chromium.Name)
	assert.Equal(t, 0, chromium.ID)
	assert.Equal(t, 3, chromium.Tests)
	assert.Equal(t, 1, chromium.Skipped)
	assert.Equal(t, 1, chromium.Failures)
	assert.Equal(t, 1, chromium.Errors)
	assert.Equal(t, "0.75", chromium.Time)
	require.Len(t, chromium.Properties, 1)
	assert.Equal(t, "browserName", chromium.Properties[0].Name)
	assert.Equal(t, "Chrome/120", chromium.Properties[0].Value)
	require.NotNil(t, chromium.SystemOut)
	assert.Contains(t, chromium.SystemOut.Text, "chromium hello from page")

	require.Len(t, chromium.Cases, 3)
	assert.Equal(t, "adds", chromium.Cases[0].Name)
	assert.Equal(t, "math", chromium.Cases[0].Classname)
	assert.Equal(t, "0.25", chromium.Cases[0].Time)
	assert.Nil(t, chromium.Cases[0].Failure)

	divides := chromium.Cases[1]
	assert.Equal(t, "divides", divides.Name)
	assert.Equal(t, "math nested", divides.Classname)
	require.NotNil(t, divides.Failure)
	assert.Equal(t, "AssertionError", divides.Failure.Type)
	assert.Equal(t, "expected 2 to equal 3", divides.Failure.Message)
	assert.Contains(t, divides.Failure.Text, "at a.test.js:10")

	assert.Equal(t, "skips", chromium.Cases[2].Name)
	assert.Equal(t, "", chromium.Cases[2].Classname)
	assert.NotNil(t, chromium.Cases[2].Skipped)

	firefox := doc.Suites[1]
	assert.Equal(t, "firefox", firefox.Name)
	assert.Equal(t, 1, firefox.ID)
	assert.Equal(t, 1, firefox.Tests)
	assert.Equal(t, 1, firefox.Failures)
	require.Len(t, firefox.Cases, 1)
	assert.Equal(t, "test/a.test.js", firefox.Cases[0].Name)
	require.NotNil(t, firefox.Cases[0].Failure)
	assert.Equal(t, string(session.KindTestsFinishTimeout), firefox.Cases[0].Failure.Type)
	assert.Nil(t, firefox.SystemOut)
}

func TestReporter_Report(t *testing.T) {
	output := filepath.Join(t.TempDir(), "reports", "results.xml")
	srv := New(WithOutput(output))
	assert.Equal(t, Name, srv.Name())
	assert.Equal(t, output, srv.Output())
	assert.Equal(t, DefaultOutput, New().Output())

	require.NoError(t, srv.Report(context.Background(), sampleSummary()))
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<testsuite name="chromium"`)
	assert.Contains(t, string(data), `<testcase name="adds" classname="math"`)
	assert.NoError(t, srv.Report(context.Background(), nil))
}
