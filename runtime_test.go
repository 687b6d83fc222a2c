package wtr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/wtr/internal/logger"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/dao"
	"github.com/viant/wtr/service/launcher/memory"
	"github.com/viant/wtr/service/orchestrator"
	"github.com/viant/wtr/service/store"
)

type publishedMessage struct {
	subject string
	data    []byte
}

type fakeNats struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (f *fakeNats) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, publishedMessage{subject: subject, data: data})
	return nil
}

func (f *fakeNats) subjects() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	ret := map[string]int{}
	for _, message := range f.messages {
		ret[message.subject]++
	}
	return ret
}

func testConfig(t *testing.T, root string) *Config {
	config := DefaultConfig()
	config.Concurrency = 2
	config.Files = []string{filepath.Join(root, "*.test.js")}
	config.Reporters = []string{"junit"}
	config.JUnitOutput = filepath.Join(root, "out", "results.xml")
	config.BrowserStartTimeout = 2000
	config.TestsStartTimeout = 2000
	config.TestsFinishTimeout = 2000
	return config
}

func TestRuntime_Run(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	root := t.TempDir()
	writeFiles(t, root, "a.test.js", "b.test.js", "helper.js")

	config := testConfig(t, root)
	config.Browsers = []*BrowserConfig{{Name: "simulated-chromium", Concurrency: 2}, {Name: "simulated-firefox"}}
	publisher := &fakeNats{}
	srv, err := New(ctx, WithConfig(config), WithLogger(logger.Discard()), WithNatsPublisher(publisher))
	require.NoError(t, err)
	defer srv.Close(context.Background())
	assert.Equal(t, []string{"simulated-chromium", "simulated-firefox"}, srv.Registry().Names())

	rt := srv.Runtime()
	summary, err := rt.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 4, summary.Passed)
	assert.True(t, summary.Success())
	assert.Equal(t, 2, summary.PerFile[filepath.Join(root, "a.test.js")].Passed)
	assert.Equal(t, 2, summary.PerLauncher["simulated-chromium"].Total)
	assert.Equal(t, []string{filepath.Join(root, "a.test.js"), filepath.Join(root, "b.test.js")}, rt.Files())

	report, err := os.ReadFile(config.JUnitOutput)
	require.NoError(t, err)
	assert.Contains(t, string(report), `<testsuite name="simulated-chromium"`)
	assert.Contains(t, string(report), `<testsuite name="simulated-firefox"`)

	finished := rt.Sessions(&store.Filter{Statuses: []session.Status{session.StatusFinished}})
	assert.Len(t, finished, 4)
	history, err := rt.History(ctx, dao.NewParameter(dao.ParamLauncherID, "simulated-firefox"))
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 4, rt.Progress().FinishedSessions)

	assert.Eventually(t, func() bool {
		subjects := publisher.subjects()
		return subjects["wtr.run-finished"] == 1 && subjects["wtr.session-status-updated"] > 0
	}, time.Second, 10*time.Millisecond)
}

func TestRuntime_Failures(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	root := t.TempDir()
	writeFiles(t, root, "a.test.js", "b.test.js")

	failing := &memory.Script{Tests: []memory.Test{{Name: "suite > breaks", Error: "expected true"}}}
	chromium := memory.New("chromium", memory.WithScript(filepath.Join(root, "b.test.js"), failing))
	config := testConfig(t, root)
	config.Browsers = []*BrowserConfig{{Name: "chromium"}}
	srv, err := New(ctx, WithConfig(config), WithLaunchers(chromium), WithLogger(logger.Discard()))
	require.NoError(t, err)
	defer srv.Close(context.Background())

	summary, err := srv.Runtime().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.HasFailures())
	assert.Equal(t, 1, summary.Tests.Failed)

	report, err := os.ReadFile(config.JUnitOutput)
	require.NoError(t, err)
	assert.Contains(t, string(report), `<testcase name="breaks" classname="suite"`)
}

func TestRuntime_Watch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	root := t.TempDir()
	writeFiles(t, root, "a.test.js", "b.test.js", "shared.js")
	a, b := filepath.Join(root, "a.test.js"), filepath.Join(root, "b.test.js")

	config := testConfig(t, root)
	config.Watch = true
	config.WatchDebounce = 20
	config.Browsers = []*BrowserConfig{{Name: "simulated"}}
	srv, err := New(ctx, WithConfig(config), WithLogger(logger.Discard()))
	require.NoError(t, err)
	defer srv.Close(context.Background())

	rt := srv.Runtime()
	require.NoError(t, rt.Start(ctx))
	first, err := rt.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Cycle)
	assert.Equal(t, 2, first.Passed)

	require.NoError(t, rt.Changed(a))
	assert.Eventually(t, func() bool {
		summary := rt.Summary()
		return summary.Cycle == 2 && summary.Passed == 2
	}, 2*time.Second, 10*time.Millisecond)

	second, err := rt.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Cycle)
	for _, aSession := range second.Sessions {
		switch aSession.TestFile {
		case a:
			assert.Equal(t, 1, aSession.RetryCount)
		case b:
			assert.Equal(t, 0, aSession.RetryCount)
		}
	}
	assert.Len(t, rt.Sessions(&store.Filter{TestFile: a}), 2)
	assert.Len(t, rt.Sessions(&store.Filter{TestFile: b}), 1)

	require.NoError(t, rt.Stop(ctx))
	require.NoError(t, rt.Stop(ctx))
}

func TestRuntime_Errors(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	config := testConfig(t, root)
	config.Browsers = []*BrowserConfig{{Name: "webkit"}}
	_, err := New(ctx, WithConfig(config), WithLogger(logger.Discard()))
	assert.True(t, errors.Is(err, ErrUnknownBrowser))

	config = testConfig(t, root)
	config.Concurrency = 0
	_, err = New(ctx, WithConfig(config), WithLogger(logger.Discard()))
	assert.Error(t, err)

	config = testConfig(t, root)
	config.Browsers = []*BrowserConfig{{Name: "simulated"}}
	srv, err := New(ctx, WithConfig(config), WithLogger(logger.Discard()))
	require.NoError(t, err)
	defer srv.Close(ctx)
	rt := srv.Runtime()
	assert.True(t, errors.Is(rt.Start(ctx), ErrNoTestFiles))
	assert.True(t, errors.Is(rt.Changed("a.test.js"), ErrWatchDisabled))
	_, err = rt.Rerun(ctx, []string{"a.test.js"})
	assert.True(t, errors.Is(err, orchestrator.ErrNotStarted))
}
