package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/wtr/internal/logger"
	"github.com/viant/wtr/runtime/session"
)

type recordingRerunner struct {
	mux   sync.Mutex
	calls [][]string
	err   error
	gate  chan struct{}
}

func (r *recordingRerunner) Rerun(_ context.Context, files []string) ([]*session.Session, error) {
	if r.gate != nil {
		<-r.gate
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	r.calls = append(r.calls, files)
	var ret []*session.Session
	for _, file := range files {
		ret = append(ret, session.New(file, "chromium", 1))
	}
	return ret, r.err
}

func (r *recordingRerunner) snapshot() [][]string {
	r.mux.Lock()
	defer r.mux.Unlock()
	return append([][]string(nil), r.calls...)
}

func testGraph() *MemoryGraph {
	graph := NewMemoryGraph()
	graph.AddDependency("test/a.test.js", "src/button.js")
	graph.AddDependency("test/b.test.js", "src/form.js")
	graph.AddDependency("src/form.js", "src/button.js")
	return graph
}

func TestController_Affected(t *testing.T) {
	controller := New(&recordingRerunner{},
		WithGraph(testGraph()),
		WithTestFiles("test/a.test.js", "test/b.test.js", "test/c.test.js"),
		WithLogger(logger.Discard()))

	testCases := []struct {
		name     string
		paths    []string
		expected []string
	}{
		{name: "test file itself", paths: []string{"test/c.test.js"}, expected: []string{"test/c.test.js"}},
		{name: "transitive dependency", paths: []string{"src/button.js"}, expected: []string{"test/a.test.js", "test/b.test.js"}},
		{name: "direct dependency", paths: []string{"./src/form.js"}, expected: []string{"test/b.test.js"}},
		{name: "unrelated", paths: []string{"docs/readme.md"}, expected: []string{}},
		{name: "merged", paths: []string{"src/form.js", "test/c.test.js"}, expected: []string{"test/b.test.js", "test/c.test.js"}},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, controller.Affected(tc.paths), tc.name)
	}

	controller.AddTestFiles("test/d.test.js")
	assert.Equal(t, []string{"test/d.test.js"}, controller.Affected([]string{"test/d.test.js"}))
}

func TestController_Rerun(t *testing.T) {
	rerunner := &recordingRerunner{}
	var mux sync.Mutex
	var observed []string
	controller := New(rerunner,
		WithGraph(testGraph()),
		WithTestFiles("test/a.test.js", "test/b.test.js"),
		WithLogger(logger.Discard()),
		WithRerunListener(func(files []string, sessions []*session.Session) {
			mux.Lock()
			defer mux.Unlock()
			observed = append(observed, files...)
		}))
	controller.Start(context.Background())
	defer controller.Stop()

	controller.Notify("src/form.js")
	assert.Eventually(t, func() bool { return len(rerunner.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, [][]string{{"test/b.test.js"}}, rerunner.snapshot())

	controller.Notify("docs/readme.md")
	controller.Notify()
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, rerunner.snapshot(), 1)

	mux.Lock()
	assert.Equal(t, []string{"test/b.test.js"}, observed)
	mux.Unlock()
}

func TestController_CoalescesBursts(t *testing.T) {
	rerunner := &recordingRerunner{gate: make(chan struct{})}
	controller := New(rerunner,
		WithGraph(testGraph()),
		WithTestFiles("test/a.test.js", "test/b.test.js"),
		WithLogger(logger.Discard()))
	controller.Start(context.Background())

	controller.Notify("test/a.test.js")
	// the worker is blocked inside the first rerun while the burst arrives
	time.Sleep(20 * time.Millisecond)
	controller.Notify("src/form.js")
	controller.Notify("test/b.test.js")
	controller.Notify("src/form.js")
	close(rerunner.gate)

	assert.Eventually(t, func() bool { return len(rerunner.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, [][]string{{"test/a.test.js"}, {"test/b.test.js"}}, rerunner.snapshot())
	controller.Stop()
	controller.Stop()
}

func TestController_RerunError(t *testing.T) {
	rerunner := &recordingRerunner{err: errors.New("run stopped")}
	var called bool
	controller := New(rerunner, WithTestFiles("a.test.js"), WithLogger(logger.Discard()),
		WithRerunListener(func([]string, []*session.Session) { called = true }))
	ctx, cancel := context.WithCancel(context.Background())
	controller.Start(ctx)
	controller.Notify("a.test.js")
	assert.Eventually(t, func() bool { return len(rerunner.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	controller.Stop()
	assert.False(t, called)
}
