// Package watch turns file change batches into scoped reruns. A changed
// path affects every test file that is the path itself or transitively
// depends on it.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/viant/wtr/internal/logger"
	"github.com/viant/wtr/runtime/session"
)

// Rerunner supersedes the sessions of the given test files.
type Rerunner interface {
	Rerun(ctx context.Context, files []string) ([]*session.Session, error)
}

// Controller coalesces change notifications and reruns the affected test
// files. Pending paths are merged and the affected set is computed when the
// worker drains them.
type Controller struct {
	rerunner Rerunner
	graph    Graph
	logger   *log.Logger
	onRerun  func(files []string, sessions []*session.Session)

	mux       sync.Mutex
	testFiles map[string]bool
	pending   map[string]struct{}
	signal    chan struct{}
	started   bool
	stopCh    chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// Option customises the controller.
type Option func(c *Controller)

// WithGraph sets the dependency graph.
func WithGraph(graph Graph) Option {
	return func(c *Controller) { c.graph = graph }
}

// WithTestFiles registers the known test files.
func WithTestFiles(files ...string) Option {
	return func(c *Controller) {
		for _, file := range files {
			c.testFiles[filepath.Clean(file)] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithRerunListener is called after every rerun.
func WithRerunListener(fn func(files []string, sessions []*session.Session)) Option {
	return func(c *Controller) { c.onRerun = fn }
}

// New creates a controller.
func New(rerunner Rerunner, opts ...Option) *Controller {
	ret := &Controller{
		rerunner:  rerunner,
		testFiles: map[string]bool{},
		pending:   map[string]struct{}{},
		signal:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.logger = logger.Or(ret.logger)
	return ret
}

// AddTestFiles registers additional test files.
func (c *Controller) AddTestFiles(files ...string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	for _, file := range files {
		c.testFiles[filepath.Clean(file)] = true
	}
}

// Notify queues changed paths; it never blocks.
func (c *Controller) Notify(paths ...string) {
	if len(paths) == 0 {
		return
	}
	c.mux.Lock()
	for _, path := range paths {
		c.pending[filepath.Clean(path)] = struct{}{}
	}
	c.mux.Unlock()
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// Affected returns the sorted test files affected by the changed paths.
func (c *Controller) Affected(paths []string) []string {
	c.mux.Lock()
	defer c.mux.Unlock()
	affected := map[string]bool{}
	for _, path := range paths {
		path = filepath.Clean(path)
		if c.testFiles[path] {
			affected[path] = true
		}
		if c.graph == nil {
			continue
		}
		for _, dependent := range c.graph.Dependents(path) {
			if c.testFiles[dependent] {
				affected[dependent] = true
			}
		}
	}
	ret := make([]string, 0, len(affected))
	for file := range affected {
		ret = append(ret, file)
	}
	sort.Strings(ret)
	return ret
}

// Start runs the worker until Stop or ctx cancellation.
func (c *Controller) Start(ctx context.Context) {
	c.mux.Lock()
	if c.started {
		c.mux.Unlock()
		return
	}
	c.started = true
	c.mux.Unlock()
	go c.run(ctx)
}

// Stop terminates the worker; safe to call multiple times.
func (c *Controller) Stop() {
	c.mux.Lock()
	started := c.started
	c.mux.Unlock()
	c.stopOnce.Do(func() { close(c.stopCh) })
	if started {
		<-c.done
	}
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-c.signal:
			c.drain(ctx)
		}
	}
}

func (c *Controller) drain(ctx context.Context) {
	c.mux.Lock()
	paths := make([]string, 0, len(c.pending))
	for path := range c.pending {
		paths = append(paths, path)
	}
	c.pending = map[string]struct{}{}
	c.mux.Unlock()
	if len(paths) == 0 {
		return
	}
	files := c.Affected(paths)
	if len(files) == 0 {
		c.logger.Debug("change affects no test file", "paths", len(paths))
		return
	}
	sessions, err := c.rerunner.Rerun(ctx, files)
	if err != nil {
		c.logger.Warn("rerun failed", "files", len(files), "err", err)
		return
	}
	c.logger.Info("rerunning affected test files", "files", len(files), "sessions", len(sessions))
	if c.onRerun != nil {
		c.onRerun(files, sessions)
	}
}
