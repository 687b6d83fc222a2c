package wtr

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/viant/wtr/progress"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/dao"
	"github.com/viant/wtr/service/event"
	"github.com/viant/wtr/service/event/nats"
	"github.com/viant/wtr/service/orchestrator"
	"github.com/viant/wtr/service/reporter"
	"github.com/viant/wtr/service/store"
	"github.com/viant/wtr/service/watch"
)

var (
	// ErrNoTestFiles is returned when the file patterns match nothing.
	ErrNoTestFiles = errors.New("no test files found")
	// ErrWatchDisabled is returned by Changed when watch mode is off.
	ErrWatchDisabled = errors.New("watch mode is disabled")
)

// Runtime runs one set of test files across the configured browsers.
type Runtime struct {
	config       *Config
	orchestrator *orchestrator.Service
	bridge       *reporter.Bridge
	events       *event.Service
	history      dao.Service[string, session.Session]
	graph        watch.Graph
	publisher    nats.Publisher
	logger       *log.Logger

	mux        sync.Mutex
	files      []string
	forwarder  *nats.Forwarder
	controller *watch.Controller
	source     *watch.FSSource
	cancel     context.CancelFunc
}

func newRuntime(s *Service) *Runtime {
	orchestratorService := orchestrator.New(
		orchestrator.WithConfig(s.config.OrchestratorConfig()),
		orchestrator.WithRegistry(s.registry),
		orchestrator.WithEvents(s.events),
		orchestrator.WithHistory(s.history),
		orchestrator.WithLogger(s.logger),
	)
	return &Runtime{
		config:       s.config,
		orchestrator: orchestratorService,
		bridge:       reporter.NewBridge(s.reporters, reporter.WithLogger(s.logger)),
		events:       s.events,
		history:      s.history,
		graph:        s.graph,
		publisher:    s.natsPublisher,
		logger:       s.logger,
	}
}

// Start resolves the test files, starts the browsers and begins scheduling.
// In watch mode file changes rerun the affected test files.
func (r *Runtime) Start(ctx context.Context) error {
	files, err := ResolveFiles(r.config.Files...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: %v", ErrNoTestFiles, r.config.Files)
	}
	r.mux.Lock()
	r.files = files
	r.mux.Unlock()

	r.bridge.Attach(r.events)
	if r.publisher != nil {
		forwarder := nats.New(r.events, r.publisher, nats.WithSubjectPrefix(r.config.NatsSubjectPrefix), nats.WithLogger(r.logger))
		nats.Forward[*session.Session](forwarder)
		nats.Forward[*orchestrator.Summary](forwarder)
		r.mux.Lock()
		r.forwarder = forwarder
		r.mux.Unlock()
	}
	run := &orchestrator.Run{Files: files, Launchers: r.config.BrowserNames()}
	if err = r.orchestrator.Start(ctx, run); err != nil {
		r.detach(ctx)
		return err
	}
	if r.config.Watch {
		if err = r.startWatch(files); err != nil {
			_ = r.Stop(ctx)
			return err
		}
	}
	return nil
}

func (r *Runtime) startWatch(files []string) error {
	watchCtx, cancel := context.WithCancel(context.Background())
	controller := watch.New(r.orchestrator,
		watch.WithGraph(r.graph),
		watch.WithTestFiles(files...),
		watch.WithLogger(r.logger),
	)
	source, err := watch.NewFSSource(func(paths []string) { controller.Notify(paths...) },
		watch.WithDebounce(millis(r.config.WatchDebounce)),
		watch.WithFSLogger(r.logger),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err = source.Add(r.watchRoots(files)...); err != nil {
		cancel()
		_ = source.Close()
		return fmt.Errorf("failed to watch files: %w", err)
	}
	controller.Start(watchCtx)
	source.Start(watchCtx)
	r.mux.Lock()
	r.controller, r.source, r.cancel = controller, source, cancel
	r.mux.Unlock()
	r.logger.Info("watching for changes", "files", len(files))
	return nil
}

func (r *Runtime) watchRoots(files []string) []string {
	if len(r.config.WatchRoots) > 0 {
		return r.config.WatchRoots
	}
	unique := map[string]bool{}
	for _, file := range files {
		unique[filepath.Dir(file)] = true
	}
	ret := make([]string, 0, len(unique))
	for dir := range unique {
		ret = append(ret, dir)
	}
	sort.Strings(ret)
	return ret
}

// Stop stops watching, cancels every pending session and stops the browsers.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mux.Lock()
	source, controller, cancel := r.source, r.controller, r.cancel
	r.source, r.controller, r.cancel = nil, nil, nil
	r.mux.Unlock()
	if source != nil {
		_ = source.Close()
	}
	if controller != nil {
		controller.Stop()
	}
	if cancel != nil {
		cancel()
	}
	err := r.orchestrator.Stop(ctx)
	r.detach(ctx)
	return err
}

func (r *Runtime) detach(ctx context.Context) {
	r.bridge.Detach()
	r.mux.Lock()
	forwarder := r.forwarder
	r.forwarder = nil
	r.mux.Unlock()
	if forwarder != nil {
		drainCtx, cancel := context.WithTimeout(ctx, r.orchestratorConfig().TeardownTimeout)
		defer cancel()
		forwarder.Close(drainCtx)
	}
}

func (r *Runtime) orchestratorConfig() orchestrator.Config {
	return r.config.OrchestratorConfig()
}

// Wait blocks until the current cycle completed, its history was written and
// it was reported. An interrupted run returns its summary without reports.
func (r *Runtime) Wait(ctx context.Context) (*orchestrator.Summary, error) {
	summary, err := r.orchestrator.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if err = r.orchestrator.Flush(ctx); err != nil {
		return summary, err
	}
	if summary.Interrupted {
		return summary, nil
	}
	if err = r.bridge.Wait(ctx, summary.Cycle); err != nil {
		return summary, err
	}
	return summary, nil
}

// Run starts, waits for the first cycle and stops.
func (r *Runtime) Run(ctx context.Context) (*orchestrator.Summary, error) {
	if err := r.Start(ctx); err != nil {
		return nil, err
	}
	summary, err := r.Wait(ctx)
	if stopErr := r.Stop(context.Background()); err == nil {
		err = stopErr
	}
	return summary, err
}

// Rerun supersedes the sessions of files.
func (r *Runtime) Rerun(ctx context.Context, files []string) ([]*session.Session, error) {
	return r.orchestrator.Rerun(ctx, files)
}

// Changed reports changed paths to the watch controller.
func (r *Runtime) Changed(paths ...string) error {
	r.mux.Lock()
	controller := r.controller
	r.mux.Unlock()
	if controller == nil {
		return ErrWatchDisabled
	}
	controller.Notify(paths...)
	return nil
}

// Files returns the resolved test files.
func (r *Runtime) Files() []string {
	r.mux.Lock()
	defer r.mux.Unlock()
	return append([]string(nil), r.files...)
}

// Sessions returns a snapshot of the sessions matching filter.
func (r *Runtime) Sessions(filter *store.Filter) []*session.Session {
	return r.orchestrator.Sessions(filter)
}

// Session returns a session snapshot.
func (r *Runtime) Session(id string) (*session.Session, bool) {
	return r.orchestrator.Session(id)
}

// Summary returns the summary of the current state.
func (r *Runtime) Summary() *orchestrator.Summary {
	return r.orchestrator.Summary()
}

// Progress returns run progress counters.
func (r *Runtime) Progress() progress.Progress {
	return r.orchestrator.Progress()
}

// RunID returns the current run id.
func (r *Runtime) RunID() string {
	return r.orchestrator.RunID()
}

// Health reports launcher liveness and slot usage.
func (r *Runtime) Health() *orchestrator.Health {
	return r.orchestrator.Health()
}

// History lists persisted session snapshots.
func (r *Runtime) History(ctx context.Context, parameters ...*dao.Parameter) ([]*session.Session, error) {
	return r.history.List(ctx, parameters...)
}

// Orchestrator returns the underlying orchestrator.
func (r *Runtime) Orchestrator() *orchestrator.Service {
	return r.orchestrator
}
