// Package orchestrator owns the session store, the scheduler and the
// launchers of a run. It applies lifecycle events, supervises timeouts,
// detects completion and exposes the start / stop / rerun control surface.
//
// Every store mutation happens under one control lock. Launcher callbacks,
// timers and teardowns run outside of it and re-enter through a single FIFO
// inbox consumed by one loop, so events of a session apply in delivery order.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/viant/wtr/internal/clock"
	"github.com/viant/wtr/internal/idgen"
	"github.com/viant/wtr/internal/logger"
	"github.com/viant/wtr/progress"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/dao"
	"github.com/viant/wtr/service/event"
	"github.com/viant/wtr/service/launcher"
	"github.com/viant/wtr/service/messaging"
	"github.com/viant/wtr/service/messaging/memory"
	"github.com/viant/wtr/service/scheduler"
	"github.com/viant/wtr/service/store"
	"github.com/viant/wtr/service/timeout"
	"github.com/viant/wtr/tracing"
	"golang.org/x/sync/errgroup"
)

// Run describes what to execute: every file in every launcher.
type Run struct {
	Files []string
	// Launchers names the launchers to use; empty means all registered.
	Launchers []string
}

// Service orchestrates the sessions of one run.
type Service struct {
	config   Config
	registry *launcher.Registry
	events   *event.Service
	history  dao.Service[string, session.Session]
	logger   *log.Logger

	store      *store.Store
	scheduler  *scheduler.Service
	supervisor *timeout.Supervisor
	inbox      *memory.Queue[session.Event]
	tracker    *progress.Progress
	// notifications and writes run outside of the control lock.
	notifications *outbox
	writes        *outbox

	// lifecycle serialises Start, Stop and Rerun; mux guards run state and
	// every store mutation.
	lifecycle sync.Mutex
	mux       sync.Mutex

	runID        string
	cycle        int
	launchers    []string
	startedAt    time.Time
	started      bool
	ready        bool
	stopped      bool
	reported     bool
	done         chan struct{}
	summary      *Summary
	launchErrors map[string]error
	running      map[string]bool

	ctx       context.Context
	cancel    context.CancelFunc
	loopDone  chan struct{}
	teardowns sync.WaitGroup

	cycleCtx  context.Context
	cycleSpan *tracing.Span
	spans     map[string]*tracing.Span
}

// New creates an orchestrator.
func New(opts ...Option) *Service {
	ret := &Service{
		config:       DefaultConfig(),
		registry:     launcher.NewRegistry(),
		done:         make(chan struct{}),
		loopDone:     make(chan struct{}),
		launchErrors: map[string]error{},
		running:      map[string]bool{},
		spans:        map[string]*tracing.Span{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.logger = logger.Or(ret.logger)
	defaults := DefaultConfig()
	if ret.config.Concurrency < 1 {
		ret.config.Concurrency = defaults.Concurrency
	}
	if ret.config.TeardownTimeout <= 0 {
		ret.config.TeardownTimeout = defaults.TeardownTimeout
	}
	if ret.config.QueueBuffer < 1 {
		ret.config.QueueBuffer = defaults.QueueBuffer
	}
	if ret.events == nil {
		ret.events = event.New()
	}
	ret.notifications = newOutbox()
	ret.writes = newOutbox()
	ret.store = store.New(store.WithLogger(ret.logger))
	ret.store.OnChange(ret.onChange)
	if ret.history != nil {
		ret.store.OnChange(ret.persist)
	}
	ret.scheduler = scheduler.New(ret.store, scheduler.Config{Concurrency: ret.config.Concurrency})
	ret.supervisor = timeout.New(ret.timedOut)
	ret.inbox = memory.NewQueue[session.Event](memory.Config{QueueBuffer: ret.config.QueueBuffer})
	ret.ctx, ret.cancel = context.WithCancel(context.Background())
	ret.cycleCtx = ret.ctx
	return ret
}

// Start seeds one session per (file, launcher), starts the launchers
// concurrently and begins scheduling. Sessions of a launcher that fails to
// start are failed with LauncherStartError; the rest of the run proceeds.
func (s *Service) Start(ctx context.Context, run *Run) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mux.Lock()
	if s.stopped {
		s.mux.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mux.Unlock()
		return ErrAlreadyStarted
	}
	names := run.Launchers
	if len(names) == 0 {
		names = s.registry.Names()
	}
	if len(names) == 0 {
		s.mux.Unlock()
		return ErrNoLaunchers
	}
	launchers := make([]launcher.Launcher, 0, len(names))
	for _, name := range names {
		l := s.registry.Lookup(name)
		if l == nil {
			s.mux.Unlock()
			return fmt.Errorf("%w: %v", ErrUnknownLauncher, name)
		}
		launchers = append(launchers, l)
	}

	s.started = true
	s.runID = idgen.New()
	s.launchers = names
	s.startedAt = clock.Now()
	s.tracker = progress.New(s.runID, nil)
	sink := launcher.SinkFunc(s.emit)
	for _, l := range launchers {
		if binder, ok := l.(launcher.Binder); ok {
			binder.Bind(sink)
		}
		s.store.SetLimit(l.Name(), launcher.ConcurrencyLimit(l, s.config.LauncherConcurrency[l.Name()]))
	}
	s.beginCycleLocked()
	for _, file := range run.Files {
		for _, name := range names {
			s.seedLocked(file, name, 0, "")
		}
	}
	go s.loop()
	s.logger.Info("run started", "run", s.runID, "files", len(run.Files), "launchers", len(names), "concurrency", s.config.Concurrency)
	s.mux.Unlock()

	startErrors := s.startLaunchers(ctx, launchers)

	s.mux.Lock()
	defer s.mux.Unlock()
	for _, l := range launchers {
		name := l.Name()
		if err := startErrors[name]; err != nil {
			s.launchErrors[name] = &launcher.StartError{Launcher: name, Err: err}
			s.logger.Error("launcher failed to start", "launcher", name, "err", err)
			s.failLauncherLocked(name)
			continue
		}
		s.running[name] = true
	}
	s.ready = true
	s.advanceLocked()
	return nil
}

func (s *Service) startLaunchers(ctx context.Context, launchers []launcher.Launcher) map[string]error {
	errs := make([]error, len(launchers))
	var group errgroup.Group
	for i, l := range launchers {
		i, l := i, l
		group.Go(func() error {
			errs[i] = l.Start(ctx)
			return nil
		})
	}
	_ = group.Wait()
	ret := make(map[string]error, len(launchers))
	for i, l := range launchers {
		ret[l.Name()] = errs[i]
	}
	return ret
}

// Stop cancels every non-terminal session, tears sessions down within the
// teardown timeout, stops the launchers and emits run-stopped with the final
// summary. Subsequent calls are no-ops.
func (s *Service) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mux.Lock()
	if s.stopped {
		s.mux.Unlock()
		return nil
	}
	s.stopped = true
	if !s.started {
		s.mux.Unlock()
		s.cancel()
		s.inbox.Close()
		return s.closeOutboxes(ctx)
	}
	for _, aSession := range s.store.List(nil) {
		if !aSession.IsTerminal() {
			s.cancelLocked(aSession)
		}
	}
	s.supervisor.DisarmAll()
	summary := s.summaryLocked()
	summary.Interrupted = !s.reported
	s.summary = summary
	if !s.reported {
		s.reported = true
		close(s.done)
	}
	s.endCycleLocked(nil)
	var running []launcher.Launcher
	for _, name := range s.launchers {
		if s.running[name] {
			running = append(running, s.registry.Lookup(name))
		}
	}
	s.mux.Unlock()

	s.teardowns.Wait()
	var group errgroup.Group
	for _, l := range running {
		l := l
		group.Go(func() error {
			if err := s.bounded(ctx, l.Stop); err != nil {
				s.logger.Warn("failed to stop launcher", "launcher", l.Name(), "err", err)
				return fmt.Errorf("failed to stop launcher %v: %w", l.Name(), err)
			}
			return nil
		})
	}
	err := group.Wait()
	s.cancel()
	s.inbox.Close()
	<-s.loopDone
	s.notify(event.TypeRunStopped, summary)
	s.logger.Info("run stopped", "run", s.runID, "total", summary.Total, "passed", summary.Passed, "failed", summary.Failed, "stopped", summary.Stopped)
	return errors.Join(err, s.closeOutboxes(ctx))
}

func (s *Service) closeOutboxes(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.writes.close()
	s.notifications.close()
	return errors.Join(s.writes.wait(ctx), s.notifications.wait(ctx))
}

// Flush waits until the history writes and notifications committed so far
// have been handed over.
func (s *Service) Flush(ctx context.Context) error {
	if err := s.writes.flush(ctx); err != nil {
		return err
	}
	return s.notifications.flush(ctx)
}

// Rerun supersedes the sessions of the given files: non-terminal sessions
// are cancelled and every (file, launcher) pair gets a new SCHEDULED session
// with an incremented retry count. Launchers are never restarted.
func (s *Service) Rerun(_ context.Context, files []string) ([]*session.Session, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mux.Lock()
	defer s.mux.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	if s.stopped {
		return nil, ErrStopped
	}
	if len(files) == 0 {
		return nil, nil
	}
	s.beginCycleLocked()
	var created []*session.Session
	seen := map[string]bool{}
	for _, file := range files {
		if seen[file] {
			continue
		}
		seen[file] = true
		for _, name := range s.launchers {
			retryCount, supersedes := 0, ""
			previous := s.store.List(&store.Filter{TestFile: file, LauncherID: name})
			if n := len(previous); n > 0 {
				latest := previous[n-1]
				retryCount, supersedes = latest.RetryCount+1, latest.ID
				if !latest.IsTerminal() {
					s.cancelLocked(latest)
				}
			}
			if aSession := s.seedLocked(file, name, retryCount, supersedes); aSession != nil {
				created = append(created, aSession)
			}
		}
	}
	s.logger.Info("rerun scheduled", "run", s.runID, "files", len(seen), "sessions", len(created))
	s.advanceLocked()
	return created, nil
}

// Wait blocks until the current cycle completes or the run is stopped.
func (s *Service) Wait(ctx context.Context) (*Summary, error) {
	s.mux.Lock()
	if !s.started {
		s.mux.Unlock()
		return nil, ErrNotStarted
	}
	done := s.done
	s.mux.Unlock()
	select {
	case <-done:
		s.mux.Lock()
		defer s.mux.Unlock()
		return s.summary, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Summary returns a summary of the current state.
func (s *Service) Summary() *Summary {
	s.mux.Lock()
	defer s.mux.Unlock()
	ret := s.summaryLocked()
	ret.Interrupted = s.summary != nil && s.summary.Interrupted
	return ret
}

// Sessions returns a snapshot of the matching sessions.
func (s *Service) Sessions(filter *store.Filter) []*session.Session {
	return s.store.List(filter)
}

// Session returns a snapshot of one session.
func (s *Service) Session(id string) (*session.Session, bool) {
	return s.store.Get(id)
}

// Active returns the slots held on a launcher.
func (s *Service) Active(launcherID string) int {
	return s.store.Active(launcherID)
}

// Limit returns the effective concurrency limit of a launcher.
func (s *Service) Limit(launcherID string) int {
	return s.store.Limit(launcherID)
}

// LauncherError returns the start error of a launcher, if any.
func (s *Service) LauncherError(name string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.launchErrors[name]
}

// Progress returns the run counters.
func (s *Service) Progress() progress.Progress {
	s.mux.Lock()
	tracker := s.tracker
	s.mux.Unlock()
	return tracker.Snapshot()
}

// RunID returns the id of the run.
func (s *Service) RunID() string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.runID
}

// Events returns the notification service.
func (s *Service) Events() *event.Service {
	return s.events
}

// Launchers returns the launchers of the run.
func (s *Service) Launchers() []string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]string(nil), s.launchers...)
}

func (s *Service) summaryLocked() *Summary {
	ret := NewSummary(s.runID, s.store.Latest(), s.startedAt, clock.Now())
	ret.Cycle = s.cycle
	return ret
}

// emit is the lifecycle sink handed to launchers.
func (s *Service) emit(ctx context.Context, e *session.Event) error {
	if e.At.IsZero() {
		e.At = clock.Now()
	}
	if ctx == nil {
		ctx = s.ctx
	}
	return s.inbox.Publish(ctx, e)
}

// publish enqueues an internal event.
func (s *Service) publish(e *session.Event) {
	if err := s.emit(s.ctx, e); err != nil && !errors.Is(err, messaging.ErrClosed) && !errors.Is(err, context.Canceled) {
		s.logger.Warn("failed to enqueue lifecycle event", "session", e.SessionID, "type", e.Type, "err", err)
	}
}

func (s *Service) timedOut(sessionID string, kind session.ErrorKind, generation uint64) {
	s.publish(&session.Event{Type: session.EventTimeout, SessionID: sessionID, Kind: kind, Generation: generation})
}

// bounded runs fn with the teardown timeout and returns once it completes or
// the timeout elapses, whichever comes first.
func (s *Service) bounded(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.TeardownTimeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notify queues a run event behind the session events committed before it.
func (s *Service) notify(eventType string, summary *Summary) {
	anEvent := event.NewEvent(&event.Context{EventType: eventType, RunID: summary.RunID}, summary)
	s.notifications.enqueue(func() {
		if err := event.Publish(context.Background(), s.events, anEvent); err != nil {
			s.logger.Warn("failed to publish run event", "type", eventType, "err", err)
		}
	})
}
