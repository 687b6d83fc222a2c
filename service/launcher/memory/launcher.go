// Package memory provides a simulated launcher that plays scripted sessions
// without a real browser.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/viant/wtr/internal/clock"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/launcher"
)

// Launcher is a scripted, in-process launcher.
type Launcher struct {
	name          string
	limit         int
	userAgent     string
	startErr      error
	defaultScript *Script
	scripts       map[string]*Script

	mux     sync.Mutex
	sink    launcher.Sink
	active  bool
	starts  int
	running map[string]context.CancelFunc
	started []string
	stopped map[string]bool
	peak    int
	wg      sync.WaitGroup
}

var (
	_ launcher.Launcher           = (*Launcher)(nil)
	_ launcher.ConcurrencyLimiter = (*Launcher)(nil)
	_ launcher.Binder             = (*Launcher)(nil)
)

// Option customises the simulated launcher.
type Option func(l *Launcher)

// WithConcurrency sets the advertised concurrency limit.
func WithConcurrency(limit int) Option {
	return func(l *Launcher) { l.limit = limit }
}

// WithScript sets the script played for a test file.
func WithScript(testFile string, script *Script) Option {
	return func(l *Launcher) { l.scripts[testFile] = script }
}

// WithDefaultScript sets the script used for files without their own.
func WithDefaultScript(script *Script) Option {
	return func(l *Launcher) { l.defaultScript = script }
}

// WithStartError makes Start fail.
func WithStartError(err error) Option {
	return func(l *Launcher) { l.startErr = err }
}

// WithSink binds the lifecycle sink up front.
func WithSink(sink launcher.Sink) Option {
	return func(l *Launcher) { l.sink = sink }
}

// New creates a simulated launcher.
func New(name string, opts ...Option) *Launcher {
	ret := &Launcher{
		name:          name,
		userAgent:     "wtr-simulated/" + name,
		scripts:       map[string]*Script{},
		running:       map[string]context.CancelFunc{},
		stopped:       map[string]bool{},
		defaultScript: PassingScript("passes"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (l *Launcher) Name() string { return l.name }

// ConcurrencyLimit returns the configured limit, 0 when unset.
func (l *Launcher) ConcurrencyLimit() int { return l.limit }

// Bind sets the lifecycle sink.
func (l *Launcher) Bind(sink launcher.Sink) {
	l.mux.Lock()
	defer l.mux.Unlock()
	l.sink = sink
}

func (l *Launcher) Start(_ context.Context) error {
	l.mux.Lock()
	defer l.mux.Unlock()
	if l.startErr != nil {
		return l.startErr
	}
	if !l.active {
		l.starts++
	}
	l.active = true
	return nil
}

func (l *Launcher) Stop(_ context.Context) error {
	l.mux.Lock()
	l.active = false
	for id, cancel := range l.running {
		cancel()
		l.stopped[id] = true
		delete(l.running, id)
	}
	l.mux.Unlock()
	l.wg.Wait()
	return nil
}

func (l *Launcher) IsActive() bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.active
}

func (l *Launcher) StartSession(_ context.Context, sessionID, testFile string) error {
	script := l.script(testFile)
	if script.StartError != nil {
		return script.StartError
	}
	l.mux.Lock()
	defer l.mux.Unlock()
	if !l.active {
		return launcher.ErrNotActive
	}
	if l.sink == nil {
		return errors.New("launcher " + l.name + " has no sink")
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.running[sessionID] = cancel
	l.started = append(l.started, sessionID)
	if len(l.running) > l.peak {
		l.peak = len(l.running)
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.play(ctx, l.sink, sessionID, script)
	}()
	return nil
}

func (l *Launcher) StopSession(_ context.Context, sessionID string) error {
	l.mux.Lock()
	defer l.mux.Unlock()
	if cancel, ok := l.running[sessionID]; ok {
		cancel()
		delete(l.running, sessionID)
	}
	l.stopped[sessionID] = true
	return nil
}

// Started returns the ids of every session started so far.
func (l *Launcher) Started() []string {
	l.mux.Lock()
	defer l.mux.Unlock()
	return append([]string(nil), l.started...)
}

// Stopped reports whether StopSession was called for the id.
func (l *Launcher) Stopped(sessionID string) bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.stopped[sessionID]
}

// Starts returns how many times the browser was started.
func (l *Launcher) Starts() int {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.starts
}

// Peak returns the highest number of sessions running at once.
func (l *Launcher) Peak() int {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.peak
}

func (l *Launcher) script(testFile string) *Script {
	if script, ok := l.scripts[testFile]; ok && script != nil {
		return script
	}
	return l.defaultScript
}

func (l *Launcher) play(ctx context.Context, sink launcher.Sink, sessionID string, script *Script) {
	emit := func(event *session.Event) bool {
		if ctx.Err() != nil {
			return false
		}
		event.SessionID = sessionID
		event.At = clock.Now()
		return sink.Emit(ctx, event) == nil
	}
	if !sleep(ctx, script.StartDelay) {
		return
	}
	if script.HangOnStart {
		<-ctx.Done()
		return
	}
	if !emit(&session.Event{Type: session.EventSessionStarted, UserAgent: l.userAgent}) {
		return
	}
	if script.Crash != "" {
		emit(&session.Event{Type: session.EventSessionError, Error: session.NewError(session.KindSessionError, "%s", script.Crash)})
		return
	}
	var results []*session.TestResult
	for _, test := range script.Tests {
		if !emit(&session.Event{Type: session.EventTestStarted, TestName: test.Name}) {
			return
		}
		if !sleep(ctx, test.Duration) {
			return
		}
		result := &session.TestResult{Name: test.Name, Passed: test.Passed, Skipped: test.Skipped, Duration: test.Duration}
		if test.Error != "" {
			result.Error = &session.Error{Message: test.Error}
		}
		results = append(results, result)
		if !emit(&session.Event{Type: session.EventTestFinished, TestName: test.Name, Result: result}) {
			return
		}
	}
	if script.HangAfterTests {
		<-ctx.Done()
		return
	}
	var logs []*session.LogEntry
	for _, message := range script.Logs {
		logs = append(logs, &session.LogEntry{Level: "log", Message: message, At: clock.Now()})
	}
	emit(&session.Event{Type: session.EventSessionFinished, Passed: session.Bool(script.verdict()), Logs: logs})
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
