package reporter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/viant/wtr/internal/logger"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/event"
	"github.com/viant/wtr/service/orchestrator"
)

// Option customises a Bridge.
type Option func(b *Bridge)

// WithLogger sets the bridge logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// Bridge subscribes reporters to orchestrator notifications.
type Bridge struct {
	reporters     []Reporter
	logger        *log.Logger
	events        *event.Service
	subscriptions []string

	mux      sync.Mutex
	cycle    int
	lastErr  error
	reported chan struct{}
}

// NewBridge creates a bridge for reporters.
func NewBridge(reporters []Reporter, opts ...Option) *Bridge {
	ret := &Bridge{reporters: reporters, reported: make(chan struct{})}
	for _, opt := range opts {
		opt(ret)
	}
	ret.logger = logger.Or(ret.logger)
	return ret
}

// Reporters returns the bridged reporters.
func (b *Bridge) Reporters() []Reporter {
	return b.reporters
}

// Attach subscribes the bridge to run-finished and session status events.
func (b *Bridge) Attach(srv *event.Service) {
	b.mux.Lock()
	defer b.mux.Unlock()
	if b.events != nil {
		return
	}
	b.events = srv
	b.subscriptions = append(b.subscriptions,
		event.Subscribe[*orchestrator.Summary](srv, func(e *event.Event[*orchestrator.Summary]) {
			if e.Type() != event.TypeRunFinished {
				return
			}
			_ = b.Report(context.Background(), e.Data)
		}),
		event.Subscribe[*session.Session](srv, func(e *event.Event[*session.Session]) {
			if e.Type() != event.TypeSessionStatusUpdated || e.Data == nil || !e.Data.IsTerminal() {
				return
			}
			b.reportSession(context.Background(), e.Data)
		}),
	)
}

// Detach removes the bridge subscriptions.
func (b *Bridge) Detach() {
	b.mux.Lock()
	defer b.mux.Unlock()
	if b.events == nil {
		return
	}
	for _, id := range b.subscriptions {
		b.events.Unsubscribe(id)
	}
	b.subscriptions = nil
	b.events = nil
}

// Report runs every reporter for summary. A failing reporter does not
// prevent the others from running.
func (b *Bridge) Report(ctx context.Context, summary *orchestrator.Summary) error {
	if summary == nil {
		return nil
	}
	var errs []error
	for _, reporter := range b.reporters {
		if err := reporter.Report(ctx, summary); err != nil {
			b.logger.Error("reporter failed", "reporter", reporter.Name(), "run", summary.RunID, "err", err)
			errs = append(errs, fmt.Errorf("reporter %s: %w", reporter.Name(), err))
		}
	}
	err := errors.Join(errs...)
	b.mux.Lock()
	if summary.Cycle > b.cycle {
		b.cycle = summary.Cycle
	}
	b.lastErr = err
	close(b.reported)
	b.reported = make(chan struct{})
	b.mux.Unlock()
	return err
}

func (b *Bridge) reportSession(ctx context.Context, aSession *session.Session) {
	for _, reporter := range b.reporters {
		sessionReporter, ok := reporter.(SessionReporter)
		if !ok {
			continue
		}
		if err := sessionReporter.ReportSession(ctx, aSession); err != nil {
			b.logger.Warn("session report failed", "reporter", reporter.Name(), "session", aSession.ID, "err", err)
		}
	}
}

// Wait blocks until the summary of cycle was reported and returns the
// joined reporter errors of the last report.
func (b *Bridge) Wait(ctx context.Context, cycle int) error {
	for {
		b.mux.Lock()
		if b.cycle >= cycle {
			err := b.lastErr
			b.mux.Unlock()
			return err
		}
		reported := b.reported
		b.mux.Unlock()
		select {
		case <-reported:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
