// Package launcher defines the capability contract of a browser engine
// adapter. Adapters start and stop their browser, open one session per test
// file and report progress on the lifecycle channel they are bound to.
package launcher

import (
	"context"

	"github.com/viant/wtr/runtime/session"
)

// DefaultConcurrencyLimit applies when an adapter does not advertise a limit.
const DefaultConcurrencyLimit = 1

// Launcher is a browser engine adapter.
type Launcher interface {
	Name() string

	// Start launches the browser; it must be idempotent.
	Start(ctx context.Context) error

	// Stop shuts the browser down; safe to call when not started.
	Stop(ctx context.Context) error

	// StartSession begins running testFile asynchronously; progress is
	// reported on the bound Sink using sessionID.
	StartSession(ctx context.Context, sessionID, testFile string) error

	// StopSession tears a session down; unknown or stopped ids are ignored.
	StopSession(ctx context.Context, sessionID string) error

	IsActive() bool
}

// ConcurrencyLimiter is implemented by adapters that can run more than one
// session at a time.
type ConcurrencyLimiter interface {
	ConcurrencyLimit() int
}

// Sink receives lifecycle events from adapters.
type Sink interface {
	Emit(ctx context.Context, event *session.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event *session.Event) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, event *session.Event) error {
	return f(ctx, event)
}

// Binder is implemented by adapters that accept a lifecycle sink.
type Binder interface {
	Bind(sink Sink)
}

// ConcurrencyLimit resolves the effective limit: a positive override wins,
// then the adapter capability, then DefaultConcurrencyLimit.
func ConcurrencyLimit(l Launcher, override int) int {
	if override > 0 {
		return override
	}
	if limiter, ok := l.(ConcurrencyLimiter); ok {
		if limit := limiter.ConcurrencyLimit(); limit > 0 {
			return limit
		}
	}
	return DefaultConcurrencyLimit
}
