// Package reporter turns run notifications into reports. Reporters receive
// the summary of every completed cycle and, optionally, each session as it
// reaches a terminal status.
package reporter

import (
	"context"

	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/orchestrator"
)

// Reporter renders the summary of a completed cycle.
type Reporter interface {
	Name() string
	Report(ctx context.Context, summary *orchestrator.Summary) error
}

// SessionReporter is implemented by reporters that want each session once
// it reached a terminal status.
type SessionReporter interface {
	ReportSession(ctx context.Context, aSession *session.Session) error
}
