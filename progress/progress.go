package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change. Fields are signed.
type Delta struct {
	Total     int
	Scheduled int
	Running   int
	Finished  int
	Failed    int
	Stopped   int
}

// Progress keeps session counters of a run. It is safe for concurrent use.
type Progress struct {
	RunID     string
	StartedAt time.Time

	TotalSessions     int
	ScheduledSessions int
	RunningSessions   int
	FinishedSessions  int
	FailedSessions    int
	StoppedSessions   int

	sync.Mutex
	onChange func(Progress)
}

// Update applies d and invokes the change callback, outside the lock, with a
// copy of the counters.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.TotalSessions += d.Total
	p.ScheduledSessions += d.Scheduled
	p.RunningSessions += d.Running
	p.FinishedSessions += d.Finished
	p.FailedSessions += d.Failed
	p.StoppedSessions += d.Stopped
	snapshot := p.copyLocked()
	cb := p.onChange
	p.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a read-only copy.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copyLocked()
}

func (p *Progress) copyLocked() Progress {
	return Progress{
		RunID:             p.RunID,
		StartedAt:         p.StartedAt,
		TotalSessions:     p.TotalSessions,
		ScheduledSessions: p.ScheduledSessions,
		RunningSessions:   p.RunningSessions,
		FinishedSessions:  p.FinishedSessions,
		FailedSessions:    p.FailedSessions,
		StoppedSessions:   p.StoppedSessions,
	}
}

// Done returns the number of sessions in a terminal state.
func (p *Progress) Done() int {
	return p.FinishedSessions + p.FailedSessions + p.StoppedSessions
}

// OnChange registers the change callback; nil disables it.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// New creates a tracker for the run.
func New(runID string, onChange func(Progress)) *Progress {
	return &Progress{RunID: runID, StartedAt: time.Now(), onChange: onChange}
}

// WithTracker embeds the tracker in a derived context.
func WithTracker(ctx context.Context, tracker *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, tracker)
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx applies d to the tracker carried by ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
