package orchestrator

import (
	"context"

	"github.com/viant/wtr/progress"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/event"
	"github.com/viant/wtr/tracing"
)

// onChange observes committed store changes. The store invokes it while the
// control lock is held by the mutating caller.
func (s *Service) onChange(previous session.Status, snapshot *session.Session) {
	if previous == snapshot.Status {
		return
	}
	s.tracker.Update(progressDelta(previous, snapshot.Status))
	recordTransition(snapshot, s.store.Active(snapshot.LauncherID))
	s.logger.Debug("session status", "session", snapshot.ID, "file", snapshot.TestFile, "launcher", snapshot.LauncherID, "status", snapshot.Status)
	if snapshot.Status == session.StatusFailed {
		s.logger.Warn("session failed", "session", snapshot.ID, "file", snapshot.TestFile, "launcher", snapshot.LauncherID, "kind", snapshot.FailureKind)
	}
	if span, ok := s.spans[snapshot.ID]; ok {
		span.AddEvent("status", map[string]string{"status": string(snapshot.Status)})
		if snapshot.IsTerminal() {
			var err error
			if failure := snapshot.Failure(); failure != nil && snapshot.Status == session.StatusFailed {
				err = failure
			}
			tracing.EndSpan(span, err)
			delete(s.spans, snapshot.ID)
		}
	}
	anEvent := event.NewEvent(&event.Context{
		EventType:  event.TypeSessionStatusUpdated,
		RunID:      s.runID,
		SessionID:  snapshot.ID,
		TestFile:   snapshot.TestFile,
		LauncherID: snapshot.LauncherID,
		Status:     string(snapshot.Status),
	}, snapshot.Clone())
	s.notifications.enqueue(func() {
		if err := event.Publish(context.Background(), s.events, anEvent); err != nil {
			s.logger.Warn("failed to publish session status", "session", anEvent.Data.ID, "err", err)
		}
	})
}

// persist writes every committed change behind the control lock.
func (s *Service) persist(_ session.Status, snapshot *session.Session) {
	aSession := snapshot.Clone()
	s.writes.enqueue(func() {
		if err := s.history.Save(context.Background(), aSession); err != nil {
			s.logger.Warn("failed to persist session", "session", aSession.ID, "err", err)
		}
	})
}

func progressDelta(previous, current session.Status) progress.Delta {
	var ret progress.Delta
	count(&ret, previous, -1)
	count(&ret, current, 1)
	return ret
}

func count(d *progress.Delta, status session.Status, n int) {
	switch {
	case status == session.StatusScheduled:
		d.Scheduled += n
	case status.HoldsSlot():
		d.Running += n
	case status == session.StatusFinished:
		d.Finished += n
	case status == session.StatusFailed:
		d.Failed += n
	case status == session.StatusStopped:
		d.Stopped += n
	}
}
