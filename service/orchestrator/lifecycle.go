package orchestrator

import (
	"context"
	"time"

	"github.com/viant/wtr/progress"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/event"
	"github.com/viant/wtr/service/store"
	"github.com/viant/wtr/tracing"
)

func (s *Service) timeoutOf(kind session.ErrorKind) time.Duration {
	switch kind {
	case session.KindBrowserStartTimeout:
		return s.config.BrowserStartTimeout
	case session.KindTestsStartTimeout:
		return s.config.TestsStartTimeout
	case session.KindTestsFinishTimeout:
		return s.config.TestsFinishTimeout
	}
	return 0
}

// seedLocked adds a SCHEDULED session; sessions of a launcher that failed to
// start fail immediately.
func (s *Service) seedLocked(file, launcherID string, retryCount int, supersedes string) *session.Session {
	aSession := session.New(file, launcherID, retryCount)
	aSession.Supersedes = supersedes
	added, err := s.store.Add(aSession)
	if err != nil {
		s.logger.Error("failed to seed session", "file", file, "launcher", launcherID, "err", err)
		return nil
	}
	s.tracker.Update(progress.Delta{Total: 1, Scheduled: 1})
	if startErr, ok := s.launchErrors[launcherID]; ok {
		s.failLocked(added, session.NewError(session.KindLauncherStartError, "%v", startErr), false)
		if current, found := s.store.Get(added.ID); found {
			return current
		}
	}
	return added
}

func (s *Service) failLauncherLocked(launcherID string) {
	for _, aSession := range s.store.List(&store.Filter{LauncherID: launcherID}) {
		if aSession.IsTerminal() {
			continue
		}
		s.failLocked(aSession, session.NewError(session.KindLauncherStartError, "%v", s.launchErrors[launcherID]), aSession.Status.HoldsSlot())
	}
}

// advanceLocked schedules what fits and checks for completion.
func (s *Service) advanceLocked() {
	if !s.ready || s.stopped {
		return
	}
	promoted, err := s.scheduler.Tick(s.ctx)
	if err != nil {
		s.logger.Error("scheduling failed", "err", err)
	}
	for _, aSession := range promoted {
		s.dispatchLocked(aSession)
	}
	s.checkCompletionLocked()
}

// dispatchLocked moves a promoted session to STARTING, arms the browser
// start deadline and asks the launcher to start it without waiting.
func (s *Service) dispatchLocked(promoted *session.Session) {
	l := s.registry.Lookup(promoted.LauncherID)
	if _, ok := s.transitionLocked(promoted.ID, session.StatusStarting, nil); !ok {
		return
	}
	_, span := tracing.StartSpan(s.cycleCtx, "session "+promoted.TestFile, tracing.KindClient)
	span.WithAttributes(map[string]string{
		"session.id":       promoted.ID,
		"session.file":     promoted.TestFile,
		"session.launcher": promoted.LauncherID,
	})
	s.spans[promoted.ID] = span
	s.supervisor.Arm(promoted.ID, session.KindBrowserStartTimeout, s.config.BrowserStartTimeout)
	go func() {
		if err := l.StartSession(s.ctx, promoted.ID, promoted.TestFile); err != nil {
			s.publish(&session.Event{
				Type:      session.EventStartFailed,
				SessionID: promoted.ID,
				Error:     session.NewError(session.KindSessionStartError, "%v", err),
			})
		}
	}()
}

func (s *Service) transitionLocked(id string, to session.Status, mutate func(w *session.Session)) (*session.Session, bool) {
	updated, err := s.store.Transition(id, to, mutate)
	if err != nil {
		s.logger.Error("rejected session transition", "session", id, "to", to, "err", err)
		return nil, false
	}
	return updated, true
}

func (s *Service) failLocked(current *session.Session, failure *session.Error, teardown bool, logs ...*session.LogEntry) {
	s.supervisor.Forget(current.ID)
	_, ok := s.transitionLocked(current.ID, session.StatusFailed, func(w *session.Session) {
		w.Errors = append(w.Errors, failure)
		w.FailureKind = failure.Kind
		w.Logs = append(w.Logs, logs...)
	})
	if ok && teardown {
		s.teardown(current.ID, current.LauncherID, false)
	}
}

// cancelLocked moves a session through STOPPING to STOPPED and releases its
// slot immediately; launcher teardown continues in the background.
func (s *Service) cancelLocked(current *session.Session) {
	s.supervisor.Forget(current.ID)
	if current.Status != session.StatusStopping {
		if _, ok := s.transitionLocked(current.ID, session.StatusStopping, nil); !ok {
			return
		}
	}
	if _, ok := s.transitionLocked(current.ID, session.StatusStopped, nil); !ok {
		return
	}
	if current.Status != session.StatusScheduled {
		s.teardown(current.ID, current.LauncherID, false)
	}
}

// teardown stops the launcher side of a session within the teardown timeout.
// When notify is set a teardown-finished event follows, even on timeout.
func (s *Service) teardown(sessionID, launcherID string, notify bool) {
	l := s.registry.Lookup(launcherID)
	if l == nil {
		return
	}
	s.teardowns.Add(1)
	go func() {
		defer s.teardowns.Done()
		err := s.bounded(context.Background(), func(ctx context.Context) error {
			return l.StopSession(ctx, sessionID)
		})
		if err != nil {
			s.logger.Warn("session teardown failed", "session", sessionID, "launcher", launcherID, "err", err)
		}
		if notify {
			s.publish(&session.Event{Type: session.EventTeardownFinished, SessionID: sessionID})
		}
	}()
}

// checkCompletionLocked emits run-finished once per cycle when no session
// is left non-terminal.
func (s *Service) checkCompletionLocked() {
	if !s.ready || s.stopped || s.reported {
		return
	}
	if s.store.NonTerminal() > 0 {
		return
	}
	s.reported = true
	summary := s.summaryLocked()
	s.summary = summary
	close(s.done)
	recordRunFinished()
	s.endCycleLocked(nil)
	s.logger.Info("run finished", "run", s.runID, "total", summary.Total, "passed", summary.Passed, "failed", summary.Failed, "stopped", summary.Stopped)
	s.notify(event.TypeRunFinished, summary)
}

// beginCycleLocked opens a new completion cycle.
func (s *Service) beginCycleLocked() {
	if s.reported {
		s.done = make(chan struct{})
	}
	if s.reported || s.cycle == 0 {
		s.cycle++
	}
	s.reported = false
	if s.cycleSpan == nil {
		s.cycleCtx, s.cycleSpan = tracing.StartSpan(s.ctx, "run.cycle", tracing.KindInternal)
		s.cycleSpan.WithAttributes(map[string]string{"run.id": s.runID})
	}
}

func (s *Service) endCycleLocked(err error) {
	if s.cycleSpan == nil {
		return
	}
	tracing.EndSpan(s.cycleSpan, err)
	s.cycleSpan = nil
	s.cycleCtx = s.ctx
}
