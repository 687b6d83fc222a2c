package orchestrator

import (
	"context"
	"errors"

	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/messaging"
)

// loop applies lifecycle events one at a time in delivery order.
func (s *Service) loop() {
	defer close(s.loopDone)
	for {
		msg, err := s.inbox.Consume(s.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, messaging.ErrClosed) {
				return
			}
			s.logger.Warn("failed to consume lifecycle event", "err", err)
			continue
		}
		_ = msg.Ack()
		s.handle(msg.T())
	}
}

func (s *Service) handle(e *session.Event) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.stopped {
		return
	}
	current, ok := s.store.Get(e.SessionID)
	if !ok {
		s.logger.Warn("event for unknown session", "session", e.SessionID, "type", e.Type)
		return
	}
	if current.IsTerminal() {
		s.logger.Debug("ignoring event for terminal session", "session", current.ID, "type", e.Type, "status", current.Status)
		return
	}
	switch e.Type {
	case session.EventStartFailed:
		s.handleStartFailed(current, e)
	case session.EventSessionStarted:
		s.handleSessionStarted(current, e)
	case session.EventTestStarted:
		s.handleTestStarted(current, e)
	case session.EventTestFinished:
		s.handleTestFinished(current, e)
	case session.EventSessionFinished:
		s.handleSessionFinished(current, e)
	case session.EventTeardownFinished:
		s.handleTeardownFinished(current)
	case session.EventSessionError:
		s.handleSessionError(current, e)
	case session.EventTimeout:
		s.handleTimeout(current, e)
	default:
		s.logger.Warn("unknown lifecycle event", "session", current.ID, "type", e.Type)
		return
	}
	s.advanceLocked()
}

func (s *Service) handleStartFailed(current *session.Session, e *session.Event) {
	failure := e.Error
	if failure == nil {
		failure = session.NewError(session.KindSessionStartError, "launcher refused to start session")
	}
	s.failLocked(current, failure, true)
}

func (s *Service) handleSessionStarted(current *session.Session, e *session.Event) {
	if current.Status != session.StatusStarting {
		s.protocolErrorLocked(current, e)
		return
	}
	_, ok := s.transitionLocked(current.ID, session.StatusStarted, func(w *session.Session) {
		if e.UserAgent != "" {
			w.UserAgent = e.UserAgent
		}
		w.Logs = append(w.Logs, e.Logs...)
	})
	if ok {
		s.supervisor.Arm(current.ID, session.KindTestsStartTimeout, s.config.TestsStartTimeout)
	}
}

func (s *Service) handleTestStarted(current *session.Session, e *session.Event) {
	switch current.Status {
	case session.StatusStarted:
		if _, ok := s.transitionLocked(current.ID, session.StatusTestStarted, nil); !ok {
			return
		}
	case session.StatusTestStarted:
	default:
		s.protocolErrorLocked(current, e)
		return
	}
	s.supervisor.Arm(current.ID, session.KindTestsFinishTimeout, s.config.TestsFinishTimeout)
}

func (s *Service) handleTestFinished(current *session.Session, e *session.Event) {
	if current.Status != session.StatusTestStarted {
		s.protocolErrorLocked(current, e)
		return
	}
	if e.Result != nil || len(e.Logs) > 0 {
		_, err := s.store.Update(current.ID, func(w *session.Session) {
			if e.Result != nil {
				w.TestResults = append(w.TestResults, e.Result)
			}
			w.Logs = append(w.Logs, e.Logs...)
		})
		if err != nil {
			s.logger.Warn("failed to record test result", "session", current.ID, "err", err)
			return
		}
	}
	s.supervisor.Arm(current.ID, session.KindTestsFinishTimeout, s.config.TestsFinishTimeout)
}

func (s *Service) handleSessionFinished(current *session.Session, e *session.Event) {
	if current.Status != session.StatusStarted && current.Status != session.StatusTestStarted {
		s.protocolErrorLocked(current, e)
		return
	}
	s.supervisor.Disarm(current.ID)
	_, ok := s.transitionLocked(current.ID, session.StatusTestFinished, func(w *session.Session) {
		if len(w.TestResults) == 0 {
			w.TestResults = append(w.TestResults, e.Results...)
		}
		if e.Passed != nil {
			w.Passed = session.Bool(*e.Passed)
		}
		if e.Error != nil {
			w.Errors = append(w.Errors, e.Error)
		}
		w.Logs = append(w.Logs, e.Logs...)
		w.Summary = w.ComputeSummary()
	})
	if !ok {
		return
	}
	if _, ok = s.transitionLocked(current.ID, session.StatusStopping, nil); ok {
		s.teardown(current.ID, current.LauncherID, true)
	}
}

func (s *Service) handleTeardownFinished(current *session.Session) {
	if current.Status != session.StatusStopping {
		return
	}
	if current.Succeeded() {
		s.transitionLocked(current.ID, session.StatusFinished, nil)
		return
	}
	failure := current.Failure()
	if failure == nil {
		failure = session.NewError(session.KindHarnessReportedFailure, "harness reported failure")
		if current.Summary != nil && current.Summary.Failed > 0 {
			failure = session.NewError(session.KindHarnessReportedFailure, "%d of %d tests failed",
				current.Summary.Failed, len(current.TestResults))
		}
	}
	s.transitionLocked(current.ID, session.StatusFailed, func(w *session.Session) {
		if len(w.Errors) == 0 {
			w.Errors = append(w.Errors, failure)
		}
		w.FailureKind = failure.Kind
	})
}

func (s *Service) handleSessionError(current *session.Session, e *session.Event) {
	failure := session.NewError(session.KindSessionError, "session reported an error")
	if e.Error != nil {
		copied := *e.Error
		if copied.Kind == "" {
			copied.Kind = session.KindSessionError
		}
		failure = &copied
	}
	s.failLocked(current, failure, true, e.Logs...)
}

func (s *Service) handleTimeout(current *session.Session, e *session.Event) {
	if !s.supervisor.IsCurrent(current.ID, e.Kind, e.Generation) {
		s.logger.Debug("ignoring stale timeout", "session", current.ID, "kind", e.Kind)
		return
	}
	failure := session.NewError(e.Kind, "%v exceeded %v in status %v", e.Kind, s.timeoutOf(e.Kind), current.Status)
	s.failLocked(current, failure, true)
}

func (s *Service) protocolErrorLocked(current *session.Session, e *session.Event) {
	failure := session.NewError(session.KindSessionProtocolError, "unexpected %v event in status %v", e.Type, current.Status)
	s.failLocked(current, failure, true)
}
