// Package timeout arms one deadline per session. Every arm bumps the
// session's generation so a firing that raced with a disarm can be
// recognised as stale by the receiver.
package timeout

import (
	"sync"
	"time"

	"github.com/viant/wtr/internal/clock"
	"github.com/viant/wtr/runtime/session"
)

// FireFunc is invoked from the timer goroutine when a deadline passes.
type FireFunc func(sessionID string, kind session.ErrorKind, generation uint64)

type deadline struct {
	timer      clock.Timer
	kind       session.ErrorKind
	generation uint64
}

// Supervisor tracks the active deadline of every session.
type Supervisor struct {
	mux         sync.Mutex
	deadlines   map[string]*deadline
	generations map[string]uint64
	fire        FireFunc
	afterFunc   func(d time.Duration, fn func()) clock.Timer
}

// Option customises the supervisor.
type Option func(s *Supervisor)

// WithAfterFunc replaces the timer factory.
func WithAfterFunc(fn func(d time.Duration, fn func()) clock.Timer) Option {
	return func(s *Supervisor) { s.afterFunc = fn }
}

// New creates a supervisor calling fire on expiry.
func New(fire FireFunc, opts ...Option) *Supervisor {
	ret := &Supervisor{
		deadlines:   map[string]*deadline{},
		generations: map[string]uint64{},
		fire:        fire,
		afterFunc:   clock.AfterFunc,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Arm replaces any active deadline of the session and returns the new
// generation. A non-positive duration disables the deadline.
func (s *Supervisor) Arm(sessionID string, kind session.ErrorKind, d time.Duration) uint64 {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.stopLocked(sessionID)
	s.generations[sessionID]++
	generation := s.generations[sessionID]
	if d <= 0 {
		return generation
	}
	timer := s.afterFunc(d, func() { s.fire(sessionID, kind, generation) })
	s.deadlines[sessionID] = &deadline{timer: timer, kind: kind, generation: generation}
	return generation
}

// Disarm cancels the active deadline of the session.
func (s *Supervisor) Disarm(sessionID string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.stopLocked(sessionID)
	s.generations[sessionID]++
}

// Forget disarms and drops every trace of the session.
func (s *Supervisor) Forget(sessionID string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.stopLocked(sessionID)
	delete(s.generations, sessionID)
}

// IsCurrent reports whether a firing is for the deadline still armed.
func (s *Supervisor) IsCurrent(sessionID string, kind session.ErrorKind, generation uint64) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	active, ok := s.deadlines[sessionID]
	return ok && active.generation == generation && active.kind == kind
}

// Armed returns the kind of the active deadline.
func (s *Supervisor) Armed(sessionID string) (session.ErrorKind, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if active, ok := s.deadlines[sessionID]; ok {
		return active.kind, true
	}
	return "", false
}

// Len returns the number of armed deadlines.
func (s *Supervisor) Len() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.deadlines)
}

// DisarmAll cancels every deadline.
func (s *Supervisor) DisarmAll() {
	s.mux.Lock()
	defer s.mux.Unlock()
	for id := range s.deadlines {
		s.stopLocked(id)
		s.generations[id]++
	}
}

func (s *Supervisor) stopLocked(sessionID string) {
	if active, ok := s.deadlines[sessionID]; ok {
		active.timer.Stop()
		delete(s.deadlines, sessionID)
	}
}
