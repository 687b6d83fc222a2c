// Package store keeps every session of a run together with its indices and
// the per-launcher slot counters. All mutations go through Add, Promote,
// Transition and Update; readers always receive clones.
package store

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/viant/wtr/internal/clock"
	"github.com/viant/wtr/internal/logger"
	"github.com/viant/wtr/runtime/session"
)

// Listener observes a committed change. previous equals the current status
// for in-state updates. Listeners run synchronously, in commit order, and
// must not mutate the store.
type Listener func(previous session.Status, s *session.Session)

type index map[string]map[string]struct{}

func (i index) add(key, id string) {
	ids, ok := i[key]
	if !ok {
		ids = map[string]struct{}{}
		i[key] = ids
	}
	ids[id] = struct{}{}
}

func (i index) remove(key, id string) {
	if ids, ok := i[key]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(i, key)
		}
	}
}

// Store holds the sessions of a run.
type Store struct {
	mux          sync.RWMutex
	sessions     map[string]*session.Session
	byFile       index
	byLauncher   index
	byStatus     index
	active       map[string]int
	activeGlobal int
	limits       map[string]int
	seq          uint64

	notifyMux sync.Mutex
	listeners []Listener
	logger    *log.Logger
}

// Option customises the store.
type Option func(s *Store)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	ret := &Store{
		sessions:   map[string]*session.Session{},
		byFile:     index{},
		byLauncher: index{},
		byStatus:   index{},
		active:     map[string]int{},
		limits:     map[string]int{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.logger = logger.Or(ret.logger)
	return ret
}

// OnChange registers a listener.
func (s *Store) OnChange(listener Listener) {
	s.notifyMux.Lock()
	defer s.notifyMux.Unlock()
	s.listeners = append(s.listeners, listener)
}

// SetLimit sets the concurrency limit of a launcher.
func (s *Store) SetLimit(launcherID string, limit int) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.limits[launcherID] = limit
}

// Limit returns the concurrency limit of a launcher, 0 when unknown.
func (s *Store) Limit(launcherID string) int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.limits[launcherID]
}

// Active returns the number of slots held on a launcher.
func (s *Store) Active(launcherID string) int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.active[launcherID]
}

// ActiveGlobal returns the number of slots held across launchers.
func (s *Store) ActiveGlobal() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.activeGlobal
}

// Add inserts a SCHEDULED session and assigns its creation sequence.
func (s *Store) Add(aSession *session.Session) (*session.Session, error) {
	if aSession.Status != session.StatusScheduled {
		return nil, ErrNotScheduled
	}
	s.mux.Lock()
	if _, ok := s.sessions[aSession.ID]; ok {
		s.mux.Unlock()
		return nil, ErrDuplicate
	}
	s.seq++
	stored := aSession.Clone()
	stored.Seq = s.seq
	s.sessions[stored.ID] = stored
	s.byFile.add(stored.TestFile, stored.ID)
	s.byLauncher.add(stored.LauncherID, stored.ID)
	s.byStatus.add(string(stored.Status), stored.ID)
	s.commit(stored.Status, stored.Clone())
	return stored.Clone(), nil
}

// Get returns a clone of the session.
func (s *Store) Get(id string) (*session.Session, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	aSession, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return aSession.Clone(), true
}

// List returns clones of the matching sessions in creation order.
func (s *Store) List(filter *Filter) []*session.Session {
	s.mux.RLock()
	defer s.mux.RUnlock()
	candidates := s.candidates(filter)
	ret := make([]*session.Session, 0, len(candidates))
	for id := range candidates {
		if aSession := s.sessions[id]; filter.matches(aSession) {
			ret = append(ret, aSession.Clone())
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Seq < ret[j].Seq })
	return ret
}

// candidates picks the narrowest index for the filter.
func (s *Store) candidates(filter *Filter) map[string]struct{} {
	if filter != nil {
		switch {
		case filter.TestFile != "":
			return s.byFile[filter.TestFile]
		case filter.LauncherID != "":
			return s.byLauncher[filter.LauncherID]
		case len(filter.Statuses) == 1:
			return s.byStatus[string(filter.Statuses[0])]
		}
	}
	ret := make(map[string]struct{}, len(s.sessions))
	for id := range s.sessions {
		ret[id] = struct{}{}
	}
	return ret
}

// Count returns how many sessions are in the given statuses.
func (s *Store) Count(statuses ...session.Status) int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := 0
	for _, status := range statuses {
		ret += len(s.byStatus[string(status)])
	}
	return ret
}

// NonTerminal returns the number of sessions that have not finished.
func (s *Store) NonTerminal() int {
	ret := 0
	for _, status := range session.Statuses {
		if !status.IsTerminal() {
			ret += s.Count(status)
		}
	}
	return ret
}

// Latest returns the most recent session of every (file, launcher) pair.
func (s *Store) Latest() map[session.Key]*session.Session {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := make(map[session.Key]*session.Session)
	for _, aSession := range s.sessions {
		key := aSession.Key()
		if prev, ok := ret[key]; ok && prev.Seq > aSession.Seq {
			continue
		}
		ret[key] = aSession
	}
	for key, aSession := range ret {
		ret[key] = aSession.Clone()
	}
	return ret
}

// Promote moves a SCHEDULED session to INITIALIZING when both the global
// and the launcher budget have room. The check and the counter increment
// happen atomically with the transition.
func (s *Store) Promote(id string, globalLimit int) (bool, error) {
	s.mux.Lock()
	aSession, ok := s.sessions[id]
	if !ok {
		s.mux.Unlock()
		return false, ErrNotFound
	}
	if aSession.Status != session.StatusScheduled {
		s.mux.Unlock()
		return false, ErrNotScheduled
	}
	limit := s.limits[aSession.LauncherID]
	if s.activeGlobal >= globalLimit || s.active[aSession.LauncherID] >= limit {
		s.mux.Unlock()
		return false, nil
	}
	work := aSession.Clone()
	work.Status = session.StatusInitializing
	s.apply(aSession, work)
	s.commit(session.StatusScheduled, work.Clone())
	return true, nil
}

// Transition validates and applies a status change. mutate, when set, runs
// on a working copy before the change is committed; nothing is committed
// when validation fails.
func (s *Store) Transition(id string, to session.Status, mutate func(s *session.Session)) (*session.Session, error) {
	s.mux.Lock()
	aSession, ok := s.sessions[id]
	if !ok {
		s.mux.Unlock()
		return nil, ErrNotFound
	}
	from := aSession.Status
	if err := session.ValidateTransition(id, from, to); err != nil {
		s.mux.Unlock()
		return nil, err
	}
	work := aSession.Clone()
	if mutate != nil {
		mutate(work)
		s.restoreImmutable(aSession, work)
	}
	work.Status = to
	now := clock.Now()
	if to == session.StatusStarting && work.StartedAt == nil {
		work.StartedAt = &now
	}
	if to.IsTerminal() && work.FinishedAt == nil {
		work.FinishedAt = &now
	}
	if to == session.StatusFinished && (work.Summary == nil || len(work.Errors) > 0) {
		s.mux.Unlock()
		return nil, &session.InvalidTransitionError{SessionID: id, From: from, To: to, Reason: "finished requires completed tests and no errors"}
	}
	s.apply(aSession, work)
	ret := work.Clone()
	s.commit(from, work.Clone())
	return ret, nil
}

// Update records in-state data (results, logs, errors) on a non-terminal
// session without changing its status.
func (s *Store) Update(id string, mutate func(s *session.Session)) (*session.Session, error) {
	s.mux.Lock()
	aSession, ok := s.sessions[id]
	if !ok {
		s.mux.Unlock()
		return nil, ErrNotFound
	}
	if aSession.IsTerminal() {
		s.mux.Unlock()
		return nil, ErrTerminal
	}
	work := aSession.Clone()
	mutate(work)
	s.restoreImmutable(aSession, work)
	work.Status = aSession.Status
	s.apply(aSession, work)
	ret := work.Clone()
	s.commit(work.Status, work.Clone())
	return ret, nil
}

func (s *Store) restoreImmutable(current, work *session.Session) {
	work.ID = current.ID
	work.Seq = current.Seq
	work.TestFile = current.TestFile
	work.LauncherID = current.LauncherID
	work.RetryCount = current.RetryCount
	work.CreatedAt = current.CreatedAt
	if current.StartedAt != nil {
		work.StartedAt = current.StartedAt
	}
}

// apply swaps in the working copy and keeps indices and counters in sync.
func (s *Store) apply(current, work *session.Session) {
	if current.Status != work.Status {
		s.byStatus.remove(string(current.Status), current.ID)
		s.byStatus.add(string(work.Status), work.ID)
		held, holds := current.Status.HoldsSlot(), work.Status.HoldsSlot()
		switch {
		case !held && holds:
			s.active[work.LauncherID]++
			s.activeGlobal++
		case held && !holds:
			s.active[work.LauncherID]--
			s.activeGlobal--
		}
	}
	s.sessions[work.ID] = work
}

// commit notifies listeners. It must be called with mux held and releases
// it; notifications keep commit order.
func (s *Store) commit(previous session.Status, snapshot *session.Session) {
	s.notifyMux.Lock()
	s.mux.Unlock()
	defer s.notifyMux.Unlock()
	s.logger.Debug("session committed", "session", snapshot.ID, "from", previous, "to", snapshot.Status)
	for _, listener := range s.listeners {
		listener(previous, snapshot)
	}
}
