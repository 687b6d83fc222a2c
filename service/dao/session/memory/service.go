package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/dao"
	"github.com/viant/wtr/service/dao/criteria"
)

// Service implements an in-memory session storage. All operations are
// thread-safe and return copies of the stored sessions.
type Service struct {
	sessions map[string]*session.Session
	mux      sync.RWMutex
}

var _ dao.Service[string, session.Session] = (*Service)(nil)

// Save persists a clone of the supplied session.
func (s *Service) Save(_ context.Context, aSession *session.Session) error {
	if aSession == nil {
		return dao.ErrNilEntity
	}
	if aSession.ID == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.sessions[aSession.ID] = aSession.Clone()
	return nil
}

// Load retrieves a copy of the session or dao.ErrNotFound.
func (s *Service) Load(_ context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	aSession, ok := s.sessions[id]
	s.mux.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return aSession.Clone(), nil
}

// Delete removes a session.
func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// List returns copies of the matching sessions in creation order.
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*session.Session, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]*session.Session, 0, len(s.sessions))
	for _, aSession := range s.sessions {
		if criteria.Match(aSession, parameters) {
			out = append(out, aSession.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// New creates an empty in-memory service.
func New() *Service {
	return &Service{sessions: map[string]*session.Session{}}
}
