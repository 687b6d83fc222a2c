package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/wtr/internal/logger"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/dao"
	"github.com/viant/wtr/service/dao/criteria"
)

// Service stores one JSON document per session under a base URL. Any afs
// supported location works (file, mem, gs, s3 ...).
type Service struct {
	baseURL string
	fs      afs.Service
	logger  *log.Logger
	mu      sync.RWMutex
}

var _ dao.Service[string, session.Session] = (*Service)(nil)

// Save persists a session document.
func (s *Service) Save(ctx context.Context, aSession *session.Session) error {
	if aSession == nil {
		return dao.ErrNilEntity
	}
	if aSession.ID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(aSession)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.sessionURL(aSession.ID)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save session to %s: %w", URL, err)
	}
	return nil
}

// Load retrieves a session document.
func (s *Service) Load(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	URL := s.sessionURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check session %s: %w", URL, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", URL, err)
	}
	ret := &session.Session{}
	if err = json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", URL, err)
	}
	return ret, nil
}

// Delete removes a session document.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.sessionURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check session %s: %w", URL, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	return s.fs.Delete(ctx, URL)
}

// List returns the matching sessions in creation order. Unreadable documents
// are logged and skipped.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var ret []*session.Session
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warn("failed to read session document", "url", object.URL(), "err", err)
			continue
		}
		aSession := &session.Session{}
		if err = json.Unmarshal(data, aSession); err != nil {
			s.logger.Warn("failed to decode session document", "url", object.URL(), "err", err)
			continue
		}
		if criteria.Match(aSession, parameters) {
			ret = append(ret, aSession)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Seq < ret[j].Seq })
	return ret, nil
}

func (s *Service) sessionURL(id string) string {
	return url.Join(s.baseURL, id+".json")
}

// New creates a session store rooted at baseURL, creating it if needed.
func New(ctx context.Context, baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	fs := afs.New()
	if url.Scheme(baseURL, "") == "" {
		baseURL = url.Normalize(path.Clean(baseURL), file.Scheme)
	}
	exists, _ := fs.Exists(ctx, baseURL)
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", baseURL, err)
		}
	}
	return &Service{baseURL: baseURL, fs: fs, logger: logger.Logger}, nil
}
