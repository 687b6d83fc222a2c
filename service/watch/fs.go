package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/viant/wtr/internal/logger"
)

// DefaultDebounce is the quiet period closing a change batch.
const DefaultDebounce = 100 * time.Millisecond

var skippedDirs = map[string]bool{".git": true, "node_modules": true}

// FSSource watches directory trees and delivers debounced batches of
// changed paths.
type FSSource struct {
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	deliver   func(paths []string)
	logger    *log.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// FSOption customises the source.
type FSOption func(s *FSSource)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) FSOption {
	return func(s *FSSource) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithFSLogger sets the logger.
func WithFSLogger(l *log.Logger) FSOption {
	return func(s *FSSource) { s.logger = l }
}

// NewFSSource creates a source delivering batches to deliver.
func NewFSSource(deliver func(paths []string), opts ...FSOption) (*FSSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ret := &FSSource{watcher: watcher, debounce: DefaultDebounce, deliver: deliver, done: make(chan struct{})}
	for _, opt := range opts {
		opt(ret)
	}
	ret.logger = logger.Or(ret.logger)
	return ret, nil
}

// Add watches every directory under the given roots.
func (s *FSSource) Add(roots ...string) error {
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && (skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return s.watcher.Add(path)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Start consumes file system events until ctx is done or Close is called.
func (s *FSSource) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *FSSource) run(ctx context.Context) {
	defer close(s.done)
	batch := map[string]struct{}{}
	var timer *time.Timer
	var fire <-chan time.Time
	flush := func() {
		if len(batch) == 0 {
			return
		}
		paths := make([]string, 0, len(batch))
		for path := range batch {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		batch = map[string]struct{}{}
		s.deliver(paths)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Remove) && !e.Has(fsnotify.Rename) {
				continue
			}
			if e.Has(fsnotify.Create) {
				s.watchIfDir(e.Name)
			}
			batch[filepath.Clean(e.Name)] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.debounce)
			}
			fire = timer.C
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file watcher error", "err", err)
		case <-fire:
			fire = nil
			flush()
		}
	}
}

func (s *FSSource) watchIfDir(path string) {
	if err := s.Add(path); err != nil {
		s.logger.Debug("not watching created path", "path", path, "err", err)
	}
}

// Close stops watching.
func (s *FSSource) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.watcher.Close() })
	return err
}
