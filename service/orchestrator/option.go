package orchestrator

import (
	"github.com/charmbracelet/log"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/dao"
	"github.com/viant/wtr/service/event"
	"github.com/viant/wtr/service/launcher"
)

// Option customises the orchestrator.
type Option func(s *Service)

// WithConfig sets the configuration.
func WithConfig(config Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLaunchers registers launchers.
func WithLaunchers(launchers ...launcher.Launcher) Option {
	return func(s *Service) {
		for _, l := range launchers {
			s.registry.Register(l)
		}
	}
}

// WithRegistry replaces the launcher registry.
func WithRegistry(registry *launcher.Registry) Option {
	return func(s *Service) { s.registry = registry }
}

// WithEvents sets the notification service.
func WithEvents(events *event.Service) Option {
	return func(s *Service) { s.events = events }
}

// WithHistory persists every session change.
func WithHistory(history dao.Service[string, session.Session]) Option {
	return func(s *Service) { s.history = history }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}
