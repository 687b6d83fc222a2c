package wtr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	natsgo "github.com/nats-io/nats.go"
	"github.com/viant/wtr/internal/logger"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/dao"
	fshistory "github.com/viant/wtr/service/dao/session/fs"
	"github.com/viant/wtr/service/dao/session/memory"
	"github.com/viant/wtr/service/event"
	"github.com/viant/wtr/service/event/nats"
	"github.com/viant/wtr/service/launcher"
	lmemory "github.com/viant/wtr/service/launcher/memory"
	"github.com/viant/wtr/service/reporter"
	"github.com/viant/wtr/service/reporter/console"
	"github.com/viant/wtr/service/reporter/junit"
	"github.com/viant/wtr/service/watch"
	"github.com/viant/wtr/tracing"
)

// Version is reported to tracing and the CLI.
const Version = "0.1.0"

// SimulatedPrefix marks browsers served by the in-process simulated launcher.
const SimulatedPrefix = "simulated"

// ErrUnknownBrowser is returned when no launcher can serve a configured browser.
var ErrUnknownBrowser = errors.New("unknown browser")

// Service wires launchers, reporters, notifications and history for a run.
type Service struct {
	config          *Config
	launchers       []launcher.Launcher
	factory         LauncherFactory
	registry        *launcher.Registry
	reporters       []reporter.Reporter
	customReporters bool
	events          *event.Service
	history         dao.Service[string, session.Session]
	graph           watch.Graph
	natsPublisher   nats.Publisher
	natsConn        *natsgo.Conn
	logger          *log.Logger
	runtime         *Runtime
}

// New creates a service from options. The configuration is validated and
// every configured browser must resolve to a launcher.
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig(), factory: SimulatedLauncherFactory}
	for _, option := range options {
		option(ret)
	}
	if err := ret.init(ctx); err != nil {
		ret.closeNats()
		return nil, err
	}
	return ret, nil
}

func (s *Service) init(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	s.logger = logger.Or(s.logger)
	if s.config.TraceFile != "" {
		if err := tracing.Init("wtr", Version, s.config.TraceFile); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if err := s.initLaunchers(); err != nil {
		return err
	}
	if s.events == nil {
		s.events = event.New()
	}
	if err := s.initHistory(ctx); err != nil {
		return err
	}
	if !s.customReporters {
		s.reporters = s.configuredReporters()
	}
	if s.graph == nil {
		s.graph = watch.NewMemoryGraph()
	}
	if s.natsPublisher == nil && s.config.NatsURL != "" {
		conn, err := nats.Connect(s.config.NatsURL, "wtr")
		if err != nil {
			return err
		}
		s.natsConn = conn
		s.natsPublisher = conn
	}
	s.runtime = newRuntime(s)
	return nil
}

func (s *Service) initLaunchers() error {
	s.registry = launcher.NewRegistry(s.launchers...)
	for _, browser := range s.config.Browsers {
		if s.registry.Lookup(browser.Name) != nil {
			continue
		}
		if s.factory == nil {
			return fmt.Errorf("%w: %v", ErrUnknownBrowser, browser.Name)
		}
		aLauncher, err := s.factory(browser)
		if err != nil {
			return err
		}
		s.registry.Register(aLauncher)
	}
	return nil
}

func (s *Service) initHistory(ctx context.Context) error {
	if s.history != nil {
		return nil
	}
	if s.config.HistoryURL == "" {
		s.history = memory.New()
		return nil
	}
	history, err := fshistory.New(ctx, s.config.HistoryURL)
	if err != nil {
		return fmt.Errorf("failed to open session history %v: %w", s.config.HistoryURL, err)
	}
	s.history = history
	return nil
}

func (s *Service) configuredReporters() []reporter.Reporter {
	var ret []reporter.Reporter
	for _, name := range s.config.Reporters {
		switch name {
		case console.Name:
			ret = append(ret, console.New(console.WithSessions(s.config.Watch)))
		case junit.Name:
			ret = append(ret, junit.New(junit.WithOutput(s.config.JUnitOutput), junit.WithLogger(s.logger)))
		}
	}
	return ret
}

// SimulatedLauncherFactory serves browsers named "simulated" or
// "simulated-<name>" with the in-process simulated launcher.
func SimulatedLauncherFactory(browser *BrowserConfig) (launcher.Launcher, error) {
	if !strings.HasPrefix(browser.Name, SimulatedPrefix) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownBrowser, browser.Name)
	}
	var options []lmemory.Option
	if browser.Concurrency > 0 {
		options = append(options, lmemory.WithConcurrency(browser.Concurrency))
	}
	return lmemory.New(browser.Name, options...), nil
}

// Config returns the run configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Runtime returns the run runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Registry returns the launcher registry.
func (s *Service) Registry() *launcher.Registry {
	return s.registry
}

// Events returns the notification service.
func (s *Service) Events() *event.Service {
	return s.events
}

// Close stops the runtime and releases notification resources.
func (s *Service) Close(ctx context.Context) error {
	err := s.runtime.Stop(ctx)
	s.events.Close()
	s.closeNats()
	return err
}

func (s *Service) closeNats() {
	if s.natsConn == nil {
		return
	}
	if err := s.natsConn.Drain(); err != nil {
		s.natsConn.Close()
	}
	s.natsConn = nil
}
