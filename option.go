package wtr

import (
	"github.com/charmbracelet/log"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/dao"
	"github.com/viant/wtr/service/event"
	"github.com/viant/wtr/service/event/nats"
	"github.com/viant/wtr/service/launcher"
	"github.com/viant/wtr/service/reporter"
	"github.com/viant/wtr/service/watch"
	"github.com/viant/wtr/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the service.
type Option func(s *Service)

// LauncherFactory creates a launcher for a configured browser that was not
// registered with WithLaunchers.
type LauncherFactory func(browser *BrowserConfig) (launcher.Launcher, error)

// WithConfig sets the run configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithLaunchers registers launchers.
func WithLaunchers(launchers ...launcher.Launcher) Option {
	return func(s *Service) {
		s.launchers = append(s.launchers, launchers...)
	}
}

// WithLauncherFactory sets the factory used for configured browsers.
func WithLauncherFactory(factory LauncherFactory) Option {
	return func(s *Service) { s.factory = factory }
}

// WithReporters sets reporters; they replace the configured ones.
func WithReporters(reporters ...reporter.Reporter) Option {
	return func(s *Service) {
		s.reporters = reporters
		s.customReporters = true
	}
}

// WithEventService sets the notification service.
func WithEventService(service *event.Service) Option {
	return func(s *Service) { s.events = service }
}

// WithHistory sets the session history DAO.
func WithHistory(history dao.Service[string, session.Session]) Option {
	return func(s *Service) { s.history = history }
}

// WithGraph sets the dependency graph used for watch reruns.
func WithGraph(graph watch.Graph) Option {
	return func(s *Service) { s.graph = graph }
}

// WithNatsPublisher forwards notifications to an existing NATS connection.
func WithNatsPublisher(publisher nats.Publisher) Option {
	return func(s *Service) { s.natsPublisher = publisher }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
