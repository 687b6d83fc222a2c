package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/viant/wtr/runtime/session"
)

var (
	metricTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wtr",
		Name:      "session_transitions_total",
		Help:      "Number of session status transitions by target status.",
	}, []string{"status"})
	metricFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wtr",
		Name:      "session_failures_total",
		Help:      "Number of failed sessions by failure kind.",
	}, []string{"kind"})
	metricActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wtr",
		Name:      "active_sessions",
		Help:      "Sessions currently holding a launcher slot.",
	}, []string{"launcher"})
	metricDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wtr",
		Name:      "session_duration_seconds",
		Help:      "Time from browser start to terminal status.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"launcher", "status"})
	metricLauncherUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wtr",
		Name:      "launcher_up",
		Help:      "Whether a launcher reported itself active on the last health check.",
	}, []string{"launcher"})
	metricRunsFinished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wtr",
		Name:      "runs_finished_total",
		Help:      "Number of completed run cycles.",
	})
)

func recordTransition(s *session.Session, active int) {
	metricTransitions.WithLabelValues(string(s.Status)).Inc()
	metricActive.WithLabelValues(s.LauncherID).Set(float64(active))
	if !s.IsTerminal() {
		return
	}
	if s.Status == session.StatusFailed && s.FailureKind != "" {
		metricFailures.WithLabelValues(string(s.FailureKind)).Inc()
	}
	if s.StartedAt != nil && s.FinishedAt != nil {
		metricDuration.WithLabelValues(s.LauncherID, string(s.Status)).Observe(s.FinishedAt.Sub(*s.StartedAt).Seconds())
	}
}

func recordRunFinished() {
	metricRunsFinished.Inc()
}

func recordLauncherUp(name string, active bool) {
	value := 0.0
	if active {
		value = 1
	}
	metricLauncherUp.WithLabelValues(name).Set(value)
}
