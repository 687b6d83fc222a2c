// Package tracing wraps OpenTelemetry so that the orchestrator can record one
// span per run cycle and one span per session attempt without importing the
// upstream packages directly.
package tracing
