package dbregistry

import (
	"time"
)

// Logger interface for lifecycle logging, statement echo, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector interface for collecting registry performance and operational metrics.
// This interface is dependency-free, allowing users to integrate with any metrics backend
// (OpenTelemetry, Prometheus, etc.) by implementing it; see the oteladapters module for
// a plug-and-play implementation.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}
