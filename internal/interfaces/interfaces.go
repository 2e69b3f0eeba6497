package interfaces

import (
	"context"

	"github.com/igorsal/commit-bridge/internal/models"
)

// TrackerClient defines the outbound calls made against the issue tracker
type TrackerClient interface {
	AddComment(ctx context.Context, issueID int, body string) error
	SetStatus(ctx context.Context, issueID int, statusID string) error
}

// WebhookDispatcher runs one webhook delivery through the whole pipeline
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, raw models.RawWebhook) (*models.DispatchResult, error)
}

// StatusMappingSource hands out the current status mapping snapshot
type StatusMappingSource interface {
	Current() models.StatusMapping
	Reload() (models.StatusMapping, error)
}

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Fatal(msg string, err error, fields ...interface{})
	With(fields ...interface{}) Logger
}

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	IncrementCounter(name string, labels map[string]string)
	RecordDuration(name string, duration float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

// CircuitBreaker defines the interface for circuit breaker pattern
type CircuitBreaker interface {
	Execute(req func() (interface{}, error)) (interface{}, error)
	Name() string
	State() string
}
