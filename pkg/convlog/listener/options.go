package listener

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/convlog/pkg/convlog/observability"
)

type options struct {
	name       string
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	pendingTTL time.Duration
	now        func() time.Time
}

func defaultOptions(name string) options {
	return options{
		name:    name,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		now:     time.Now,
	}
}

// Option configures a logging listener.
type Option func(*options)

// WithName overrides the name used in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger. Nil disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithSpanManager sets the span manager.
func WithSpanManager(s observability.SpanManager) Option {
	return func(o *options) {
		if s != nil {
			o.spans = s
		}
	}
}

// WithPendingTTL makes ScoringLogger.Sweep evict responses that have waited
// longer than ttl for a score. Zero keeps them forever. ResponseLogger
// ignores it.
func WithPendingTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.pendingTTL = ttl
	}
}

// WithClock sets the time source used to age pending responses.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
