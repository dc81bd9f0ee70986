package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/randalmurphal/convlog/pkg/convlog"
)

// Correlation outcomes recorded by RecordCorrelation.
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeDuplicate = "duplicate_output"
	OutcomeRestored  = "restored"
	OutcomeExpired   = "expired"
	OutcomeMalformed = "malformed"
)

// Dispatch operations recorded by RecordDispatch.
const (
	DispatchRequested = "requested"
	DispatchTaken     = "taken"
	DispatchEmpty     = "empty"
)

// MetricsRecorder records convlog metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNotification records one listener handling one notification.
	RecordNotification(ctx context.Context, listener string, channel convlog.Channel, duration time.Duration, err error)

	// RecordLine records a line appended to a conversation log.
	RecordLine(ctx context.Context, listener, prefix string)

	// RecordCorrelation records what happened to a pending response.
	RecordCorrelation(ctx context.Context, outcome string)

	// RecordDispatch records a context queue operation.
	RecordDispatch(ctx context.Context, op string)
}

type otelMetrics struct {
	notifications       metric.Int64Counter
	notificationErrors  metric.Int64Counter
	notificationLatency metric.Float64Histogram
	lines               metric.Int64Counter
	correlations        metric.Int64Counter
	dispatch            metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("convlog")

	notifications, err := meter.Int64Counter("convlog.notifications",
		metric.WithDescription("Notifications processed by listeners"),
	)
	if err != nil {
		return nil, err
	}

	notificationErrors, err := meter.Int64Counter("convlog.notification.errors",
		metric.WithDescription("Notifications a listener failed to process"),
	)
	if err != nil {
		return nil, err
	}

	notificationLatency, err := meter.Float64Histogram("convlog.notification.latency_ms",
		metric.WithDescription("Listener processing latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lines, err := meter.Int64Counter("convlog.lines",
		metric.WithDescription("Lines appended to conversation logs"),
	)
	if err != nil {
		return nil, err
	}

	correlations, err := meter.Int64Counter("convlog.correlations",
		metric.WithDescription("Pending response outcomes"),
	)
	if err != nil {
		return nil, err
	}

	dispatch, err := meter.Int64Counter("convlog.dispatch",
		metric.WithDescription("Context queue operations"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		notifications:       notifications,
		notificationErrors:  notificationErrors,
		notificationLatency: notificationLatency,
		lines:               lines,
		correlations:        correlations,
		dispatch:            dispatch,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider. If initialization fails it returns a no-op recorder.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordNotification(ctx context.Context, listener string, channel convlog.Channel, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("listener", listener),
		attribute.String("channel", channel.String()),
	)
	m.notifications.Add(ctx, 1, attrs)
	m.notificationLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.notificationErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordLine(ctx context.Context, listener, prefix string) {
	m.lines.Add(ctx, 1, metric.WithAttributes(
		attribute.String("listener", listener),
		attribute.String("prefix", prefix),
	))
}

func (m *otelMetrics) RecordCorrelation(ctx context.Context, outcome string) {
	m.correlations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *otelMetrics) RecordDispatch(ctx context.Context, op string) {
	m.dispatch.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
