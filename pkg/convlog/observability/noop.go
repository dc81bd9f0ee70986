package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/randalmurphal/convlog/pkg/convlog"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

// RecordNotification does nothing.
func (NoopMetrics) RecordNotification(_ context.Context, _ string, _ convlog.Channel, _ time.Duration, _ error) {
}

// RecordLine does nothing.
func (NoopMetrics) RecordLine(_ context.Context, _, _ string) {}

// RecordCorrelation does nothing.
func (NoopMetrics) RecordCorrelation(_ context.Context, _ string) {}

// RecordDispatch does nothing.
func (NoopMetrics) RecordDispatch(_ context.Context, _ string) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartNotificationSpan returns ctx unchanged and a no-op span.
func (NoopSpanManager) StartNotificationSpan(ctx context.Context, _ string, _ convlog.Notification) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}
