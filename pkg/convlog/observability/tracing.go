package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/convlog/pkg/convlog"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartNotificationSpan starts a span for one listener handling one
	// notification.
	StartNotificationSpan(ctx context.Context, listener string, n convlog.Notification) (context.Context, trace.Span)

	// EndSpanWithError completes a span, recording err if non-nil.
	EndSpanWithError(span trace.Span, err error)
}

type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager using the global OTel tracer
// provider at the time of the call.
func NewSpanManager() SpanManager {
	return &otelSpanManager{tracer: otel.Tracer("convlog")}
}

func (m *otelSpanManager) StartNotificationSpan(ctx context.Context, listener string, n convlog.Notification) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "convlog.notification",
		trace.WithAttributes(
			attribute.String("listener", listener),
			attribute.String("channel", n.Channel.String()),
			attribute.Int("utterances", len(n.Utterances)),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
