package listener

import (
	"context"
	"log/slog"
	"time"

	"github.com/randalmurphal/convlog/pkg/convlog"
	"github.com/randalmurphal/convlog/pkg/convlog/logstore"
	"github.com/randalmurphal/convlog/pkg/convlog/observability"
)

// Line prefixes.
const (
	PrefixInput  = "Input"
	PrefixOutput = "Output"
)

// base holds what both logging listeners share: the store and the
// observability plumbing around each notification.
type base struct {
	name    string
	store   logstore.Store
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

func newBase(store logstore.Store, o options) base {
	return base{
		name:    o.name,
		store:   store,
		logger:  observability.EnrichLogger(o.logger, o.name),
		metrics: o.metrics,
		spans:   o.spans,
	}
}

// Name returns the listener name used in logs and metrics.
func (b *base) Name() string {
	return b.name
}

// observe runs fn inside a span and records its outcome.
func (b *base) observe(ctx context.Context, n convlog.Notification, fn func(context.Context) error) error {
	ctx, span := b.spans.StartNotificationSpan(ctx, b.name, n)
	start := time.Now()
	observability.LogNotification(b.logger, n.Channel, len(n.Utterances))

	err := fn(ctx)

	b.metrics.RecordNotification(ctx, b.name, n.Channel, time.Since(start), err)
	if err != nil {
		observability.LogNotificationError(b.logger, n.Channel, err)
	}
	b.spans.EndSpanWithError(span, err)
	return err
}

func (b *base) write(ctx context.Context, conversationID, prefix, data string) error {
	if err := b.store.Append(ctx, conversationID, logstore.FormatLine(prefix, data)); err != nil {
		return err
	}
	b.metrics.RecordLine(ctx, b.name, prefix)
	return nil
}

// writeInputs appends one Input line per utterance, each to its own
// conversation. It stops at the first failure; earlier lines stay written.
func (b *base) writeInputs(ctx context.Context, utterances []convlog.Utterance) error {
	for _, u := range utterances {
		if err := b.write(ctx, u.ConversationID, PrefixInput, u.Data.String()); err != nil {
			return err
		}
	}
	return nil
}
