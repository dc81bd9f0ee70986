package listener

import (
	"context"

	"github.com/randalmurphal/convlog/pkg/convlog"
	"github.com/randalmurphal/convlog/pkg/convlog/logstore"
	"github.com/randalmurphal/convlog/pkg/convlog/observability"
)

// ResponseLogger records inputs and responses as they arrive.
type ResponseLogger struct {
	base
}

var _ convlog.Listener = (*ResponseLogger)(nil)

// NewResponseLogger creates a ResponseLogger writing to store.
func NewResponseLogger(store logstore.Store, opts ...Option) *ResponseLogger {
	o := defaultOptions(string(KindResponseLogger))
	for _, opt := range opts {
		opt(&o)
	}
	return &ResponseLogger{base: newBase(store, o)}
}

// ProcessNotification implements convlog.Listener.
//
// Only the first utterance of an OUTPUT batch is written.
func (l *ResponseLogger) ProcessNotification(ctx context.Context, n convlog.Notification) error {
	switch n.Channel {
	case convlog.ChannelInput:
		return l.observe(ctx, n, func(ctx context.Context) error {
			return l.writeInputs(ctx, n.Utterances)
		})
	case convlog.ChannelOutput:
		return l.observe(ctx, n, func(ctx context.Context) error {
			if len(n.Utterances) == 0 {
				observability.LogEmptyBatch(l.logger, n.Channel)
				return nil
			}
			u := n.Utterances[0]
			return l.write(ctx, u.ConversationID, PrefixOutput, u.Data.String())
		})
	default:
		return nil
	}
}
