package convlog

import (
	"context"
	"fmt"
	"strings"
)

// Channel is the category a notification was published on.
type Channel int

const (
	// ChannelInput carries contexts shown to a worker.
	ChannelInput Channel = iota + 1

	// ChannelOutput carries worker responses.
	ChannelOutput

	// ChannelScoring carries scores for earlier responses.
	ChannelScoring
)

// Channels lists every known channel in declaration order.
var Channels = []Channel{ChannelInput, ChannelOutput, ChannelScoring}

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelInput:
		return "INPUT"
	case ChannelOutput:
		return "OUTPUT"
	case ChannelScoring:
		return "SCORING"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// ParseChannel converts a channel name (case-insensitive) to a Channel.
func ParseChannel(s string) (Channel, error) {
	for _, c := range Channels {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", s)
}

// Data is an utterance payload.
//
// Inputs and scores carry plain Text. Responses arrive wrapped: the text
// lives in Inner, one level down.
type Data struct {
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
	Inner *Data  `json:"data,omitempty" yaml:"data,omitempty"`
}

// Text returns a plain payload.
func Text(s string) Data {
	return Data{Text: s}
}

// Wrapped returns a payload whose text sits one level down, the shape
// responses are published in.
func Wrapped(s string) Data {
	return Data{Inner: &Data{Text: s}}
}

// String renders the payload as log text. Wrapped payloads render their
// innermost text.
func (d Data) String() string {
	if d.Inner != nil && d.Text == "" {
		return d.Inner.String()
	}
	return d.Text
}

// Utterance is one dialogue event: a context, a response, or a score.
// Utterances are values and are never modified after construction.
type Utterance struct {
	// ConversationID names the log the utterance belongs to.
	ConversationID string `json:"conversation_id" yaml:"conversation_id"`

	// ContextID links a response to its eventual score.
	ContextID string `json:"context_id" yaml:"context_id"`

	Data Data `json:"data" yaml:"data"`
}

// Notification is one batch delivered on a channel.
type Notification struct {
	Channel    Channel
	Utterances []Utterance
}

// Listener receives notifications from a bus.
//
// A listener is never invoked concurrently with itself by LocalBus, but
// implementations that may be shared across buses must be safe for
// concurrent use. Channels a listener doesn't recognise are a no-op, not an
// error.
type Listener interface {
	ProcessNotification(ctx context.Context, n Notification) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, n Notification) error

// ProcessNotification implements Listener.
func (f ListenerFunc) ProcessNotification(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Subscription is an active registration of a listener on a bus.
type Subscription interface {
	// Unsubscribe stops delivery. Notifications already queued may still
	// be delivered.
	Unsubscribe()
}

// Subscriber accepts listeners for future notifications.
type Subscriber interface {
	AcceptSubscription(l Listener) Subscription
}
