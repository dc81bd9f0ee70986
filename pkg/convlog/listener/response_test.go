package listener_test

import (
	"context"
	"errors"
	"testing"

	"github.com/randalmurphal/convlog/pkg/convlog"
	"github.com/randalmurphal/convlog/pkg/convlog/listener"
	"github.com/randalmurphal/convlog/pkg/convlog/logstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseLogger_Input(t *testing.T) {
	store := logstore.NewMemoryStore()
	l := listener.NewResponseLogger(store)
	ctx := context.Background()

	err := l.ProcessNotification(ctx, batch(convlog.ChannelInput,
		input("conv1", "first"),
		input("conv2", "elsewhere"),
		input("conv1", "second"),
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"[Input] --> first", "[Input] --> second"}, linesOf(t, store, "conv1"))
	assert.Equal(t, []string{"[Input] --> elsewhere"}, linesOf(t, store, "conv2"))
}

func TestResponseLogger_OutputWritesFirstOnly(t *testing.T) {
	store := logstore.NewMemoryStore()
	l := listener.NewResponseLogger(store)

	err := l.ProcessNotification(context.Background(), batch(convlog.ChannelOutput,
		output("conv1", "c1", "chosen"),
		output("conv1", "c2", "ignored"),
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"[Output] --> chosen"}, linesOf(t, store, "conv1"))
}

func TestResponseLogger_EmptyOutputBatch(t *testing.T) {
	store := logstore.NewMemoryStore()
	l := listener.NewResponseLogger(store)

	require.NoError(t, l.ProcessNotification(context.Background(), batch(convlog.ChannelOutput)))
	assert.Equal(t, 0, store.Conversations())
}

func TestResponseLogger_IgnoresOtherChannels(t *testing.T) {
	store := logstore.NewMemoryStore()
	l := listener.NewResponseLogger(store)
	ctx := context.Background()

	require.NoError(t, l.ProcessNotification(ctx, batch(convlog.ChannelScoring, score("conv1", "c1", "0.9"))))
	require.NoError(t, l.ProcessNotification(ctx, batch(convlog.Channel(99), input("conv1", "x"))))
	assert.Equal(t, 0, store.Conversations())
}

func TestResponseLogger_StorageFailure(t *testing.T) {
	store := logstore.NewMemoryStore()
	l := listener.NewResponseLogger(store)
	boom := errors.New("disk full")

	store.FailNext(1, boom)
	err := l.ProcessNotification(context.Background(), batch(convlog.ChannelInput,
		input("conv1", "lost"),
		input("conv1", "not attempted"),
	))
	require.ErrorIs(t, err, boom)
	assert.Empty(t, linesOf(t, store, "conv1"))
}

func TestResponseLogger_Name(t *testing.T) {
	assert.Equal(t, "response_logger", listener.NewResponseLogger(logstore.NewMemoryStore()).Name())
	assert.Equal(t, "database", listener.NewResponseLogger(logstore.NewMemoryStore(), listener.WithName("database")).Name())
}
