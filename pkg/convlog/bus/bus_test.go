package bus_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randalmurphal/convlog/pkg/convlog"
	"github.com/randalmurphal/convlog/pkg/convlog/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects the notifications it receives.
type recorder struct {
	mu       sync.Mutex
	received []convlog.Notification
}

func (r *recorder) ProcessNotification(_ context.Context, n convlog.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, n)
	return nil
}

func (r *recorder) channels() []convlog.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]convlog.Channel, 0, len(r.received))
	for _, n := range r.received {
		out = append(out, n.Channel)
	}
	return out
}

func notify(c convlog.Channel) convlog.Notification {
	return convlog.Notification{Channel: c, Utterances: []convlog.Utterance{{ConversationID: "conv1"}}}
}

func TestBus_DeliversInOrder(t *testing.T) {
	b := bus.NewBus(bus.DefaultConfig)

	rec := &recorder{}
	require.NotNil(t, b.AcceptSubscription(rec))

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, notify(convlog.ChannelInput)))
	require.NoError(t, b.Publish(ctx, notify(convlog.ChannelOutput)))
	require.NoError(t, b.Publish(ctx, notify(convlog.ChannelScoring)))

	require.NoError(t, b.Close())

	assert.Equal(t, []convlog.Channel{convlog.ChannelInput, convlog.ChannelOutput, convlog.ChannelScoring}, rec.channels())
}

func TestBus_FailingListenerIsolated(t *testing.T) {
	var errCount atomic.Int32
	b := bus.NewBus(bus.Config{
		OnError: func(_ convlog.Notification, _ string, _ error) {
			errCount.Add(1)
		},
	})

	b.AcceptSubscription(convlog.ListenerFunc(func(context.Context, convlog.Notification) error {
		return errors.New("storage down")
	}))
	b.AcceptSubscription(convlog.ListenerFunc(func(context.Context, convlog.Notification) error {
		panic("listener bug")
	}))
	healthy := &recorder{}
	b.AcceptSubscription(healthy)

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, notify(convlog.ChannelInput)))
	require.NoError(t, b.Publish(ctx, notify(convlog.ChannelOutput)))
	require.NoError(t, b.Close())

	assert.Len(t, healthy.channels(), 2)
	assert.Equal(t, int32(4), errCount.Load())
}

func TestBus_NoReentrancy(t *testing.T) {
	b := bus.NewBus(bus.DefaultConfig)

	var active, maxActive atomic.Int32
	b.AcceptSubscription(convlog.ListenerFunc(func(context.Context, convlog.Notification) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_ = b.Publish(context.Background(), notify(convlog.ChannelInput))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, b.Close())

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestBus_Unsubscribe(t *testing.T) {
	b := bus.NewBus(bus.DefaultConfig)

	rec := &recorder{}
	sub := b.AcceptSubscription(rec)
	assert.Equal(t, 1, b.Len())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, b.Len())

	require.NoError(t, b.Publish(context.Background(), notify(convlog.ChannelInput)))
	require.NoError(t, b.Close())
	assert.Empty(t, rec.channels())
}

func TestBus_Closed(t *testing.T) {
	b := bus.NewBus(bus.DefaultConfig)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Publish(context.Background(), notify(convlog.ChannelInput)), bus.ErrClosed)
	assert.Nil(t, b.AcceptSubscription(&recorder{}))
}

func TestBus_NonBlockingDrops(t *testing.T) {
	var dropped atomic.Int32
	block := make(chan struct{})

	b := bus.NewBus(bus.Config{
		BufferSize:  1,
		NonBlocking: true,
		OnDrop: func(convlog.Notification, string) {
			dropped.Add(1)
		},
	})

	started := make(chan struct{}, 1)
	b.AcceptSubscription(convlog.ListenerFunc(func(context.Context, convlog.Notification) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, notify(convlog.ChannelInput)))
	<-started // listener holds the first notification

	require.NoError(t, b.Publish(ctx, notify(convlog.ChannelInput))) // fills the buffer
	require.NoError(t, b.Publish(ctx, notify(convlog.ChannelInput))) // dropped

	close(block)
	require.NoError(t, b.Close())
	assert.Equal(t, int32(1), dropped.Load())
}

func TestBus_PublishRespectsContext(t *testing.T) {
	block := make(chan struct{})
	b := bus.NewBus(bus.Config{BufferSize: 1})

	started := make(chan struct{}, 1)
	b.AcceptSubscription(convlog.ListenerFunc(func(context.Context, convlog.Notification) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}))

	require.NoError(t, b.Publish(context.Background(), notify(convlog.ChannelInput)))
	<-started
	require.NoError(t, b.Publish(context.Background(), notify(convlog.ChannelInput)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Publish(ctx, notify(convlog.ChannelInput))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	require.NoError(t, b.Close())
}

func TestBus_PublishBeforeCloseIsDelivered(t *testing.T) {
	for i := 0; i < 200; i++ {
		b := bus.NewBus(bus.Config{BufferSize: 4})

		var delivered atomic.Int32
		b.AcceptSubscription(convlog.ListenerFunc(func(context.Context, convlog.Notification) error {
			delivered.Add(1)
			return nil
		}))

		var accepted atomic.Int32
		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 8; j++ {
					if b.Publish(context.Background(), notify(convlog.ChannelInput)) == nil {
						accepted.Add(1)
					}
				}
			}()
		}

		require.NoError(t, b.Close())
		wg.Wait()

		require.Equal(t, accepted.Load(), delivered.Load(), "iteration %d", i)
	}
}

func TestBus_UnsubscribeWakesBlockedPublisher(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	b := bus.NewBus(bus.Config{BufferSize: 1})

	started := make(chan struct{}, 1)
	sub := b.AcceptSubscription(convlog.ListenerFunc(func(context.Context, convlog.Notification) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, notify(convlog.ChannelInput)))
	<-started
	require.NoError(t, b.Publish(ctx, notify(convlog.ChannelInput)))

	published := make(chan error, 1)
	go func() { published <- b.Publish(ctx, notify(convlog.ChannelInput)) }()

	unsubscribed := make(chan struct{})
	go func() {
		sub.Unsubscribe()
		close(unsubscribed)
	}()

	select {
	case err := <-published:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish still blocked after unsubscribe")
	}
	select {
	case <-unsubscribed:
	case <-time.After(time.Second):
		t.Fatal("unsubscribe blocked")
	}
	assert.Equal(t, 0, b.Len())
}
