// Package bus delivers notifications to subscribed listeners in-process.
//
// Each subscription owns a buffered queue drained by its own goroutine, so
// a listener sees its notifications one at a time and in publish order,
// while separate listeners run concurrently. A listener that fails or
// panics is reported through Config.OnError and never affects delivery to
// the others.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/convlog/pkg/convlog"
)

// ErrClosed indicates the bus has been closed.
var ErrClosed = errors.New("bus is closed")

// Config configures bus behavior.
type Config struct {
	// BufferSize is the queue length per subscription.
	// Default: 256
	BufferSize int

	// NonBlocking makes Publish drop notifications for subscribers whose
	// queue is full instead of waiting.
	// Default: false (blocking)
	NonBlocking bool

	// Logger receives delivery failures when OnError is nil.
	Logger *slog.Logger

	// OnDrop is called when a notification is dropped (non-blocking mode).
	OnDrop func(n convlog.Notification, subscriberID string)

	// OnError is called when a listener returns an error or panics.
	OnError func(n convlog.Notification, subscriberID string, err error)
}

// DefaultConfig provides reasonable defaults.
var DefaultConfig = Config{
	BufferSize: 256,
}

// LocalBus is an in-memory Subscriber and publisher.
type LocalBus struct {
	config Config

	mu            sync.RWMutex
	subscriptions map[string]*subscription

	nextID  atomic.Int64
	closed  atomic.Bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

var _ convlog.Subscriber = (*LocalBus)(nil)

// NewBus creates a new local bus.
func NewBus(config Config) *LocalBus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig.BufferSize
	}
	return &LocalBus{
		config:        config,
		subscriptions: make(map[string]*subscription),
		closeCh:       make(chan struct{}),
	}
}

type subscription struct {
	id       string
	listener convlog.Listener
	queue    chan convlog.Notification
	done     chan struct{}
	stopOnce sync.Once
	bus      *LocalBus
}

// AcceptSubscription registers l for notifications on every channel.
// It returns nil if the bus is closed.
func (b *LocalBus) AcceptSubscription(l convlog.Listener) convlog.Subscription {
	if b.closed.Load() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Close may have started between the check above and taking the lock.
	if b.closed.Load() {
		return nil
	}

	sub := &subscription{
		id:       fmt.Sprintf("sub-%d", b.nextID.Add(1)),
		listener: l,
		queue:    make(chan convlog.Notification, b.config.BufferSize),
		done:     make(chan struct{}),
		bus:      b,
	}
	b.subscriptions[sub.id] = sub

	b.wg.Add(1)
	go sub.process()

	return sub
}

// Len returns the number of active subscriptions.
func (b *LocalBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

// Publish queues n for every subscription. In blocking mode it waits for
// queue space, returning early if ctx is done or the bus closes.
//
// The read lock is held across the sends so Close, which takes the write
// lock before stopping subscriptions, can't stop one while a send to it is
// in flight. A nil return means every subscription has n queued.
func (b *LocalBus) Publish(ctx context.Context, n convlog.Notification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed.Load() {
		return ErrClosed
	}

	for _, sub := range b.subscriptions {
		if b.config.NonBlocking {
			select {
			case sub.queue <- n:
			default:
				if b.config.OnDrop != nil {
					b.config.OnDrop(n, sub.id)
				}
			}
			continue
		}

		select {
		case sub.queue <- n:
		case <-sub.done:
			// Unsubscribed while we were waiting.
		case <-ctx.Done():
			return ctx.Err()
		case <-b.closeCh:
			return fmt.Errorf("publish %s: %w", n.Channel, ErrClosed)
		}
	}
	return nil
}

// Close stops accepting notifications, lets every subscription finish the
// notifications already queued, and waits for them.
func (b *LocalBus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(b.closeCh)

	b.mu.Lock()
	for _, sub := range b.subscriptions {
		sub.stop()
	}
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

func (s *subscription) process() {
	defer s.bus.wg.Done()
	for {
		select {
		case n := <-s.queue:
			s.deliver(n)
		case <-s.done:
			s.drain()
			return
		}
	}
}

// drain delivers whatever is still queued after stop.
func (s *subscription) drain() {
	for {
		select {
		case n := <-s.queue:
			s.deliver(n)
		default:
			return
		}
	}
}

func (s *subscription) deliver(n convlog.Notification) {
	err := s.invoke(n)
	if err == nil {
		return
	}

	switch {
	case s.bus.config.OnError != nil:
		s.bus.config.OnError(n, s.id, err)
	case s.bus.config.Logger != nil:
		s.bus.config.Logger.Error("listener failed",
			slog.String("subscription", s.id),
			slog.String("channel", n.Channel.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *subscription) invoke(n convlog.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return s.listener.ProcessNotification(context.Background(), n)
}

func (s *subscription) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// Unsubscribe implements convlog.Subscription. The subscription is
// stopped before it is removed so a Publish blocked on its full queue
// wakes up and releases the bus lock.
func (s *subscription) Unsubscribe() {
	s.stop()
	s.bus.mu.Lock()
	delete(s.bus.subscriptions, s.id)
	s.bus.mu.Unlock()
}
