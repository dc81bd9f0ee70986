// Package dispatch issues context requests to worker-facing consumers.
//
// A producer calls RequestContext to create and enqueue a record; a
// consumer loop calls TakeInput, which waits a bounded time for the next
// record and reports an empty result instead of blocking forever.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/convlog/pkg/convlog/observability"
)

// DefaultTimeout is how long TakeInput waits for a record.
const DefaultTimeout = 500 * time.Millisecond

// Record is one dispatched context request.
type Record struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// ContextQueue is a FIFO of context requests. It is safe for any number
// of concurrent producers and consumers.
type ContextQueue struct {
	timeout time.Duration
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	mu    sync.Mutex
	items []Record

	// ready holds a token while items is non-empty, so waiting consumers
	// can select on it alongside their timer.
	ready chan struct{}
}

// Option configures a ContextQueue.
type Option func(*ContextQueue)

// WithTimeout sets how long TakeInput waits. Non-positive values make
// TakeInput return immediately when the queue is empty.
func WithTimeout(d time.Duration) Option {
	return func(q *ContextQueue) {
		q.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *ContextQueue) {
		q.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(q *ContextQueue) {
		q.metrics = m
	}
}

// NewContextQueue creates an empty queue.
func NewContextQueue(opts ...Option) *ContextQueue {
	q := &ContextQueue{
		timeout: DefaultTimeout,
		metrics: observability.NoopMetrics{},
		ready:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Timeout returns the configured wait for TakeInput.
func (q *ContextQueue) Timeout() time.Duration {
	return q.timeout
}

// RequestContext creates a record with a fresh id and placeholder data,
// enqueues it, and returns it. It never blocks.
func (q *ContextQueue) RequestContext() Record {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	rec := Record{
		ID:   id,
		Data: "Sample context. " + id,
	}

	q.mu.Lock()
	q.items = append(q.items, rec)
	queued := len(q.items)
	q.signalLocked()
	q.mu.Unlock()

	q.metrics.RecordDispatch(context.Background(), observability.DispatchRequested)
	observability.LogContextRequested(q.logger, id, queued)
	return rec
}

// TakeInput returns the oldest record, waiting up to the queue timeout for
// one to arrive. It returns false when the wait elapses or ctx is done.
func (q *ContextQueue) TakeInput(ctx context.Context) (Record, bool) {
	if rec, ok := q.pop(); ok {
		q.metrics.RecordDispatch(ctx, observability.DispatchTaken)
		return rec, true
	}
	if q.timeout <= 0 {
		q.metrics.RecordDispatch(ctx, observability.DispatchEmpty)
		return Record{}, false
	}

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.ready:
			if rec, ok := q.pop(); ok {
				q.metrics.RecordDispatch(ctx, observability.DispatchTaken)
				return rec, true
			}
			// Another consumer won the race; keep waiting.
		case <-timer.C:
			q.metrics.RecordDispatch(ctx, observability.DispatchEmpty)
			return Record{}, false
		case <-ctx.Done():
			return Record{}, false
		}
	}
}

// Len returns the number of queued records.
func (q *ContextQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *ContextQueue) pop() (Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Record{}, false
	}
	rec := q.items[0]
	q.items[0] = Record{}
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signalLocked()
	}
	return rec, true
}

// signalLocked leaves a token in ready. Caller holds q.mu.
func (q *ContextQueue) signalLocked() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
