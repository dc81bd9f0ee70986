package dispatch_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/convlog/pkg/convlog/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestRequestContext(t *testing.T) {
	q := dispatch.NewContextQueue()

	rec := q.RequestContext()
	assert.Regexp(t, hexID, rec.ID)
	assert.Equal(t, "Sample context. "+rec.ID, rec.Data)
	assert.Equal(t, 1, q.Len())

	other := q.RequestContext()
	assert.NotEqual(t, rec.ID, other.ID)
	assert.Equal(t, 2, q.Len())
}

func TestTakeInput_FIFO(t *testing.T) {
	q := dispatch.NewContextQueue()

	const n = 20
	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		want = append(want, q.RequestContext().ID)
	}

	got := make([]string, 0, n)
	for i := 0; i < n; i++ {
		rec, ok := q.TakeInput(context.Background())
		require.True(t, ok, "take %d", i)
		got = append(got, rec.ID)
	}

	assert.Equal(t, want, got)
	assert.Equal(t, 0, q.Len())
}

func TestTakeInput_Timeout(t *testing.T) {
	const timeout = 50 * time.Millisecond
	q := dispatch.NewContextQueue(dispatch.WithTimeout(timeout))
	assert.Equal(t, timeout, q.Timeout())

	start := time.Now()
	rec, ok := q.TakeInput(context.Background())
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.Equal(t, dispatch.Record{}, rec)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestTakeInput_DefaultTimeout(t *testing.T) {
	q := dispatch.NewContextQueue()
	assert.Equal(t, dispatch.DefaultTimeout, q.Timeout())
}

func TestTakeInput_ZeroTimeoutReturnsImmediately(t *testing.T) {
	q := dispatch.NewContextQueue(dispatch.WithTimeout(0))

	start := time.Now()
	_, ok := q.TakeInput(context.Background())
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTakeInput_WakesOnArrival(t *testing.T) {
	q := dispatch.NewContextQueue(dispatch.WithTimeout(2 * time.Second))

	produced := make(chan dispatch.Record, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		produced <- q.RequestContext()
	}()

	start := time.Now()
	rec, ok := q.TakeInput(context.Background())
	require.True(t, ok)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, (<-produced).ID, rec.ID)
}

func TestTakeInput_Cancelled(t *testing.T) {
	q := dispatch.NewContextQueue(dispatch.WithTimeout(10 * time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, ok := q.TakeInput(ctx)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestConcurrentProducersAndConsumers(t *testing.T) {
	q := dispatch.NewContextQueue(dispatch.WithTimeout(200 * time.Millisecond))

	const producers = 4
	const perProducer = 50
	total := producers * perProducer

	var produceWG sync.WaitGroup
	for p := 0; p < producers; p++ {
		produceWG.Add(1)
		go func() {
			defer produceWG.Done()
			for i := 0; i < perProducer; i++ {
				q.RequestContext()
			}
		}()
	}

	var mu sync.Mutex
	seen := make(map[string]bool, total)

	var consumeWG sync.WaitGroup
	for c := 0; c < 3; c++ {
		consumeWG.Add(1)
		go func() {
			defer consumeWG.Done()
			for {
				rec, ok := q.TakeInput(context.Background())
				if !ok {
					return
				}
				mu.Lock()
				assert.False(t, seen[rec.ID], "record %s taken twice", rec.ID)
				seen[rec.ID] = true
				mu.Unlock()
			}
		}()
	}

	produceWG.Wait()
	consumeWG.Wait()

	assert.Len(t, seen, total)
	assert.Equal(t, 0, q.Len())
}
