package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphal/convlog/pkg/convlog"
	"github.com/randalmurphal/convlog/pkg/convlog/logstore"
	"github.com/randalmurphal/convlog/pkg/convlog/observability"
)

// ScoringLogger records inputs as they arrive and responses once they are
// scored. Each response waits in a pending table keyed by context id until
// a SCORING utterance with the same id arrives; the pair is written as one
// line and the entry removed, so a response is logged at most once.
//
// Scores with no pending response are ignored. A second response for a
// context id that is still pending replaces the first.
type ScoringLogger struct {
	base

	ttl time.Duration
	now func() time.Time

	// mu guards pending and is held across the log write on a match, so
	// concurrent duplicate scores can't both take the same entry.
	mu      sync.Mutex
	pending map[string]pendingResponse
}

type pendingResponse struct {
	utterance convlog.Utterance
	storedAt  time.Time
}

var _ convlog.Listener = (*ScoringLogger)(nil)

// NewScoringLogger creates a ScoringLogger writing to store.
func NewScoringLogger(store logstore.Store, opts ...Option) *ScoringLogger {
	o := defaultOptions(string(KindScoringLogger))
	for _, opt := range opts {
		opt(&o)
	}
	return &ScoringLogger{
		base:    newBase(store, o),
		ttl:     o.pendingTTL,
		now:     o.now,
		pending: make(map[string]pendingResponse),
	}
}

// ProcessNotification implements convlog.Listener.
//
// INPUT is written immediately. OUTPUT stores the batch's first utterance
// as pending. SCORING matches each utterance against the pending table;
// every score is attempted and the errors are joined.
func (l *ScoringLogger) ProcessNotification(ctx context.Context, n convlog.Notification) error {
	switch n.Channel {
	case convlog.ChannelInput:
		return l.observe(ctx, n, func(ctx context.Context) error {
			return l.writeInputs(ctx, n.Utterances)
		})
	case convlog.ChannelOutput:
		return l.observe(ctx, n, func(ctx context.Context) error {
			l.hold(ctx, n.Utterances)
			return nil
		})
	case convlog.ChannelScoring:
		return l.observe(ctx, n, func(ctx context.Context) error {
			var errs []error
			for _, score := range n.Utterances {
				if err := l.match(ctx, score); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		})
	default:
		return nil
	}
}

func (l *ScoringLogger) hold(ctx context.Context, utterances []convlog.Utterance) {
	if len(utterances) == 0 {
		observability.LogEmptyBatch(l.logger, convlog.ChannelOutput)
		return
	}
	u := utterances[0]

	l.mu.Lock()
	_, dup := l.pending[u.ContextID]
	l.pending[u.ContextID] = pendingResponse{utterance: u, storedAt: l.now()}
	l.mu.Unlock()

	if dup {
		observability.LogDuplicateOutput(l.logger, u.ContextID, u.ConversationID)
		l.metrics.RecordCorrelation(ctx, observability.OutcomeDuplicate)
	}
}

func (l *ScoringLogger) match(ctx context.Context, score convlog.Utterance) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.pending[score.ContextID]
	if !ok {
		observability.LogUnmatchedScore(l.logger, score.ContextID, score.ConversationID)
		l.metrics.RecordCorrelation(ctx, observability.OutcomeUnmatched)
		return nil
	}
	delete(l.pending, score.ContextID)

	inner := p.utterance.Data.Inner
	if inner == nil {
		l.metrics.RecordCorrelation(ctx, observability.OutcomeMalformed)
		return fmt.Errorf("context %s: %w", score.ContextID, ErrMalformedResponse)
	}

	// The score's conversation id decides the log, not the response's.
	data := "[" + score.Data.String() + "] " + inner.Text
	if err := l.write(ctx, score.ConversationID, PrefixOutput, data); err != nil {
		l.pending[score.ContextID] = p
		observability.LogPendingRestored(l.logger, score.ContextID, err)
		l.metrics.RecordCorrelation(ctx, observability.OutcomeRestored)
		return err
	}

	observability.LogScoreMatched(l.logger, score.ContextID, score.ConversationID)
	l.metrics.RecordCorrelation(ctx, observability.OutcomeMatched)
	return nil
}

// Sweep evicts pending responses older than the configured TTL, measured
// against now, and returns how many were evicted. Without a TTL it does
// nothing.
func (l *ScoringLogger) Sweep(now time.Time) int {
	if l.ttl <= 0 {
		return 0
	}

	l.mu.Lock()
	expired := 0
	for id, p := range l.pending {
		if now.Sub(p.storedAt) > l.ttl {
			delete(l.pending, id)
			expired++
		}
	}
	remaining := len(l.pending)
	l.mu.Unlock()

	if expired > 0 {
		observability.LogPendingExpired(l.logger, expired, remaining)
		for i := 0; i < expired; i++ {
			l.metrics.RecordCorrelation(context.Background(), observability.OutcomeExpired)
		}
	}
	return expired
}

// PendingTTL returns the configured pending TTL; zero means none.
func (l *ScoringLogger) PendingTTL() time.Duration {
	return l.ttl
}

// PendingCount returns the number of responses awaiting a score.
func (l *ScoringLogger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Pending returns the response waiting under contextID, if any.
func (l *ScoringLogger) Pending(contextID string) (convlog.Utterance, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.pending[contextID]
	return p.utterance, ok
}
