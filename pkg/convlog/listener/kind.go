package listener

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/convlog/pkg/convlog"
	"github.com/randalmurphal/convlog/pkg/convlog/logstore"
	"github.com/randalmurphal/convlog/pkg/convlog/observability"
	"github.com/randalmurphal/convlog/pkg/convlog/registry"
)

// Kind identifies a listener implementation in configuration.
type Kind string

// Built-in kinds.
const (
	KindResponseLogger Kind = "response_logger"
	KindScoringLogger  Kind = "scoring_logger"
)

// Deps are the shared resources handed to every factory.
type Deps struct {
	// Name is set per listener by NewUnit: the configured name, or the
	// kind for unnamed listeners.
	Name string

	Store   logstore.Store
	Logger  *slog.Logger
	Metrics observability.MetricsRecorder
	Spans   observability.SpanManager

	// PendingTTL is passed to ScoringLogger.
	PendingTTL time.Duration
}

func (d Deps) options() []Option {
	return []Option{
		WithName(d.Name),
		WithLogger(d.Logger),
		WithMetrics(d.Metrics),
		WithSpanManager(d.Spans),
		WithPendingTTL(d.PendingTTL),
	}
}

// Factory builds a listener from shared dependencies.
type Factory func(deps Deps) (convlog.Listener, error)

// Factories maps kinds to their constructors.
type Factories = registry.Registry[Kind, Factory]

// DefaultFactories returns a fresh table holding the built-in kinds.
// Callers may register additional kinds on it.
func DefaultFactories() *Factories {
	f := registry.New[Kind, Factory]()
	f.Register(KindResponseLogger, func(deps Deps) (convlog.Listener, error) {
		if deps.Store == nil {
			return nil, ErrNoStore
		}
		return NewResponseLogger(deps.Store, deps.options()...), nil
	})
	f.Register(KindScoringLogger, func(deps Deps) (convlog.Listener, error) {
		if deps.Store == nil {
			return nil, ErrNoStore
		}
		return NewScoringLogger(deps.Store, deps.options()...), nil
	})
	return f
}
