package listener

import (
	"fmt"
	"slices"
	"strings"

	"github.com/randalmurphal/convlog/pkg/convlog"
)

// Names a Unit accepts for named listeners.
const (
	NameDatabase          = "database"
	NameFeedbackMechanism = "feedback_mechanism"
)

// KnownNames lists every accepted listener name.
var KnownNames = []string{NameDatabase, NameFeedbackMechanism}

// IsKnownName reports whether name may be used for a named listener.
func IsKnownName(name string) bool {
	return slices.Contains(KnownNames, name)
}

// Description says which listeners a Unit should build.
type Description struct {
	Named   map[string]Kind `yaml:"named" json:"named"`
	Unnamed []Kind          `yaml:"unnamed" json:"unnamed"`
}

// Unit is a set of named and unnamed listeners that subscribe together.
type Unit struct {
	named   map[string]convlog.Listener
	unnamed []convlog.Listener
}

// NewUnit validates desc and builds every listener it names using
// factories (DefaultFactories if nil). The table is copied first, so
// concurrent registrations can't change a build half way through. Any
// failure returns a *ConfigError and no unit.
func NewUnit(desc Description, factories *Factories, deps Deps) (*Unit, error) {
	if factories == nil {
		factories = DefaultFactories()
	} else {
		factories = factories.Clone()
	}

	names := make([]string, 0, len(desc.Named))
	for name := range desc.Named {
		names = append(names, name)
	}
	slices.Sort(names)

	// Names are checked before anything is built.
	for _, name := range names {
		if !IsKnownName(name) {
			return nil, &ConfigError{Name: name, Err: ErrUnknownName}
		}
	}

	u := &Unit{
		named:   make(map[string]convlog.Listener, len(desc.Named)),
		unnamed: make([]convlog.Listener, 0, len(desc.Unnamed)),
	}

	for _, name := range names {
		l, err := build(factories, desc.Named[name], name, deps)
		if err != nil {
			return nil, err
		}
		u.named[name] = l
	}

	for _, kind := range desc.Unnamed {
		l, err := build(factories, kind, "", deps)
		if err != nil {
			return nil, err
		}
		u.unnamed = append(u.unnamed, l)
	}

	return u, nil
}

func build(factories *Factories, kind Kind, name string, deps Deps) (convlog.Listener, error) {
	factory, ok := factories.Get(kind)
	if !ok {
		known := make([]string, 0, factories.Len())
		for _, k := range factories.Keys() {
			known = append(known, string(k))
		}
		return nil, &ConfigError{
			Name: name,
			Kind: kind,
			Err:  fmt.Errorf("%w (registered: %s)", ErrUnknownKind, strings.Join(known, ", ")),
		}
	}

	deps.Name = name
	if deps.Name == "" {
		deps.Name = string(kind)
	}

	l, err := factory(deps)
	if err != nil {
		return nil, &ConfigError{Name: name, Kind: kind, Err: err}
	}
	return l, nil
}

// Named returns the listener registered under name. A name that was never
// configured is not an error.
func (u *Unit) Named(name string) (convlog.Listener, bool) {
	l, ok := u.named[name]
	return l, ok
}

// Listeners returns every member, named ones first in name order.
func (u *Unit) Listeners() []convlog.Listener {
	names := make([]string, 0, len(u.named))
	for name := range u.named {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]convlog.Listener, 0, len(u.named)+len(u.unnamed))
	for _, name := range names {
		out = append(out, u.named[name])
	}
	return append(out, u.unnamed...)
}

// Len returns the number of members.
func (u *Unit) Len() int {
	return len(u.named) + len(u.unnamed)
}

// Subscribe registers every member with sub and returns the resulting
// subscriptions. Members the subscriber refuses are skipped. Callers must
// not rely on registration order.
func (u *Unit) Subscribe(sub convlog.Subscriber) []convlog.Subscription {
	subs := make([]convlog.Subscription, 0, u.Len())
	for _, l := range u.Listeners() {
		if s := sub.AcceptSubscription(l); s != nil {
			subs = append(subs, s)
		}
	}
	return subs
}

// Sweepers returns the members that hold pending responses.
func (u *Unit) Sweepers() []*ScoringLogger {
	var out []*ScoringLogger
	for _, l := range u.Listeners() {
		if s, ok := l.(*ScoringLogger); ok {
			out = append(out, s)
		}
	}
	return out
}
