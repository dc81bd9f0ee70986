// Package listener implements the conversation logging listeners and the
// Unit that builds and subscribes them from configuration.
//
// ResponseLogger writes every input and the first output of each batch as
// soon as they arrive. ScoringLogger writes inputs the same way but holds
// each output until a score with the same context id arrives, then writes
// a single "[Output] --> [score] response" line. Outputs that are never
// scored are never written.
//
// Listener kinds are resolved through a registry of factories, so
// configuration can only name kinds that exist:
//
//	unit, err := listener.NewUnit(listener.Description{
//	    Named:   map[string]listener.Kind{listener.NameDatabase: listener.KindScoringLogger},
//	    Unnamed: []listener.Kind{listener.KindResponseLogger},
//	}, listener.DefaultFactories(), listener.Deps{Store: store})
package listener
