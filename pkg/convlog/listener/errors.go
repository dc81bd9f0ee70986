package listener

import (
	"errors"
	"fmt"
)

// Sentinel errors for unit construction.
var (
	// ErrUnknownName indicates a named listener outside KnownNames.
	ErrUnknownName = errors.New("unknown listener name")

	// ErrUnknownKind indicates a kind with no registered factory.
	ErrUnknownKind = errors.New("unknown listener kind")

	// ErrNoStore indicates a logging listener was built without a store.
	ErrNoStore = errors.New("log store required")
)

// ErrMalformedResponse indicates a pending response whose payload has no
// nested data to join with its score.
var ErrMalformedResponse = errors.New("response payload has no nested data")

// ConfigError reports a listener description that can't be built.
type ConfigError struct {
	// Name is the listener's name, empty for unnamed listeners.
	Name string
	// Kind is the listener kind, empty when the name itself was rejected.
	Kind Kind
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	switch {
	case e.Name != "" && e.Kind != "":
		return fmt.Sprintf("listener %q (%s): %v", e.Name, e.Kind, e.Err)
	case e.Name != "":
		return fmt.Sprintf("listener %q: %v", e.Name, e.Err)
	default:
		return fmt.Sprintf("listener kind %q: %v", e.Kind, e.Err)
	}
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
