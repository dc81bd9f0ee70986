// Package logstore provides append-only conversation log storage.
//
// A conversation log is an ordered sequence of text lines keyed by
// conversation id. Listeners only ever append; Lines exists for tools and
// tests that read logs back.
package logstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store appends lines to per-conversation logs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append writes line to the end of the conversation's log, creating the
	// log if needed. It returns only after the whole line is stored; on
	// error nothing is considered written.
	Append(ctx context.Context, conversationID, line string) error

	// Lines returns the conversation's lines in append order.
	// Returns an empty slice (not error) for unknown conversations.
	Lines(ctx context.Context, conversationID string) ([]string, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for log operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("log store closed")

	// ErrInvalidConversationID indicates a conversation id that can't be
	// used as a log key.
	ErrInvalidConversationID = errors.New("invalid conversation id")
)

// AppendError wraps a failed append with the conversation it targeted.
type AppendError struct {
	ConversationID string
	Backend        string
	Err            error
}

// Error implements the error interface.
func (e *AppendError) Error() string {
	return fmt.Sprintf("%s append to conversation %q: %v", e.Backend, e.ConversationID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppendError) Unwrap() error {
	return e.Err
}

// FormatLine renders a labelled log line, e.g. "[Input] --> hello".
func FormatLine(prefix, data string) string {
	return "[" + prefix + "] --> " + data
}

// ValidateConversationID rejects ids that are empty or would escape a
// directory when used as a file name.
func ValidateConversationID(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	case strings.ContainsAny(id, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidConversationID, id)
	}
	return nil
}
