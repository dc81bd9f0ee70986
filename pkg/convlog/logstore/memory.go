package logstore

import (
	"context"
	"sync"
)

// MemoryStore keeps conversation logs in memory.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	logs   map[string][]string
	closed bool

	// failNext makes the next n appends fail, for exercising error paths.
	failNext int
	failErr  error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs: make(map[string][]string),
	}
}

// FailNext makes the next n appends return err without writing.
func (m *MemoryStore) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
	m.failErr = err
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, conversationID, line string) error {
	if err := ValidateConversationID(conversationID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if m.failNext > 0 {
		m.failNext--
		return &AppendError{ConversationID: conversationID, Backend: "memory", Err: m.failErr}
	}

	m.logs[conversationID] = append(m.logs[conversationID], line)
	return nil
}

// Lines implements Store.
func (m *MemoryStore) Lines(_ context.Context, conversationID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]string, len(m.logs[conversationID]))
	copy(out, m.logs[conversationID])
	return out, nil
}

// Conversations returns the number of conversations with at least one line.
func (m *MemoryStore) Conversations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.logs)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
