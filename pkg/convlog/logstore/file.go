package logstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore writes each conversation to its own file in a directory,
// one line per entry. Every append opens, writes and closes the file.
type FileStore struct {
	dir  string
	sync bool

	mu     sync.RWMutex
	closed bool
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFsync makes every append fsync before closing the file.
func WithFsync() FileOption {
	return func(s *FileStore) {
		s.sync = true
	}
}

// NewFileStore creates a store rooted at dir, creating the directory if
// needed.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	s := &FileStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory holding conversation files.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file backing a conversation.
func (s *FileStore) Path(conversationID string) string {
	return filepath.Join(s.dir, conversationID)
}

// Append implements Store.
func (s *FileStore) Append(_ context.Context, conversationID, line string) error {
	if err := ValidateConversationID(conversationID); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	if err := s.appendLine(conversationID, line); err != nil {
		return &AppendError{ConversationID: conversationID, Backend: "file", Err: err}
	}
	return nil
}

func (s *FileStore) appendLine(conversationID, line string) (err error) {
	f, err := os.OpenFile(s.Path(conversationID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	// A single write keeps the line contiguous under O_APPEND.
	buf := []byte(line + "\n")
	n, err := f.Write(buf)
	if err != nil {
		return err
	}
	if n < len(buf) {
		return io.ErrShortWrite
	}
	if s.sync {
		return f.Sync()
	}
	return nil
}

// Lines implements Store. Lines containing embedded newlines come back
// split.
func (s *FileStore) Lines(_ context.Context, conversationID string) ([]string, error) {
	if err := ValidateConversationID(conversationID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	f, err := os.Open(s.Path(conversationID))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open conversation log: %w", err)
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read conversation log: %w", err)
	}
	return lines, nil
}

// Close implements Store. Files are closed after each append, so this
// only marks the store unusable.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
