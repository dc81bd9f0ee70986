package logstore

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces conversation keys.
const DefaultRedisPrefix = "convlog:conversation:"

// RedisStore keeps each conversation as a Redis list, one element per line.
type RedisStore struct {
	client *redis.Client
	prefix string
	closed atomic.Bool
}

// NewRedisStore wraps an existing client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return NewRedisStore(client, prefix), nil
}

// Key returns the list key for a conversation.
func (s *RedisStore) Key(conversationID string) string {
	return s.prefix + conversationID
}

// Append implements Store.
func (s *RedisStore) Append(ctx context.Context, conversationID, line string) error {
	if err := ValidateConversationID(conversationID); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := s.client.RPush(ctx, s.Key(conversationID), line).Err(); err != nil {
		return &AppendError{ConversationID: conversationID, Backend: "redis", Err: err}
	}
	return nil
}

// Lines implements Store.
func (s *RedisStore) Lines(ctx context.Context, conversationID string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	lines, err := s.client.LRange(ctx, s.Key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read conversation %q: %w", conversationID, err)
	}
	if lines == nil {
		lines = []string{}
	}
	return lines, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.client.Close()
}
