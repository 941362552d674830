// Package snapshot keeps the last successfully fetched page of each list view
// so a failed fetch can still show something.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/critiqo/internal/domain"
	apperrors "github.com/utafrali/critiqo/pkg/errors"
)

const keyPrefix = "critiqo:snapshot:"

// Store saves and loads one list result per slot. Load returns an error
// wrapping ErrNotFound when nothing is stored.
type Store[T any] interface {
	Load(ctx context.Context, slot string) (domain.ListResult[T], error)
	Save(ctx context.Context, slot string, result domain.ListResult[T]) error
}

// RedisStore keeps snapshots as JSON strings with a TTL.
type RedisStore[T any] struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. A zero ttl keeps keys forever.
func NewRedisStore[T any](client *redis.Client, ttl time.Duration) *RedisStore[T] {
	return &RedisStore[T]{client: client, ttl: ttl}
}

// Key returns the Redis key used for view.
func Key(view string) string {
	return keyPrefix + view
}

func (s *RedisStore[T]) Load(ctx context.Context, slot string) (domain.ListResult[T], error) {
	data, err := s.client.Get(ctx, Key(slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ListResult[T]{}, apperrors.NotFound("snapshot", slot)
		}
		return domain.ListResult[T]{}, fmt.Errorf("redis get snapshot: %w", err)
	}

	var res domain.ListResult[T]
	if err := json.Unmarshal(data, &res); err != nil {
		return domain.ListResult[T]{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return res, nil
}

func (s *RedisStore[T]) Save(ctx context.Context, slot string, result domain.ListResult[T]) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, Key(slot), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store.
type MemoryStore[T any] struct {
	mu    sync.Mutex
	items map[string]domain.ListResult[T]
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{items: make(map[string]domain.ListResult[T])}
}

func (s *MemoryStore[T]) Load(_ context.Context, view string) (domain.ListResult[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.items[view]
	if !ok {
		return domain.ListResult[T]{}, apperrors.NotFound("snapshot", view)
	}
	return res.Clone(), nil
}

func (s *MemoryStore[T]) Save(_ context.Context, view string, result domain.ListResult[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[view] = result.Clone()
	return nil
}
