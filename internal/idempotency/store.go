package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers idempotency keys for a bounded time.
type Store interface {
	// MarkProcessed records key and reports whether it was new. A false
	// result means the key was already seen within ttl.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so the request can be sent again.
	Release(ctx context.Context, key string) error
}

const keyPrefix = "fulfillment:idempotency:"

type redisStore struct {
	client redis.UniversalClient
}

// NewRedisStore shares keys across every API replica.
func NewRedisStore(client redis.UniversalClient) Store {
	return &redisStore{client: client}
}

func (s *redisStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (s *redisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore keeps keys in process; used when redis is disabled and in tests.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]time.Time), now: time.Now}
}

func (s *memoryStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.entries[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)

	// drop expired keys so the map stays bounded by the live window
	for k, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, k)
		}
	}
	return true, nil
}

func (s *memoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
