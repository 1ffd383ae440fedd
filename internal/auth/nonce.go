package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNonceNotFound is returned when a nonce is unknown, expired or already used.
var ErrNonceNotFound = errors.New("state nonce not found")

// NonceStore remembers issued state nonces until they are redeemed once.
type NonceStore interface {
	Put(ctx context.Context, nonce, userID string, ttl time.Duration) error
	Take(ctx context.Context, nonce string) (string, error)
}

// RedisNonceStore keeps nonces in Redis so every API replica can redeem them.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

// NewRedisNonceStore constructs a store using client.
func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client, prefix: "walklog:oauth_state:"}
}

// Put stores nonce for ttl. Reusing a live nonce is an error.
func (s *RedisNonceStore) Put(ctx context.Context, nonce, userID string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, s.prefix+nonce, userID, ttl).Result()
	if err != nil {
		return fmt.Errorf("store state nonce: %w", err)
	}
	if !ok {
		return fmt.Errorf("state nonce %q already issued", nonce)
	}
	return nil
}

// Take atomically reads and deletes nonce.
func (s *RedisNonceStore) Take(ctx context.Context, nonce string) (string, error) {
	userID, err := s.client.GetDel(ctx, s.prefix+nonce).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrNonceNotFound
		}
		return "", fmt.Errorf("redeem state nonce: %w", err)
	}
	return userID, nil
}

type memoryNonce struct {
	userID    string
	expiresAt time.Time
}

// MemoryNonceStore is a single-process NonceStore used when Redis is not configured.
type MemoryNonceStore struct {
	mu    sync.Mutex
	items map[string]memoryNonce
	now   func() time.Time
}

// NewMemoryNonceStore constructs an empty in-memory store.
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{items: make(map[string]memoryNonce), now: time.Now}
}

// Put stores nonce for ttl and evicts expired entries.
func (s *MemoryNonceStore) Put(_ context.Context, nonce, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, key)
		}
	}
	if _, exists := s.items[nonce]; exists {
		return fmt.Errorf("state nonce %q already issued", nonce)
	}
	s.items[nonce] = memoryNonce{userID: userID, expiresAt: now.Add(ttl)}
	return nil
}

// Take returns and removes nonce.
func (s *MemoryNonceStore) Take(_ context.Context, nonce string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[nonce]
	if !ok {
		return "", ErrNonceNotFound
	}
	delete(s.items, nonce)
	if !s.now().Before(item.expiresAt) {
		return "", ErrNonceNotFound
	}
	return item.userID, nil
}
