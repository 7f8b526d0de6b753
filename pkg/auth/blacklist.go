package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist stores revoked access token ids until they expire
type TokenBlacklist interface {
	Add(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// MemoryBlacklist is a process-local TokenBlacklist
type MemoryBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	now    func() time.Time
}

// NewMemoryBlacklist creates an in-memory blacklist
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (mb *MemoryBlacklist) Add(_ context.Context, tokenID string, expiresAt time.Time) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.tokens[tokenID] = expiresAt
	return nil
}

func (mb *MemoryBlacklist) IsBlacklisted(_ context.Context, tokenID string) (bool, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	expiresAt, exists := mb.tokens[tokenID]
	if !exists {
		return false, nil
	}

	if mb.now().After(expiresAt) {
		delete(mb.tokens, tokenID)
		return false, nil
	}

	return true, nil
}

// Cleanup drops expired entries and returns how many were removed
func (mb *MemoryBlacklist) Cleanup() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	now := mb.now()
	removed := 0
	for id, expiresAt := range mb.tokens {
		if now.After(expiresAt) {
			delete(mb.tokens, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked ids
func (mb *MemoryBlacklist) Len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.tokens)
}

// RedisBlacklist keeps revoked ids in redis with a TTL matching the token
// expiry, so every API replica sees the same revocations.
type RedisBlacklist struct {
	client redis.Cmdable
	prefix string
}

// NewRedisBlacklist creates a blacklist that stores revoked token IDs in
// Redis until they expire
func NewRedisBlacklist(client redis.Cmdable) *RedisBlacklist {
	return &RedisBlacklist{client: client, prefix: "auth:revoked:"}
}

func (rb *RedisBlacklist) Add(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := rb.client.Set(ctx, rb.prefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revoked token: %w", err)
	}
	return nil
}

func (rb *RedisBlacklist) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	n, err := rb.client.Exists(ctx, rb.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to query revoked token: %w", err)
	}
	return n > 0, nil
}
