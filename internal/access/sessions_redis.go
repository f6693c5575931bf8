package access

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "session:"

// RedisSessionStore keeps session liveness in Redis so that multiple
// instances of the core see the same sessions. TTLs carry the sliding
// expiration: Start sets the key with the session timeout, Refresh bumps it.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(principal string) string {
	return sessionKeyPrefix + principal
}

func (s *RedisSessionStore) Start(ctx context.Context, principal string, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(principal), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to start session for %s: %w", principal, err)
	}
	return nil
}

func (s *RedisSessionStore) Active(ctx context.Context, principal string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(principal)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session for %s: %w", principal, err)
	}
	return n > 0, nil
}

func (s *RedisSessionStore) Refresh(ctx context.Context, principal string, ttl time.Duration) error {
	// Expire is a no-op on a missing key, matching the in-memory store:
	// refreshing an expired session does not resurrect it.
	if err := s.client.Expire(ctx, sessionKey(principal), ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh session for %s: %w", principal, err)
	}
	return nil
}

func (s *RedisSessionStore) End(ctx context.Context, principal string) error {
	if err := s.client.Del(ctx, sessionKey(principal)).Err(); err != nil {
		return fmt.Errorf("failed to end session for %s: %w", principal, err)
	}
	return nil
}
