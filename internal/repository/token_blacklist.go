package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist records access token IDs (jti) that were logged out before expiry
type TokenBlacklist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

type redisTokenBlacklist struct {
	client *redis.Client
	prefix string
}

// NewTokenBlacklist creates a Redis backed blacklist. Entries expire with the token.
func NewTokenBlacklist(client *redis.Client, prefix string) TokenBlacklist {
	return &redisTokenBlacklist{client: client, prefix: prefix}
}

func (b *redisTokenBlacklist) key(jti string) string {
	return fmt.Sprintf("%s:%s", b.prefix, jti)
}

// Add blacklists jti for ttl. A non-positive ttl means the token already expired.
func (b *redisTokenBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	// redis expiry resolution is one millisecond and PX 0 is rejected
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	if err := b.client.Set(ctx, b.key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (b *redisTokenBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}
