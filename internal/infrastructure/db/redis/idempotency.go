package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/trading-simulator/internal/core/ports"
)

const idempotencyTTL = time.Hour

var _ ports.IdempotencyGuard = (*IdempotencyGuard)(nil)

// IdempotencyGuard remembers client request keys backed by Redis.
// Key format: idem:<scope>:<key>
type IdempotencyGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyGuard creates an IdempotencyGuard wrapping the given Redis client.
func NewIdempotencyGuard(client *redis.Client) *IdempotencyGuard {
	return &IdempotencyGuard{client: client, ttl: idempotencyTTL}
}

// Claim atomically records the key (SET NX, expires after ttl). It reports
// false when the key was already claimed.
func (g *IdempotencyGuard) Claim(ctx context.Context, scope, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(scope, key), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency claim: %w", err)
	}
	return ok, nil
}

// Release forgets a key so a failed request can be retried with it.
func (g *IdempotencyGuard) Release(ctx context.Context, scope, key string) error {
	return g.client.Del(ctx, g.key(scope, key)).Err()
}

func (g *IdempotencyGuard) key(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}
