package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/use-agent/vesselscout/config"
)

const pingTimeout = 5 * time.Second

// Dedup suppresses identical trigger requests within a TTL window.
type Dedup struct {
	client *redis.Client
	ttl    time.Duration
}

// ConnectRedis opens a client for cfg and validates it with a ping.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewDedup wraps client. Keys expire after ttl.
func NewDedup(client *redis.Client, ttl time.Duration) *Dedup {
	return &Dedup{client: client, ttl: ttl}
}

// Claim records a trigger request and reports whether it is new. A false
// result means an identical request was claimed within the TTL.
func (d *Dedup) Claim(ctx context.Context, provider, identifier, comparisonID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, DedupKey(provider, identifier, comparisonID), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

// Release forgets a claim so the request can be retried, used when the
// dispatch itself failed.
func (d *Dedup) Release(ctx context.Context, provider, identifier, comparisonID string) error {
	return d.client.Del(ctx, DedupKey(provider, identifier, comparisonID)).Err()
}

// Close closes the Redis client.
func (d *Dedup) Close() error { return d.client.Close() }

// DedupKey is the Redis key of one trigger request:
// dedup:trigger:<provider>:<identifier>:<comparison_id>.
func DedupKey(provider, identifier, comparisonID string) string {
	return fmt.Sprintf("dedup:trigger:%s:%s:%s", provider, identifier, comparisonID)
}
