package denylist

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "revoked_jti:"

// Redis is a denylist shared across instances. Entries expire with the
// token they revoke, so the set stays bounded. On Redis failure it
// degrades to the optional in-process fallback, or fails open.
// Revocation is best-effort.
type Redis struct {
	Client   redis.UniversalClient
	Timeout  time.Duration
	Fallback Denylist
	nowFunc  func() time.Time
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{
		Client:   client,
		Timeout:  2 * time.Second,
		Fallback: NewInMemory(),
		nowFunc:  time.Now,
	}
}

func (d *Redis) Revoke(jti string, exp time.Time) error {
	ttl := exp.Sub(d.now())
	if ttl <= 0 {
		return nil // already expired, nothing to track
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout())
	defer cancel()
	if d.Client != nil {
		if err := d.Client.Set(ctx, redisKeyPrefix+jti, "1", ttl).Err(); err == nil {
			return nil
		}
	}
	if d.Fallback != nil {
		return d.Fallback.Revoke(jti, exp)
	}
	return nil
}

func (d *Redis) IsRevoked(jti string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout())
	defer cancel()
	if d.Client != nil {
		n, err := d.Client.Exists(ctx, redisKeyPrefix+jti).Result()
		if err == nil {
			return n > 0
		}
	}
	if d.Fallback != nil {
		return d.Fallback.IsRevoked(jti)
	}
	return false
}

// Cleanup is a no-op for Redis: entries carry their own TTL.
func (d *Redis) Cleanup() {
	if d.Fallback != nil {
		d.Fallback.Cleanup()
	}
}

func (d *Redis) now() time.Time {
	if d.nowFunc != nil {
		return d.nowFunc()
	}
	return time.Now()
}

func (d *Redis) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return 2 * time.Second
}
