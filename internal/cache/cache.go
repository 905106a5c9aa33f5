package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds serialized job snapshots for the hot polling path. Only
// terminal snapshots are cached; they are immutable once written.
// Implementations must be safe for concurrent use.
type Cache interface {
	GetJobSnapshot(ctx context.Context, jobID string) ([]byte, bool, error)
	SetJobSnapshot(ctx context.Context, jobID string, snapshot []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) GetJobSnapshot(ctx context.Context, jobID string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, JobSnapshotKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) SetJobSnapshot(ctx context.Context, jobID string, snapshot []byte, ttl time.Duration) error {
	return c.client.Set(ctx, JobSnapshotKey(jobID), snapshot, ttl).Err()
}
