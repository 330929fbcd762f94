package cache

import (
	"context"
	"fmt"
	"time"

	appregistry "github.com/bplo/backend/internal/application/registry"
	"github.com/bplo/backend/internal/domain/registry"
	"github.com/bplo/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRecordCache caches serialized record responses in Redis. Misses and
// Redis errors both read as cache misses; the caller always has the database
// as the source of truth.
type RedisRecordCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisClient creates a Redis client from configuration and verifies the
// connection.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisRecordCache creates a record response cache over an existing client.
func NewRedisRecordCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisRecordCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisRecordCache{
		client: client,
		ttl:    ttl,
		log:    log.Named("record-cache"),
	}
}

// Get returns the cached payload for a partition record, if present.
func (c *RedisRecordCache) Get(ctx context.Context, year registry.Year, accountNo string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, recordKey(year, accountNo)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache read failed", zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

// Set stores the payload for a partition record with the configured TTL.
func (c *RedisRecordCache) Set(ctx context.Context, year registry.Year, accountNo string, payload []byte) {
	if err := c.client.Set(ctx, recordKey(year, accountNo), payload, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached payloads for an account across every year
// partition. A canonical mutation cascades into later partitions, so all of
// them go stale at once.
func (c *RedisRecordCache) Invalidate(ctx context.Context, accountNo string) {
	keys := make([]string, 0, len(registry.Years()))
	for _, year := range registry.Years() {
		keys = append(keys, recordKey(year, accountNo))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache invalidation failed",
			zap.String("account_no", accountNo), zap.Error(err))
	}
}

// Close closes the underlying Redis client.
func (c *RedisRecordCache) Close() error {
	return c.client.Close()
}

func recordKey(year registry.Year, accountNo string) string {
	return fmt.Sprintf("record:%d:%s", int(year), accountNo)
}

// Ensure RedisRecordCache implements the service's cache port
var _ appregistry.ResponseCache = (*RedisRecordCache)(nil)
