package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RateCache is a read-through cache for resolved exchange rates keyed by
// (from, to, date-or-latest). Lookups and stores are best-effort: cache
// unavailability must never fail a conversion.
type RateCache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool)
	Set(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration)
}

// RateKey builds the canonical cache key for a currency pair and date.
// A zero asOf means "latest".
func RateKey(fromCode, toCode string, asOf time.Time) string {
	datePart := "latest"
	if !asOf.IsZero() {
		datePart = asOf.Format("2006-01-02")
	}
	return fmt.Sprintf("rate:%s:%s:%s", fromCode, toCode, datePart)
}

// RedisRateCache caches rates in Redis. A nil client disables caching,
// mirroring how the rest of the app treats Redis as optional.
type RedisRateCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisRateCache creates a rate cache over the given Redis client.
func NewRedisRateCache(client *redis.Client, logger *slog.Logger) *RedisRateCache {
	return &RedisRateCache{client: client, logger: logger}
}

func (c *RedisRateCache) Get(ctx context.Context, key string) (decimal.Decimal, bool) {
	if c.client == nil {
		return decimal.Decimal{}, false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Rate cache get failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return decimal.Decimal{}, false
	}
	rate, err := decimal.NewFromString(val)
	if err != nil {
		c.logger.Warn("Rate cache holds unparseable value", slog.String("key", key), slog.String("value", val))
		return decimal.Decimal{}, false
	}
	return rate, true
}

func (c *RedisRateCache) Set(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration) {
	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, key, rate.String(), ttl).Err(); err != nil {
		c.logger.Warn("Rate cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// ConnectRedis creates a Redis client for the given address and verifies
// the connection. An empty address or a failed ping returns nil: callers
// treat a nil client as "caching disabled".
func ConnectRedis(ctx context.Context, addr string, logger *slog.Logger) *redis.Client {
	if addr == "" {
		logger.Warn("REDIS_ADDR not set, rate caching disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis, rate caching disabled", slog.String("error", err.Error()))
		return nil
	}

	logger.Info("Connected to Redis", slog.String("addr", addr))
	return client
}
