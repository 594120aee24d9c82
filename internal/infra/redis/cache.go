// Package redis caches historical exchange-rate lookups. Historical rates
// never change once published, so entries can live for hours without
// staleness concerns; the TTL only bounds memory.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkozlov/basistrack/pkg/logger"
)

const (
	// DefaultTTL is the default TTL for cached rates
	DefaultTTL = 24 * time.Hour

	// KeyPrefix is the prefix for rate cache keys
	KeyPrefix = "fxrate:"
)

// RateCache is a Redis-backed exchange rate cache
type RateCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewRateCache creates a new rate cache
func NewRateCache(client *redis.Client, log *logger.Logger) *RateCache {
	return NewRateCacheWithTTL(client, DefaultTTL, log)
}

// NewRateCacheWithTTL creates a new rate cache with custom TTL
func NewRateCacheWithTTL(client *redis.Client, ttl time.Duration, log *logger.Logger) *RateCache {
	if log == nil {
		log = logger.Discard()
	}
	return &RateCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "rate_cache"),
	}
}

func rateKey(base, quote string, date time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", KeyPrefix, base, quote, date.Format("2006-01-02"))
}

// Get retrieves a cached rate for a currency pair on a date. Cache errors
// degrade to a miss; the database remains the source of truth.
func (c *RateCache) Get(ctx context.Context, base, quote string, date time.Time) (int64, bool) {
	key := rateKey(base, quote, date)

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "key", key, "error", err)
		return 0, false
	}

	rate, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		c.logger.Error("corrupt cache entry", "key", key, "value", val)
		return 0, false
	}

	return rate, true
}

// Set stores a rate for a currency pair on a date. Failures are logged and
// swallowed; caching is best-effort.
func (c *RateCache) Set(ctx context.Context, base, quote string, date time.Time, rate int64) {
	key := rateKey(base, quote, date)
	if err := c.client.Set(ctx, key, strconv.FormatInt(rate, 10), c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "key", key, "error", err)
	}
}
