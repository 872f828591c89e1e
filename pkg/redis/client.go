// Package redis wraps the Redis client used for two ambient concerns: best
// effort pub/sub notifications ("ingest completed" events) and a mirror of
// the summary cache for O(1) dashboard reads.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/socialpulse/pulsex/pkg/utils"
	"go.uber.org/zap"
)

// Channel and key layout.
const (
	RunCompletedChannel = "pulse:pipeline.completed"
	summaryKeyFormat    = "pulse:summary:%s:%s:%s" // owner, metric, period
)

// Client wraps the Redis client.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

// NewClient creates a Redis client from environment configuration:
// REDIS_HOST, REDIS_PORT, REDIS_PASSWORD, REDIS_DB.
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("REDIS_HOST", "localhost")
	port := utils.Env("REDIS_PORT", "6379")
	password := utils.Env("REDIS_PASSWORD", "")
	db := utils.EnvInt("REDIS_DB", 0)

	addr := fmt.Sprintf("%s:%s", host, port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("Connected to Redis", zap.String("addr", addr), zap.Int("db", db))

	return &Client{client: rdb, logger: logger}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Publish publishes a message to a Redis Pub/Sub channel. Best effort: errors
// are logged but not returned, so a missing subscriber side never affects the
// pipeline itself.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) {
	if err := c.client.Publish(ctx, channel, message).Err(); err != nil {
		c.logger.Warn("Failed to publish Redis message",
			zap.String("channel", channel),
			zap.Error(err))
	}
}

// SummaryKey builds the cache key for one (owner, metric, period) summary.
func SummaryKey(ownerID, metric, periodName string) string {
	return fmt.Sprintf(summaryKeyFormat, ownerID, metric, periodName)
}

// CacheSummary mirrors a computed summary entry into Redis with a TTL. The
// ClickHouse row remains the recomputable source; this mirror is purely a
// read-latency optimization and is best effort like Publish.
func (c *Client) CacheSummary(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache summary", zap.String("key", key), zap.Error(err))
	}
}

// GetSummary reads a mirrored summary entry; returns nil when absent.
func (c *Client) GetSummary(ctx context.Context, key string) ([]byte, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Health checks if Redis is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
