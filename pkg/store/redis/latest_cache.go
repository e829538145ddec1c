package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gpuprices/internal/model"
	"gpuprices/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const (
	latestKeyPrefix = "gpuprices:latest:" // gpuprices:latest:{observed_at unix nano}:{version}:{provider}
	allProviders    = "*all*"
	scanBatch       = 100
)

// LatestCache caches the records of a snapshot in Redis. Entries are keyed by
// observed_at and snapshot version: a re-ingestion of a timestamp bumps the
// version, and Invalidate drops the old entries of that timestamp.
type LatestCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewLatestCache creates the latest-snapshot cache
func NewLatestCache(redisClient *RedisClient, ttl time.Duration) *LatestCache {
	return &LatestCache{
		redis: redisClient.GetClient(),
		ttl:   ttl,
	}
}

func timestampPrefix(observedAt time.Time) string {
	return latestKeyPrefix + strconv.FormatInt(model.NormalizeTimestamp(observedAt).UnixNano(), 10) + ":"
}

func latestKey(observedAt time.Time, version int64, provider string) string {
	if provider == "" {
		provider = allProviders
	}
	return timestampPrefix(observedAt) + strconv.FormatInt(version, 10) + ":" + provider
}

// Get returns the cached records; any failure is a miss
func (c *LatestCache) Get(ctx context.Context, observedAt time.Time, version int64, provider string) ([]model.PriceRecord, bool) {
	data, err := c.redis.Get(ctx, latestKey(observedAt, version, provider)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.WarnCtx(ctx, "latest cache read failed: %v", err)
		}
		return nil, false
	}

	var records []model.PriceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		logger.WarnCtx(ctx, "latest cache entry is corrupt, ignoring: %v", err)
		return nil, false
	}
	return records, true
}

// Set stores records with the configured TTL; failures are logged only
func (c *LatestCache) Set(ctx context.Context, observedAt time.Time, version int64, provider string, records []model.PriceRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		logger.WarnCtx(ctx, "failed to marshal latest cache entry: %v", err)
		return
	}
	if err := c.redis.Set(ctx, latestKey(observedAt, version, provider), data, c.ttl).Err(); err != nil {
		logger.WarnCtx(ctx, "latest cache write failed: %v", err)
	}
}

// Invalidate drops every cached entry of observedAt
func (c *LatestCache) Invalidate(ctx context.Context, observedAt time.Time) error {
	pattern := timestampPrefix(observedAt) + "*"

	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan latest cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete latest cache keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
