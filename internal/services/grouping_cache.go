package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"helpdesk-insights-be/internal/insights"
	"helpdesk-insights-be/internal/logger"
)

const groupingCachePrefix = "insights:grouping:"

// CachedClassifier remembers successful groupings in Redis. Failures are never
// cached, and cache errors only cost a classifier call.
type CachedClassifier struct {
	next insights.Classifier
	rdb  *redis.Client
	ttl  time.Duration
	log  logger.Logger
}

func NewCachedClassifier(next insights.Classifier, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedClassifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedClassifier{next: next, rdb: rdb, ttl: ttl, log: log}
}

// GroupReasons implements insights.Classifier.
func (c *CachedClassifier) GroupReasons(ctx context.Context, reasons []insights.ReasonCount) ([]insights.Category, error) {
	key, err := groupingCacheKey(reasons)
	if err != nil {
		return c.next.GroupReasons(ctx, reasons)
	}

	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var categories []insights.Category
		if jsonErr := json.Unmarshal(cached, &categories); jsonErr == nil {
			return categories, nil
		}
		c.log.Warn("Discarding unreadable grouping cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("Grouping cache read failed", zap.Error(err))
	}

	categories, err := c.next.GroupReasons(ctx, reasons)
	if err != nil {
		return nil, err
	}

	if insights.ValidateCategories(categories) != nil {
		return categories, nil
	}
	if payload, jsonErr := json.Marshal(categories); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.log.Warn("Grouping cache write failed", zap.Error(setErr))
		}
	}
	return categories, nil
}

// groupingCacheKey hashes the ranked list; order and counts are part of the key.
func groupingCacheKey(reasons []insights.ReasonCount) (string, error) {
	b, err := json.Marshal(reasons)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return groupingCachePrefix + hex.EncodeToString(sum[:]), nil
}
