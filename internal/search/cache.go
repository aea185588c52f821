package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "marketplace:search:"

// Cache stores encoded search results.
type Cache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedSearcher serves repeated searches from a Cache. Cache failures are
// logged and the search falls through to the wrapped Searcher.
type CachedSearcher struct {
	next   Searcher
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedSearcher wraps next with cache, keeping entries for ttl.
func NewCachedSearcher(next Searcher, cache Cache, ttl time.Duration, logger zerolog.Logger) *CachedSearcher {
	return &CachedSearcher{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "search_cache").Logger(),
	}
}

func (s *CachedSearcher) Search(ctx context.Context, params model.SearchParams) ([]model.SearchResult, error) {
	key, err := cacheKey(params)
	if err != nil {
		return nil, err
	}

	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("search cache read failed")
	} else if ok {
		var results []model.SearchResult
		if err := json.Unmarshal(cached, &results); err == nil {
			return results, nil
		}
		s.logger.Warn().Str("key", key).Msg("discarding undecodable search cache entry")
	}

	results, err := s.next.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search results: %w", err)
	}
	if err := s.cache.Set(ctx, key, encoded, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("search cache write failed")
	}

	return results, nil
}

func cacheKey(params model.SearchParams) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode search params: %w", err)
	}
	return keyPrefix + string(data), nil
}
