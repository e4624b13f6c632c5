package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	cacheTag       = "dashboard"
	cacheKeyPrefix = "dashboard:"

	StaticTTL = time.Hour

	// Real-time entries expire slightly before the page reloads so every reload sees fresh data
	realtimeMargin = 5 * time.Second
)

// RealtimeTTL is the lifetime of cached real-time results for a given page refresh interval
func RealtimeTTL(refresh time.Duration) time.Duration {
	ttl := refresh - realtimeMargin
	if ttl < time.Second {
		return time.Second
	}

	return ttl
}

// ResultCache keeps serialised source results in Redis, tagged so they can be dropped together
type ResultCache struct {
	Cache *cache.Cache[string]
}

func NewResultCache(client redis.UniversalClient) *ResultCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(StaticTTL))

	return &ResultCache{
		Cache: cache.New[string](redisStore),
	}
}

// Invalidate drops every cached dashboard result
func (r *ResultCache) Invalidate(ctx context.Context) error {
	return r.Cache.Invalidate(ctx, store.WithInvalidateTags([]string{cacheTag}))
}

// cachedLoad returns the cached value under key or runs load and caches its result for ttl.
// Any cache failure falls back to calling load directly.
func cachedLoad[T any](ctx context.Context, results *ResultCache, key string, ttl time.Duration, load func(context.Context) T) T {
	if results == nil {
		return load(ctx)
	}

	cacheKey := cacheKeyPrefix + key

	if payload, err := results.Cache.Get(ctx, cacheKey); err == nil {
		var value T
		if err := json.Unmarshal([]byte(payload), &value); err == nil {
			return value
		}

		log.Warn().Str("key", cacheKey).Msg("Discarding unreadable cached dashboard result")
	}

	value := load(ctx)

	payload, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("key", cacheKey).Msg("Failed to encode dashboard result")
		return value
	}

	err = results.Cache.Set(ctx, cacheKey, string(payload), store.WithExpiration(ttl), store.WithTags([]string{cacheTag}))
	if err != nil {
		log.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache dashboard result")
	}

	return value
}
