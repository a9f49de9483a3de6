package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

const latestKey = "surge:weather:latest"

// putNewest replaces the cached observation unless the cached one is newer.
// KEYS[1] is a hash {ts, body}; ARGV is ts (unix ms), body, ttl (ms, 0 keeps it forever).
var putNewest = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'ts')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'ts', ARGV[1], 'body', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// ObservationCache keeps the newest observation in Redis so quotes do not
// have to touch the warehouse file.
type ObservationCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewObservationCache(client *redis.Client, ttl time.Duration) *ObservationCache {
	return &ObservationCache{redis: client, ttl: ttl}
}

func (c *ObservationCache) Name() string {
	return "redis"
}

// Put stores obs unless a newer observation is already cached. If the write
// fails the cached entry is dropped, so readers go to the store instead of
// serving an observation the store has already superseded.
func (c *ObservationCache) Put(ctx context.Context, obs weather.Observation) error {
	body, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("cache: encode observation: %w", err)
	}

	err = putNewest.Run(ctx, c.redis, []string{latestKey},
		obs.Timestamp.UnixMilli(), body, c.ttl.Milliseconds()).Err()
	if err == nil {
		return nil
	}

	err = fmt.Errorf("cache: put latest: %w", err)
	if delErr := c.Invalidate(ctx); delErr != nil {
		return errors.Join(err, delErr)
	}
	return err
}

// Invalidate drops the cached observation.
func (c *ObservationCache) Invalidate(ctx context.Context) error {
	if err := c.redis.Del(ctx, latestKey).Err(); err != nil {
		return fmt.Errorf("cache: invalidate latest: %w", err)
	}
	return nil
}

// LatestObservation returns the cached observation; false on a cache miss.
func (c *ObservationCache) LatestObservation(ctx context.Context) (weather.Observation, bool, error) {
	val, err := c.redis.HGet(ctx, latestKey, "body").Bytes()
	if errors.Is(err, redis.Nil) {
		return weather.Observation{}, false, nil
	}
	if err != nil {
		return weather.Observation{}, false, fmt.Errorf("cache: get latest: %w", err)
	}

	var obs weather.Observation
	if err := json.Unmarshal(val, &obs); err != nil {
		return weather.Observation{}, false, fmt.Errorf("cache: decode observation: %w", err)
	}
	return obs, true, nil
}

// LatestSource reads one observation source.
type LatestSource interface {
	LatestObservation(ctx context.Context) (weather.Observation, bool, error)
}

// ReadThrough consults the cache first and falls back to the store on a miss
// or a cache failure, refilling the cache from the store.
type ReadThrough struct {
	cache *ObservationCache
	store LatestSource
}

func NewReadThrough(cache *ObservationCache, store LatestSource) *ReadThrough {
	return &ReadThrough{cache: cache, store: store}
}

func (r *ReadThrough) LatestObservation(ctx context.Context) (weather.Observation, bool, error) {
	obs, found, err := r.cache.LatestObservation(ctx)
	if err == nil && found {
		return obs, true, nil
	}
	if err != nil {
		log.Printf("WARN: cache: read failed, using store: %v", err)
	}

	obs, found, storeErr := r.store.LatestObservation(ctx)
	if storeErr != nil || !found {
		return obs, found, storeErr
	}
	if err == nil {
		if putErr := r.cache.Put(ctx, obs); putErr != nil {
			log.Printf("WARN: cache: refill failed: %v", putErr)
		}
	}
	return obs, true, nil
}

// TTL caps ttl at the fetch interval so a cached observation never outlives
// the run that should replace it. A non-positive ttl means the interval.
func TTL(ttl, fetchInterval time.Duration) time.Duration {
	if ttl <= 0 || ttl > fetchInterval {
		return fetchInterval
	}
	return ttl
}
