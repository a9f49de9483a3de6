package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/taxi-surge-engine/internal/store"
	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ObservationCache, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewObservationCache(rdb, ttl), mr, rdb
}

// rejectWrites fails script writes the way a Redis that is still loading its
// dataset does, while reads and deletes keep working.
type rejectWrites struct{}

func (rejectWrites) DialHook(next redis.DialHook) redis.DialHook { return next }

func (rejectWrites) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		switch cmd.Name() {
		case "eval", "evalsha":
			err := errors.New("LOADING Redis is loading the dataset in memory")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (rejectWrites) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestObservationCache_PutKeepsNewest(t *testing.T) {
	c, _, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, found, err := c.LatestObservation(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Put(ctx, weather.Observation{Timestamp: now, Condition: weather.ConditionSnow, TemperatureC: -3}))
	require.NoError(t, c.Put(ctx, weather.Observation{Timestamp: now.Add(-time.Hour), Condition: weather.ConditionClear}))

	got, found, err := c.LatestObservation(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, weather.ConditionSnow, got.Condition)
	assert.True(t, now.Equal(got.Timestamp))

	require.NoError(t, c.Put(ctx, weather.Observation{Timestamp: now.Add(15 * time.Minute), Condition: weather.ConditionRain}))
	got, _, err = c.LatestObservation(ctx)
	require.NoError(t, err)
	assert.Equal(t, weather.ConditionRain, got.Condition)
}

func TestObservationCache_EntryExpires(t *testing.T) {
	c, mr, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, weather.Observation{Timestamp: time.Now().UTC(), Condition: weather.ConditionFog}))
	mr.FastForward(2 * time.Minute)

	_, found, err := c.LatestObservation(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestObservationCache_FailedPutDropsStaleEntry(t *testing.T) {
	c, _, rdb := newTestCache(t, time.Hour)
	ctx := context.Background()
	noon := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(ctx, weather.Observation{Timestamp: noon, Condition: weather.ConditionClear, TemperatureC: 8}))

	mem := store.NewMemoryStore(0, 0)
	newer := weather.Observation{Timestamp: noon.Add(15 * time.Minute), Condition: weather.ConditionSnow, TemperatureC: -2}
	_, err := mem.AppendObservation(ctx, newer)
	require.NoError(t, err)

	rdb.AddHook(rejectWrites{})
	assert.Error(t, c.Put(ctx, newer))

	_, found, err := c.LatestObservation(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	got, found, err := NewReadThrough(c, mem).LatestObservation(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, weather.ConditionSnow, got.Condition)
	assert.True(t, newer.Timestamp.Equal(got.Timestamp))
}

func TestReadThrough_FillsCacheFromStore(t *testing.T) {
	c, _, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	mem := store.NewMemoryStore(0, 0)
	_, err := mem.AppendObservation(ctx, weather.Observation{Timestamp: time.Now().UTC(), Condition: weather.ConditionMist})
	require.NoError(t, err)

	rt := NewReadThrough(c, mem)
	got, found, err := rt.LatestObservation(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, weather.ConditionMist, got.Condition)

	cached, found, err := c.LatestObservation(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, weather.ConditionMist, cached.Condition)
}

func TestReadThrough_CacheDownUsesStore(t *testing.T) {
	c, mr, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	mem := store.NewMemoryStore(0, 0)
	_, err := mem.AppendObservation(ctx, weather.Observation{Timestamp: time.Now().UTC(), Condition: weather.ConditionHaze})
	require.NoError(t, err)

	mr.Close()
	got, found, err := NewReadThrough(c, mem).LatestObservation(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, weather.ConditionHaze, got.Condition)
}

func TestTTL(t *testing.T) {
	assert.Equal(t, 15*time.Minute, TTL(time.Hour, 15*time.Minute))
	assert.Equal(t, 5*time.Minute, TTL(5*time.Minute, 15*time.Minute))
	assert.Equal(t, 15*time.Minute, TTL(0, 15*time.Minute))
}
