package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

func TestMemoryStore_LatestAndRetention(t *testing.T) {
	s := NewMemoryStore(2, 0)
	ctx := context.Background()
	now := time.Now().UTC()

	_, found, err := s.LatestObservation(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	for i, cond := range []weather.Condition{weather.ConditionClear, weather.ConditionMist, weather.ConditionSnow} {
		_, err := s.AppendObservation(ctx, weather.Observation{
			Timestamp: now.Add(time.Duration(i) * time.Minute),
			Condition: cond,
		})
		require.NoError(t, err)
	}

	count, err := s.AppendObservation(ctx, weather.Observation{Timestamp: now.Add(-time.Hour), Condition: weather.ConditionRain})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	latest, found, err := s.LatestObservation(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, weather.ConditionSnow, latest.Condition)
}

func TestMemoryStore_MaxAgeKeepsNewest(t *testing.T) {
	s := NewMemoryStore(0, time.Minute)
	ctx := context.Background()

	count, err := s.AppendObservation(ctx, weather.Observation{
		Timestamp: time.Now().Add(-time.Hour),
		Condition: weather.ConditionFog,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	latest, found, err := s.LatestObservation(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, weather.ConditionFog, latest.Condition)
}
