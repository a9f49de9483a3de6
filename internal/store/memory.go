package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory observation store. It backs the
// engine when no warehouse path is configured.
type MemoryStore struct {
	mu sync.RWMutex

	observations []weather.Observation

	// retention configuration
	maxHistory int           // max number of observations kept
	maxAge     time.Duration // optional max age for observations
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// AppendObservation stores an observation, enforces retention and returns
// the number of observations held.
func (s *MemoryStore) AppendObservation(_ context.Context, obs weather.Observation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observations = append(s.observations, obs)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.observations) > s.maxHistory {
		over := len(s.observations) - s.maxHistory
		s.observations = s.observations[over:]
	}

	// Enforce retention by age, always keeping the newest entry.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		kept := s.observations[:0]
		for _, o := range s.observations {
			if !o.Timestamp.Before(cutoff) {
				kept = append(kept, o)
			}
		}
		if len(kept) == 0 {
			kept = append(kept, obs)
		}
		s.observations = kept
	}

	return int64(len(s.observations)), nil
}

// LatestObservation returns the observation with the newest timestamp.
// Observations may arrive out of order, so the whole history is scanned.
func (s *MemoryStore) LatestObservation(_ context.Context) (weather.Observation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.observations) == 0 {
		return weather.Observation{}, false, nil
	}

	latest := s.observations[0]
	for _, o := range s.observations[1:] {
		if o.Timestamp.After(latest.Timestamp) {
			latest = o
		}
	}
	return latest, true, nil
}
