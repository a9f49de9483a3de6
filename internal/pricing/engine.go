package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/taxi-surge-engine/internal/store"
	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

const (
	defaultReadAttempts = 3
	defaultReadDelay    = 100 * time.Millisecond
)

// LatestSource provides the most recent weather observation.
type LatestSource interface {
	LatestObservation(ctx context.Context) (weather.Observation, bool, error)
}

// Engine computes surge quotes against live data.
type Engine struct {
	latest LatestSource
	clock  func() time.Time

	readAttempts int
	readDelay    time.Duration
}

// NewEngine creates an Engine. A nil clock uses the wall clock in loc.
func NewEngine(latest LatestSource, loc *time.Location, clock func() time.Time) *Engine {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().In(loc) }
	}
	return &Engine{
		latest:       latest,
		clock:        clock,
		readAttempts: defaultReadAttempts,
		readDelay:    defaultReadDelay,
	}
}

// WithReadRetry sets how often a locked warehouse is retried before the
// quote degrades to the fallback weather.
func (e *Engine) WithReadRetry(attempts int, delay time.Duration) *Engine {
	if attempts < 1 {
		attempts = 1
	}
	e.readAttempts = attempts
	e.readDelay = delay
	return e
}

// ComputeSurge quotes baseFare using the newest stored observation. A locked
// warehouse is retried briefly. When no observation exists, or the store
// stays unreadable, the fallback weather is used and the quote says why.
func (e *Engine) ComputeSurge(ctx context.Context, baseFare float64) (SurgeQuote, error) {
	var (
		current *weather.Observation
		reason  = FallbackNoObservation
	)

	if e.latest != nil {
		obs, found, err := e.readLatest(ctx)
		switch {
		case err != nil:
			log.Printf("WARN: pricing: latest observation unavailable, using fallback: %v", err)
			reason = fmt.Sprintf("%s: %v", FallbackStoreUnavailable, err)
		case found:
			current = &obs
		}
	}

	q, err := Quote(e.clock(), baseFare, current)
	if err != nil {
		return SurgeQuote{}, err
	}
	if q.Context.Fallback {
		q.Context.FallbackReason = reason
	}
	return q, nil
}

func (e *Engine) readLatest(ctx context.Context) (weather.Observation, bool, error) {
	var aerr *store.AccessError
	for attempt := 1; ; attempt++ {
		obs, found, err := e.latest.LatestObservation(ctx)
		if err == nil || !errors.As(err, &aerr) || attempt >= e.readAttempts {
			return obs, found, err
		}

		log.Printf("pricing: warehouse busy (attempt %d/%d): %v", attempt, e.readAttempts, err)
		timer := time.NewTimer(e.readDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return weather.Observation{}, false, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}
