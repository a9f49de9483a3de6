// Package batch loads the historical trip dataset into the warehouse,
// replacing whatever was loaded before.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/i474232898/taxi-surge-engine/internal/store"
)

// TripReplacer swaps the bulk trip table for the cleaned contents of a local file.
type TripReplacer interface {
	ReplaceTrips(ctx context.Context, path string) (store.TripLoadStats, error)
}

// Fetcher downloads a remote dataset to a local file. The returned cleanup
// removes the local copy.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (path string, cleanup func(), err error)
}

const (
	defaultLockAttempts = 3
	defaultLockDelay    = 2 * time.Second
)

// Loader runs one batch load.
type Loader struct {
	trips   TripReplacer
	fetcher Fetcher

	lockAttempts int
	lockDelay    time.Duration
}

// NewLoader creates a Loader. fetcher may be nil when only local files are used.
func NewLoader(trips TripReplacer, fetcher Fetcher) *Loader {
	return &Loader{
		trips:        trips,
		fetcher:      fetcher,
		lockAttempts: defaultLockAttempts,
		lockDelay:    defaultLockDelay,
	}
}

// WithLockRetry sets how often a warehouse held by another process is
// retried before the load gives up.
func (l *Loader) WithLockRetry(attempts int, delay time.Duration) *Loader {
	if attempts < 1 {
		attempts = 1
	}
	l.lockAttempts = attempts
	l.lockDelay = delay
	return l
}

// Load reads every record from source (a local path or an s3:// URI), drops
// rows without a positive fare and distance, and replaces the trip table.
func (l *Loader) Load(ctx context.Context, source string) (store.TripLoadStats, error) {
	path := source
	if strings.HasPrefix(source, s3Scheme) {
		if l.fetcher == nil {
			return store.TripLoadStats{}, &SourceUnavailableError{Source: source, Err: errors.New("no s3 fetcher configured")}
		}
		local, cleanup, err := l.fetcher.Fetch(ctx, source)
		if err != nil {
			return store.TripLoadStats{}, &SourceUnavailableError{Source: source, Err: err}
		}
		defer cleanup()
		path = local
	}

	info, err := os.Stat(path)
	if err != nil {
		return store.TripLoadStats{}, &SourceUnavailableError{Source: source, Err: err}
	}
	if info.IsDir() {
		return store.TripLoadStats{}, &SourceUnavailableError{Source: source, Err: errors.New("is a directory")}
	}

	log.Printf("batch: loading trips from %s (%d bytes)", source, info.Size())
	stats, err := l.replace(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrUnreadableSource) || errors.Is(err, store.ErrUnsupportedSource) {
			return store.TripLoadStats{}, &SourceUnavailableError{Source: source, Err: err}
		}
		return store.TripLoadStats{}, fmt.Errorf("batch: load %s: %w", source, err)
	}

	log.Printf("batch: original=%d cleaned=%d removed=%d", stats.Original, stats.Cleaned, stats.Removed)
	return stats, nil
}

func (l *Loader) replace(ctx context.Context, path string) (store.TripLoadStats, error) {
	var aerr *store.AccessError
	for attempt := 1; ; attempt++ {
		stats, err := l.trips.ReplaceTrips(ctx, path)
		if err == nil || !errors.As(err, &aerr) || attempt >= l.lockAttempts {
			return stats, err
		}

		log.Printf("batch: warehouse busy (attempt %d/%d): %v", attempt, l.lockAttempts, err)
		timer := time.NewTimer(l.lockDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return store.TripLoadStats{}, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}
