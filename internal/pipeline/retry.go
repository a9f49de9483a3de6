package pipeline

import (
	"context"
	"errors"
	"math"
	"time"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff allows three attempts in total, one minute apart at first.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: time.Minute,
	MaxInterval:     5 * time.Minute,
}

var errInvalidBackoff = errors.New("invalid backoff configuration")

// delay returns the wait before retry number attempt (zero based).
func (b BackoffConfig) delay(attempt int) time.Duration {
	d := b.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
	if b.MaxInterval > 0 && d > b.MaxInterval {
		d = b.MaxInterval
	}
	return d
}

// retry calls fn until it succeeds, returns an error retryable rejects, or the
// retry budget is spent. It returns the number of attempts made and the last error.
func retry(ctx context.Context, cfg BackoffConfig, retryable func(error) bool, fn func() error) (int, error) {
	if cfg.MaxRetries < 0 || cfg.InitialInterval < 0 {
		return 0, errInvalidBackoff
	}

	attempt := 0
	for {
		attempt++
		err := fn()
		if err == nil {
			return attempt, nil
		}
		if !retryable(err) || attempt > cfg.MaxRetries {
			return attempt, err
		}

		timer := time.NewTimer(cfg.delay(attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}
