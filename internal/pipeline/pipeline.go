package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/taxi-surge-engine/internal/store"
	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

// Loader appends one normalized observation and reports the new row count.
type Loader interface {
	AppendObservation(ctx context.Context, obs weather.Observation) (int64, error)
}

// Sink receives each successfully loaded observation on a best-effort basis.
type Sink interface {
	Name() string
	Put(ctx context.Context, obs weather.Observation) error
}

// Pipeline runs Extract→Transform→Load for a single location.
type Pipeline struct {
	extractor weather.Extractor
	loader    Loader
	sinks     []Sink
	location  weather.Location
	backoff   BackoffConfig
}

// New creates a Pipeline. Sinks are optional.
func New(extractor weather.Extractor, loader Loader, loc weather.Location, backoff BackoffConfig, sinks ...Sink) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		loader:    loader,
		sinks:     sinks,
		location:  loc,
		backoff:   backoff,
	}
}

// RunOnce performs one full ETL pass. It never panics and never returns an
// error: every outcome is described by the Result.
func (p *Pipeline) RunOnce(ctx context.Context) (res Result) {
	res = Result{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Reason = fmt.Errorf("pipeline panicked: %v", r)
		}
		res.Duration = time.Since(res.StartedAt)
	}()

	fail := func(stage Stage, err error) Result {
		res.Status = StatusFailed
		res.Stage = stage
		res.Reason = err
		return res
	}

	var raw weather.RawPayload
	attempts, err := retry(ctx, p.backoff, isProviderError, func() error {
		var extractErr error
		raw, extractErr = p.extractor.Extract(ctx, p.location)
		if extractErr != nil {
			log.Printf("pipeline[%s]: extract from %s failed: %v", res.RunID, p.extractor.Name(), extractErr)
		}
		return extractErr
	})
	res.Attempts = attempts
	if err != nil {
		return fail(StageExtract, err)
	}

	obs, err := weather.Transform(raw)
	if err != nil {
		return fail(StageTransform, err)
	}
	res.Observation = obs

	_, err = retry(ctx, p.backoff, isStoreAccessError, func() error {
		count, loadErr := p.loader.AppendObservation(ctx, obs)
		if loadErr != nil {
			log.Printf("pipeline[%s]: load failed: %v", res.RunID, loadErr)
			return loadErr
		}
		res.RowCount = count
		return nil
	})
	if err != nil {
		return fail(StageLoad, err)
	}

	for _, s := range p.sinks {
		if err := s.Put(ctx, obs); err != nil {
			log.Printf("WARN: pipeline[%s]: sink %s failed: %v", res.RunID, s.Name(), err)
		}
	}

	res.Status = StatusSuccess
	return res
}

func isProviderError(err error) bool {
	var perr *weather.ProviderError
	return errors.As(err, &perr)
}

func isStoreAccessError(err error) bool {
	var aerr *store.AccessError
	return errors.As(err, &aerr)
}
