package pipeline

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/taxi-surge-engine/internal/store"
	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

type fakeExtractor struct {
	mu       sync.Mutex
	calls    int
	failures int // number of leading calls that fail
	err      error
	payload  weather.RawPayload
	panics   bool
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) Extract(_ context.Context, _ weather.Location) (weather.RawPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panics {
		panic("boom")
	}
	if f.calls <= f.failures {
		return weather.RawPayload{}, f.err
	}
	return f.payload, nil
}

func (f *fakeExtractor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type flakyLoader struct {
	failures int
	calls    int
	inner    *store.MemoryStore
}

func (l *flakyLoader) AppendObservation(ctx context.Context, obs weather.Observation) (int64, error) {
	l.calls++
	if l.calls <= l.failures {
		return 0, &store.AccessError{Path: "warehouse.db", Op: "open", Err: errors.New("file is locked")}
	}
	return l.inner.AppendObservation(ctx, obs)
}

type recordingSink struct {
	got []weather.Observation
	err error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Put(_ context.Context, obs weather.Observation) error {
	s.got = append(s.got, obs)
	return s.err
}

func validPayload() weather.RawPayload {
	dt := int64(1708860000)
	temp := 2.0
	raw := weather.RawPayload{Dt: &dt}
	raw.Main = &struct {
		Temp *float64 `json:"temp"`
	}{Temp: &temp}
	raw.Weather = []struct {
		Main string `json:"main"`
	}{{Main: "Rain"}}
	return raw
}

func providerErr() error {
	return &weather.ProviderError{Provider: "fake", StatusCode: http.StatusServiceUnavailable}
}

func TestRunOnce_Success(t *testing.T) {
	ext := &fakeExtractor{payload: validPayload()}
	mem := store.NewMemoryStore(0, 0)
	sink := &recordingSink{}

	res := New(ext, mem, weather.Location{}, fastBackoff, sink).RunOnce(context.Background())

	require.True(t, res.OK(), "reason: %v", res.Reason)
	assert.Equal(t, int64(1), res.RowCount)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, weather.ConditionRain, res.Observation.Condition)
	assert.Len(t, sink.got, 1)

	latest, found, err := mem.LatestObservation(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2.0, latest.TemperatureC)
}

func TestRunOnce_RetriesProviderErrors(t *testing.T) {
	ext := &fakeExtractor{failures: 2, err: providerErr(), payload: validPayload()}

	res := New(ext, store.NewMemoryStore(0, 0), weather.Location{}, fastBackoff).RunOnce(context.Background())

	require.True(t, res.OK())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, ext.Calls())
}

func TestRunOnce_GivesUpAfterThreeAttempts(t *testing.T) {
	ext := &fakeExtractor{failures: 10, err: providerErr()}

	res := New(ext, store.NewMemoryStore(0, 0), weather.Location{}, fastBackoff).RunOnce(context.Background())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, StageExtract, res.Stage)
	assert.Equal(t, 3, ext.Calls())

	var perr *weather.ProviderError
	assert.True(t, errors.As(res.Reason, &perr))
}

func TestRunOnce_DoesNotRetryOtherExtractErrors(t *testing.T) {
	ext := &fakeExtractor{failures: 10, err: errors.New("api key is not configured")}

	res := New(ext, store.NewMemoryStore(0, 0), weather.Location{}, fastBackoff).RunOnce(context.Background())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, 1, ext.Calls())
}

func TestRunOnce_MalformedPayloadIsNotLoaded(t *testing.T) {
	ext := &fakeExtractor{payload: weather.RawPayload{}}
	mem := store.NewMemoryStore(0, 0)

	res := New(ext, mem, weather.Location{}, fastBackoff).RunOnce(context.Background())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, StageTransform, res.Stage)
	var merr *weather.MalformedPayloadError
	assert.True(t, errors.As(res.Reason, &merr))

	_, found, err := mem.LatestObservation(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRunOnce_RetriesLockedStore(t *testing.T) {
	loader := &flakyLoader{failures: 1, inner: store.NewMemoryStore(0, 0)}

	res := New(&fakeExtractor{payload: validPayload()}, loader, weather.Location{}, fastBackoff).RunOnce(context.Background())

	require.True(t, res.OK())
	assert.Equal(t, 2, loader.calls)
}

func TestRunOnce_LoadFailure(t *testing.T) {
	loader := &flakyLoader{failures: 10, inner: store.NewMemoryStore(0, 0)}

	res := New(&fakeExtractor{payload: validPayload()}, loader, weather.Location{}, fastBackoff).RunOnce(context.Background())

	assert.Equal(t, StageLoad, res.Stage)
	assert.Equal(t, 3, loader.calls)
}

func TestRunOnce_SinkFailureDoesNotFailRun(t *testing.T) {
	sink := &recordingSink{err: errors.New("redis down")}

	res := New(&fakeExtractor{payload: validPayload()}, store.NewMemoryStore(0, 0), weather.Location{}, fastBackoff, sink).
		RunOnce(context.Background())

	assert.True(t, res.OK())
	assert.Len(t, sink.got, 1)
}

func TestRunOnce_RecoversPanics(t *testing.T) {
	res := New(&fakeExtractor{panics: true}, store.NewMemoryStore(0, 0), weather.Location{}, fastBackoff).
		RunOnce(context.Background())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Message(), "boom")
}

func TestBackoffConfig_Delay(t *testing.T) {
	b := BackoffConfig{MaxRetries: 5, InitialInterval: time.Second, MaxInterval: 3 * time.Second}
	assert.Equal(t, time.Second, b.delay(0))
	assert.Equal(t, 2*time.Second, b.delay(1))
	assert.Equal(t, 3*time.Second, b.delay(2))
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := BackoffConfig{MaxRetries: 3, InitialInterval: time.Hour}
	attempts, err := retry(ctx, slow, func(error) bool { return true }, func() error { return providerErr() })

	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}
