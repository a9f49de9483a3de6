package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/taxi-surge-engine/internal/pipeline"
)

// Runner performs one ETL pass and reports its outcome.
type Runner interface {
	RunOnce(ctx context.Context) pipeline.Result
}

// Scheduler drives a Runner on a fixed interval until stopped. The first run
// fires as soon as the scheduler starts. Runs never overlap: a tick that
// arrives while a run is in flight is skipped, not queued.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration

	mu   sync.Mutex
	last *pipeline.Result
	runs int
}

// New creates a new Scheduler. runTimeout bounds a single run including its retries.
func New(interval, runTimeout time.Duration, runner Runner) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler:  s,
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %s", s.interval)
	}
	if s.runner == nil {
		return errors.New("scheduler: no runner configured")
	}

	s.scheduler.SetMaxConcurrentJobs(1, gocron.RescheduleMode)
	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(s.job)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Printf("scheduler: started, running every %s", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future runs. A run in flight is
// allowed to finish.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// LastResult returns the outcome of the most recent run, if any.
func (s *Scheduler) LastResult() (pipeline.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return pipeline.Result{}, false
	}
	return *s.last, true
}

// Runs returns how many runs have completed.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// job is the gocron task. Nothing escapes it: failures are logged and the
// next tick proceeds as usual.
func (s *Scheduler) job() {
	log.Println("scheduler: running weather ETL job")

	res := s.runSafely()

	s.mu.Lock()
	s.last = &res
	s.runs++
	s.mu.Unlock()

	if res.OK() {
		log.Printf("scheduler: run %s succeeded in %s (%s, %.1f°C, %d rows)",
			res.RunID, res.Duration.Round(time.Millisecond), res.Observation.Condition,
			res.Observation.TemperatureC, res.RowCount)
		return
	}
	log.Printf("scheduler: run %s failed at %s after %d attempt(s): %v",
		res.RunID, res.Stage, res.Attempts, res.Reason)
}

func (s *Scheduler) runSafely() (res pipeline.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = pipeline.Result{Status: pipeline.StatusFailed, Reason: fmt.Errorf("runner panicked: %v", r)}
		}
	}()

	ctx := context.Background()
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}
	return s.runner.RunOnce(ctx)
}
