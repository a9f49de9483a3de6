package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

// Status is the outcome of one ETL run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Stage names the step of a run that produced a failure.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
)

// Result is the tagged outcome of a run. Failed results carry the failing
// Stage and Reason; successful ones carry the loaded Observation and RowCount.
type Result struct {
	RunID       uuid.UUID           `json:"run_id"`
	Status      Status              `json:"status"`
	Stage       Stage               `json:"stage,omitempty"`
	Reason      error               `json:"-"`
	Observation weather.Observation `json:"observation"`
	RowCount    int64               `json:"row_count"`
	Attempts    int                 `json:"attempts"`
	StartedAt   time.Time           `json:"started_at"`
	Duration    time.Duration       `json:"duration"`
}

// OK reports whether the run succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Message renders Reason for JSON consumers.
func (r Result) Message() string {
	if r.Reason == nil {
		return ""
	}
	return r.Reason.Error()
}
