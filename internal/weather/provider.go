package weather

import (
	"context"
)

// RawPayload is the nested document returned by the weather provider.
// Pointer fields distinguish an absent value from a zero one.
type RawPayload struct {
	Dt   *int64 `json:"dt"`
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

// Extractor abstracts a weather data source. Implementations perform exactly
// one network request per call and leave retry policy to the caller.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, loc Location) (RawPayload, error)
}

// ObservationStore is the contract the DuckDB warehouse and the in-memory store satisfy.
type ObservationStore interface {
	// AppendObservation stores one observation and returns the new row count.
	AppendObservation(ctx context.Context, obs Observation) (int64, error)
	// LatestObservation returns the newest observation, or false when there is none.
	LatestObservation(ctx context.Context) (Observation, bool, error)
}
