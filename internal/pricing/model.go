// Package pricing turns the time of day and the latest weather observation
// into a fare multiplier.
package pricing

import (
	"time"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

// QuoteContext records the inputs a quote was computed from.
type QuoteContext struct {
	Now              time.Time         `json:"now"`
	Hour             int               `json:"hour"`
	Condition        weather.Condition `json:"condition"`
	TemperatureC     float64           `json:"temperature_c"`
	WeatherTimestamp time.Time         `json:"weather_timestamp"` // zero when the fallback was used
	Fallback         bool              `json:"fallback"`
	FallbackReason   string            `json:"fallback_reason,omitempty"`
}

// SurgeQuote is a derived, never persisted, price quote.
type SurgeQuote struct {
	BaseFare   float64      `json:"base_fare"`
	Multiplier float64      `json:"multiplier"`
	FinalPrice float64      `json:"final_price"`
	Reasons    []string     `json:"reasons"`
	Context    QuoteContext `json:"context"`
}

// Reasons recorded on a quote, in the order the rules are applied.
const (
	ReasonRushHour = "Evening Rush Hour (+40%)"
	ReasonSevere   = "Severe Weather (+50%)"
	ReasonCloudy   = "Cloudy Conditions (+10%)"
	ReasonFreezing = "Freezing Temperatures (+20%)"
)

// Why a quote used the fallback weather.
const (
	FallbackNoObservation    = "no observation loaded yet"
	FallbackStoreUnavailable = "weather store unavailable"
)

// Fallback weather used when no observation has been loaded yet.
var FallbackObservation = weather.Observation{
	Condition:    weather.ConditionClear,
	TemperatureC: 20.0,
}
