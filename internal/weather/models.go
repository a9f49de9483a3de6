package weather

import (
	"fmt"
	"time"
)

// Condition is the primary weather category reported by the provider,
// e.g. "Rain" or "Clouds". Categories outside the constants below are kept verbatim.
type Condition string

const (
	ConditionClear        Condition = "Clear"
	ConditionClouds       Condition = "Clouds"
	ConditionRain         Condition = "Rain"
	ConditionDrizzle      Condition = "Drizzle"
	ConditionThunderstorm Condition = "Thunderstorm"
	ConditionSnow         Condition = "Snow"
	ConditionMist         Condition = "Mist"
	ConditionFog          Condition = "Fog"
	ConditionHaze         Condition = "Haze"
)

// ReadableLayout is the human-readable timestamp layout used for observations.
const ReadableLayout = "2006-01-02 15:04:05"

// Location represents the fixed point we observe weather for.
type Location struct {
	City    string   `json:"city,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Key returns a canonical string key for logging this location.
func (l Location) Key() string {
	if l.HasCoordinates() {
		return fmt.Sprintf("%.4f,%.4f", *l.Lat, *l.Lon)
	}
	return l.City + ":" + l.Country
}

// Observation is one normalized weather reading. One row is stored per
// successful pipeline run; the newest Timestamp is the "latest" observation.
type Observation struct {
	Timestamp    time.Time `json:"timestamp"` // always UTC
	TemperatureC float64   `json:"temperature_c"`
	Condition    Condition `json:"condition"`
}

// Readable returns the observation time in ReadableLayout.
func (o Observation) Readable() string {
	return o.Timestamp.Format(ReadableLayout)
}
