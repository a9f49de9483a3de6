package weather

import (
	"time"
)

// Transform flattens a raw provider payload into an Observation.
// Absent fields yield a *MalformedPayloadError; nothing is defaulted.
func Transform(raw RawPayload) (Observation, error) {
	if raw.Main == nil {
		return Observation{}, &MalformedPayloadError{Field: "main"}
	}
	if raw.Main.Temp == nil {
		return Observation{}, &MalformedPayloadError{Field: "main.temp"}
	}
	if len(raw.Weather) == 0 {
		return Observation{}, &MalformedPayloadError{Field: "weather"}
	}
	if raw.Weather[0].Main == "" {
		return Observation{}, &MalformedPayloadError{Field: "weather[0].main"}
	}
	if raw.Dt == nil {
		return Observation{}, &MalformedPayloadError{Field: "dt"}
	}

	return Observation{
		Timestamp:    time.Unix(*raw.Dt, 0).UTC(),
		TemperatureC: *raw.Main.Temp,
		Condition:    Condition(raw.Weather[0].Main),
	}, nil
}
