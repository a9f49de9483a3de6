package pricing

import (
	"errors"
	"math"
	"time"

	"github.com/i474232898/taxi-surge-engine/internal/common"
	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

// ErrInvalidBaseFare is returned for base fares that are not positive finite numbers.
var ErrInvalidBaseFare = errors.New("base fare must be greater than zero")

const (
	rushHourStart     = 15
	rushHourEnd       = 19 // inclusive
	freezingThreshold = 5.0

	// Surcharges in whole percentage points.
	rushHourPoints = 40
	severePoints   = 50
	cloudyPoints   = 10
	freezingPoints = 20
)

var (
	severeConditions = []weather.Condition{
		weather.ConditionRain,
		weather.ConditionSnow,
		weather.ConditionThunderstorm,
		weather.ConditionDrizzle,
	}
	cloudyConditions = []weather.Condition{
		weather.ConditionClouds,
		weather.ConditionMist,
	}
)

// Quote computes the surge for baseFare at now given the latest observation.
// A nil observation selects FallbackObservation. Quote has no side effects.
func Quote(now time.Time, baseFare float64, obs *weather.Observation) (SurgeQuote, error) {
	if !(baseFare > 0) || math.IsInf(baseFare, 0) {
		return SurgeQuote{}, ErrInvalidBaseFare
	}

	qc := QuoteContext{Now: now, Hour: now.Hour()}
	if obs != nil {
		qc.Condition = obs.Condition
		qc.TemperatureC = obs.TemperatureC
		qc.WeatherTimestamp = obs.Timestamp
	} else {
		qc.Condition = FallbackObservation.Condition
		qc.TemperatureC = FallbackObservation.TemperatureC
		qc.Fallback = true
	}

	points := 100
	reasons := []string{}

	if qc.Hour >= rushHourStart && qc.Hour <= rushHourEnd {
		points += rushHourPoints
		reasons = append(reasons, ReasonRushHour)
	}

	// Weather tiers are exclusive; severe wins over cloudy.
	switch {
	case common.OneOf(qc.Condition, severeConditions...):
		points += severePoints
		reasons = append(reasons, ReasonSevere)
	case common.OneOf(qc.Condition, cloudyConditions...):
		points += cloudyPoints
		reasons = append(reasons, ReasonCloudy)
	}

	// Cold is independent of the weather tier.
	if qc.TemperatureC < freezingThreshold {
		points += freezingPoints
		reasons = append(reasons, ReasonFreezing)
	}

	multiplier := float64(points) / 100
	return SurgeQuote{
		BaseFare:   baseFare,
		Multiplier: multiplier,
		FinalPrice: baseFare * multiplier,
		Reasons:    reasons,
		Context:    qc,
	}, nil
}
