package httpapi

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/taxi-surge-engine/internal/pipeline"
	"github.com/i474232898/taxi-surge-engine/internal/pricing"
	"github.com/i474232898/taxi-surge-engine/internal/store"
	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

var validate = validator.New()

const defaultBaseFare = 10.0

// TripStats serves the historical trip aggregates.
type TripStats interface {
	HourlyTripAggregates(ctx context.Context) ([]store.HourlyAggregate, error)
	BusiestHours(ctx context.Context, limit int) ([]store.HourlyAggregate, error)
}

// Services bundles what the HTTP layer reads from. Trips and LastRun are optional.
type Services struct {
	Pricing *pricing.Engine
	Latest  pricing.LatestSource
	Trips   TripStats
	LastRun func() (pipeline.Result, bool)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Services) {
	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "ok",
			"service": "taxi-surge-engine",
		}
		if svc.LastRun != nil {
			if res, ok := svc.LastRun(); ok {
				body["last_run"] = fiber.Map{
					"run_id":     res.RunID,
					"status":     res.Status,
					"stage":      res.Stage,
					"error":      res.Message(),
					"started_at": res.StartedAt,
					"attempts":   res.Attempts,
				}
			}
		}
		return c.JSON(body)
	})

	v1 := app.Group("/api/v1")

	v1.Get("/surge-price", func(c *fiber.Ctx) error {
		q, err := parseSurgeQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		quote, err := svc.Pricing.ComputeSurge(c.UserContext(), q.BaseFare)
		if err != nil {
			if errors.Is(err, pricing.ErrInvalidBaseFare) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to compute surge price")
		}

		return c.JSON(newSurgeResponse(quote))
	})

	v1.Get("/weather/latest", func(c *fiber.Ctx) error {
		obs, found, err := svc.Latest.LatestObservation(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "weather store unavailable")
		}
		if !found {
			return fiber.NewError(fiber.StatusNotFound, "no weather observation loaded yet")
		}
		return c.JSON(obs)
	})

	v1.Get("/trips/hourly", func(c *fiber.Ctx) error {
		if svc.Trips == nil {
			return fiber.NewError(fiber.StatusNotImplemented, "trip warehouse not configured")
		}
		hourly, err := svc.Trips.HourlyTripAggregates(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "trip warehouse unavailable")
		}
		return c.JSON(fiber.Map{"hours": hourly})
	})

	v1.Get("/trips/busiest", func(c *fiber.Ctx) error {
		if svc.Trips == nil {
			return fiber.NewError(fiber.StatusNotImplemented, "trip warehouse not configured")
		}
		q, err := parseBusiestQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		hours, err := svc.Trips.BusiestHours(c.UserContext(), q.Limit)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "trip warehouse unavailable")
		}
		return c.JSON(fiber.Map{"hours": hours})
	})
}

// surgeQuery holds query parameters for the surge endpoint.
type surgeQuery struct {
	BaseFare float64 `validate:"gt=0"`
}

func parseSurgeQuery(c *fiber.Ctx) (surgeQuery, error) {
	q := surgeQuery{BaseFare: defaultBaseFare}
	if raw := c.Query("base_fare"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(v, 0) {
			return q, errors.New("base_fare must be a number")
		}
		q.BaseFare = v
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// busiestQuery holds query parameters for the busiest-hours endpoint.
type busiestQuery struct {
	Limit int `validate:"gte=1,lte=24"`
}

func parseBusiestQuery(c *fiber.Ctx) (busiestQuery, error) {
	q := busiestQuery{Limit: c.QueryInt("limit", 5)}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// surgeResponse is the public shape of a quote.
type surgeResponse struct {
	Timestamp        string            `json:"timestamp"`
	CurrentWeather   weather.Condition `json:"current_weather"`
	TemperatureC     float64           `json:"temperature_c"`
	WeatherTimestamp *string           `json:"weather_timestamp"`
	BaseFare         float64           `json:"base_fare"`
	SurgeMultiplier  float64           `json:"surge_multiplier"`
	FinalPrice       float64           `json:"final_price"`
	SurgeReasons     []string          `json:"surge_reasons"`
	FallbackReason   string            `json:"fallback_reason,omitempty"`
}

func newSurgeResponse(q pricing.SurgeQuote) surgeResponse {
	resp := surgeResponse{
		Timestamp:       q.Context.Now.Format(time.RFC3339),
		CurrentWeather:  q.Context.Condition,
		TemperatureC:    q.Context.TemperatureC,
		BaseFare:        q.BaseFare,
		SurgeMultiplier: round2(q.Multiplier),
		FinalPrice:      round2(q.FinalPrice),
		SurgeReasons:    q.Reasons,
		FallbackReason:  q.Context.FallbackReason,
	}
	if !q.Context.WeatherTimestamp.IsZero() {
		ts := q.Context.WeatherTimestamp.Format(time.RFC3339)
		resp.WeatherTimestamp = &ts
	}
	return resp
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
