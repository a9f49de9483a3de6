package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider implements weather.Extractor for OpenWeatherMap's current weather API.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: openWeatherURL,
		client:  client,
		circuit: newBreaker("openweather"),
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *OpenWeatherProvider) WithBaseURL(u string) *OpenWeatherProvider {
	p.baseURL = u
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Extract fetches the current conditions at loc's coordinates, falling back to
// a "city,country" query when no coordinates are known.
func (p *OpenWeatherProvider) Extract(ctx context.Context, loc weather.Location) (weather.RawPayload, error) {
	if p.apiKey == "" {
		return weather.RawPayload{}, fmt.Errorf("%s: %w", p.name, errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")

		if loc.HasCoordinates() {
			values.Set("lat", strconv.FormatFloat(*loc.Lat, 'f', 4, 64))
			values.Set("lon", strconv.FormatFloat(*loc.Lon, 'f', 4, 64))
		} else {
			q := loc.City
			if loc.Country != "" {
				q = fmt.Sprintf("%s,%s", loc.City, loc.Country)
			}
			values.Set("q", q)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.client, p.circuit, p.name, buildRequest)
	if err != nil {
		return weather.RawPayload{}, err
	}
	defer resp.Body.Close()

	var payload weather.RawPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.RawPayload{}, &weather.MalformedPayloadError{Field: "body"}
	}
	return payload, nil
}
