package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

func nyc() weather.Location {
	lat, lon := 40.7128, -74.0060
	return weather.Location{Lat: &lat, Lon: &lon}
}

func TestOpenWeatherProvider_Extract(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"lat":   q.Get("lat"),
			"lon":   q.Get("lon"),
			"appid": q.Get("appid"),
			"units": q.Get("units"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"dt":1708860000,"main":{"temp":3.5},"weather":[{"main":"Snow"}]}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "secret").WithBaseURL(srv.URL)
	raw, err := p.Extract(context.Background(), nyc())
	require.NoError(t, err)

	assert.Equal(t, "40.7128", gotQuery["lat"])
	assert.Equal(t, "-74.0060", gotQuery["lon"])
	assert.Equal(t, "secret", gotQuery["appid"])
	assert.Equal(t, "metric", gotQuery["units"])

	obs, err := weather.Transform(raw)
	require.NoError(t, err)
	assert.Equal(t, weather.ConditionSnow, obs.Condition)
	assert.Equal(t, 3.5, obs.TemperatureC)
	assert.Equal(t, int64(1708860000), obs.Timestamp.Unix())
}

func TestOpenWeatherProvider_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "rate limited", status: http.StatusTooManyRequests},
		{name: "server error", status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewOpenWeatherProvider(srv.Client(), "secret").WithBaseURL(srv.URL)
			_, err := p.Extract(context.Background(), nyc())

			var perr *weather.ProviderError
			require.True(t, errors.As(err, &perr), "expected ProviderError, got %v", err)
			assert.Equal(t, tt.status, perr.StatusCode)
		})
	}
}

func TestOpenWeatherProvider_CityQuery(t *testing.T) {
	var q string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"dt":1,"main":{"temp":1},"weather":[{"main":"Clear"}]}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "secret").WithBaseURL(srv.URL)
	_, err := p.Extract(context.Background(), weather.Location{City: "New York", Country: "US"})
	require.NoError(t, err)
	assert.Equal(t, "New York,US", q)
}

func TestOpenWeatherProvider_MissingAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "")
	_, err := p.Extract(context.Background(), nyc())
	assert.ErrorIs(t, err, errMissingAPIKey)
}

func TestGeocode_KeepsExistingCoordinates(t *testing.T) {
	loc, err := Geocode("", nyc())
	require.NoError(t, err)
	assert.Equal(t, 40.7128, *loc.Lat)
}
