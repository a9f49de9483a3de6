package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

// Defaults match the NYC deployment.
const (
	DefaultLat = 40.7128
	DefaultLon = -74.0060
)

var validate = validator.New()

type AppConfig struct {
	OpenWeatherAPIKey string
	GeocoderAPIKey    string

	// Location we observe. Coordinates win over City/Country.
	Location weather.Location

	// FetchInterval controls how often the ETL pipeline runs.
	FetchInterval time.Duration `validate:"gt=0"`
	HTTPTimeout   time.Duration `validate:"gt=0"`
	RunTimeout    time.Duration `validate:"gt=0"`

	// Extract retry budget: MaxRetries retries after the first attempt.
	ExtractMaxRetries    int           `validate:"gte=0,lte=10"`
	ExtractRetryDelay    time.Duration `validate:"gte=0"`
	ExtractRetryMaxDelay time.Duration `validate:"gte=0"`

	// WarehousePath is the DuckDB file; empty keeps observations in memory.
	WarehousePath string
	TripSource    string

	// PricingLocation is the clock used for rush-hour rules.
	PricingLocation *time.Location `validate:"required"`

	RedisAddr string
	CacheTTL  time.Duration `validate:"gte=0"`

	DatabaseURL string

	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	Port string `validate:"required,numeric"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	loc, err := loadLocation()
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	// Scheduler interval: default 15 minutes.
	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"FETCH_INTERVAL", "15m", &cfg.FetchInterval},
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"RUN_TIMEOUT", "10m", &cfg.RunTimeout},
		{"EXTRACT_RETRY_DELAY", "60s", &cfg.ExtractRetryDelay},
		{"EXTRACT_RETRY_MAX_DELAY", "5m", &cfg.ExtractRetryMaxDelay},
		{"CACHE_TTL", "1h", &cfg.CacheTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	cfg.ExtractMaxRetries = getenvInt("EXTRACT_MAX_RETRIES", 2)

	cfg.WarehousePath = getenvDefault("WAREHOUSE_PATH", "data/nyc_warehouse.db")
	cfg.TripSource = getenvDefault("TRIP_SOURCE", "data/raw/yellow_tripdata_2024-01.parquet")

	tz := getenvDefault("PRICING_TIMEZONE", "America/New_York")
	cfg.PricingLocation, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICING_TIMEZONE: %w", err)
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.S3Region = getenvDefault("AWS_REGION", "us-east-1")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKey = os.Getenv("S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("S3_SECRET_KEY")

	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadLocation uses WEATHER_LAT/WEATHER_LON when set, otherwise the city and
// country (resolved later by the geocoder), otherwise New York City.
func loadLocation() (weather.Location, error) {
	loc := weather.Location{
		City:    os.Getenv("WEATHER_LOCATION_CITY"),
		Country: os.Getenv("WEATHER_LOCATION_COUNTRY"),
	}

	latStr, lonStr := os.Getenv("WEATHER_LAT"), os.Getenv("WEATHER_LON")
	switch {
	case latStr != "" || lonStr != "":
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return loc, fmt.Errorf("invalid WEATHER_LAT: %w", err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return loc, fmt.Errorf("invalid WEATHER_LON: %w", err)
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return loc, fmt.Errorf("coordinates out of range: %f,%f", lat, lon)
		}
		loc.Lat, loc.Lon = &lat, &lon
	case loc.City == "":
		lat, lon := DefaultLat, DefaultLon
		loc.Lat, loc.Lon = &lat, &lon
		loc.City, loc.Country = "New York", "US"
	}
	return loc, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
