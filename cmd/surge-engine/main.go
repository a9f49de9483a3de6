package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/i474232898/taxi-surge-engine/internal/api/http"
	"github.com/i474232898/taxi-surge-engine/internal/archive"
	"github.com/i474232898/taxi-surge-engine/internal/cache"
	"github.com/i474232898/taxi-surge-engine/internal/config"
	"github.com/i474232898/taxi-surge-engine/internal/pipeline"
	"github.com/i474232898/taxi-surge-engine/internal/pricing"
	"github.com/i474232898/taxi-surge-engine/internal/scheduler"
	"github.com/i474232898/taxi-surge-engine/internal/store"
	"github.com/i474232898/taxi-surge-engine/internal/weather"
	"github.com/i474232898/taxi-surge-engine/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Resolve coordinates for a city-only location; the provider can still
	// query by name if that fails.
	loc, err := providers.Geocode(cfg.GeocoderAPIKey, cfg.Location)
	if err != nil {
		log.Printf("WARN: geocoding failed, querying by city name: %v", err)
	}

	// Warehouse for observations and trips; in-memory when no path is configured.
	var (
		observations weather.ObservationStore
		trips        httpapi.TripStats
	)
	if cfg.WarehousePath != "" {
		warehouse := store.NewDuckDB(cfg.WarehousePath)
		if err := warehouse.EnsureSchema(context.Background()); err != nil {
			log.Printf("WARN: warehouse not ready yet: %v", err)
		}
		observations, trips = warehouse, warehouse
		log.Printf("INFO: using warehouse %s", cfg.WarehousePath)
	} else {
		observations = store.NewMemoryStore(96, 24*time.Hour)
		log.Println("INFO: WAREHOUSE_PATH empty; observations kept in memory")
	}

	// Optional sinks fed after each successful load.
	var (
		sinks  []pipeline.Sink
		latest pricing.LatestSource = observations
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		obsCache := cache.NewObservationCache(rdb, cache.TTL(cfg.CacheTTL, cfg.FetchInterval))
		sinks = append(sinks, obsCache)
		latest = cache.NewReadThrough(obsCache, observations)
		log.Printf("INFO: caching latest observation in redis at %s", cfg.RedisAddr)
	}
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := archive.Connect(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Printf("WARN: postgres archive disabled: %v", err)
		} else {
			defer pg.Close()
			sinks = append(sinks, pg)
			log.Println("INFO: archiving observations to postgres")
		}
	}

	extractor := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)
	etl := pipeline.New(extractor, observations, loc, pipeline.BackoffConfig{
		MaxRetries:      cfg.ExtractMaxRetries,
		InitialInterval: cfg.ExtractRetryDelay,
		MaxInterval:     cfg.ExtractRetryMaxDelay,
	}, sinks...)

	// Scheduler that periodically runs the ETL pipeline, starting right away.
	sched := scheduler.New(cfg.FetchInterval, cfg.RunTimeout, etl)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	engine := pricing.NewEngine(latest, cfg.PricingLocation, nil)

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "taxi-surge-engine",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
	}))

	httpapi.RegisterRoutes(app, httpapi.Services{
		Pricing: engine,
		Latest:  latest,
		Trips:   trips,
		LastRun: sched.LastResult,
	})

	go func() {
		log.Printf("INFO: listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Println("INFO: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
