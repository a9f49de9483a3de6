package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/i474232898/taxi-surge-engine/internal/batch"
	"github.com/i474232898/taxi-surge-engine/internal/config"
	"github.com/i474232898/taxi-surge-engine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	source := flag.String("source", cfg.TripSource, "trip dataset: local .parquet/.csv path or s3://bucket/key")
	warehousePath := flag.String("warehouse", cfg.WarehousePath, "DuckDB warehouse file")
	flag.Parse()

	if *warehousePath == "" {
		log.Fatal("a warehouse path is required for batch loads")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var fetcher batch.Fetcher
	if strings.HasPrefix(*source, "s3://") {
		s3f, err := batch.NewS3Fetcher(ctx, batch.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			log.Fatalf("s3: %v", err)
		}
		fetcher = s3f
	}

	loader := batch.NewLoader(store.NewDuckDB(*warehousePath), fetcher)
	stats, err := loader.Load(ctx, *source)
	if err != nil {
		var serr *batch.SourceUnavailableError
		if errors.As(err, &serr) {
			fmt.Fprintf(os.Stderr, "cannot load trips: %v\n", serr)
			os.Exit(2)
		}
		log.Fatalf("batch load failed: %v", err)
	}

	fmt.Printf("Original row count: %d trips.\n", stats.Original)
	fmt.Printf("Cleaned row count:  %d trips.\n", stats.Cleaned)
	fmt.Printf("Removed:            %d records.\n", stats.Removed)
	fmt.Printf("Warehouse %s now holds %d historical trips.\n", *warehousePath, stats.Cleaned)
}
