package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/taxi-surge-engine/internal/config"
	"github.com/i474232898/taxi-surge-engine/internal/pricing"
	"github.com/i474232898/taxi-surge-engine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	baseFare := flag.Float64("base-fare", 10.0, "base fare to quote")
	top := flag.Int("top", 5, "number of busiest hours to list (0 to skip)")
	warehousePath := flag.String("warehouse", cfg.WarehousePath, "DuckDB warehouse file")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	warehouse := store.NewDuckDB(*warehousePath)
	engine := pricing.NewEngine(warehouse, cfg.PricingLocation, nil)

	quote, err := engine.ComputeSurge(ctx, *baseFare)
	if err != nil {
		log.Fatalf("surge: %v", err)
	}
	printQuote(quote)

	if *top > 0 {
		hours, err := warehouse.BusiestHours(ctx, *top)
		if err != nil {
			log.Fatalf("busiest hours: %v", err)
		}
		printBusiest(hours)
	}
}

func printQuote(q pricing.SurgeQuote) {
	fmt.Println("--- DYNAMIC PRICING ENGINE ---")
	fmt.Printf("Base fare: $%.2f\n", q.BaseFare)

	updated := "no observation yet, using fallback"
	if !q.Context.Fallback {
		updated = q.Context.WeatherTimestamp.Format(time.RFC3339)
	}
	fmt.Printf("Conditions: hour %02d:00 | weather %s (%.1f°C) | updated %s\n",
		q.Context.Hour, q.Context.Condition, q.Context.TemperatureC, updated)

	fmt.Println("\nSurge calculation:")
	if len(q.Reasons) == 0 {
		fmt.Println("- Normal demand. No surge applied.")
	}
	for _, r := range q.Reasons {
		fmt.Printf("- %s\n", r)
	}
	fmt.Printf("\nFinal ride price: $%.2f (multiplier %.1fx)\n", q.FinalPrice, q.Multiplier)
}

func printBusiest(hours []store.HourlyAggregate) {
	fmt.Println("\n--- BUSIEST TAXI HOURS ---")
	if len(hours) == 0 {
		fmt.Println("No trips loaded. Run batch-load first.")
		return
	}
	fmt.Printf("%-6s %12s %10s\n", "hour", "total_trips", "avg_fare")
	for _, h := range hours {
		fmt.Printf("%-6d %12d %10.2f\n", h.Hour, h.TotalTrips, h.AvgFare)
	}
}
