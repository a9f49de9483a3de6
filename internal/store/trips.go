package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const tripTable = "taxi_trips"

// TripLoadStats summarizes one wholesale replacement of the trip table.
type TripLoadStats struct {
	Original int64 `json:"original"`
	Cleaned  int64 `json:"cleaned"`
	Removed  int64 `json:"removed"`
}

// HourlyAggregate is trip volume and average fare for one hour of the day.
type HourlyAggregate struct {
	Hour       int     `json:"hour"`
	TotalTrips int64   `json:"total_trips"`
	AvgFare    float64 `json:"avg_fare"`
}

// sourceScan returns the DuckDB table function reading the file at path.
func sourceScan(path string) (string, error) {
	quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".parquet"):
		return "read_parquet(" + quoted + ")", nil
	case strings.HasSuffix(lower, ".csv"), strings.HasSuffix(lower, ".csv.gz"):
		return "read_csv_auto(" + quoted + ", header = true)", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, path)
	}
}

// ReplaceTrips supersedes the trip table with the rows of the file at path
// that have a positive fare and a positive distance. The swap happens in a
// single transaction: readers see either the old table or the new one.
func (s *DuckDB) ReplaceTrips(ctx context.Context, path string) (TripLoadStats, error) {
	scan, err := sourceScan(path)
	if err != nil {
		return TripLoadStats{}, err
	}

	var stats TripLoadStats
	err = s.withConn(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("duckdb: failed to begin trip load: %w", err)
		}
		defer tx.Rollback()

		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+scan).Scan(&stats.Original); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnreadableSource, path, err)
		}

		replace := "CREATE OR REPLACE TABLE " + tripTable + " AS SELECT * FROM " + scan +
			" WHERE fare_amount > 0 AND trip_distance > 0"
		if _, err := tx.ExecContext(ctx, replace); err != nil {
			return fmt.Errorf("duckdb: failed to replace trip table: %w", err)
		}

		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tripTable).Scan(&stats.Cleaned); err != nil {
			return fmt.Errorf("duckdb: failed to count trips: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("duckdb: failed to commit trip load: %w", err)
		}
		return nil
	})
	if err != nil {
		return TripLoadStats{}, err
	}

	stats.Removed = stats.Original - stats.Cleaned
	return stats, nil
}

// HourlyTripAggregates returns trip counts and average fares per pickup hour,
// ordered by hour. It is empty when no trips have been loaded.
func (s *DuckDB) HourlyTripAggregates(ctx context.Context) ([]HourlyAggregate, error) {
	return s.aggregate(ctx, `
		SELECT
			CAST(EXTRACT(hour FROM tpep_pickup_datetime) AS INTEGER) AS hour_of_day,
			COUNT(*) AS total_trips,
			AVG(fare_amount) AS avg_fare
		FROM taxi_trips
		GROUP BY hour_of_day
		ORDER BY hour_of_day
	`)
}

// BusiestHours returns the limit hours with the most pickups, busiest first.
func (s *DuckDB) BusiestHours(ctx context.Context, limit int) ([]HourlyAggregate, error) {
	return s.aggregate(ctx, `
		SELECT
			CAST(EXTRACT(hour FROM tpep_pickup_datetime) AS INTEGER) AS hour_of_day,
			COUNT(*) AS total_trips,
			ROUND(AVG(fare_amount), 2) AS avg_fare
		FROM taxi_trips
		GROUP BY hour_of_day
		ORDER BY total_trips DESC, hour_of_day
		LIMIT ?
	`, limit)
}

func (s *DuckDB) aggregate(ctx context.Context, query string, args ...any) ([]HourlyAggregate, error) {
	results := []HourlyAggregate{}
	err := s.withConn(ctx, func(db *sql.DB) error {
		exists, err := tableExists(ctx, db, tripTable)
		if err != nil {
			return fmt.Errorf("duckdb: failed to inspect schema: %w", err)
		}
		if !exists {
			return nil
		}

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("duckdb: failed to query trip aggregates: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var a HourlyAggregate
			if err := rows.Scan(&a.Hour, &a.TotalTrips, &a.AvgFare); err != nil {
				return fmt.Errorf("duckdb: failed to scan aggregate row: %w", err)
			}
			results = append(results, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
