package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

const observationTable = "live_weather"

const createObservationTable = `
	CREATE TABLE IF NOT EXISTS live_weather (
		timestamp TIMESTAMP,
		temperature_c DOUBLE,
		condition VARCHAR
	)
`

// EnsureSchema creates the observation table when it does not exist yet.
func (s *DuckDB) EnsureSchema(ctx context.Context) error {
	return s.withConn(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, createObservationTable); err != nil {
			return fmt.Errorf("duckdb: failed to create observation table: %w", err)
		}
		return nil
	})
}

// AppendObservation inserts one observation and returns the table's new row count.
func (s *DuckDB) AppendObservation(ctx context.Context, obs weather.Observation) (int64, error) {
	var count int64
	err := s.withConn(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, createObservationTable); err != nil {
			return fmt.Errorf("duckdb: failed to create observation table: %w", err)
		}

		_, err := db.ExecContext(ctx,
			`INSERT INTO live_weather (timestamp, temperature_c, condition) VALUES (?, ?, ?)`,
			obs.Timestamp.UTC(), obs.TemperatureC, string(obs.Condition),
		)
		if err != nil {
			return fmt.Errorf("duckdb: failed to save observation: %w", err)
		}

		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM live_weather`).Scan(&count); err != nil {
			return fmt.Errorf("duckdb: failed to count observations: %w", err)
		}
		return nil
	})
	return count, err
}

// LatestObservation returns the observation with the newest timestamp.
// The boolean is false when nothing has been loaded yet.
func (s *DuckDB) LatestObservation(ctx context.Context) (weather.Observation, bool, error) {
	var (
		obs   weather.Observation
		found bool
	)
	err := s.withConn(ctx, func(db *sql.DB) error {
		exists, err := tableExists(ctx, db, observationTable)
		if err != nil {
			return fmt.Errorf("duckdb: failed to inspect schema: %w", err)
		}
		if !exists {
			return nil
		}

		var (
			ts        time.Time
			condition string
		)
		err = db.QueryRowContext(ctx,
			`SELECT timestamp, temperature_c, condition FROM live_weather ORDER BY timestamp DESC LIMIT 1`,
		).Scan(&ts, &obs.TemperatureC, &condition)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("duckdb: failed to query latest observation: %w", err)
		}

		obs.Timestamp = ts.UTC()
		obs.Condition = weather.Condition(condition)
		found = true
		return nil
	})
	return obs, found, err
}
