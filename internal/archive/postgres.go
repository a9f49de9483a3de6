package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

// PostgresArchive mirrors every loaded observation into PostgreSQL for
// long-term retention outside the embedded warehouse.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

// NewPostgresArchive creates a new PostgreSQL archive.
func NewPostgresArchive(pool *pgxpool.Pool) *PostgresArchive {
	return &PostgresArchive{pool: pool}
}

// Connect opens a pool for dsn and makes sure the archive table exists.
func Connect(ctx context.Context, dsn string) (*PostgresArchive, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid dsn: %w", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: health check failed: %w", err)
	}

	a := NewPostgresArchive(pool)
	if err := a.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *PostgresArchive) Name() string {
	return "postgres"
}

// EnsureSchema creates the archive table if needed.
func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS weather_observations (
			observed_at TIMESTAMPTZ PRIMARY KEY,
			temperature_c DOUBLE PRECISION NOT NULL,
			condition VARCHAR(64) NOT NULL,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("postgres: failed to create archive table: %w", err)
	}
	return nil
}

// Put archives obs. The provider may report the same reading twice; the
// duplicate is ignored.
func (a *PostgresArchive) Put(ctx context.Context, obs weather.Observation) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO weather_observations (observed_at, temperature_c, condition)
		VALUES ($1, $2, $3)
		ON CONFLICT (observed_at) DO NOTHING
	`, obs.Timestamp, obs.TemperatureC, string(obs.Condition))
	if err != nil {
		return fmt.Errorf("postgres: failed to archive observation: %w", err)
	}
	return nil
}

// Count returns the number of archived observations.
func (a *PostgresArchive) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := a.pool.QueryRow(ctx, `SELECT COUNT(*) FROM weather_observations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: failed to count observations: %w", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (a *PostgresArchive) Close() {
	a.pool.Close()
}
