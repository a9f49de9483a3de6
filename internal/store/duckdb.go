package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

// DuckDB is the file-backed analytical warehouse. It never holds a connection
// between calls: each operation opens the file, runs, and closes it again so
// other processes (CLI reports, batch loads) can take their turn.
type DuckDB struct {
	path string

	// mu serializes acquisitions made from this process.
	mu sync.Mutex
}

// NewDuckDB returns a store for the warehouse file at path. The file is
// created on first use.
func NewDuckDB(path string) *DuckDB {
	return &DuckDB{path: path}
}

// withConn acquires the warehouse for the duration of fn and always releases it.
func (s *DuckDB) withConn(ctx context.Context, fn func(db *sql.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &AccessError{Path: s.path, Op: "mkdir", Err: err}
		}
	}

	db, err := sql.Open("duckdb", s.path)
	if err != nil {
		return &AccessError{Path: s.path, Op: "open", Err: err}
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return &AccessError{Path: s.path, Op: "ping", Err: err}
	}

	return fn(db)
}

func tableExists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, table,
	).Scan(&n)
	return n > 0, err
}
