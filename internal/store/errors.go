package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedSource is returned for trip sources that are neither Parquet nor CSV.
	ErrUnsupportedSource = errors.New("unsupported trip source format")
	// ErrUnreadableSource is returned when the trip source cannot be scanned.
	ErrUnreadableSource = errors.New("trip source could not be read")
)

// AccessError reports that the warehouse file could not be opened or locked.
// It is transient: another process may hold the file for a moment.
type AccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("duckdb: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
