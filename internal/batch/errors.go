package batch

import (
	"fmt"
)

// SourceUnavailableError reports a historical dataset that is missing or
// unreadable. It is fatal to the batch invocation and never retried.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("trip source %s is unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}
