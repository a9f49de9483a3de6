package weather

import (
	"fmt"
)

// ProviderError reports a failed call to the weather provider. StatusCode is
// zero when no HTTP response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: provider returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: provider call failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// MalformedPayloadError reports a provider payload missing an expected field.
type MalformedPayloadError struct {
	Field string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed weather payload: missing %q", e.Field)
}
