package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

var (
	errNoHTTPClient  = errors.New("http client not configured")
	errMissingAPIKey = errors.New("api key is not configured")
)

// newBreaker returns the circuit breaker shared by every call of one provider.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequest executes exactly one HTTP request through the circuit breaker.
// Any failure is reported as a *weather.ProviderError; retries are the caller's business.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	provider string,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if client == nil {
		return nil, &weather.ProviderError{Provider: provider, Err: errNoHTTPClient}
	}

	req, err := buildRequest()
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", provider, err)
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, &weather.ProviderError{Provider: provider, Err: execErr}
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, &weather.ProviderError{Provider: provider, StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		var perr *weather.ProviderError
		if errors.As(err, &perr) {
			return nil, perr
		}
		// Open or half-open circuit rejected the call without touching the network.
		return nil, &weather.ProviderError{Provider: provider, Err: err}
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type from circuit breaker", provider)
	}
	return resp, nil
}
