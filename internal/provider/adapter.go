// Package provider contains the adapters that fetch and normalize yield data
// from external sources, and the registry that holds them.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/yourorg/yield-agg-api/internal/model"
)

// Adapter is the contract every provider integration implements. Fetch
// returns zero or more normalized opportunity candidates, or an error when
// the source is unavailable or its response cannot be parsed. Adapters never
// swallow errors; isolation between providers is the orchestrator's job.
type Adapter interface {
	// Name is the unique provider identifier, e.g. "lido".
	Name() string

	// Fetch retrieves and normalizes opportunities from the provider.
	Fetch(ctx context.Context) ([]model.Opportunity, error)
}

// newRetryClient creates a new HTTP client with retry capabilities
func newRetryClient() *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	return c.StandardClient()
}
