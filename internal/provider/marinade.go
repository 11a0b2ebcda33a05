package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/yield-agg-api/internal/config"
	"github.com/yourorg/yield-agg-api/internal/model"
)

// MarinadeAdapter fetches the mSOL liquid-staking opportunity from the
// Marinade API.
type MarinadeAdapter struct {
	apiURL     string
	httpClient *http.Client
}

// NewMarinadeAdapter creates a new Marinade adapter from configuration.
func NewMarinadeAdapter(cfg config.Config) *MarinadeAdapter {
	return &MarinadeAdapter{
		apiURL:     cfg.MarinadeURL,
		httpClient: newRetryClient(),
	}
}

// Name implements Adapter.
func (a *MarinadeAdapter) Name() string { return "marinade" }

// marinadeAPYResponse matches the Marinade 1y APY endpoint response shape.
type marinadeAPYResponse struct {
	Value      float64 `json:"value"`
	EndTime    string  `json:"end_time"`
	EndPrice   float64 `json:"end_price"`
	StartTime  string  `json:"start_time"`
	StartPrice float64 `json:"start_price"`
}

// Fetch retrieves the trailing-year mSOL APY from Marinade.
func (a *MarinadeAdapter) Fetch(ctx context.Context) ([]model.Opportunity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("marinade request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("marinade API returned status %d", resp.StatusCode)
	}

	var result marinadeAPYResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode marinade response: %w", err)
	}

	// Value is a fraction: 0.1459 means 14.59%, i.e. 1459 bp.
	aprBasisPoints := int(math.Round(result.Value * 10000))

	logrus.WithFields(logrus.Fields{
		"apy_fraction": result.Value,
		"apr_bp":       aprBasisPoints,
	}).Debug("Fetched Marinade mSOL data")

	return []model.Opportunity{
		{
			Name:      "Marinade mSOL",
			Provider:  a.Name(),
			Asset:     "mSOL",
			Chain:     model.ChainSolana,
			APR:       aprBasisPoints,
			Category:  model.CategoryStaking,
			Liquidity: model.LiquidityLiquid,
			RiskScore: 4,
		},
	}, nil
}
