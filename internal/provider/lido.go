package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/yield-agg-api/internal/config"
	"github.com/yourorg/yield-agg-api/internal/model"
)

// LidoAdapter fetches the stETH staking opportunity from the Lido API.
type LidoAdapter struct {
	aprURL     string
	statsURL   string
	httpClient *http.Client
}

// NewLidoAdapter creates a new Lido adapter from configuration.
func NewLidoAdapter(cfg config.Config) *LidoAdapter {
	return &LidoAdapter{
		aprURL:     cfg.LidoAPRURL,
		statsURL:   cfg.LidoStatsURL,
		httpClient: newRetryClient(),
	}
}

// Name implements Adapter.
func (a *LidoAdapter) Name() string { return "lido" }

// lidoAPRResponse matches the Lido APR endpoint response shape.
type lidoAPRResponse struct {
	Data struct {
		TimeUnix int64   `json:"timeUnix"`
		APR      float64 `json:"apr"`
	} `json:"data"`
	Meta struct {
		Symbol  string `json:"symbol"`
		Address string `json:"address"`
		ChainID int    `json:"chainId"`
	} `json:"meta"`
}

// lidoStatsResponse matches the Lido stats endpoint response shape.
type lidoStatsResponse struct {
	UniqueAnytimeHolders string  `json:"uniqueAnytimeHolders"`
	UniqueHolders        string  `json:"uniqueHolders"`
	TotalStaked          string  `json:"totalStaked"`
	MarketCap            float64 `json:"marketCap"`
}

// Fetch retrieves the current stETH APR and protocol stats from Lido.
func (a *LidoAdapter) Fetch(ctx context.Context) ([]model.Opportunity, error) {
	var aprResult lidoAPRResponse
	if err := a.getJSON(ctx, a.aprURL, &aprResult); err != nil {
		return nil, fmt.Errorf("lido apr: %w", err)
	}

	var statsResult lidoStatsResponse
	if err := a.getJSON(ctx, a.statsURL, &statsResult); err != nil {
		return nil, fmt.Errorf("lido stats: %w", err)
	}

	// APR comes back as a percent value: 5.1 means 5.1%, i.e. 510 bp.
	aprBasisPoints := int(math.Round(aprResult.Data.APR * 100))

	// Band risk by TVL: the deeper the pool, the lower the score.
	tvl := statsResult.MarketCap
	riskScore := 5
	switch {
	case tvl > 40_000_000_000:
		riskScore = 2
	case tvl > 10_000_000_000:
		riskScore = 3
	case tvl > 1_000_000_000:
		riskScore = 4
	}

	asset := aprResult.Meta.Symbol
	if asset == "" {
		asset = "stETH"
	}

	logrus.WithFields(logrus.Fields{
		"apr_pct":    aprResult.Data.APR,
		"tvl_usd":    tvl,
		"risk_score": riskScore,
	}).Debug("Fetched Lido stETH data")

	return []model.Opportunity{
		{
			Name:      "Lido stETH",
			Provider:  a.Name(),
			Asset:     asset,
			Chain:     model.ChainEthereum,
			APR:       aprBasisPoints,
			Category:  model.CategoryStaking,
			Liquidity: model.LiquidityLiquid,
			RiskScore: riskScore,
		},
	}, nil
}

// getJSON issues a GET request and decodes the JSON body into out.
func (a *LidoAdapter) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
