package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/yield-agg-api/internal/config"
	"github.com/yourorg/yield-agg-api/internal/model"
)

// defiLlamaTargetPools is the curated allow-list of pool IDs the adapter
// reports; everything else in the feed is ignored.
var defiLlamaTargetPools = map[string]bool{
	"80b8bf92-b953-4c20-98ea-c9653ef2bb98": true, // binance-staked-eth WBETH
	"46bd2bdf-6d92-4066-b482-e885ee172264": true, // ether.fi-stake WEETH
	"aa70268e-4b52-42bf-a116-608b370f9501": true, // aave-v3 USDC
}

// DeFiLlamaAdapter fetches a curated subset of the DeFiLlama pools feed,
// spanning multiple protocols and chains.
type DeFiLlamaAdapter struct {
	apiURL     string
	httpClient *http.Client
}

// NewDeFiLlamaAdapter creates a new DeFiLlama adapter from configuration.
func NewDeFiLlamaAdapter(cfg config.Config) *DeFiLlamaAdapter {
	return &DeFiLlamaAdapter{
		apiURL:     cfg.DefiLlamaURL,
		httpClient: newRetryClient(),
	}
}

// Name implements Adapter.
func (a *DeFiLlamaAdapter) Name() string { return "defillama" }

// defiLlamaPool matches one entry of the DeFiLlama pools feed.
type defiLlamaPool struct {
	Chain      string   `json:"chain"`
	Project    string   `json:"project"`
	Symbol     string   `json:"symbol"`
	TVLUsd     float64  `json:"tvlUsd"`
	APYBase    *float64 `json:"apyBase"`
	APY        *float64 `json:"apy"`
	Pool       string   `json:"pool"`
	Stablecoin bool     `json:"stablecoin"`
}

// Fetch retrieves the pools feed and normalizes the allow-listed pools.
func (a *DeFiLlamaAdapter) Fetch(ctx context.Context) ([]model.Opportunity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("defillama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("defillama API returned status %d", resp.StatusCode)
	}

	var result struct {
		Data []defiLlamaPool `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode defillama response: %w", err)
	}

	var opportunities []model.Opportunity
	for _, pool := range result.Data {
		if !defiLlamaTargetPools[pool.Pool] {
			continue
		}
		opportunities = append(opportunities, a.normalize(pool))
	}

	logrus.WithFields(logrus.Fields{
		"feed_pools": len(result.Data),
		"selected":   len(opportunities),
	}).Debug("Fetched DeFiLlama pools")

	return opportunities, nil
}

// normalize converts one feed entry into the common opportunity shape.
func (a *DeFiLlamaAdapter) normalize(pool defiLlamaPool) model.Opportunity {
	// Total APY when present, base APY otherwise. Percent value, so 4.37
	// means 4.37%, i.e. 437 bp.
	var apyPct float64
	switch {
	case pool.APY != nil:
		apyPct = *pool.APY
	case pool.APYBase != nil:
		apyPct = *pool.APYBase
	}
	aprBasisPoints := int(math.Round(apyPct * 100))

	liquidity := model.LiquidityLocked
	if pool.Stablecoin {
		liquidity = model.LiquidityLiquid
	}

	return model.Opportunity{
		Name:      fmt.Sprintf("%s - %s", pool.Project, pool.Symbol),
		Provider:  a.Name(),
		Asset:     pool.Symbol,
		Chain:     model.Chain(strings.ToLower(pool.Chain)),
		APR:       aprBasisPoints,
		Category:  categorize(pool.Project),
		Liquidity: liquidity,
		// TODO: route through risk.Scorer once the scoring policy for
		// pooled vaults is settled; fixed medium score until then.
		RiskScore: 5,
	}
}

// categorize maps a source project label onto an opportunity category by
// keyword.
func categorize(project string) model.Category {
	p := strings.ToLower(project)
	switch {
	case strings.Contains(p, "lend"), strings.Contains(p, "aave"), strings.Contains(p, "compound"):
		return model.CategoryLending
	case strings.Contains(p, "stak"), strings.Contains(p, "eth"):
		return model.CategoryStaking
	default:
		return model.CategoryVault
	}
}
