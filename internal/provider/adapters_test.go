package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/yield-agg-api/internal/config"
	"github.com/yourorg/yield-agg-api/internal/model"
)

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestLidoFetch(t *testing.T) {
	aprServer := httptest.NewServer(jsonHandler(`{
		"data": {"timeUnix": 1719000000, "apr": 5.1},
		"meta": {"symbol": "stETH", "address": "0xae7ab96520de3a18e5e111b5eaab095312d7fe84", "chainId": 1}
	}`))
	defer aprServer.Close()
	statsServer := httptest.NewServer(jsonHandler(`{
		"uniqueAnytimeHolders": "500000",
		"uniqueHolders": "300000",
		"totalStaked": "9000000",
		"marketCap": 45000000000
	}`))
	defer statsServer.Close()

	adapter := NewLidoAdapter(config.Config{
		LidoAPRURL:   aprServer.URL,
		LidoStatsURL: statsServer.URL,
	})

	opportunities, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, opportunities, 1)

	o := opportunities[0]
	assert.Equal(t, "Lido stETH", o.Name)
	assert.Equal(t, "lido", o.Provider)
	assert.Equal(t, "stETH", o.Asset)
	assert.Equal(t, model.ChainEthereum, o.Chain)
	assert.Equal(t, 510, o.APR)
	assert.Equal(t, model.CategoryStaking, o.Category)
	assert.Equal(t, model.LiquidityLiquid, o.Liquidity)
	assert.Equal(t, 2, o.RiskScore) // TVL above 40B
}

func TestLidoRiskBands(t *testing.T) {
	tests := []struct {
		name string
		tvl  string
		want int
	}{
		{"above 40B", "45000000000", 2},
		{"above 10B", "15000000000", 3},
		{"above 1B", "2000000000", 4},
		{"below 1B", "500000000", 5},
	}

	aprServer := httptest.NewServer(jsonHandler(`{"data": {"apr": 3.0}, "meta": {"symbol": "stETH"}}`))
	defer aprServer.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statsServer := httptest.NewServer(jsonHandler(`{"marketCap": ` + tt.tvl + `}`))
			defer statsServer.Close()

			adapter := NewLidoAdapter(config.Config{
				LidoAPRURL:   aprServer.URL,
				LidoStatsURL: statsServer.URL,
			})
			opportunities, err := adapter.Fetch(context.Background())
			require.NoError(t, err)
			require.Len(t, opportunities, 1)
			assert.Equal(t, tt.want, opportunities[0].RiskScore)
		})
	}
}

func TestLidoFetchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewLidoAdapter(config.Config{
		LidoAPRURL:   server.URL,
		LidoStatsURL: server.URL,
	})

	_, err := adapter.Fetch(context.Background())
	assert.Error(t, err)
}

func TestMarinadeFetch(t *testing.T) {
	server := httptest.NewServer(jsonHandler(`{
		"value": 0.1459,
		"end_time": "2024-06-01T00:00:00Z",
		"end_price": 1.15,
		"start_time": "2023-06-01T00:00:00Z",
		"start_price": 1.07
	}`))
	defer server.Close()

	adapter := NewMarinadeAdapter(config.Config{MarinadeURL: server.URL})

	opportunities, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, opportunities, 1)

	o := opportunities[0]
	assert.Equal(t, "Marinade mSOL", o.Name)
	assert.Equal(t, "marinade", o.Provider)
	assert.Equal(t, "mSOL", o.Asset)
	assert.Equal(t, model.ChainSolana, o.Chain)
	assert.Equal(t, 1459, o.APR) // fraction 0.1459 is 14.59%
	assert.Equal(t, 4, o.RiskScore)
}

func TestDeFiLlamaFetchFiltersAllowList(t *testing.T) {
	server := httptest.NewServer(jsonHandler(`{"data": [
		{"chain": "Ethereum", "project": "binance-staked-eth", "symbol": "WBETH",
		 "tvlUsd": 5000000000, "apy": 3.2, "pool": "80b8bf92-b953-4c20-98ea-c9653ef2bb98",
		 "stablecoin": false},
		{"chain": "Ethereum", "project": "aave-v3", "symbol": "USDC",
		 "tvlUsd": 800000000, "apyBase": 4.37, "pool": "aa70268e-4b52-42bf-a116-608b370f9501",
		 "stablecoin": true},
		{"chain": "Ethereum", "project": "random-farm", "symbol": "JUNK",
		 "tvlUsd": 1000, "apy": 9999.0, "pool": "00000000-0000-0000-0000-000000000000",
		 "stablecoin": false}
	]}`))
	defer server.Close()

	adapter := NewDeFiLlamaAdapter(config.Config{DefiLlamaURL: server.URL})

	opportunities, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, opportunities, 2)

	byAsset := make(map[string]model.Opportunity)
	for _, o := range opportunities {
		byAsset[o.Asset] = o
	}

	wbeth := byAsset["WBETH"]
	assert.Equal(t, "binance-staked-eth - WBETH", wbeth.Name)
	assert.Equal(t, "defillama", wbeth.Provider)
	assert.Equal(t, model.ChainEthereum, wbeth.Chain)
	assert.Equal(t, 320, wbeth.APR)
	assert.Equal(t, model.CategoryStaking, wbeth.Category)
	assert.Equal(t, model.LiquidityLocked, wbeth.Liquidity)

	usdc := byAsset["USDC"]
	assert.Equal(t, 437, usdc.APR) // apyBase fallback when apy is absent
	assert.Equal(t, model.CategoryLending, usdc.Category)
	assert.Equal(t, model.LiquidityLiquid, usdc.Liquidity)
	assert.Equal(t, 5, usdc.RiskScore)
}

func TestDeFiLlamaPrefersTotalAPY(t *testing.T) {
	server := httptest.NewServer(jsonHandler(`{"data": [
		{"chain": "Ethereum", "project": "aave-v3", "symbol": "USDC",
		 "tvlUsd": 800000000, "apy": 5.0, "apyBase": 4.0,
		 "pool": "aa70268e-4b52-42bf-a116-608b370f9501", "stablecoin": true}
	]}`))
	defer server.Close()

	adapter := NewDeFiLlamaAdapter(config.Config{DefiLlamaURL: server.URL})

	opportunities, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, opportunities, 1)
	assert.Equal(t, 500, opportunities[0].APR)
}

func TestDeFiLlamaEmptyFeed(t *testing.T) {
	server := httptest.NewServer(jsonHandler(`{"data": []}`))
	defer server.Close()

	adapter := NewDeFiLlamaAdapter(config.Config{DefiLlamaURL: server.URL})

	opportunities, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, opportunities)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		project string
		want    model.Category
	}{
		{"aave-v3", model.CategoryLending},
		{"compound-v3", model.CategoryLending},
		{"some-lending-market", model.CategoryLending},
		{"binance-staked-eth", model.CategoryStaking},
		{"ether.fi-stake", model.CategoryStaking},
		{"yearn-finance", model.CategoryVault},
	}
	for _, tt := range tests {
		t.Run(tt.project, func(t *testing.T) {
			assert.Equal(t, tt.want, categorize(tt.project))
		})
	}
}
