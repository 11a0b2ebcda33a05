package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/yield-agg-api/internal/model"
)

func validCandidate() model.Opportunity {
	return model.Opportunity{
		Name:      "Lido stETH",
		Provider:  "lido",
		Asset:     "stETH",
		Chain:     model.ChainEthereum,
		APR:       510,
		Category:  model.CategoryStaking,
		Liquidity: model.LiquidityLiquid,
		RiskScore: 2,
	}
}

func TestSanitizeCandidates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Opportunity)
		kept   bool
	}{
		{"valid candidate kept", func(o *model.Opportunity) {}, true},
		{"missing provider dropped", func(o *model.Opportunity) { o.Provider = "" }, false},
		{"missing asset dropped", func(o *model.Opportunity) { o.Asset = "" }, false},
		{"missing chain dropped", func(o *model.Opportunity) { o.Chain = "" }, false},
		{"negative apr dropped", func(o *model.Opportunity) { o.APR = -1 }, false},
		{"zero apr kept", func(o *model.Opportunity) { o.APR = 0 }, true},
		{"apr at ceiling kept", func(o *model.Opportunity) { o.APR = 100_000 }, true},
		{"apr above ceiling dropped", func(o *model.Opportunity) { o.APR = 100_001 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.mutate(&c)

			out := SanitizeCandidates([]model.Opportunity{c}, DefaultOptions())
			if tt.kept {
				assert.Len(t, out, 1)
			} else {
				assert.Empty(t, out)
			}
		})
	}
}

func TestSanitizeClampsRiskScore(t *testing.T) {
	low := validCandidate()
	low.RiskScore = 0
	high := validCandidate()
	high.Asset = "ETH"
	high.RiskScore = 15

	out := SanitizeCandidates([]model.Opportunity{low, high}, DefaultOptions())

	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].RiskScore)
	assert.Equal(t, 10, out[1].RiskScore)
}

func TestSanitizeDoesNotMutateInput(t *testing.T) {
	in := []model.Opportunity{validCandidate()}
	in[0].RiskScore = 15

	_ = SanitizeCandidates(in, DefaultOptions())

	assert.Equal(t, 15, in[0].RiskScore)
}

func TestSanitizeCustomCeiling(t *testing.T) {
	c := validCandidate()
	c.APR = 5000

	out := SanitizeCandidates([]model.Opportunity{c}, Options{MaxAPRBasisPoints: 1000})

	assert.Empty(t, out)
}
