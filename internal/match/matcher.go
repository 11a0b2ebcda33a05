// Package match filters and ranks opportunities against a user profile.
package match

import (
	"sort"
	"strconv"

	"github.com/yourorg/yield-agg-api/internal/model"
	"github.com/yourorg/yield-agg-api/internal/risk"
)

// Minimum investment thresholds per asset, denominated in the asset itself.
// Assets not listed fall back to defaultMinInvestment.
var minInvestmentThresholds = map[string]float64{
	"ETH":  0.001,
	"SOL":  0.1,
	"USDC": 1,
	"USDT": 1,
	"DAI":  1,
}

const defaultMinInvestment = 10

// Matcher applies the eligibility filter pipeline. The scorer is only
// consulted for candidates whose stored risk score is absent.
type Matcher struct {
	scorer *risk.Scorer
}

// New creates a matcher with the given fallback scorer.
func New(scorer *risk.Scorer) *Matcher {
	return &Matcher{scorer: scorer}
}

// Match returns the candidates that pass every filter stage. Stages are
// evaluated in order and short-circuit on the first failure:
// risk gate, balance gate, minimum-investment gate, horizon/liquidity gate,
// allocation-feasibility gate. Matching never fails for well-formed input;
// malformed balance strings degrade to zero and exclude the candidate.
func (m *Matcher) Match(candidates []model.Opportunity, profile model.UserProfile) []model.Opportunity {
	matched := make([]model.Opportunity, 0, len(candidates))
	for _, o := range candidates {
		if m.passes(o, profile) {
			matched = append(matched, o)
		}
	}
	return matched
}

func (m *Matcher) passes(o model.Opportunity, profile model.UserProfile) bool {
	// 1. Risk tolerance
	if !risk.IsAcceptable(m.effectiveRisk(o), profile.RiskTolerance) {
		return false
	}

	// 2. Non-zero holdings in the candidate's asset
	balance := parseBalance(profile.WalletBalance[o.Asset])
	if balance <= 0 {
		return false
	}

	// 3. Minimum investment threshold
	minRequired := minInvestment(o.Asset)
	if balance < minRequired {
		return false
	}

	// 4. Liquidity vs investment horizon
	if !matchesHorizon(o.Liquidity, profile.InvestmentHorizon) {
		return false
	}

	// 5. The minimum must fit inside the per-opportunity allocation cap
	maxAllocation := balance * (profile.MaxAllocationPct / 100)
	return minRequired <= maxAllocation
}

// MatchWithAllocation filters like Match and annotates each result with its
// effective risk and the allocation the profile permits.
func (m *Matcher) MatchWithAllocation(candidates []model.Opportunity, profile model.UserProfile) []model.MatchedOpportunity {
	matched := m.Match(candidates, profile)

	enriched := make([]model.MatchedOpportunity, 0, len(matched))
	for _, o := range matched {
		balance := parseBalance(profile.WalletBalance[o.Asset])
		maxAllocation := balance * (profile.MaxAllocationPct / 100)
		if maxAllocation > balance {
			maxAllocation = balance
		}
		enriched = append(enriched, model.MatchedOpportunity{
			Opportunity:       o,
			CalculatedRisk:    m.effectiveRisk(o),
			MeetsRequirements: true,
			AllocationAmount:  maxAllocation,
		})
	}
	return enriched
}

// SortByAPR returns a copy sorted by APR, highest first.
func SortByAPR(opportunities []model.Opportunity) []model.Opportunity {
	sorted := make([]model.Opportunity, len(opportunities))
	copy(sorted, opportunities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].APR > sorted[j].APR
	})
	return sorted
}

// SortByRisk returns a copy sorted by effective risk, lowest first.
func (m *Matcher) SortByRisk(opportunities []model.Opportunity) []model.Opportunity {
	sorted := make([]model.Opportunity, len(opportunities))
	copy(sorted, opportunities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return m.effectiveRisk(sorted[i]) < m.effectiveRisk(sorted[j])
	})
	return sorted
}

// effectiveRisk prefers the stored score and falls back to computing one when
// it is absent.
func (m *Matcher) effectiveRisk(o model.Opportunity) int {
	if o.RiskScore != 0 {
		return o.RiskScore
	}
	return m.scorer.Score(o)
}

// matchesHorizon admits only liquid opportunities for horizons shorter than
// 30 days; longer horizons accept both liquidity classes.
func matchesHorizon(liquidity model.Liquidity, horizonDays int) bool {
	if horizonDays < 30 {
		return liquidity == model.LiquidityLiquid
	}
	return true
}

// minInvestment looks up the per-asset threshold with a default for unlisted
// assets.
func minInvestment(asset string) float64 {
	if v, ok := minInvestmentThresholds[asset]; ok {
		return v
	}
	return defaultMinInvestment
}

// parseBalance converts a decimal-string balance to a number; missing or
// unparseable balances are treated as zero.
func parseBalance(balance string) float64 {
	if balance == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(balance, 64)
	if err != nil {
		return 0
	}
	return parsed
}
