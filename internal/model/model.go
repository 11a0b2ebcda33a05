// Package model defines the core data structures for the yield aggregation API.
package model

import (
	"time"
)

// Chain identifies the blockchain network an opportunity lives on.
type Chain string

// Supported chains
const (
	ChainEthereum Chain = "ethereum"
	ChainSolana   Chain = "solana"
)

// Category classifies the kind of yield-bearing position.
type Category string

// Opportunity categories
const (
	CategoryStaking Category = "staking"
	CategoryLending Category = "lending"
	CategoryVault   Category = "vault"
)

// Liquidity describes whether capital can be withdrawn on demand.
type Liquidity string

// Liquidity classes
const (
	LiquidityLiquid Liquidity = "liquid"
	LiquidityLocked Liquidity = "locked"
)

// Opportunity represents a yield-bearing position a user could enter.
// The (Provider, Asset, Chain) triple is the natural unique key; writes for
// an existing key update in place, never duplicate.
type Opportunity struct {
	// ID is a surface identifier assigned on first insert.
	ID string `json:"id" gorm:"primaryKey"`

	// Name is the display string, e.g. "Lido stETH".
	Name string `json:"name"`

	// Provider is the unique identifier of the data source.
	Provider string `json:"provider" gorm:"uniqueIndex:idx_provider_asset_chain"`

	// Asset is the token symbol, e.g. "stETH".
	Asset string `json:"asset" gorm:"uniqueIndex:idx_provider_asset_chain"`

	// Chain is the network the position lives on.
	Chain Chain `json:"chain" gorm:"uniqueIndex:idx_provider_asset_chain"`

	// APR in basis points (100 = 1%). Never negative.
	APR int `json:"apr"`

	Category  Category  `json:"category"`
	Liquidity Liquidity `json:"liquidity"`

	// RiskScore is 1 (lowest) to 10 (highest), always clamped to that range.
	RiskScore int `json:"riskScore" gorm:"column:risk_score"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName maps Opportunity onto the yield_opportunities table.
func (Opportunity) TableName() string { return "yield_opportunities" }

// Key returns the natural unique key of the opportunity.
func (o Opportunity) Key() string {
	return o.Provider + "/" + o.Asset + "/" + string(o.Chain)
}

// Refresh log statuses
const (
	RefreshStatusSuccess = "success"
	RefreshStatusFailure = "failure"
)

// RefreshLogEntry is an immutable audit record of one adapter's execution
// within one refresh run. Append-only; exactly one entry per adapter per run.
type RefreshLogEntry struct {
	ID       uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Provider string `json:"provider" gorm:"index"`
	Status   string `json:"status"`

	// Rows is the count of opportunities written, 0 on failure.
	Rows int `json:"rows"`

	Message   string    `json:"message"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// TableName maps RefreshLogEntry onto the provider_refresh_logs table.
func (RefreshLogEntry) TableName() string { return "provider_refresh_logs" }

// UserProfile describes a user's holdings and constraints for matching.
// Request-scoped, never persisted.
type UserProfile struct {
	// WalletBalance maps asset symbol to a decimal-string balance.
	// Absence means zero balance.
	WalletBalance map[string]string `json:"walletBalance" validate:"required"`

	// RiskTolerance is the upper bound on acceptable opportunity risk,
	// 1 = most conservative.
	RiskTolerance int `json:"riskTolerance" validate:"min=1,max=10"`

	// MaxAllocationPct is the ceiling on the percent of the relevant balance
	// that may go into any single opportunity.
	MaxAllocationPct float64 `json:"maxAllocationPct" validate:"min=0,max=100"`

	// InvestmentHorizon is the investment timeline in days.
	InvestmentHorizon int `json:"investmentHorizon" validate:"min=1"`
}

// MatchedOpportunity is an Opportunity annotated with allocation metadata,
// produced only for opportunities that already passed the eligibility filter.
type MatchedOpportunity struct {
	Opportunity

	// CalculatedRisk is the effective risk used for matching (stored score,
	// or a freshly computed one when the stored score was absent).
	CalculatedRisk int `json:"calculatedRisk"`

	MeetsRequirements bool `json:"meetsRequirements"`

	// AllocationAmount = min(balance * maxAllocationPct/100, balance),
	// denominated in the opportunity's asset.
	AllocationAmount float64 `json:"allocationAmount"`
}

// RefreshResult is the aggregate outcome of one refresh run across all
// registered adapters. A run never fails as a whole; it only reports
// per-provider status.
type RefreshResult struct {
	Succeeded []string          `json:"succeeded"`
	Failed    []ProviderFailure `json:"failed"`

	// TotalRowsWritten counts upserts across all successful adapters,
	// whether insert or update.
	TotalRowsWritten int `json:"totalRowsWritten"`
}

// ProviderFailure records one adapter's failure within a refresh run.
type ProviderFailure struct {
	Provider string `json:"provider"`
	Error    string `json:"error"`
}
