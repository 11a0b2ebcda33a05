// Package risk scores yield opportunities on a 1-10 scale.
package risk

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/yourorg/yield-agg-api/internal/model"
)

// Score bounds and the fallback for unknown assets
const (
	MinScore     = 1
	MaxScore     = 10
	DefaultScore = 5
)

// Asset tiers. Membership is tested case-insensitively on the symbol.
var (
	stablecoins = map[string]bool{
		"USDC": true, "USDT": true, "DAI": true, "FRAX": true,
	}
	majorAssets = map[string]bool{
		"ETH": true, "SOL": true, "WETH": true, "STETH": true, "MSOL": true,
	}
)

// blueChipProtocols are recognized names that earn a reputation discount when
// they appear anywhere in an opportunity's display name.
var blueChipProtocols = []string{
	"lido", "aave", "compound", "curve", "marinade", "rocket pool",
}

// Level buckets a score into a coarse label.
type Level string

// Risk levels
const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Scorer draws the base risk for an asset tier from a random source. Scoring
// the same opportunity twice can yield different results; that behavior is
// intentional and callers that need reproducibility must seed accordingly.
type Scorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewScorer creates a scorer drawing from the given seed.
func NewScorer(seed int64) *Scorer {
	return &Scorer{rng: rand.New(rand.NewSource(seed))}
}

// Score computes a risk score in [1,10] from the opportunity's asset, display
// name and liquidity. Unknown assets score DefaultScore with no adjustments.
func (s *Scorer) Score(o model.Opportunity) int {
	if o.Asset == "" {
		return DefaultScore
	}

	var base int
	switch symbol := strings.ToUpper(o.Asset); {
	case stablecoins[symbol]:
		base = s.draw(1) // 1-3
	case majorAssets[symbol]:
		base = s.draw(4) // 4-6
	default:
		base = s.draw(7) // 7-9
	}

	if hasBlueChipName(o.Name) {
		base -= 2
	}

	if o.Liquidity == model.LiquidityLocked {
		base++
	}

	return Clamp(base)
}

// draw picks uniformly from {lo, lo+1, lo+2}.
func (s *Scorer) draw(lo int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.Intn(3)
}

func hasBlueChipName(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, p := range blueChipProtocols {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// AssessLevel buckets a score: low <=3, medium <=6, high above.
func AssessLevel(score int) Level {
	switch {
	case score <= 3:
		return LevelLow
	case score <= 6:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// IsAcceptable reports whether a risk score is within a user's tolerance.
func IsAcceptable(opportunityRisk, userTolerance int) bool {
	return opportunityRisk <= userTolerance
}
