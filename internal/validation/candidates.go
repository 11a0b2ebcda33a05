// Package validation provides sanitation for opportunity candidates before
// they reach the store.
package validation

import (
	"github.com/sirupsen/logrus"

	"github.com/yourorg/yield-agg-api/internal/model"
	"github.com/yourorg/yield-agg-api/internal/risk"
)

// Options holds configuration for candidate sanitation
type Options struct {
	// MaxAPRBasisPoints is the ceiling above which an APR is considered
	// implausible and the candidate dropped.
	MaxAPRBasisPoints int
}

// DefaultOptions returns sensible defaults for sanitation
func DefaultOptions() Options {
	return Options{
		MaxAPRBasisPoints: 100_000, // 1000%
	}
}

// SanitizeCandidates drops candidates that fail basic plausibility checks and
// clamps every surviving risk score into [1,10]. The input slice is not
// modified.
func SanitizeCandidates(candidates []model.Opportunity, opts Options) []model.Opportunity {
	valid := make([]model.Opportunity, 0, len(candidates))
	for _, c := range candidates {
		if !isValidCandidate(c, opts) {
			logrus.WithFields(logrus.Fields{
				"provider": c.Provider,
				"asset":    c.Asset,
				"apr":      c.APR,
			}).Debug("Dropped invalid opportunity candidate")
			continue
		}
		c.RiskScore = risk.Clamp(c.RiskScore)
		valid = append(valid, c)
	}
	return valid
}

// isValidCandidate checks a single candidate against all sanitation criteria
func isValidCandidate(c model.Opportunity, opts Options) bool {
	// Identity fields are required for the upsert key
	if c.Provider == "" || c.Asset == "" || c.Chain == "" {
		return false
	}

	// Negative yields don't make sense
	if c.APR < 0 {
		return false
	}

	// Guard against implausible APR values
	if opts.MaxAPRBasisPoints > 0 && c.APR > opts.MaxAPRBasisPoints {
		return false
	}

	return true
}
