// Package exclusion learns exclusion patterns from manually excluded
// transactions and scores later transactions against them.
//
// A pattern keeps the normalized merchant, the first words of the
// description, an amount band around the original amount, and the kind and
// category. The matcher awards up to 100 points:
//   - Merchant similarity: 35, tiered at 0.9, 0.7, 0.5 and 0.3
//   - Description similarity: 25, tiered at 0.8, 0.6, 0.4 and 0.2
//   - Amount: 20 inside the band, less the further outside it falls
//   - Kind: 15 on an exact match
//   - Category: 5 when both sides carry the same one
//
// A transaction matches at Threshold or above. Among several active patterns
// the highest score wins; inactive patterns never match.
//
// Example usage:
//
//	p := exclusion.NewBuilder(nil).Build(excluded)
//	m := exclusion.NewMatcher(nil)
//	if best, ok := m.Best(tx, patterns); ok {
//		tx.IsExcluded = true
//	}
package exclusion

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds builder and matcher settings.
type Config struct {
	// DescriptionTokens is how many description words a pattern keeps.
	DescriptionTokens int `json:"description_tokens"`

	// MerchantTokens is how many description words stand in for a missing
	// merchant.
	MerchantTokens int `json:"merchant_tokens"`

	// BandFraction widens the amount band on each side, 0.1 for ±10%.
	BandFraction decimal.Decimal `json:"band_fraction"`

	// Threshold is the score at which a transaction matches.
	Threshold int `json:"threshold"`
}

// Allowed range of DescriptionTokens.
const (
	MinDescriptionTokens = 5
	MaxDescriptionTokens = 8
)

// DefaultConfig returns six description words, a ±10% band and threshold 85.
func DefaultConfig() *Config {
	return &Config{
		DescriptionTokens: 6,
		MerchantTokens:    3,
		BandFraction:      decimal.NewFromFloat(0.1),
		Threshold:         85,
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.DescriptionTokens < MinDescriptionTokens || c.DescriptionTokens > MaxDescriptionTokens {
		return fmt.Errorf("description tokens must be between %d and %d, got %d",
			MinDescriptionTokens, MaxDescriptionTokens, c.DescriptionTokens)
	}

	if c.MerchantTokens <= 0 {
		return fmt.Errorf("merchant tokens must be positive")
	}

	if c.BandFraction.IsNegative() || c.BandFraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("band fraction must be in [0, 1), got %s", c.BandFraction)
	}

	if c.Threshold <= 0 || c.Threshold > 100 {
		return fmt.Errorf("threshold must be between 1 and 100, got %d", c.Threshold)
	}

	return nil
}
