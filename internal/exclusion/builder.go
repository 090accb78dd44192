package exclusion

import (
	"strings"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/internal/textsim"

	"github.com/shopspring/decimal"
)

// Builder derives patterns from excluded transactions.
type Builder struct {
	config *Config
}

// NewBuilder creates a builder. A nil config uses DefaultConfig.
func NewBuilder(config *Config) *Builder {
	if config == nil {
		config = DefaultConfig()
	}
	return &Builder{config: config}
}

// Build returns the pattern learned from t. The pattern is active, has no ID
// and no creation time; the store assigns both.
func (b *Builder) Build(t *models.Transaction) *models.ExclusionPattern {
	if t == nil {
		return nil
	}

	one := decimal.NewFromInt(1)
	return &models.ExclusionPattern{
		MerchantPattern:     merchantKey(t, b.config.MerchantTokens),
		DescriptionPattern:  leadingTokens(t.Description, b.config.DescriptionTokens),
		MinAmount:           t.Amount.Mul(one.Sub(b.config.BandFraction)),
		MaxAmount:           t.Amount.Mul(one.Add(b.config.BandFraction)),
		Kind:                t.Kind,
		Category:            t.Category,
		SourceTransactionID: t.ID,
		Active:              true,
	}
}

// merchantKey is the normalized merchant, or the first n description words
// when the merchant is missing.
func merchantKey(t *models.Transaction, n int) string {
	if key := textsim.Normalize(t.Merchant); key != "" {
		return key
	}
	return leadingTokens(t.Description, n)
}

func leadingTokens(s string, n int) string {
	tokens := textsim.Tokens(s)
	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return strings.Join(tokens, " ")
}
