package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExclusionPattern is a rule learned from one manually excluded transaction.
// Future transactions that score high enough against it are excluded
// automatically. An empty MerchantPattern, DescriptionPattern or Category
// means the pattern carries no value for that field.
type ExclusionPattern struct {
	ID                  string          `json:"id" yaml:"id"`
	MerchantPattern     string          `json:"merchant_pattern,omitempty" yaml:"merchant_pattern,omitempty"`
	DescriptionPattern  string          `json:"description_pattern,omitempty" yaml:"description_pattern,omitempty"`
	MinAmount           decimal.Decimal `json:"min_amount" yaml:"min_amount"`
	MaxAmount           decimal.Decimal `json:"max_amount" yaml:"max_amount"`
	Kind                TransactionKind `json:"kind" yaml:"kind"`
	Category            Category        `json:"category,omitempty" yaml:"category,omitempty"`
	SourceTransactionID string          `json:"source_transaction_id" yaml:"source_transaction_id"`
	Active              bool            `json:"active" yaml:"active"`
	CreatedAt           time.Time       `json:"created_at" yaml:"created_at"`
	MatchCount          int             `json:"match_count" yaml:"match_count"`
}

// Validate checks the pattern invariants.
func (p *ExclusionPattern) Validate() error {
	if strings.TrimSpace(p.MerchantPattern) == "" && strings.TrimSpace(p.DescriptionPattern) == "" {
		return fmt.Errorf("pattern must carry a merchant or description pattern")
	}

	if p.MinAmount.IsNegative() {
		return fmt.Errorf("min amount cannot be negative")
	}

	if p.MinAmount.GreaterThan(p.MaxAmount) {
		return fmt.Errorf("min amount %s exceeds max amount %s",
			p.MinAmount.StringFixed(2), p.MaxAmount.StringFixed(2))
	}

	if !p.Kind.IsValid() {
		return fmt.Errorf("invalid transaction kind: %s", p.Kind)
	}

	if !p.Category.IsValid() {
		return fmt.Errorf("invalid category: %s", p.Category)
	}

	if p.MatchCount < 0 {
		return fmt.Errorf("match count cannot be negative")
	}

	return nil
}

// Normalize rewrites the kind and category to their canonical spelling.
// The kind is required; an empty category stays empty.
func (p *ExclusionPattern) Normalize() error {
	kind, err := ParseTransactionKind(string(p.Kind))
	if err != nil {
		return err
	}
	p.Kind = kind

	if p.Category != "" {
		category, err := ParseCategory(string(p.Category))
		if err != nil {
			return err
		}
		p.Category = category
	}
	return nil
}

// InBand reports whether amount lies inside the pattern's amount band.
func (p *ExclusionPattern) InBand(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(p.MinAmount) && amount.LessThanOrEqual(p.MaxAmount)
}

// Clone returns a copy safe to hand to another owner.
func (p *ExclusionPattern) Clone() *ExclusionPattern {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// String returns a string representation of the pattern
func (p *ExclusionPattern) String() string {
	return fmt.Sprintf("ExclusionPattern{Merchant: %q, Description: %q, Band: %s-%s, Kind: %s}",
		p.MerchantPattern, p.DescriptionPattern, p.MinAmount.StringFixed(2), p.MaxAmount.StringFixed(2), p.Kind)
}
