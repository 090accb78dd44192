package exclusion

import (
	"math"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/internal/textsim"

	"github.com/shopspring/decimal"
)

// Component weights.
const (
	merchantWeight    = 35.0
	descriptionWeight = 25.0
	amountWeight      = 20.0
	kindWeight        = 15.0
	categoryWeight    = 5.0
)

type tier struct {
	min      float64
	fraction float64
}

var (
	merchantTiers    = []tier{{0.9, 1}, {0.7, 0.8}, {0.5, 0.5}, {0.3, 0.3}}
	descriptionTiers = []tier{{0.8, 1}, {0.6, 0.8}, {0.4, 0.5}, {0.2, 0.3}}
)

// amountTiers give partial credit by how far outside the band an amount is,
// as a fraction of the nearer bound.
var amountTiers = []struct {
	within   decimal.Decimal
	fraction float64
}{
	{decimal.NewFromFloat(0.10), 0.75},
	{decimal.NewFromFloat(0.25), 0.50},
	{decimal.NewFromFloat(0.50), 0.25},
}

// Breakdown is a match score split into its parts.
type Breakdown struct {
	Merchant    float64
	Description float64
	Amount      float64
	Kind        float64
	Category    float64
}

// Total returns the summed score rounded to an integer.
func (b Breakdown) Total() int {
	return int(math.Round(b.Merchant + b.Description + b.Amount + b.Kind + b.Category))
}

// Match is a pattern that a transaction scored against.
type Match struct {
	Pattern   *models.ExclusionPattern
	Score     int
	Breakdown Breakdown
}

// Matcher scores transactions against patterns.
type Matcher struct {
	config *Config
}

// NewMatcher creates a matcher. A nil config uses DefaultConfig.
func NewMatcher(config *Config) *Matcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &Matcher{config: config}
}

// Threshold returns the score at which a transaction matches.
func (m *Matcher) Threshold() int {
	return m.config.Threshold
}

// Score returns the match score of t against p, 0 to 100.
func (m *Matcher) Score(t *models.Transaction, p *models.ExclusionPattern) int {
	return m.Breakdown(t, p).Total()
}

// Matches reports whether t scores at or above the threshold against p.
func (m *Matcher) Matches(t *models.Transaction, p *models.ExclusionPattern) bool {
	return m.Score(t, p) >= m.config.Threshold
}

// Breakdown scores t against p part by part.
func (m *Matcher) Breakdown(t *models.Transaction, p *models.ExclusionPattern) Breakdown {
	var b Breakdown
	if t == nil || p == nil {
		return b
	}

	if p.MerchantPattern != "" {
		sim := textsim.Similarity(p.MerchantPattern, merchantKey(t, m.config.MerchantTokens))
		b.Merchant = merchantWeight * tiered(sim, merchantTiers)
	}
	if p.DescriptionPattern != "" {
		sim := textsim.Similarity(p.DescriptionPattern, t.Description)
		b.Description = descriptionWeight * tiered(sim, descriptionTiers)
	}
	b.Amount = amountWeight * amountCredit(t.Amount, p)
	if t.Kind == p.Kind {
		b.Kind = kindWeight
	}
	if t.Category != "" && p.Category != "" && t.Category == p.Category {
		b.Category = categoryWeight
	}
	return b
}

// Best returns the highest scoring active pattern that t matches. The
// earlier pattern wins a tie.
func (m *Matcher) Best(t *models.Transaction, patterns []*models.ExclusionPattern) (Match, bool) {
	var best Match
	found := false
	for _, p := range patterns {
		if p == nil || !p.Active {
			continue
		}
		b := m.Breakdown(t, p)
		score := b.Total()
		if score < m.config.Threshold {
			continue
		}
		if !found || score > best.Score {
			best = Match{Pattern: p, Score: score, Breakdown: b}
			found = true
		}
	}
	return best, found
}

func tiered(sim float64, tiers []tier) float64 {
	for _, t := range tiers {
		if sim >= t.min {
			return t.fraction
		}
	}
	return 0
}

// amountCredit is 1 inside the band and falls off with the distance to the
// nearer bound.
func amountCredit(amount decimal.Decimal, p *models.ExclusionPattern) float64 {
	if p.InBand(amount) {
		return 1
	}

	var distance decimal.Decimal
	switch {
	case amount.LessThan(p.MinAmount) && p.MinAmount.IsPositive():
		distance = p.MinAmount.Sub(amount).Div(p.MinAmount)
	case amount.GreaterThan(p.MaxAmount) && p.MaxAmount.IsPositive():
		distance = amount.Sub(p.MaxAmount).Div(p.MaxAmount)
	default:
		return 0
	}

	for _, t := range amountTiers {
		if distance.LessThanOrEqual(t.within) {
			return t.fraction
		}
	}
	return 0
}
