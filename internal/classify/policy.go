// Package classify decides whether a bank SMS describes a completed
// transaction.
//
// A single Classifier runs one set of detectors over the message and the
// extracted fields, then applies a Policy to the evidence:
//   - HardRuleCascade rejects on any strong negative signal and otherwise
//     accepts only on enough positive evidence. It is the default.
//   - WeightedScore sums signed weights for every signal and accepts when the
//     total reaches a threshold. It exists for explaining and tuning.
//
// Both policies report the weighted score and the signals that fired, so any
// decision can be explained.
//
// Example usage:
//
//	c := classify.New(extract.New(nil), classify.DefaultConfig())
//	d := c.Classify(models.RawMessage{Text: sms, ReceivedAt: now})
//	if d.Accepted {
//		// build the transaction
//	}
package classify

import (
	"fmt"
	"strings"
)

// PolicyKind selects how evidence becomes a decision.
type PolicyKind int

const (
	// HardRuleCascade rejects on strong negatives, then accepts on strong or
	// combined positive evidence.
	HardRuleCascade PolicyKind = iota

	// WeightedScore accepts when the summed signal weights reach the threshold.
	WeightedScore
)

// DefaultThreshold is the minimum weighted score for acceptance.
const DefaultThreshold = 10.0

// String returns the configuration name of the policy kind.
func (k PolicyKind) String() string {
	switch k {
	case HardRuleCascade:
		return "cascade"
	case WeightedScore:
		return "weighted"
	default:
		return "unknown"
	}
}

// Policy is a tagged variant: Threshold is read only by WeightedScore.
type Policy struct {
	Kind      PolicyKind
	Threshold float64
}

// Cascade returns the hard-rule cascade policy.
func Cascade() Policy {
	return Policy{Kind: HardRuleCascade}
}

// Weighted returns a weighted-score policy accepting at threshold.
func Weighted(threshold float64) Policy {
	return Policy{Kind: WeightedScore, Threshold: threshold}
}

// ParsePolicy maps a configuration name to a Policy.
func ParsePolicy(name string, threshold float64) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cascade", "hard_rule", "rules":
		return Cascade(), nil
	case "weighted", "score":
		return Weighted(threshold), nil
	default:
		return Policy{}, fmt.Errorf("unknown classifier policy %q (want cascade or weighted)", name)
	}
}

// String describes the policy for logs and reports.
func (p Policy) String() string {
	if p.Kind == WeightedScore {
		return fmt.Sprintf("weighted(%.1f)", p.Threshold)
	}
	return p.Kind.String()
}

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	switch p.Kind {
	case HardRuleCascade:
		return nil
	case WeightedScore:
		if p.Threshold <= 0 {
			return fmt.Errorf("weighted policy threshold must be positive, got %.2f", p.Threshold)
		}
		return nil
	default:
		return fmt.Errorf("unknown policy kind %d", p.Kind)
	}
}

// Weights are the signed contributions of each signal to the score.
// Negative signals carry negative weights.
type Weights struct {
	Amount           float64
	Verb             float64
	StrongVerb       float64
	AccountRef       float64
	Reference        float64
	Date             float64
	Merchant         float64
	StructuredLayout float64

	BalanceWithoutVerb float64
	BalanceStatement   float64
	URL                float64
	Terms              float64
	PromotionalTerm    float64 // per occurrence
	FutureTense        float64
	OTP                float64
	Informational      float64
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		Amount:           5,
		Verb:             5,
		StrongVerb:       10,
		AccountRef:       5,
		Reference:        8,
		Date:             6,
		Merchant:         4,
		StructuredLayout: 10,

		BalanceWithoutVerb: -2,
		BalanceStatement:   -15,
		URL:                -15,
		Terms:              -10,
		PromotionalTerm:    -5,
		FutureTense:        -8,
		OTP:                -15,
		Informational:      -15,
	}
}

// Validate checks every positive signal adds and every negative one subtracts.
func (w Weights) Validate() error {
	positive := map[string]float64{
		"amount": w.Amount, "verb": w.Verb, "strong_verb": w.StrongVerb,
		"account_ref": w.AccountRef, "reference": w.Reference, "date": w.Date,
		"merchant": w.Merchant, "structured_layout": w.StructuredLayout,
	}
	for name, v := range positive {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %.2f", name, v)
		}
	}

	negative := map[string]float64{
		"balance_without_verb": w.BalanceWithoutVerb, "balance_statement": w.BalanceStatement,
		"url": w.URL, "terms": w.Terms, "promotional_term": w.PromotionalTerm,
		"future_tense": w.FutureTense, "otp": w.OTP, "informational": w.Informational,
	}
	for name, v := range negative {
		if v > 0 {
			return fmt.Errorf("weight %s must not be positive, got %.2f", name, v)
		}
	}
	return nil
}

// Config holds classifier settings.
type Config struct {
	Policy  Policy
	Weights Weights
}

// DefaultConfig returns the cascade policy with production weights.
func DefaultConfig() *Config {
	return &Config{
		Policy:  Cascade(),
		Weights: DefaultWeights(),
	}
}

// Validate checks the policy and weights.
func (c *Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	return c.Weights.Validate()
}
