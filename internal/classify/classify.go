package classify

import (
	"fmt"
	"strings"

	"sms-expense-tracker/internal/dictionary"
	"sms-expense-tracker/internal/extract"
	"sms-expense-tracker/internal/models"
)

// Signal names reported in a Decision.
const (
	SignalAmount             = "amount"
	SignalVerb               = "transaction_verb"
	SignalStrongVerb         = "strong_verb"
	SignalAccountRef         = "account_ref"
	SignalReference          = "reference"
	SignalDate               = "date"
	SignalMerchant           = "merchant"
	SignalStructuredLayout   = "structured_layout"
	SignalBalanceWithoutVerb = "balance_without_verb"
	SignalBalanceStatement   = "balance_statement"
	SignalURL                = "url"
	SignalTerms              = "terms_and_conditions"
	SignalPromotional        = "promotional"
	SignalPromotionalTerm    = "promotional_term"
	SignalFutureTense        = "future_tense"
	SignalOTP                = "otp"
	SignalInformational      = "informational"
)

// Reasons for a decision that no single signal explains.
const (
	ReasonEmpty        = "empty_message"
	ReasonCombined     = "amount_with_evidence"
	ReasonAccountVerb  = "account_verb_amount"
	ReasonInsufficient = "insufficient_evidence"
	ReasonAboveScore   = "score_above_threshold"
	ReasonBelowScore   = "score_below_threshold"
)

// Signal is one detector that fired and its weight in the score.
type Signal struct {
	Name   string
	Weight float64
	Detail string
}

// Decision is the outcome of classifying one message.
type Decision struct {
	Accepted bool
	Score    float64
	Policy   Policy
	Signals  []Signal
	Reason   string
}

// Has reports whether the named signal fired.
func (d Decision) Has(name string) bool {
	for _, s := range d.Signals {
		if s.Name == name {
			return true
		}
	}
	return false
}

// String renders the decision on one line.
func (d Decision) String() string {
	verdict := "rejected"
	if d.Accepted {
		verdict = "accepted"
	}
	names := make([]string, len(d.Signals))
	for i, s := range d.Signals {
		names[i] = s.Name
	}
	return fmt.Sprintf("%s by %s (%s, score %.1f) signals=[%s]",
		verdict, d.Policy, d.Reason, d.Score, strings.Join(names, ","))
}

// Evidence is what the detectors found in one message.
type Evidence struct {
	Fields extract.Fields

	URL              bool
	OTP              bool
	Terms            bool
	PromoWeight      int
	PromoTerms       int
	Promotional      bool
	BalanceKeyword   bool
	BalanceStatement bool
	Informational    string
	FutureTense      bool

	Verb            bool
	StrongVerb      bool
	AccountRef      bool
	StructuredLines int
	Structured      bool
}

// Classifier applies one policy to the evidence found in a message.
type Classifier struct {
	extractor *extract.Extractor
	signals   *dictionary.Signals
	config    *Config
}

// New creates a classifier. A nil extractor uses the default dictionary and
// a nil config uses DefaultConfig.
func New(extractor *extract.Extractor, config *Config) *Classifier {
	if extractor == nil {
		extractor = extract.New(nil)
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Classifier{
		extractor: extractor,
		signals:   &extractor.Dictionary().Signals,
		config:    config,
	}
}

// Policy returns the policy decisions are made under.
func (c *Classifier) Policy() Policy {
	return c.config.Policy
}

// Extractor returns the field extractor the classifier reads.
func (c *Classifier) Extractor() *extract.Extractor {
	return c.extractor
}

// Classify extracts fields from msg and decides it.
func (c *Classifier) Classify(msg models.RawMessage) Decision {
	if !msg.HasText() {
		return Decision{Policy: c.config.Policy, Reason: ReasonEmpty}
	}
	return c.Decide(msg.Text, c.extractor.All(msg))
}

// Decide classifies text whose fields were already extracted.
func (c *Classifier) Decide(text string, fields extract.Fields) Decision {
	if strings.TrimSpace(text) == "" {
		return Decision{Policy: c.config.Policy, Reason: ReasonEmpty}
	}

	ev := c.Evaluate(text, fields)
	signals, score := c.score(ev)
	d := Decision{Score: score, Policy: c.config.Policy, Signals: signals}

	switch c.config.Policy.Kind {
	case WeightedScore:
		d.Accepted = score >= c.config.Policy.Threshold
		d.Reason = ReasonBelowScore
		if d.Accepted {
			d.Reason = ReasonAboveScore
		}
	default:
		d.Accepted, d.Reason = cascade(ev)
	}
	return d
}

// Evaluate runs every detector over text.
func (c *Classifier) Evaluate(text string, fields extract.Fields) Evidence {
	s := c.signals
	ev := Evidence{
		Fields:         fields,
		URL:            s.URL.MatchString(text),
		OTP:            s.OTP.MatchString(text),
		Terms:          s.TermsAndConditions.MatchString(text),
		BalanceKeyword: s.BalanceKeyword.MatchString(text),
		FutureTense:    s.FutureTense.MatchString(text),
		Verb:           s.TransactionVerb.MatchString(text),
		StrongVerb:     s.StrongVerb.MatchString(text),
		AccountRef:     s.AccountRef.MatchString(text),
	}

	for _, term := range s.PromoTerms {
		n := len(term.Pattern.FindAllStringIndex(text, -1))
		ev.PromoTerms += n
		ev.PromoWeight += n * term.Weight
	}
	if ev.URL {
		ev.PromoWeight += s.URLWeight
	}
	ev.Promotional = ev.PromoWeight >= s.PromoThreshold

	ev.BalanceStatement = ev.BalanceKeyword && !ev.Verb

	for _, p := range s.Informational {
		if p.Pattern.MatchString(text) {
			ev.Informational = p.Name
			break
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if s.StructuredLine.MatchString(line) {
			ev.StructuredLines++
		}
	}
	ev.Structured = ev.StructuredLines >= s.MinStructuredLines

	return ev
}

// cascade applies the hard rules in order.
func cascade(ev Evidence) (bool, string) {
	switch {
	case ev.URL:
		return false, SignalURL
	case ev.OTP:
		return false, SignalOTP
	case ev.Terms:
		return false, SignalTerms
	case ev.Promotional:
		return false, SignalPromotional
	case ev.BalanceStatement:
		return false, SignalBalanceStatement
	case ev.Informational != "":
		return false, SignalInformational
	}

	amount := ev.Fields.Amount.Found
	switch {
	case ev.StrongVerb:
		return true, SignalStrongVerb
	case ev.AccountRef && ev.Verb && amount:
		return true, ReasonAccountVerb
	case amount && (ev.AccountRef || ev.Verb || ev.Fields.Reference.Found):
		return true, ReasonCombined
	}
	return false, ReasonInsufficient
}

// score sums the weights of every fired signal.
func (c *Classifier) score(ev Evidence) ([]Signal, float64) {
	w := c.config.Weights
	var signals []Signal
	var total float64

	add := func(fired bool, name string, weight float64, detail string) {
		if !fired {
			return
		}
		signals = append(signals, Signal{Name: name, Weight: weight, Detail: detail})
		total += weight
	}

	f := ev.Fields
	add(f.Amount.Found, SignalAmount, w.Amount, f.Amount.Rule)
	add(ev.Verb, SignalVerb, w.Verb, "")
	add(ev.StrongVerb, SignalStrongVerb, w.StrongVerb, "")
	add(ev.AccountRef, SignalAccountRef, w.AccountRef, "")
	add(f.Reference.Found, SignalReference, w.Reference, f.Reference.Rule)
	add(f.Date.Found, SignalDate, w.Date, f.Date.Rule)
	add(f.Merchant.Found, SignalMerchant, w.Merchant, f.Merchant.Rule)
	add(ev.Structured, SignalStructuredLayout, w.StructuredLayout, fmt.Sprintf("%d lines", ev.StructuredLines))

	add(ev.BalanceStatement, SignalBalanceWithoutVerb, w.BalanceWithoutVerb, "")
	add(ev.BalanceStatement, SignalBalanceStatement, w.BalanceStatement, "")
	add(ev.URL, SignalURL, w.URL, "")
	add(ev.Terms, SignalTerms, w.Terms, "")
	add(ev.PromoTerms > 0, SignalPromotionalTerm, w.PromotionalTerm*float64(ev.PromoTerms),
		fmt.Sprintf("%d terms", ev.PromoTerms))
	add(ev.FutureTense, SignalFutureTense, w.FutureTense, "")
	add(ev.OTP, SignalOTP, w.OTP, "")
	add(ev.Informational != "", SignalInformational, w.Informational, ev.Informational)

	return signals, total
}
