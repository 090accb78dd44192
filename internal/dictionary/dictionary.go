// Package dictionary holds the static pattern tables used to read Indian
// bank SMS alerts: bank aliases, amount and date shapes, merchant
// indicators, keyword tables per kind, method and category, and the
// negative signatures used to reject promotional and informational texts.
//
// A Dictionary is built once and never mutated afterwards, so a single
// instance can be shared by any number of goroutines without locking.
//
// Example usage:
//
//	dict := dictionary.Default()
//	for _, p := range dict.AmountPatterns {
//		if m := p.Pattern.FindStringSubmatch(text); m != nil {
//			...
//		}
//	}
package dictionary

import (
	"regexp"
	"sync"

	"sms-expense-tracker/internal/models"
)

// NamedPattern is a compiled expression tagged with the rule name reported
// back to callers when it fires.
type NamedPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

// BankAliases maps one bank to the lower-case substrings that identify it in
// sender ids and message bodies.
type BankAliases struct {
	Bank    models.BankCode
	Aliases []string
}

// MethodRule binds a transaction method to its keyword expression.
type MethodRule struct {
	Method  models.TransactionMethod
	Pattern *regexp.Regexp
}

// CategoryRule binds a category to its keyword expression.
type CategoryRule struct {
	Category models.Category
	Pattern  *regexp.Regexp
}

// WeightedPattern is a promotional signature and the weight it adds to the
// promotional tally.
type WeightedPattern struct {
	Name    string
	Weight  int
	Pattern *regexp.Regexp
}

// Dictionary is the immutable set of tables consulted by the extractors and
// the classifier. Slices are ordered: earlier entries win.
type Dictionary struct {
	Banks []BankAliases

	AmountPatterns      []NamedPattern
	BareNumber          *regexp.Regexp
	CurrencyToken       *regexp.Regexp
	CurrencyWindowRunes int
	BalanceWindowRunes  int

	DatePatterns []NamedPattern
	DateLayouts  []string
	MinDateYear  int
	MaxDateYear  int

	MerchantIndicators []string
	PurposeIndicators  []string
	SplitIndicators    map[string]bool
	Stopwords          map[string]bool
	MaxMerchantTokens  int
	VPA                *regexp.Regexp

	StrongDebit  []NamedPattern
	StrongCredit []NamedPattern
	Debit        []NamedPattern
	Credit       []NamedPattern

	Methods    []MethodRule
	References []NamedPattern
	MinRefLen  int

	Categories        []CategoryRule
	BillHeuristic     *regexp.Regexp
	Recurring         *regexp.Regexp
	DescriptionLabels []NamedPattern

	Signals Signals
}

var (
	defaultOnce sync.Once
	defaultDict *Dictionary
)

// Default returns the process-wide dictionary, building it on first use.
func Default() *Dictionary {
	defaultOnce.Do(func() {
		defaultDict = New()
	})
	return defaultDict
}

// New builds a fresh dictionary. Most callers want Default.
func New() *Dictionary {
	return &Dictionary{
		Banks: bankAliases(),

		AmountPatterns:      amountPatterns(),
		BareNumber:          bareNumber,
		CurrencyToken:       currencyToken,
		CurrencyWindowRunes: 15,
		BalanceWindowRunes:  20,

		DatePatterns: datePatterns(),
		DateLayouts:  dateLayouts(),
		MinDateYear:  2000,
		MaxDateYear:  2099,

		MerchantIndicators: []string{"merchant:", "to ", "at ", "upi-", "vpa-", "from ", "for ", "towards "},
		PurposeIndicators:  []string{"for ", "towards ", "purpose:", "remarks:"},
		SplitIndicators:    map[string]bool{"upi-": true, "vpa-": true},
		Stopwords:          stopwords(),
		MaxMerchantTokens:  3,
		VPA:                vpaPattern,

		StrongDebit:  strongDebit(),
		StrongCredit: strongCredit(),
		Debit:        bareDebit(),
		Credit:       bareCredit(),

		Methods:    methodRules(),
		References: referencePatterns(),
		MinRefLen:  3,

		Categories:        categoryRules(),
		BillHeuristic:     billHeuristic,
		Recurring:         recurringPattern,
		DescriptionLabels: descriptionLabels(),

		Signals: newSignals(),
	}
}

// IsStopword reports whether the lower-cased, punctuation-trimmed token ends
// a merchant or purpose phrase.
func (d *Dictionary) IsStopword(token string) bool {
	return d.Stopwords[token]
}

func stopwords() map[string]bool {
	words := []string{
		"on", "info", "alert", "ref", "id", "upi", "rs", "inr", "a/c", "ac", "acct",
		"account", "your", "via", "using", "avl", "bal", "txn", "no", "is", "has",
		"been", "dated", "date", "by", "with", "and", "from", "to", "at", "for", "of",
		"in", "not", "sms", "call", "card", "towards", "you", "if",
		"refno", "refund",
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
