// Package extract pulls structured fields out of bank SMS text.
//
// Every extractor is a pure function of its inputs and the shared
// dictionary. Each returns the value it found together with the name of the
// dictionary rule that produced it, so callers can explain a result. A field
// that cannot be found is reported with Found set to false, never as an
// error.
package extract

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"sms-expense-tracker/internal/dictionary"
	"sms-expense-tracker/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rule names reported when an extractor falls back to its default.
const (
	RuleDefault  = "default"
	RuleReceipt  = "received_at"
	RuleVPA      = "vpa"
	RuleFallback = "currency_window"
)

// Result is an extracted value and the rule that produced it.
type Result[T any] struct {
	Value T
	Rule  string
	Found bool
}

func found[T any](v T, rule string) Result[T] {
	return Result[T]{Value: v, Rule: rule, Found: true}
}

func missing[T any](v T, rule string) Result[T] {
	return Result[T]{Value: v, Rule: rule}
}

// Extractor runs the field extractors against one dictionary.
type Extractor struct {
	dict *dictionary.Dictionary
}

// New creates an extractor over dict, or over the default dictionary when
// dict is nil.
func New(dict *dictionary.Dictionary) *Extractor {
	if dict == nil {
		dict = dictionary.Default()
	}
	return &Extractor{dict: dict}
}

// Dictionary returns the tables the extractor reads.
func (e *Extractor) Dictionary() *dictionary.Dictionary {
	return e.dict
}

// Fields is the full set of values extracted from one message.
type Fields struct {
	Bank      Result[models.BankCode]
	Kind      Result[models.TransactionKind]
	Amount    Result[decimal.Decimal]
	Date      Result[time.Time]
	Merchant  Result[string]
	Purpose   Result[string]
	Method    Result[models.TransactionMethod]
	Reference Result[string]
	Category  Result[models.Category]
	Recurring bool
}

// All runs every extractor over msg.
func (e *Extractor) All(msg models.RawMessage) Fields {
	text := msg.Text
	merchant := e.Merchant(text)
	method := e.Method(text)

	return Fields{
		Bank:      e.Bank(text, msg.Sender),
		Kind:      e.Kind(text),
		Amount:    e.Amount(text),
		Date:      e.Date(text, msg.ReceivedAt),
		Merchant:  merchant,
		Purpose:   e.Purpose(text, merchant.Value),
		Method:    method,
		Reference: e.Reference(text),
		Category:  e.Category(text, merchant.Value, method.Value),
		Recurring: e.Recurring(text),
	}
}

// Bank identifies the issuing bank from the sender id, then from the body.
func (e *Extractor) Bank(text, sender string) Result[models.BankCode] {
	if sender != "" {
		if bank, alias, ok := e.findBank(strings.ToLower(sender)); ok {
			return found(bank, "sender:"+alias)
		}
	}
	if bank, alias, ok := e.findBank(strings.ToLower(text)); ok {
		return found(bank, "body:"+alias)
	}
	return missing(models.BankOther, RuleDefault)
}

// findBank returns the alias that occurs earliest in s; table order breaks ties.
func (e *Extractor) findBank(s string) (models.BankCode, string, bool) {
	best := -1
	var bank models.BankCode
	var alias string
	for _, entry := range e.dict.Banks {
		for _, a := range entry.Aliases {
			idx := strings.Index(s, a)
			if idx >= 0 && (best < 0 || idx < best) {
				best, bank, alias = idx, entry.Bank, a
			}
		}
	}
	return bank, alias, best >= 0
}

// Kind decides debit or credit. Strong phrases outrank bare verbs; within a
// tier the phrase that occurs first in the text wins, and table order breaks
// ties. With no keyword at all the result is models.DefaultKind.
func (e *Extractor) Kind(text string) Result[models.TransactionKind] {
	tiers := [][]struct {
		kind     models.TransactionKind
		patterns []dictionary.NamedPattern
	}{
		{{models.KindDebit, e.dict.StrongDebit}, {models.KindCredit, e.dict.StrongCredit}},
		{{models.KindDebit, e.dict.Debit}, {models.KindCredit, e.dict.Credit}},
	}
	for _, tier := range tiers {
		best := -1
		var result Result[models.TransactionKind]
		for _, g := range tier {
			for _, p := range g.patterns {
				loc := p.Pattern.FindStringIndex(text)
				if loc != nil && (best < 0 || loc[0] < best) {
					best, result = loc[0], found(g.kind, p.Name)
				}
			}
		}
		if best >= 0 {
			return result
		}
	}
	return missing(models.DefaultKind, RuleDefault)
}

// Method finds the payment rail. A UPI address implies UPI.
func (e *Extractor) Method(text string) Result[models.TransactionMethod] {
	for _, rule := range e.dict.Methods {
		if rule.Pattern.MatchString(text) {
			return found(rule.Method, strings.ToLower(string(rule.Method)))
		}
		if rule.Method == models.MethodUPI && e.dict.VPA.MatchString(text) {
			return found(models.MethodUPI, RuleVPA)
		}
	}
	return missing(models.MethodGeneric, RuleDefault)
}

// Reference returns the first UTR, RRN or reference number in the text.
func (e *Extractor) Reference(text string) Result[string] {
	for _, p := range e.dict.References {
		for _, m := range p.Pattern.FindAllStringSubmatch(text, -1) {
			ref := strings.TrimSpace(m[1])
			if utf8.RuneCountInString(ref) >= e.dict.MinRefLen {
				return found(ref, p.Name)
			}
		}
	}
	return missing("", RuleDefault)
}

// Category files the transaction by keyword over merchant and text, then by
// method heuristics, then falls back to models.DefaultCategory.
func (e *Extractor) Category(text, merchant string, method models.TransactionMethod) Result[models.Category] {
	combined := merchant + " " + text
	for _, rule := range e.dict.Categories {
		if rule.Pattern.MatchString(combined) {
			return found(rule.Category, "keyword:"+strings.ToLower(string(rule.Category)))
		}
	}

	switch {
	case e.dict.BillHeuristic.MatchString(combined):
		return found(models.CategoryBills, "heuristic:bill")
	case method == models.MethodUPI:
		return found(models.CategoryShopping, "heuristic:upi")
	case method == models.MethodATM:
		return found(models.CategoryOthers, "heuristic:atm")
	}

	return missing(models.DefaultCategory, RuleDefault)
}

// Recurring reports EMI, subscription and mandate wording.
func (e *Extractor) Recurring(text string) bool {
	return e.dict.Recurring.MatchString(text)
}

// titleCase capitalises each word. A Caser keeps state, so one is made per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}

// trimPunct strips punctuation and symbols from both ends of a token.
func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func endsWithBreak(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return strings.ContainsRune(".,;:!?()[]|", r)
}
