package extract

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Amount returns the first amount that an ordered amount pattern matches
// and that parses. When none does, the first bare number with a currency
// token within the dictionary's rune window is used. Candidates directly
// preceded by a balance or limit keyword are skipped.
func (e *Extractor) Amount(text string) Result[decimal.Decimal] {
	for _, p := range e.dict.AmountPatterns {
		for _, m := range p.Pattern.FindAllStringSubmatchIndex(text, -1) {
			if e.followsBalance(text, m[0]) {
				continue
			}
			if amount, ok := parseAmount(text[m[2]:m[3]]); ok {
				return found(amount, p.Name)
			}
		}
	}

	for _, loc := range e.dict.BareNumber.FindAllStringIndex(text, -1) {
		window := runeWindow(text, loc[0], loc[1], e.dict.CurrencyWindowRunes)
		if !e.dict.CurrencyToken.MatchString(window) || e.followsBalance(text, loc[0]) {
			continue
		}
		if amount, ok := parseAmount(text[loc[0]:loc[1]]); ok {
			return found(amount, RuleFallback)
		}
	}

	return missing(decimal.Zero, RuleDefault)
}

// followsBalance reports whether the runes between the previous digit and
// start name a balance, as in "Avl Bal Rs 10,234.50".
func (e *Extractor) followsBalance(text string, start int) bool {
	before := runeWindow(text[:start], start, start, e.dict.BalanceWindowRunes)
	if i := strings.LastIndexFunc(before, unicode.IsDigit); i >= 0 {
		before = before[i+1:]
	}
	return e.dict.Signals.BalanceKeyword.MatchString(before)
}

func parseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimRight(strings.ReplaceAll(raw, ",", ""), ".")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// runeWindow returns text[start:end] widened by n runes on each side.
func runeWindow(text string, start, end, n int) string {
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	for i := 0; i < n && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[start:end]
}

// Date returns the first date candidate that parses against the layout list
// and falls in the accepted year range. The date is midnight in the receipt
// time's zone. Without one the receipt time itself is returned.
func (e *Extractor) Date(text string, received time.Time) Result[time.Time] {
	loc := received.Location()
	for _, p := range e.dict.DatePatterns {
		for _, m := range p.Pattern.FindAllStringSubmatch(text, -1) {
			candidate := normalizeDate(m[1])
			for _, layout := range e.dict.DateLayouts {
				t, err := time.ParseInLocation(layout, candidate, loc)
				if err != nil {
					continue
				}
				if t.Year() < e.dict.MinDateYear || t.Year() > e.dict.MaxDateYear {
					continue
				}
				return found(t, p.Name)
			}
		}
	}
	return missing(received, RuleReceipt)
}

// normalizeDate rewrites month-name dates such as "12-May-24" or "12May2024"
// into the "12 May 24" shape the layouts expect. Numeric dates pass through.
func normalizeDate(s string) string {
	if strings.IndexFunc(s, unicode.IsLetter) < 0 {
		return s
	}

	var b strings.Builder
	var prev rune
	for i, r := range s {
		if r == '-' || unicode.IsSpace(r) {
			r = ' '
		}
		if i > 0 && r != ' ' && prev != ' ' && unicode.IsDigit(r) != unicode.IsDigit(prev) {
			b.WriteRune(' ')
		}
		if r == ' ' && prev == ' ' {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.TrimSpace(b.String())
}
