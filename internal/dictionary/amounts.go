package dictionary

import "regexp"

// number captures an Indian formatted amount such as 1,23,456.78.
const number = `([0-9][0-9,]*(?:\.[0-9]{1,2})?)`

const months = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`

var (
	bareNumber    = regexp.MustCompile(`\b[0-9][0-9,]*(?:\.[0-9]+)?\b`)
	currencyToken = regexp.MustCompile(`(?i)\brs\b|\binr\b|\brupees\b|₹`)
	vpaPattern    = regexp.MustCompile(`([a-zA-Z0-9][a-zA-Z0-9._-]{1,255})@([a-zA-Z]{2,64})`)
)

func amountPatterns() []NamedPattern {
	return []NamedPattern{
		{"currency_prefix", regexp.MustCompile(`(?i)(?:\brs\.?|\binr\.?|₹)\s*` + number)},
		{"currency_suffix", regexp.MustCompile(`(?i)` + number + `\s*(?:rs\b|inr\b|rupees\b|/-)`)},
		{"amount_of", regexp.MustCompile(`(?i)\bamount\s+of\s+` + number)},
		{"debited_credited", regexp.MustCompile(`(?i)\b(?:debited|credited)\s+(?:by\s+|with\s+|for\s+)?` + number + `\b`)},
		{"decimal_only", regexp.MustCompile(`(?:^|\s)([0-9][0-9,]*\.[0-9]{2})(?:\s|$)`)},
		{"amount_is", regexp.MustCompile(`(?i)\bamount\s*(?:is|of|:)\s*` + number)},
	}
}

// datePatterns are tried in order; the context-prefixed shapes come first so
// that "on 12/05/24" beats an unrelated number elsewhere in the text.
func datePatterns() []NamedPattern {
	return []NamedPattern{
		{"prefixed_numeric", regexp.MustCompile(`(?i)\b(?:on|dated|date:?)\s*(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})\b`)},
		{"prefixed_month", regexp.MustCompile(`(?i)\b(?:on|dated|date:?)\s*(\d{1,2}[\s-]?` + months + `[a-z]*[\s-]?\d{2,4})\b`)},
		{"slash", regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`)},
		{"dash", regexp.MustCompile(`\b(\d{1,2}-\d{1,2}-\d{2,4})\b`)},
		{"dot", regexp.MustCompile(`\b(\d{1,2}\.\d{1,2}\.\d{2,4})\b`)},
		{"day_month_year", regexp.MustCompile(`(?i)\b(\d{1,2}\s+` + months + `[a-z]*\s+\d{2,4})\b`)},
		{"day_dash_month", regexp.MustCompile(`(?i)\b(\d{1,2}-` + months + `-\d{2,4})\b`)},
		{"compact", regexp.MustCompile(`(?i)\b(\d{1,2}` + months + `\d{2,4})\b`)},
	}
}

// dateLayouts are tried against every date candidate. Month-name candidates
// are normalized to "12 May 24" before parsing. Two-digit years come before
// four-digit ones because a four-digit layout never accepts "24".
func dateLayouts() []string {
	return []string{
		"2/1/06", "2/1/2006",
		"2-1-06", "2-1-2006",
		"2.1.06", "2.1.2006",
		"2 Jan 06", "2 Jan 2006",
		"2 January 06", "2 January 2006",
	}
}
