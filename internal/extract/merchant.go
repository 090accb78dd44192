package extract

import (
	"strings"
	"unicode"
)

// Merchant returns the counterparty named after the first indicator that
// yields a usable phrase, falling back to the local part of a UPI address.
func (e *Extractor) Merchant(text string) Result[string] {
	if name, rule, ok := e.phraseAfter(text, e.dict.MerchantIndicators); ok {
		return found(name, rule)
	}

	if m := e.dict.VPA.FindStringSubmatch(text); m != nil {
		if name := vpaName(m[1]); name != "" {
			return found(name, RuleVPA)
		}
		return found(strings.ToLower(m[0]), RuleVPA)
	}

	return missing("", RuleDefault)
}

// Purpose returns the phrase after "for", "towards", "purpose:" or
// "remarks:" when it differs from the merchant.
func (e *Extractor) Purpose(text, merchant string) Result[string] {
	name, rule, ok := e.phraseAfter(text, e.dict.PurposeIndicators)
	if !ok || strings.EqualFold(name, merchant) {
		return missing("", RuleDefault)
	}
	return found(name, rule)
}

// phraseAfter scans each indicator in order, every occurrence in turn, and
// returns the first normalized phrase that survives the stoplist.
func (e *Extractor) phraseAfter(text string, indicators []string) (string, string, bool) {
	lower := asciiLower(text)
	for _, ind := range indicators {
		from := 0
		for {
			idx := strings.Index(lower[from:], ind)
			if idx < 0 {
				break
			}
			idx += from
			from = idx + len(ind)

			if idx > 0 && isWordRune(rune(lower[idx-1])) {
				continue
			}
			if phrase := e.takePhrase(text[from:], e.dict.SplitIndicators[ind]); phrase != "" {
				return phrase, "indicator:" + strings.TrimSpace(ind), true
			}
		}
	}
	return "", "", false
}

// takePhrase collects up to MaxMerchantTokens tokens, stopping at punctuation,
// a stopword, or a token carrying digits or an @.
func (e *Extractor) takePhrase(rest string, splitDashes bool) string {
	split := unicode.IsSpace
	if splitDashes {
		split = func(r rune) bool { return unicode.IsSpace(r) || r == '-' || r == '/' }
	}

	var tokens []string
	for _, raw := range strings.FieldsFunc(rest, split) {
		if len(tokens) >= e.dict.MaxMerchantTokens {
			break
		}
		if hasDigit(raw) || strings.Contains(raw, "@") {
			break
		}
		clean := trimPunct(raw)
		if clean == "" || e.dict.IsStopword(strings.ToLower(clean)) {
			break
		}
		tokens = append(tokens, clean)
		if endsWithBreak(raw) {
			break
		}
	}

	phrase := strings.TrimSpace(strings.Join(tokens, " "))
	if len([]rune(phrase)) < 2 {
		return ""
	}
	return titleCase(phrase)
}

// vpaName turns "swiggy.stores" into "Swiggy Stores". Numeric handles such as
// phone numbers yield an empty name.
func vpaName(local string) string {
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || unicode.IsDigit(r)
	})
	name := strings.TrimSpace(strings.Join(parts, " "))
	if len([]rune(name)) < 2 {
		return ""
	}
	return titleCase(name)
}

// asciiLower lower-cases ASCII letters only, so byte offsets into the result
// stay valid for the original text.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
