// Package textsim normalizes merchant and description strings and scores how
// alike two of them are.
package textsim

import (
	"strings"
	"unicode"
)

// MinPartialLen is the length a token must exceed before a substring of it
// counts as a match.
const MinPartialLen = 3

// Normalize lower-cases s, turns everything but letters and digits into
// spaces and collapses runs of spaces.
func Normalize(s string) string {
	return strings.Join(Tokens(s), " ")
}

// Tokens returns the normalized words of s.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Contains reports whether either normalized string contains the other.
// Empty strings contain nothing.
func Contains(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// SharesToken reports whether a and b have a token longer than minLen in
// common.
func SharesToken(a, b string, minLen int) bool {
	seen := make(map[string]bool)
	for _, t := range Tokens(a) {
		if len([]rune(t)) > minLen {
			seen[t] = true
		}
	}
	for _, t := range Tokens(b) {
		if seen[t] {
			return true
		}
	}
	return false
}

// Similarity scores a and b between 0 and 1. Equal strings score 1,
// containment in either direction 0.9, anything else the share of matching
// tokens over the token union. Tokens match when equal or, once longer than
// MinPartialLen, when one contains the other.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.9
	}

	ta, tb := unique(strings.Fields(na)), unique(strings.Fields(nb))
	matches := min(matched(ta, tb), matched(tb, ta))

	union := len(ta) + len(tb) - matches
	if union <= 0 {
		return 0
	}
	return float64(matches) / float64(union)
}

// matched counts the tokens of from that match some token of to.
func matched(from, to []string) int {
	n := 0
	for _, x := range from {
		for _, y := range to {
			if tokensMatch(x, y) {
				n++
				break
			}
		}
	}
	return n
}

func tokensMatch(x, y string) bool {
	if x == y {
		return true
	}
	if len([]rune(x)) <= MinPartialLen || len([]rune(y)) <= MinPartialLen {
		return false
	}
	return strings.Contains(x, y) || strings.Contains(y, x)
}

func unique(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
