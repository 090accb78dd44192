// Package duplicate scores how likely two transactions are the same
// real-world payment reported twice.
//
// The score runs from 0 to 100 and is built from four parts:
//   - Amount: 40 when the amounts agree within the tolerance
//   - Kind: 20 when both are debits or both credits
//   - Time: 20, 15, 10 or 5 as the two fall within a minute, ten minutes,
//     an hour or four hours of each other
//   - Merchant: 20 for the same normalized merchant, 15 when one contains
//     the other, 10 when they share a word longer than three letters
//
// A pair at or above HighConfidence is a duplicate; one at or above Potential
// is surfaced for review and never merged automatically. The detector never
// reads storage: callers fetch candidates with the range Window returns.
//
// Example usage:
//
//	d := duplicate.New(duplicate.DefaultConfig())
//	start, end := d.Window(tx)
//	candidates, _ := store.FindTransactionsInWindow(ctx, start, end)
//	if m, ok := d.Best(tx, candidates); ok && m.Level == duplicate.LevelHighConfidence {
//		// drop tx
//	}
package duplicate

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WindowMode selects the candidate range around a transaction.
type WindowMode int

const (
	// WindowSameDay covers the calendar day the transaction occurred on.
	WindowSameDay WindowMode = iota

	// WindowHours covers Config.WindowSpan either side of the transaction.
	WindowHours
)

// String returns the configuration name of the window mode.
func (m WindowMode) String() string {
	switch m {
	case WindowSameDay:
		return "day"
	case WindowHours:
		return "hours"
	default:
		return "unknown"
	}
}

// ParseWindow maps "day" to WindowSameDay and a duration such as "8h" to
// WindowHours with that span.
func ParseWindow(s string) (WindowMode, time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "day", "same_day":
		return WindowSameDay, 0, nil
	}
	span, err := time.ParseDuration(s)
	if err != nil || span <= 0 {
		return WindowSameDay, 0, fmt.Errorf("invalid duplicate window %q (want day or a duration like 8h)", s)
	}
	return WindowHours, span, nil
}

// Level grades a duplicate score.
type Level int

const (
	LevelNone Level = iota
	LevelPotential
	LevelHighConfidence
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "None"
	case LevelPotential:
		return "Potential"
	case LevelHighConfidence:
		return "HighConfidence"
	default:
		return "Unknown"
	}
}

// Config holds the detector thresholds and window.
type Config struct {
	// Window selects the candidate range.
	Window WindowMode `json:"window"`

	// WindowSpan is the half-width of a WindowHours range.
	WindowSpan time.Duration `json:"window_span"`

	// HighConfidence is the score at which a pair is a duplicate.
	HighConfidence int `json:"high_confidence"`

	// Potential is the score at which a pair is flagged for review.
	Potential int `json:"potential"`

	// AmountTolerance is the largest difference treated as equal amounts.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// Location is the zone calendar days are taken in.
	Location *time.Location `json:"-"`
}

// DefaultConfig returns same-day windows with thresholds 80 and 50.
func DefaultConfig() *Config {
	return &Config{
		Window:          WindowSameDay,
		WindowSpan:      8 * time.Hour,
		HighConfidence:  80,
		Potential:       50,
		AmountTolerance: decimal.NewFromFloat(0.01),
		Location:        time.Local,
	}
}

// Validate checks the configuration is consistent.
func (c *Config) Validate() error {
	if c.Window == WindowHours && c.WindowSpan <= 0 {
		return fmt.Errorf("window span must be positive for an hours window")
	}

	if c.Potential < 0 || c.Potential > 100 {
		return fmt.Errorf("potential threshold must be between 0 and 100")
	}

	if c.HighConfidence < c.Potential || c.HighConfidence > 100 {
		return fmt.Errorf("high confidence threshold must be between the potential threshold and 100")
	}

	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative")
	}

	return nil
}
