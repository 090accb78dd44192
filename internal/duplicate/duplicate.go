package duplicate

import (
	"fmt"
	"sort"
	"time"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/internal/textsim"
)

// Score weights.
const (
	amountPoints   = 40
	kindPoints     = 20
	merchantExact  = 20
	merchantWithin = 15
	merchantShared = 10
)

var timeTiers = []struct {
	within time.Duration
	points int
}{
	{time.Minute, 20},
	{10 * time.Minute, 15},
	{time.Hour, 10},
	{4 * time.Hour, 5},
}

// Breakdown is a score split into its parts.
type Breakdown struct {
	Amount   int
	Kind     int
	Time     int
	Merchant int
}

// Total returns the summed score.
func (b Breakdown) Total() int {
	return b.Amount + b.Kind + b.Time + b.Merchant
}

// Match is a candidate scored against a transaction.
type Match struct {
	Candidate *models.Transaction
	Score     int
	Level     Level
	Breakdown Breakdown
}

// Group is a cluster of likely duplicates within one batch.
type Group struct {
	GroupID      string
	Transactions []*models.Transaction
	Confidence   float64
	Reason       string
}

// Detector scores transaction pairs.
type Detector struct {
	config *Config
}

// New creates a detector. A nil config uses DefaultConfig.
func New(config *Config) *Detector {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Detector{config: &cfg}
}

// Config returns the detector configuration.
func (d *Detector) Config() *Config {
	return d.config
}

// Score returns the duplicate score of a and b. It is symmetric.
func (d *Detector) Score(a, b *models.Transaction) int {
	return d.Breakdown(a, b).Total()
}

// Breakdown scores a and b part by part.
func (d *Detector) Breakdown(a, b *models.Transaction) Breakdown {
	var s Breakdown
	if a == nil || b == nil {
		return s
	}

	if models.CompareAmountsWithTolerance(a.Amount, b.Amount, d.config.AmountTolerance) {
		s.Amount = amountPoints
	}
	if a.Kind == b.Kind {
		s.Kind = kindPoints
	}
	s.Time = timePoints(elapsed(a, b))
	s.Merchant = merchantPoints(merchantKey(a), merchantKey(b))
	return s
}

// Level grades score against the configured thresholds.
func (d *Detector) Level(score int) Level {
	switch {
	case score >= d.config.HighConfidence:
		return LevelHighConfidence
	case score >= d.config.Potential:
		return LevelPotential
	default:
		return LevelNone
	}
}

// Window returns the inclusive range candidates for t are drawn from.
func (d *Detector) Window(t *models.Transaction) (time.Time, time.Time) {
	at := t.OccurredAt.In(d.config.Location)
	if d.config.Window == WindowHours {
		return at.Add(-d.config.WindowSpan), at.Add(d.config.WindowSpan)
	}
	start := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, d.config.Location)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Detect scores every candidate against t and returns those at or above the
// potential threshold, best first. A candidate with t's own ID is skipped.
func (d *Detector) Detect(t *models.Transaction, candidates []*models.Transaction) []Match {
	var matches []Match
	for _, c := range candidates {
		if c == nil || c == t || (t.ID != "" && c.ID == t.ID) {
			continue
		}
		b := d.Breakdown(t, c)
		score := b.Total()
		level := d.Level(score)
		if level == LevelNone {
			continue
		}
		matches = append(matches, Match{Candidate: c, Score: score, Level: level, Breakdown: b})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Best returns the highest scoring candidate at or above the potential
// threshold.
func (d *Detector) Best(t *models.Transaction, candidates []*models.Transaction) (Match, bool) {
	matches := d.Detect(t, candidates)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

// Group clusters a batch: each transaction not yet grouped collects every
// later one that scores at least the potential threshold against it.
func (d *Detector) Group(transactions []*models.Transaction) []Group {
	var groups []Group
	grouped := make([]bool, len(transactions))

	for i, first := range transactions {
		if grouped[i] || first == nil {
			continue
		}

		members := []*models.Transaction{first}
		total := 0
		for j := i + 1; j < len(transactions); j++ {
			if grouped[j] || transactions[j] == nil {
				continue
			}
			score := d.Score(first, transactions[j])
			if d.Level(score) == LevelNone {
				continue
			}
			members = append(members, transactions[j])
			total += score
			grouped[j] = true
		}

		if len(members) > 1 {
			groups = append(groups, Group{
				GroupID:      groupID(first, i),
				Transactions: members,
				Confidence:   float64(total) / float64(len(members)-1) / 100,
				Reason: fmt.Sprintf("%d transactions of %s (%s) close together",
					len(members), first.Amount.StringFixed(2), first.Kind),
			})
		}
		grouped[i] = true
	}
	return groups
}

func groupID(t *models.Transaction, index int) string {
	if t.ID != "" {
		return "DUP_" + t.ID
	}
	return fmt.Sprintf("DUP_%d", index)
}

// elapsed compares receipt times when both sides carry one, else occurrence
// times.
// elapsed compares receipt times only when both sides carry one.
func elapsed(a, b *models.Transaction) time.Duration {
	ta, tb := a.TimeOfRecord(), b.TimeOfRecord()
	if a.ReceivedAt.IsZero() != b.ReceivedAt.IsZero() {
		ta, tb = a.OccurredAt, b.OccurredAt
	}
	diff := ta.Sub(tb)
	if diff < 0 {
		diff = -diff
	}
	return diff
}

func timePoints(diff time.Duration) int {
	for _, tier := range timeTiers {
		if diff <= tier.within {
			return tier.points
		}
	}
	return 0
}

// merchantKey is the normalized merchant, or the description without one.
func merchantKey(t *models.Transaction) string {
	if key := textsim.Normalize(t.Merchant); key != "" {
		return key
	}
	return textsim.Normalize(t.Description)
}

func merchantPoints(a, b string) int {
	switch {
	case a == "" || b == "":
		return 0
	case a == b:
		return merchantExact
	case textsim.Contains(a, b):
		return merchantWithin
	case textsim.SharesToken(a, b, textsim.MinPartialLen):
		return merchantShared
	default:
		return 0
	}
}
