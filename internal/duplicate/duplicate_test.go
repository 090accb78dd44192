package duplicate

import (
	"testing"
	"time"

	"sms-expense-tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ist  = time.FixedZone("IST", 5*3600+1800)
	base = time.Date(2024, 5, 12, 10, 30, 0, 0, ist)
)

func tx(id, amount string, kind models.TransactionKind, received time.Time, merchant string) *models.Transaction {
	return &models.Transaction{
		ID:          id,
		Amount:      decimal.RequireFromString(amount),
		Kind:        kind,
		OccurredAt:  time.Date(received.Year(), received.Month(), received.Day(), 0, 0, 0, 0, received.Location()),
		ReceivedAt:  received,
		Merchant:    merchant,
		Description: "UPI payment to " + merchant,
	}
}

func newDetector() *Detector {
	cfg := DefaultConfig()
	cfg.Location = ist
	return New(cfg)
}

func TestBreakdown(t *testing.T) {
	d := newDetector()
	a := tx("a", "500", models.KindDebit, base, "Amazon")

	tests := []struct {
		name string
		b    *models.Transaction
		want Breakdown
	}{
		{"seconds apart", tx("b", "500.00", models.KindDebit, base.Add(20*time.Second), "AMAZON"), Breakdown{40, 20, 20, 20}},
		{"within tolerance", tx("b", "500.01", models.KindDebit, base.Add(5*time.Minute), "Amazon"), Breakdown{40, 20, 15, 20}},
		{"outside tolerance", tx("b", "500.02", models.KindDebit, base.Add(30*time.Minute), "Amazon Pay"), Breakdown{0, 20, 10, 15}},
		{"different kind", tx("b", "500", models.KindCredit, base.Add(3*time.Hour), "Amazon"), Breakdown{40, 0, 5, 20}},
		{"hours apart", tx("b", "500", models.KindDebit, base.Add(5*time.Hour), "Amazon Pay"), Breakdown{40, 20, 0, 15}},
		{"unrelated", tx("b", "90", models.KindCredit, base.Add(6*time.Hour), "Swiggy"), Breakdown{0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Breakdown(a, tt.b))
		})
	}
}

func TestMerchantPoints(t *testing.T) {
	assert.Equal(t, 20, merchantPoints("zomato", "zomato"))
	assert.Equal(t, 15, merchantPoints("zomato", "zomato ltd"))
	assert.Equal(t, 10, merchantPoints("zomato order", "paid zomato ltd"))
	assert.Equal(t, 0, merchantPoints("ola", "uber"))
	assert.Equal(t, 0, merchantPoints("", "zomato"))
}

func TestScore_Symmetric(t *testing.T) {
	d := newDetector()
	pairs := [][2]*models.Transaction{
		{tx("a", "500", models.KindDebit, base, "Amazon"), tx("b", "500", models.KindDebit, base.Add(time.Minute), "Amazon Pay")},
		{tx("a", "240", models.KindDebit, base, "Local Grocer"), tx("b", "250", models.KindCredit, base.Add(-2*time.Hour), "Grocer")},
		{tx("a", "1", models.KindCredit, base, ""), tx("b", "1", models.KindCredit, base.Add(9*time.Minute), "Cafe")},
	}

	for _, p := range pairs {
		assert.Equal(t, d.Score(p[0], p[1]), d.Score(p[1], p[0]))
	}
}

func TestScore_FallsBackToOccurrenceTime(t *testing.T) {
	d := newDetector()
	a := tx("a", "500", models.KindDebit, base, "Amazon")
	b := tx("b", "500", models.KindDebit, base, "Amazon")
	b.ReceivedAt = time.Time{}

	// occurrence times are both midnight of the same day
	assert.Equal(t, 20, d.Breakdown(a, b).Time)
}

func TestScore_ReceiptTimesWhenBothPresent(t *testing.T) {
	d := newDetector()
	a := tx("a", "500", models.KindDebit, base, "Amazon")
	b := tx("b", "500", models.KindDebit, base.Add(7*time.Hour), "Amazon")

	// same occurrence day, but the receipts are hours apart
	assert.Equal(t, 0, d.Breakdown(a, b).Time)

	a.ReceivedAt, b.ReceivedAt = time.Time{}, time.Time{}
	assert.Equal(t, 20, d.Breakdown(a, b).Time)
}

func TestNew_LeavesCallerConfigAlone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Location = nil

	d := New(cfg)
	assert.Nil(t, cfg.Location)
	assert.Equal(t, time.Local, d.Config().Location)
}

func TestScenarioE_SecondsApart(t *testing.T) {
	d := newDetector()
	a := tx("a", "250", models.KindDebit, base, "Swiggy")
	b := tx("b", "250", models.KindDebit, base.Add(7*time.Second), "Swiggy")

	score := d.Score(a, b)
	assert.GreaterOrEqual(t, score, 80)
	assert.Equal(t, LevelHighConfidence, d.Level(score))
}

func TestLevel(t *testing.T) {
	d := newDetector()
	assert.Equal(t, LevelHighConfidence, d.Level(80))
	assert.Equal(t, LevelPotential, d.Level(79))
	assert.Equal(t, LevelPotential, d.Level(50))
	assert.Equal(t, LevelNone, d.Level(49))
}

func TestWindow(t *testing.T) {
	a := tx("a", "1", models.KindDebit, base, "X")
	a.OccurredAt = base

	d := newDetector()
	start, end := d.Window(a)
	assert.True(t, start.Equal(time.Date(2024, 5, 12, 0, 0, 0, 0, ist)))
	assert.True(t, end.Before(time.Date(2024, 5, 13, 0, 0, 0, 0, ist)))
	assert.True(t, end.After(time.Date(2024, 5, 12, 23, 59, 59, 0, ist)))

	cfg := DefaultConfig()
	cfg.Window, cfg.WindowSpan, cfg.Location = WindowHours, 8*time.Hour, ist
	start, end = New(cfg).Window(a)
	assert.True(t, start.Equal(base.Add(-8*time.Hour)))
	assert.True(t, end.Equal(base.Add(8*time.Hour)))
}

func TestDetect(t *testing.T) {
	d := newDetector()
	target := tx("t", "500", models.KindDebit, base, "Amazon")

	exact := tx("c1", "500", models.KindDebit, base.Add(30*time.Second), "Amazon")
	review := tx("c2", "500", models.KindDebit, base.Add(3*time.Hour), "Flipkart")
	other := tx("c3", "75", models.KindCredit, base.Add(5*time.Hour), "Uber")

	matches := d.Detect(target, []*models.Transaction{review, other, target, exact})
	require.Len(t, matches, 2)

	assert.Equal(t, exact, matches[0].Candidate)
	assert.Equal(t, 100, matches[0].Score)
	assert.Equal(t, LevelHighConfidence, matches[0].Level)

	assert.Equal(t, review, matches[1].Candidate)
	assert.Equal(t, 65, matches[1].Score)
	assert.Equal(t, LevelPotential, matches[1].Level)

	best, ok := d.Best(target, []*models.Transaction{other})
	assert.False(t, ok)
	assert.Nil(t, best.Candidate)
}

func TestGroup(t *testing.T) {
	d := newDetector()
	batch := []*models.Transaction{
		tx("1", "500", models.KindDebit, base, "Amazon"),
		tx("2", "90", models.KindDebit, base.Add(time.Minute), "Swiggy"),
		tx("3", "500", models.KindDebit, base.Add(20*time.Second), "Amazon"),
		tx("4", "90", models.KindDebit, base.Add(3*time.Minute), "Swiggy"),
		tx("5", "1200", models.KindCredit, base.Add(5*time.Hour), "Salary"),
	}

	groups := d.Group(batch)
	require.Len(t, groups, 2)

	assert.Equal(t, "DUP_1", groups[0].GroupID)
	assert.Equal(t, []*models.Transaction{batch[0], batch[2]}, groups[0].Transactions)
	assert.InDelta(t, 1.0, groups[0].Confidence, 0.001)

	assert.Equal(t, "DUP_2", groups[1].GroupID)
	assert.Len(t, groups[1].Transactions, 2)
	assert.InDelta(t, 0.95, groups[1].Confidence, 0.001)
}

func TestParseWindow(t *testing.T) {
	mode, span, err := ParseWindow("day")
	require.NoError(t, err)
	assert.Equal(t, WindowSameDay, mode)
	assert.Zero(t, span)

	mode, span, err = ParseWindow("8h")
	require.NoError(t, err)
	assert.Equal(t, WindowHours, mode)
	assert.Equal(t, 8*time.Hour, span)

	_, _, err = ParseWindow("soon")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.HighConfidence = 40
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Window, cfg.WindowSpan = WindowHours, 0
	assert.Error(t, cfg.Validate())
}
