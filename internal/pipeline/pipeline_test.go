package pipeline

import (
	"testing"
	"time"

	"sms-expense-tracker/internal/classify"
	"sms-expense-tracker/internal/duplicate"
	"sms-expense-tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ist      = time.FixedZone("IST", 5*3600+1800)
	received = time.Date(2024, 5, 12, 10, 30, 0, 0, ist)
)

const scenarioA = "HDFC Bank: Rs.500 debited from A/c XX1234 on 12/05/24 to Amazon Ref No IMPS123"

func newPipeline(policy classify.Policy) *Pipeline {
	dup := duplicate.DefaultConfig()
	dup.Location = ist

	cls := classify.DefaultConfig()
	cls.Policy = policy

	return New(Options{Classifier: cls, Duplicate: dup})
}

func policies() map[string]classify.Policy {
	return map[string]classify.Policy{
		"cascade":  classify.Cascade(),
		"weighted": classify.Weighted(classify.DefaultThreshold),
	}
}

func TestClassifyAndExtract_ScenarioA(t *testing.T) {
	for name, policy := range policies() {
		t.Run(name, func(t *testing.T) {
			p := newPipeline(policy)
			tx, d := p.ClassifyAndExtract(models.RawMessage{Text: scenarioA, Sender: "VM-HDFCBK", ReceivedAt: received})

			require.True(t, d.Accepted, d.String())
			require.NotNil(t, tx)

			assert.Equal(t, models.BankHDFC, tx.Bank)
			assert.Equal(t, models.KindDebit, tx.Kind)
			assert.Equal(t, "500.00", tx.Amount.StringFixed(2))
			assert.Equal(t, "Amazon", tx.Merchant)
			assert.Equal(t, "IMPS123", tx.Reference)
			assert.Equal(t, models.CategoryShopping, tx.Category)
			assert.Equal(t, models.MethodIMPS, tx.Method)
			assert.True(t, time.Date(2024, 5, 12, 0, 0, 0, 0, ist).Equal(tx.OccurredAt))
			assert.Equal(t, "IMPS payment to Amazon (Ref: IMPS123)", tx.Description)
			assert.Equal(t, scenarioA, tx.OriginalText)
			assert.Equal(t, "VM-HDFCBK", tx.Sender)
			assert.NotEmpty(t, tx.Fingerprint)
			assert.Equal(t, p.Fingerprint(tx), tx.Fingerprint)
			assert.NoError(t, tx.Validate())
		})
	}
}

func TestClassifyAndExtract_Rejections(t *testing.T) {
	texts := map[string]string{
		"B promotion": "Use code SAVE50 for 50% off! Visit https://bit.ly/xyz T&C apply",
		"C otp":       "Your OTP for login is 482913. Do not share.",
		"D balance":   "Avl Bal in A/c XX9876 as on 10-May is Rs.15,230.50",
		"empty":       "   ",
	}

	for name, policy := range policies() {
		p := newPipeline(policy)
		for scenario, text := range texts {
			t.Run(name+"/"+scenario, func(t *testing.T) {
				tx, d := p.ClassifyAndExtract(models.RawMessage{Text: text, ReceivedAt: received})
				assert.Nil(t, tx)
				assert.False(t, d.Accepted)
			})
		}
	}
}

func TestClassifyAndExtract_AmountGatesAcceptance(t *testing.T) {
	// strong phrasing is accepted by the classifier but carries no amount
	text := "Your A/c XX1234 has been debited towards your standing instruction"

	for name, policy := range policies() {
		t.Run(name, func(t *testing.T) {
			tx, d := newPipeline(policy).ClassifyAndExtract(models.RawMessage{Text: text, ReceivedAt: received})
			assert.True(t, d.Accepted)
			assert.Nil(t, tx)
		})
	}
}

func TestClassifyAndExtract_Deterministic(t *testing.T) {
	p := newPipeline(classify.Cascade())
	msg := models.RawMessage{Text: scenarioA, ReceivedAt: received}

	first, d1 := p.ClassifyAndExtract(msg)
	second, d2 := p.ClassifyAndExtract(msg)
	assert.Equal(t, first, second)
	assert.Equal(t, d1, d2)
}

func TestScenarioE_SecondsApart(t *testing.T) {
	p := newPipeline(classify.Cascade())

	for _, text := range []string{
		"Rs.250 debited from A/c XX1234 on 12/05/24 to Swiggy",
		"Rs.250 debited from A/c XX1234 to Swiggy",
	} {
		t.Run(text, func(t *testing.T) {
			a, _ := p.ClassifyAndExtract(models.RawMessage{Text: text, ReceivedAt: received})
			b, _ := p.ClassifyAndExtract(models.RawMessage{Text: text, ReceivedAt: received.Add(4 * time.Second)})
			require.NotNil(t, a)
			require.NotNil(t, b)

			assert.Equal(t, a.Fingerprint, b.Fingerprint)
			assert.GreaterOrEqual(t, p.DuplicateScore(a, b), 80)
			assert.Equal(t, p.DuplicateScore(a, b), p.DuplicateScore(b, a))
		})
	}
}

func TestScenarioF_ExclusionPattern(t *testing.T) {
	p := newPipeline(classify.Cascade())

	excluded := &models.Transaction{
		ID:          "t-1",
		Merchant:    "Local Grocer",
		Description: "UPI payment to Local Grocer",
		Amount:      decimal.NewFromInt(240),
		Kind:        models.KindDebit,
		Category:    models.CategoryFood,
	}
	pattern := p.BuildPattern(excluded)
	require.NotNil(t, pattern)
	assert.True(t, decimal.NewFromInt(216).Equal(pattern.MinAmount))
	assert.True(t, decimal.NewFromInt(264).Equal(pattern.MaxAmount))

	later := excluded.Clone()
	later.Amount = decimal.NewFromInt(250)
	assert.GreaterOrEqual(t, p.PatternMatchScore(later, pattern), 85)

	expensive := excluded.Clone()
	expensive.Amount = decimal.NewFromInt(400)
	assert.Less(t, p.PatternMatchScore(expensive, pattern), 85)
}

func TestClassifyAndExtract_ExtractedPatternRoundTrip(t *testing.T) {
	p := newPipeline(classify.Cascade())

	first, _ := p.ClassifyAndExtract(models.RawMessage{Text: "Rs.240 paid to Local Grocer via UPI. Ref 412345678901", ReceivedAt: received})
	require.NotNil(t, first)
	pattern := p.BuildPattern(first)

	next, _ := p.ClassifyAndExtract(models.RawMessage{Text: "Rs.250 paid to Local Grocer via UPI. Ref 412345678999", ReceivedAt: received.Add(48 * time.Hour)})
	require.NotNil(t, next)

	assert.GreaterOrEqual(t, p.PatternMatchScore(next, pattern), 85)
}

func TestClassifyAndExtract_TrailingBalanceIsNotTheAmount(t *testing.T) {
	p := newPipeline(classify.Cascade())
	text := "Dear UPI user A/C X1234 debited by 500.00 on date 12May24 trf to SWIGGY Refno 412345678901. Avl Bal Rs 10,234.50 -SBI"

	tx, d := p.ClassifyAndExtract(models.RawMessage{Text: text, Sender: "VM-SBIINB", ReceivedAt: received})
	require.NotNil(t, tx, d.String())

	assert.Equal(t, "500.00", tx.Amount.StringFixed(2))
	assert.Equal(t, models.KindDebit, tx.Kind)
	assert.Equal(t, "Swiggy", tx.Merchant)
}

func TestClassifyAndExtract_ReversalIsCredit(t *testing.T) {
	p := newPipeline(classify.Cascade())
	text := "Rs.500 credited to your a/c XX1234 by reversal of txn debited from a/c earlier"

	tx, d := p.ClassifyAndExtract(models.RawMessage{Text: text, ReceivedAt: received})
	require.NotNil(t, tx, d.String())
	assert.Equal(t, models.KindCredit, tx.Kind)
}
