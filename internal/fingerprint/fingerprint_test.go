package fingerprint

import (
	"errors"
	"testing"
	"time"

	"sms-expense-tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func txn(amount string, at time.Time, merchant string) *models.Transaction {
	return &models.Transaction{
		Amount:      decimal.RequireFromString(amount),
		OccurredAt:  at,
		Merchant:    merchant,
		Description: "UPI payment to " + merchant,
	}
}

func TestGenerator_Input(t *testing.T) {
	g := New(nil, ist)
	got := g.Input(decimal.RequireFromString("500"), time.Date(2024, 5, 12, 23, 59, 0, 0, ist), "IMPS payment to Amazon", "Amazon")
	assert.Equal(t, "500.00|2024-05-12|IMPS payment to Amazon|amazon", got)
}

func TestGenerator_StableAcrossTimeOfDay(t *testing.T) {
	g := New(nil, ist)

	morning := txn("240", time.Date(2024, 5, 12, 0, 0, 1, 0, ist), "Local Grocer")
	night := txn("240.00", time.Date(2024, 5, 12, 23, 59, 59, 0, ist), "Local Grocer")
	nextDay := txn("240", time.Date(2024, 5, 13, 0, 0, 1, 0, ist), "Local Grocer")

	assert.Equal(t, g.Transaction(morning), g.Transaction(night))
	assert.NotEqual(t, g.Transaction(morning), g.Transaction(nextDay))
}

func TestGenerator_UsesConfiguredZone(t *testing.T) {
	// 20:00 UTC on the 11th is already the 12th in IST.
	at := time.Date(2024, 5, 11, 20, 0, 0, 0, time.UTC)

	inIST := New(nil, ist).Input(decimal.NewFromInt(1), at, "", "")
	inUTC := New(nil, time.UTC).Input(decimal.NewFromInt(1), at, "", "")

	assert.Contains(t, inIST, "2024-05-12")
	assert.Contains(t, inUTC, "2024-05-11")
}

func TestGenerator_MerchantCaseInsensitive(t *testing.T) {
	g := New(nil, ist)
	at := time.Date(2024, 5, 12, 9, 0, 0, 0, ist)

	a := g.Compute(decimal.NewFromInt(90), at, "UPI payment", "SWIGGY")
	b := g.Compute(decimal.NewFromInt(90), at, "UPI payment", "swiggy")
	assert.Equal(t, a, b)
}

func TestGenerator_DefaultHashIsBase64SHA256(t *testing.T) {
	key := New(nil, ist).Transaction(txn("1", time.Date(2024, 1, 1, 0, 0, 0, 0, ist), "X"))
	assert.Len(t, key, 44)
}

func TestGenerator_HashFailureFallsBackToInput(t *testing.T) {
	failing := HasherFunc(func([]byte) (string, error) {
		return "", errors.New("digest unavailable")
	})
	g := New(failing, ist)
	tx := txn("99.5", time.Date(2024, 5, 12, 10, 0, 0, 0, ist), "Cafe")

	got := g.Transaction(tx)
	assert.Equal(t, "99.50|2024-05-12|UPI payment to Cafe|cafe", got)
	assert.Equal(t, got, g.Transaction(tx))
}

func TestGenerator_Nil(t *testing.T) {
	assert.Equal(t, "", New(nil, nil).Transaction(nil))
}
