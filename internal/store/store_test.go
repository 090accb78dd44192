package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ist = time.FixedZone("IST", 5*3600+1800)
	day = time.Date(2024, 5, 12, 0, 0, 0, 0, ist)
)

func tx(amount string, at time.Time, fp string) *models.Transaction {
	return &models.Transaction{
		Bank:        models.BankHDFC,
		Kind:        models.KindDebit,
		Amount:      decimal.RequireFromString(amount),
		OccurredAt:  at,
		ReceivedAt:  at,
		Merchant:    "Swiggy",
		Method:      models.MethodUPI,
		Category:    models.CategoryFood,
		Description: "UPI payment to Swiggy",
		Fingerprint: fp,
	}
}

func pattern(merchant string) *models.ExclusionPattern {
	return &models.ExclusionPattern{
		MerchantPattern: merchant,
		MinAmount:       decimal.NewFromInt(216),
		MaxAmount:       decimal.NewFromInt(264),
		Kind:            models.KindDebit,
		Active:          true,
	}
}

// stores runs fn against every in-process implementation
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
	t.Run("file", func(t *testing.T) {
		fs, err := OpenFile(filepath.Join(t.TempDir(), "store.yaml"))
		require.NoError(t, err)
		fn(t, fs)
	})
}

func TestStore_Transactions(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		a := tx("250", day.Add(10*time.Hour), "fp-a")
		require.NoError(t, s.SaveTransaction(ctx, a))
		require.NotEmpty(t, a.ID)

		b := tx("99", day.Add(34*time.Hour), "fp-b")
		require.NoError(t, s.SaveTransaction(ctx, b))

		got, err := s.GetTransaction(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "250", got.Amount.String())

		got.Merchant = "changed"
		again, _ := s.GetTransaction(ctx, a.ID)
		assert.Equal(t, "Swiggy", again.Merchant, "returned records are copies")

		in, err := s.FindTransactionsInWindow(ctx, day, day.Add(24*time.Hour-time.Nanosecond))
		require.NoError(t, err)
		require.Len(t, in, 1)
		assert.Equal(t, a.ID, in[0].ID)

		edge, err := s.FindTransactionsInWindow(ctx, day.Add(10*time.Hour), day.Add(34*time.Hour))
		require.NoError(t, err)
		assert.Len(t, edge, 2, "window bounds are inclusive")

		byFP, err := s.FindByFingerprint(ctx, "fp-b")
		require.NoError(t, err)
		require.Len(t, byFP, 1)
		assert.Equal(t, b.ID, byFP[0].ID)

		none, err := s.FindByFingerprint(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, none)

		a.IsExcluded = true
		require.NoError(t, s.UpdateTransaction(ctx, a))
		got, _ = s.GetTransaction(ctx, a.ID)
		assert.True(t, got.IsExcluded)

		all, err := s.ListTransactions(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestStore_TransactionErrors(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.GetTransaction(ctx, "missing")
		assert.True(t, errors.IsNotFound(err))

		assert.True(t, errors.IsNotFound(s.UpdateTransaction(ctx, &models.Transaction{ID: "missing"})))

		a := tx("10", day, "")
		require.NoError(t, s.SaveTransaction(ctx, a))
		dup := a.Clone()
		te, ok := errors.AsTrackerError(s.SaveTransaction(ctx, dup))
		require.True(t, ok)
		assert.Equal(t, errors.CodeAlreadyExists, te.Code)

		invalid := tx("-1", day, "")
		te, ok = errors.AsTrackerError(s.SaveTransaction(ctx, invalid))
		require.True(t, ok)
		assert.Equal(t, errors.CategoryValidation, te.Category)
	})
}

func TestStore_Patterns(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		first := pattern("local grocer")
		require.NoError(t, s.SavePattern(ctx, first))
		require.NotEmpty(t, first.ID)
		assert.False(t, first.CreatedAt.IsZero())

		second := pattern("swiggy")
		second.CreatedAt = first.CreatedAt.Add(time.Second)
		require.NoError(t, s.SavePattern(ctx, second))

		require.NoError(t, s.IncrementMatchCount(ctx, first.ID))
		require.NoError(t, s.IncrementMatchCount(ctx, first.ID))
		got, err := s.GetPattern(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.MatchCount)

		active, err := s.FindActiveExclusionPatterns(ctx)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, first.ID, active[0].ID)

		require.NoError(t, s.DeactivatePattern(ctx, first.ID))
		active, _ = s.FindActiveExclusionPatterns(ctx)
		require.Len(t, active, 1)
		assert.Equal(t, second.ID, active[0].ID)

		all, _ := s.ListExclusionPatterns(ctx)
		assert.Len(t, all, 2)

		require.NoError(t, s.DeletePattern(ctx, second.ID))
		all, _ = s.ListExclusionPatterns(ctx)
		require.Len(t, all, 1)
		assert.Equal(t, first.ID, all[0].ID)

		assert.True(t, errors.IsNotFound(s.DeletePattern(ctx, second.ID)))
		assert.True(t, errors.IsNotFound(s.IncrementMatchCount(ctx, "missing")))
		assert.True(t, errors.IsNotFound(s.DeactivatePattern(ctx, "missing")))

		te, ok := errors.AsTrackerError(s.SavePattern(ctx, &models.ExclusionPattern{Kind: models.KindDebit}))
		require.True(t, ok)
		assert.Equal(t, errors.CodeInvalidPattern, te.Code)
	})
}

func TestMemory_Clock(t *testing.T) {
	m := NewMemory()
	fixed := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return fixed })

	p := pattern("x")
	require.NoError(t, m.SavePattern(context.Background(), p))
	assert.True(t, fixed.Equal(p.CreatedAt))
}

func TestMemory_ConcurrentIncrement(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := pattern("swiggy")
	require.NoError(t, m.SavePattern(ctx, p))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.IncrementMatchCount(ctx, p.ID)
		}()
	}
	wg.Wait()

	got, _ := m.GetPattern(ctx, p.ID)
	assert.Equal(t, 100, got.MatchCount)
}

func TestFileStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.yaml")
	ctx := context.Background()

	fs, err := OpenFile(path)
	require.NoError(t, err)

	a := tx("250.50", day.Add(10*time.Hour), "fp-a")
	require.NoError(t, fs.SaveTransaction(ctx, a))
	p := pattern("local grocer")
	p.Category = models.CategoryFood
	require.NoError(t, fs.SavePattern(ctx, p))
	require.NoError(t, fs.IncrementMatchCount(ctx, p.ID))
	require.NoError(t, fs.Close())

	reopened, err := OpenFile(path)
	require.NoError(t, err)

	got, err := reopened.GetTransaction(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, a.Amount.Equal(got.Amount))
	assert.True(t, a.OccurredAt.Equal(got.OccurredAt))
	assert.Equal(t, a.Fingerprint, got.Fingerprint)
	assert.Equal(t, models.MethodUPI, got.Method)

	gp, err := reopened.GetPattern(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gp.MatchCount)
	assert.True(t, gp.MinAmount.Equal(decimal.NewFromInt(216)))
	assert.Equal(t, models.CategoryFood, gp.Category)
	assert.True(t, p.CreatedAt.Equal(gp.CreatedAt))
}

func TestFileStore_ClockDuringFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	fs, err := OpenFile(path)
	require.NoError(t, err)

	fixed := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			fs.SetClock(func() time.Time { return fixed })
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, fs.Close())
		}()
	}
	wg.Wait()

	require.NoError(t, fs.Close())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "2024-06-01T09:00:00Z")
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transactions: [not: valid: yaml"), 0o644))

	_, err := OpenFile(path)
	te, ok := errors.AsTrackerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryStorage, te.Category)
}

func TestPatterns_ExportImport(t *testing.T) {
	p := pattern("local grocer")
	p.ID = "p-1"
	p.DescriptionPattern = "upi payment to local grocer"
	p.MatchCount = 4
	p.CreatedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, ExportPatterns(&buf, []*models.ExclusionPattern{p}, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Contains(t, buf.String(), "merchant_pattern: local grocer")

	got, err := ImportPatterns(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p-1", got[0].ID)
	assert.Equal(t, p.DescriptionPattern, got[0].DescriptionPattern)
	assert.True(t, p.MaxAmount.Equal(got[0].MaxAmount))
	assert.Equal(t, 4, got[0].MatchCount)
}

func TestPatterns_ImportRejectsInvalid(t *testing.T) {
	doc := `
version: 1
patterns:
  - id: bad
    min_amount: "300"
    max_amount: "200"
    kind: DEBIT
    merchant_pattern: x
`
	_, err := ImportPatterns(strings.NewReader(doc))
	te, ok := errors.AsTrackerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeInvalidPattern, te.Code)

	unknownKind := strings.Replace(doc, "kind: DEBIT", "kind: refund", 1)
	unknownKind = strings.Replace(unknownKind, `max_amount: "200"`, `max_amount: "400"`, 1)
	_, err = ImportPatterns(strings.NewReader(unknownKind))
	te, ok = errors.AsTrackerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeInvalidPattern, te.Code)

	got, err := ImportPatterns(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPatterns_ImportNormalizesKindAndCategory(t *testing.T) {
	doc := `
version: 1
patterns:
  - id: p-1
    merchant_pattern: swiggy
    min_amount: "100"
    max_amount: "200"
    kind: dr
    category: food
    active: true
`
	got, err := ImportPatterns(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.KindDebit, got[0].Kind)
	assert.Equal(t, models.CategoryFood, got[0].Category)
}
