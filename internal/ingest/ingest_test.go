package ingest

import (
	"context"
	"testing"
	"time"

	"sms-expense-tracker/internal/classify"
	"sms-expense-tracker/internal/duplicate"
	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/internal/pipeline"
	"sms-expense-tracker/internal/source"
	"sms-expense-tracker/internal/store"
	"sms-expense-tracker/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ist      = time.FixedZone("IST", 5*3600+1800)
	received = time.Date(2024, 5, 12, 10, 30, 0, 0, ist)
)

const scenarioA = "HDFC Bank: Rs.500 debited from A/c XX1234 on 12/05/24 to Amazon Ref No IMPS123"

func newProcessor(t *testing.T) (*Processor, *store.Memory) {
	t.Helper()

	dup := duplicate.DefaultConfig()
	dup.Location = ist
	p := pipeline.New(pipeline.Options{Duplicate: dup})

	mem := store.NewMemory()
	return New(p, mem, &Config{Workers: 2}), mem
}

func msg(text string, at time.Time) models.RawMessage {
	return models.RawMessage{Text: text, Sender: "VM-HDFCBK", ReceivedAt: at}
}

func TestProcess_RecordsAndRejects(t *testing.T) {
	proc, mem := newProcessor(t)
	ctx := context.Background()

	res, err := proc.Process(ctx, msg(scenarioA, received))
	require.NoError(t, err)
	assert.Equal(t, StatusRecorded, res.Status)
	assert.True(t, res.Saved())
	require.NotNil(t, res.Transaction)
	assert.NotEmpty(t, res.Transaction.ID)

	stored, err := mem.GetTransaction(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amazon", stored.Merchant)

	res, err = proc.Process(ctx, msg("Your OTP for login is 482913. Do not share.", received))
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Nil(t, res.Transaction)
	assert.False(t, res.Saved())

	all, err := mem.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProcess_FingerprintDuplicate(t *testing.T) {
	proc, mem := newProcessor(t)
	ctx := context.Background()

	first, err := proc.Process(ctx, msg(scenarioA, received))
	require.NoError(t, err)

	second, err := proc.Process(ctx, msg(scenarioA, received.Add(4*time.Second)))
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, second.Status)
	assert.Equal(t, first.Transaction.ID, second.DuplicateOf)
	assert.Equal(t, 100, second.DuplicateScore)

	all, _ := mem.ListTransactions(ctx)
	assert.Len(t, all, 1)
}

func TestProcess_ScoredDuplicates(t *testing.T) {
	proc, mem := newProcessor(t)
	ctx := context.Background()

	_, err := proc.Process(ctx, msg("Rs.250 debited from A/c XX1234 to Swiggy", received))
	require.NoError(t, err)

	// different wording, so a different fingerprint, but the same payment
	high, err := proc.Process(ctx, msg("Rs.250 debited from your A/c XX1234 for Swiggy order", received.Add(30*time.Second)))
	require.NoError(t, err)
	require.NotNil(t, high.Transaction)
	assert.Equal(t, StatusDuplicate, high.Status)
	assert.GreaterOrEqual(t, high.DuplicateScore, 80)

	// same amount and kind, unrelated merchant, hours later
	potential, err := proc.Process(ctx, msg("Rs.250 debited from A/c XX1234 to Zomato", received.Add(3*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, StatusPotentialDuplicate, potential.Status)
	assert.True(t, potential.Transaction.NeedsReview)
	assert.NotEmpty(t, potential.Transaction.DuplicateOfID)

	all, _ := mem.ListTransactions(ctx)
	assert.Len(t, all, 2)
}

func TestExcludeManually_LearnsPattern(t *testing.T) {
	proc, mem := newProcessor(t)
	ctx := context.Background()

	first, err := proc.Process(ctx, msg("Rs.240 paid to Local Grocer via UPI. Ref 412345678901", received))
	require.NoError(t, err)
	require.Equal(t, StatusRecorded, first.Status)

	pattern, err := proc.ExcludeManually(ctx, first.Transaction.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, pattern.ID)
	assert.Equal(t, first.Transaction.ID, pattern.SourceTransactionID)

	stored, err := mem.GetTransaction(ctx, first.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsExcluded)
	assert.Equal(t, pattern.ID, stored.ExclusionPatternID)

	later, err := proc.Process(ctx, msg("Rs.250 paid to Local Grocer via UPI. Ref 412345678999", received.Add(48*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, StatusExcluded, later.Status)
	assert.Equal(t, pattern.ID, later.PatternID)
	assert.GreaterOrEqual(t, later.PatternScore, 85)
	assert.True(t, later.Transaction.IsExcluded)

	counted, err := mem.GetPattern(ctx, pattern.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counted.MatchCount)

	pricey, err := proc.Process(ctx, msg("Rs.900 paid to Local Grocer via UPI. Ref 412345670000", received.Add(72*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, StatusRecorded, pricey.Status)
}

func TestIncludeManually_DeactivatesLearnedPattern(t *testing.T) {
	proc, mem := newProcessor(t)
	ctx := context.Background()

	first, err := proc.Process(ctx, msg("Rs.240 paid to Local Grocer via UPI. Ref 412345678901", received))
	require.NoError(t, err)
	pattern, err := proc.ExcludeManually(ctx, first.Transaction.ID)
	require.NoError(t, err)

	require.NoError(t, proc.IncludeManually(ctx, first.Transaction.ID))

	stored, err := mem.GetTransaction(ctx, first.Transaction.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsExcluded)
	assert.Empty(t, stored.ExclusionPatternID)

	p, err := mem.GetPattern(ctx, pattern.ID)
	require.NoError(t, err)
	assert.False(t, p.Active)

	later, err := proc.Process(ctx, msg("Rs.250 paid to Local Grocer via UPI. Ref 412345678999", received.Add(48*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, StatusRecorded, later.Status)
}

func TestManualActions_NotFound(t *testing.T) {
	proc, _ := newProcessor(t)
	ctx := context.Background()

	_, err := proc.ExcludeManually(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))

	assert.True(t, errors.IsNotFound(proc.IncludeManually(ctx, "missing")))
	assert.True(t, errors.IsNotFound(proc.DeactivatePattern(ctx, "missing")))
	assert.True(t, errors.IsNotFound(proc.DeletePattern(ctx, "missing")))
}

func TestPatterns_OrderAndImport(t *testing.T) {
	proc, mem := newProcessor(t)
	ctx := context.Background()

	builder := proc.Pipeline().Builder()
	quiet := builder.Build(&models.Transaction{ID: "a", Merchant: "Gym", Description: "Payment to Gym", Amount: decimal.RequireFromString("1500"), Kind: models.KindDebit})
	quiet.ID = "quiet"
	busy := builder.Build(&models.Transaction{ID: "b", Merchant: "Rent", Description: "Payment to Rent", Amount: decimal.RequireFromString("20000"), Kind: models.KindDebit})
	busy.ID = "busy"

	saved, err := proc.ImportPatterns(ctx, []*models.ExclusionPattern{quiet, busy})
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	saved, err = proc.ImportPatterns(ctx, []*models.ExclusionPattern{quiet.Clone()})
	require.NoError(t, err)
	assert.Zero(t, saved)

	require.NoError(t, mem.IncrementMatchCount(ctx, "busy"))

	patterns, err := proc.Patterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "busy", patterns[0].ID)

	require.NoError(t, proc.DeletePattern(ctx, "quiet"))
	patterns, _ = proc.Patterns(ctx)
	assert.Len(t, patterns, 1)
}

func TestProcessBatch_BackupFile(t *testing.T) {
	cfg := source.DefaultConfig()
	cfg.Location = ist
	msgs, _, err := source.ReadFile(context.Background(), "../../testdata/sms_backup.xml", cfg)
	require.NoError(t, err)
	require.Len(t, msgs, 5)

	proc, mem := newProcessor(t)
	results, summary, err := proc.ProcessBatch(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.Count(StatusRecorded))
	assert.Equal(t, 1, summary.Count(StatusDuplicate))
	assert.Equal(t, 2, summary.Count(StatusRejected))
	assert.Nil(t, summary.Errors)
	assert.Equal(t, "5 messages, 2 recorded, 1 duplicate, 2 rejected", summary.String())

	// input order decides which copy is kept
	assert.Equal(t, StatusRecorded, results[0].Status)
	assert.Equal(t, StatusDuplicate, results[1].Status)
	assert.Equal(t, results[0].Transaction.ID, results[1].DuplicateOf)
	assert.Equal(t, models.KindCredit, results[3].Transaction.Kind)

	all, _ := mem.ListTransactions(context.Background())
	assert.Len(t, all, 2)
}

func TestProcessBatch_Cancelled(t *testing.T) {
	proc, mem := newProcessor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, summary, err := proc.ProcessBatch(ctx, []models.RawMessage{msg(scenarioA, received)})
	require.Error(t, err)
	te, ok := errors.AsTrackerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeCancelled, te.Code)
	assert.Empty(t, results)
	assert.Zero(t, summary.Total)

	all, _ := mem.ListTransactions(context.Background())
	assert.Empty(t, all)
}

func TestProcess_DecisionKept(t *testing.T) {
	proc, _ := newProcessor(t)

	res, err := proc.Process(context.Background(), msg("Use code SAVE50 for 50% off! Visit https://bit.ly/xyz T&C apply", received))
	require.NoError(t, err)
	assert.False(t, res.Decision.Accepted)
	assert.Equal(t, classify.Cascade().Kind, res.Decision.Policy.Kind)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{Workers: 0}).Validate())
	assert.Error(t, (&Config{Workers: 1, ProgressInterval: -time.Second}).Validate())
}
