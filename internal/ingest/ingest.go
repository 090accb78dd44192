// Package ingest turns raw messages into stored transactions.
//
// A Processor runs every message through the classification pipeline, then
// checks the result against stored transactions for duplicates and against
// active exclusion patterns before saving it. It also applies the manual
// decisions a user makes afterwards: excluding a transaction (which learns
// a pattern from it) or including it again.
//
// Example usage:
//
//	proc := ingest.New(pipeline.Default(), store.NewMemory(), nil)
//	results, summary, err := proc.ProcessBatch(ctx, messages)
//	fmt.Println(summary)
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"sms-expense-tracker/internal/classify"
	"sms-expense-tracker/internal/duplicate"
	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/internal/pipeline"
	"sms-expense-tracker/internal/store"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"

	"github.com/sourcegraph/conc/pool"
)

// Status is the outcome of processing one message
type Status string

const (
	// StatusRejected means the message is not a transaction
	StatusRejected Status = "rejected"
	// StatusDuplicate means a stored transaction already records it; it
	// was not saved again
	StatusDuplicate Status = "duplicate"
	// StatusPotentialDuplicate means it was saved and flagged for review
	StatusPotentialDuplicate Status = "potential_duplicate"
	// StatusExcluded means it was saved and excluded by a pattern
	StatusExcluded Status = "excluded"
	// StatusRecorded means it was saved as a new transaction
	StatusRecorded Status = "recorded"
	// StatusFailed means a storage error stopped it
	StatusFailed Status = "failed"
)

// Statuses lists every status in report order
var Statuses = []Status{
	StatusRecorded, StatusExcluded, StatusPotentialDuplicate,
	StatusDuplicate, StatusRejected, StatusFailed,
}

// Result is the outcome of one message
type Result struct {
	Message        models.RawMessage   `json:"message"`
	Decision       classify.Decision   `json:"decision"`
	Transaction    *models.Transaction `json:"transaction,omitempty"`
	Status         Status              `json:"status"`
	DuplicateOf    string              `json:"duplicate_of,omitempty"`
	DuplicateScore int                 `json:"duplicate_score,omitempty"`
	PatternID      string              `json:"pattern_id,omitempty"`
	PatternScore   int                 `json:"pattern_score,omitempty"`
	Err            error               `json:"-"`
}

// Saved reports whether the transaction was written to the store
func (r *Result) Saved() bool {
	switch r.Status {
	case StatusRecorded, StatusExcluded, StatusPotentialDuplicate:
		return true
	}
	return false
}

// Summary aggregates a batch
type Summary struct {
	Total    int                  `json:"total"`
	ByStatus map[Status]int       `json:"by_status"`
	Duration time.Duration        `json:"duration"`
	Errors   *errors.ErrorSummary `json:"errors,omitempty"`
}

// Count returns the number of results with status s
func (s *Summary) Count(status Status) int {
	return s.ByStatus[status]
}

// String renders the non-zero counts in report order
func (s *Summary) String() string {
	parts := []string{fmt.Sprintf("%d messages", s.Total)}
	for _, status := range Statuses {
		if n := s.ByStatus[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ReplaceAll(string(status), "_", " ")))
		}
	}
	return strings.Join(parts, ", ")
}

// Config configures a Processor
type Config struct {
	// Workers bounds parallel classification in ProcessBatch
	Workers int
	// ProgressInterval is how often batch progress is logged
	ProgressInterval time.Duration
}

// DefaultConfig uses one worker per CPU
func DefaultConfig() *Config {
	return &Config{
		Workers:          runtime.NumCPU(),
		ProgressInterval: 5 * time.Second,
	}
}

// Validate checks the worker count
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ProgressInterval < 0 {
		return fmt.Errorf("progress interval cannot be negative")
	}
	return nil
}

// Processor stores the transactions found in messages
type Processor struct {
	pipeline *pipeline.Pipeline
	store    store.Store
	config   *Config
	logger   logger.Logger
}

// New creates a processor. Nil pipeline and config take their defaults.
func New(p *pipeline.Pipeline, s store.Store, config *Config) *Processor {
	if p == nil {
		p = pipeline.Default()
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}

	return &Processor{
		pipeline: p,
		store:    s,
		config:   config,
		logger:   logger.GetGlobalLogger().WithComponent("ingest"),
	}
}

// Pipeline returns the classification pipeline
func (p *Processor) Pipeline() *pipeline.Pipeline {
	return p.pipeline
}

// Store returns the backing store
func (p *Processor) Store() store.Store {
	return p.store
}

// Process classifies msg and records the transaction it carries
func (p *Processor) Process(ctx context.Context, msg models.RawMessage) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.InternalError(errors.CodeCancelled, "process message", err)
	}

	tx, decision := p.pipeline.ClassifyAndExtract(msg)
	res := &Result{Message: msg, Decision: decision, Transaction: tx}
	if err := p.record(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// ProcessBatch classifies msgs in parallel, then records them one at a time
// in input order so later messages see the earlier ones as duplicates.
// Storage errors fail the message, not the batch; only cancellation stops
// it early, returning the results gathered so far.
func (p *Processor) ProcessBatch(ctx context.Context, msgs []models.RawMessage) ([]*Result, *Summary, error) {
	start := time.Now()
	log := p.logger.WithFields(logger.Fields{"messages": len(msgs), "workers": p.config.Workers})
	log.Info("Processing batch")

	results := make([]*Result, len(msgs))
	wp := pool.New().WithMaxGoroutines(p.config.Workers)
	for i := range msgs {
		i := i
		wp.Go(func() {
			if ctx.Err() != nil {
				return
			}
			tx, decision := p.pipeline.ClassifyAndExtract(msgs[i])
			results[i] = &Result{Message: msgs[i], Decision: decision, Transaction: tx}
		})
	}
	wp.Wait()

	progress := logger.NewProgressTracker(logger.ProgressConfig{
		Operation:   "ingest",
		Total:       int64(len(msgs)),
		LogInterval: p.config.ProgressInterval,
		Logger:      p.logger,
	})
	collector := errors.NewCollector(0)

	for i, res := range results {
		if err := ctx.Err(); err != nil {
			cerr := errors.InternalError(errors.CodeCancelled, "process batch", err)
			progress.Complete(cerr)
			return results[:i], p.summarize(results[:i], collector, start), cerr
		}

		if err := p.record(ctx, res); err != nil {
			collector.Add(errors.WrapIfNeeded(err, errors.CategoryStorage, errors.CodeQueryFailed, "record transaction"))
		}
		progress.Record(string(res.Status))
	}

	progress.Complete(nil)
	summary := p.summarize(results, collector, start)
	log.WithField("summary", summary.String()).Info("Batch processed")
	return results, summary, nil
}

func (p *Processor) summarize(results []*Result, collector *errors.Collector, start time.Time) *Summary {
	s := &Summary{
		Total:    len(results),
		ByStatus: make(map[Status]int),
		Duration: time.Since(start),
	}
	for _, r := range results {
		s.ByStatus[r.Status]++
	}
	if collector.HasErrors() {
		s.Errors = collector.Summary()
	}
	return s
}

// record runs the store-facing checks for res and saves its transaction
func (p *Processor) record(ctx context.Context, res *Result) error {
	if res.Transaction == nil {
		res.Status = StatusRejected
		return nil
	}
	tx := res.Transaction
	log := p.logger.WithFields(logger.Fields{
		"amount":   tx.Amount.StringFixed(2),
		"kind":     tx.Kind,
		"merchant": tx.Merchant,
	})

	if err := p.checkDuplicates(ctx, res); err != nil {
		return p.fail(res, err)
	}
	if res.Status == StatusDuplicate {
		log.WithField("duplicate_of", res.DuplicateOf).Debug("Skipping duplicate")
		return nil
	}

	if err := p.applyPatterns(ctx, res); err != nil {
		return p.fail(res, err)
	}

	if err := p.store.SaveTransaction(ctx, tx); err != nil {
		return p.fail(res, err)
	}

	if res.PatternID != "" {
		if err := p.store.IncrementMatchCount(ctx, res.PatternID); err != nil {
			log.WithError(err).Warn("Failed to count pattern match")
		}
	}

	switch {
	case tx.IsExcluded:
		res.Status = StatusExcluded
	case tx.NeedsReview:
		res.Status = StatusPotentialDuplicate
	default:
		res.Status = StatusRecorded
	}
	log.WithFields(logger.Fields{"id": tx.ID, "status": res.Status}).Debug("Recorded transaction")
	return nil
}

func (p *Processor) fail(res *Result, err error) error {
	res.Status = StatusFailed
	res.Err = err
	p.logger.WithError(err).Error("Failed to record transaction")
	return err
}

// checkDuplicates marks res a duplicate on a fingerprint hit or a high
// confidence score, and flags the transaction for review on a potential
// one.
func (p *Processor) checkDuplicates(ctx context.Context, res *Result) error {
	tx := res.Transaction

	same, err := p.store.FindByFingerprint(ctx, tx.Fingerprint)
	if err != nil {
		return err
	}
	if len(same) > 0 {
		res.Status = StatusDuplicate
		res.DuplicateOf = same[0].ID
		res.DuplicateScore = 100
		return nil
	}

	start, end := p.pipeline.Duplicates().Window(tx)
	candidates, err := p.store.FindTransactionsInWindow(ctx, start, end)
	if err != nil {
		return err
	}

	best, ok := p.pipeline.Duplicates().Best(tx, candidates)
	if !ok {
		return nil
	}

	res.DuplicateOf = best.Candidate.ID
	res.DuplicateScore = best.Score
	if best.Level == duplicate.LevelHighConfidence {
		res.Status = StatusDuplicate
		return nil
	}

	tx.NeedsReview = true
	tx.DuplicateOfID = best.Candidate.ID
	return nil
}

func (p *Processor) applyPatterns(ctx context.Context, res *Result) error {
	patterns, err := p.store.FindActiveExclusionPatterns(ctx)
	if err != nil {
		return err
	}

	match, ok := p.pipeline.Matcher().Best(res.Transaction, patterns)
	if !ok {
		return nil
	}

	res.Transaction.IsExcluded = true
	res.Transaction.ExclusionPatternID = match.Pattern.ID
	res.PatternID = match.Pattern.ID
	res.PatternScore = match.Score
	return nil
}

// ExcludeManually excludes a stored transaction and learns a pattern from
// it so similar transactions are excluded on arrival.
func (p *Processor) ExcludeManually(ctx context.Context, transactionID string) (*models.ExclusionPattern, error) {
	tx, err := p.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	pattern := p.pipeline.BuildPattern(tx)
	if pattern == nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "build pattern", nil)
	}
	if err := p.store.SavePattern(ctx, pattern); err != nil {
		return nil, err
	}

	tx.IsExcluded = true
	tx.ExclusionPatternID = pattern.ID
	if err := p.store.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	p.logger.WithFields(logger.Fields{
		"transaction": tx.ID,
		"pattern":     pattern.ID,
		"merchant":    pattern.MerchantPattern,
		"band":        pattern.MinAmount.StringFixed(2) + "-" + pattern.MaxAmount.StringFixed(2),
	}).Info("Excluded transaction and learned pattern")

	return pattern, nil
}

// IncludeManually clears the exclusion of a stored transaction. Patterns
// learned from this transaction are deactivated so they stop excluding
// its look-alikes.
func (p *Processor) IncludeManually(ctx context.Context, transactionID string) error {
	tx, err := p.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	tx.IsExcluded = false
	tx.ExclusionPatternID = ""
	if err := p.store.UpdateTransaction(ctx, tx); err != nil {
		return err
	}

	patterns, err := p.store.ListExclusionPatterns(ctx)
	if err != nil {
		return err
	}
	var deactivated []string
	for _, pat := range patterns {
		if pat.SourceTransactionID == tx.ID && pat.Active {
			if err := p.store.DeactivatePattern(ctx, pat.ID); err != nil {
				return err
			}
			deactivated = append(deactivated, pat.ID)
		}
	}

	p.logger.WithFields(logger.Fields{
		"transaction": tx.ID,
		"deactivated": deactivated,
	}).Info("Included transaction")
	return nil
}

// DeactivatePattern stops a pattern from matching without forgetting it
func (p *Processor) DeactivatePattern(ctx context.Context, id string) error {
	if err := p.store.DeactivatePattern(ctx, id); err != nil {
		return err
	}
	p.logger.WithField("pattern", id).Info("Deactivated pattern")
	return nil
}

// DeletePattern removes a pattern. Transactions it already excluded stay
// excluded.
func (p *Processor) DeletePattern(ctx context.Context, id string) error {
	if err := p.store.DeletePattern(ctx, id); err != nil {
		return err
	}
	p.logger.WithField("pattern", id).Info("Deleted pattern")
	return nil
}

// Patterns lists stored patterns, most used first
func (p *Processor) Patterns(ctx context.Context) ([]*models.ExclusionPattern, error) {
	patterns, err := p.store.ListExclusionPatterns(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(patterns, func(i, j int) bool { return patterns[i].MatchCount > patterns[j].MatchCount })
	return patterns, nil
}

// ImportPatterns saves patterns, skipping any whose ID is already stored.
// It returns how many were saved.
func (p *Processor) ImportPatterns(ctx context.Context, patterns []*models.ExclusionPattern) (int, error) {
	saved := 0
	for _, pat := range patterns {
		err := p.store.SavePattern(ctx, pat)
		if te, ok := errors.AsTrackerError(err); ok && te.Code == errors.CodeAlreadyExists {
			p.logger.WithField("pattern", pat.ID).Warn("Pattern already stored, skipping")
			continue
		}
		if err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

// FindDuplicateGroups clusters the stored transactions inside [start, end]
func (p *Processor) FindDuplicateGroups(ctx context.Context, start, end time.Time) ([]duplicate.Group, error) {
	txs, err := p.store.FindTransactionsInWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return p.pipeline.Duplicates().Group(txs), nil
}
