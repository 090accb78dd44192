// Package pipeline wires the extractors, classifier, description composer,
// fingerprint generator, duplicate scorer and exclusion engine into the entry
// points callers use. Every entry point is pure: nothing here reads or
// writes storage, logs, or returns an error.
package pipeline

import (
	"sms-expense-tracker/internal/classify"
	"sms-expense-tracker/internal/describe"
	"sms-expense-tracker/internal/dictionary"
	"sms-expense-tracker/internal/duplicate"
	"sms-expense-tracker/internal/exclusion"
	"sms-expense-tracker/internal/extract"
	"sms-expense-tracker/internal/fingerprint"
	"sms-expense-tracker/internal/models"
)

// Options configure a Pipeline. Nil fields take their package defaults.
type Options struct {
	Dictionary *dictionary.Dictionary
	Classifier *classify.Config
	Hasher     fingerprint.Hasher
	Duplicate  *duplicate.Config
	Exclusion  *exclusion.Config
}

// Pipeline holds one instance of every core component.
type Pipeline struct {
	extractor   *extract.Extractor
	classifier  *classify.Classifier
	composer    *describe.Composer
	fingerprint *fingerprint.Generator
	duplicates  *duplicate.Detector
	builder     *exclusion.Builder
	matcher     *exclusion.Matcher
}

// New builds a pipeline from opts.
func New(opts Options) *Pipeline {
	extractor := extract.New(opts.Dictionary)
	dup := duplicate.New(opts.Duplicate)

	return &Pipeline{
		extractor:   extractor,
		classifier:  classify.New(extractor, opts.Classifier),
		composer:    describe.New(extractor.Dictionary()),
		fingerprint: fingerprint.New(opts.Hasher, dup.Config().Location),
		duplicates:  dup,
		builder:     exclusion.NewBuilder(opts.Exclusion),
		matcher:     exclusion.NewMatcher(opts.Exclusion),
	}
}

// Default returns a pipeline with every default.
func Default() *Pipeline {
	return New(Options{})
}

// Classifier returns the message classifier.
func (p *Pipeline) Classifier() *classify.Classifier { return p.classifier }

// Duplicates returns the duplicate detector.
func (p *Pipeline) Duplicates() *duplicate.Detector { return p.duplicates }

// Builder returns the exclusion pattern builder.
func (p *Pipeline) Builder() *exclusion.Builder { return p.builder }

// Matcher returns the exclusion pattern matcher.
func (p *Pipeline) Matcher() *exclusion.Matcher { return p.matcher }

// ClassifyAndExtract classifies msg and, when it is accepted and carries an
// amount, returns the extracted transaction. The decision is returned either
// way so callers can explain a rejection. The receipt time is moved into
// the pipeline's zone first, so dates without a time fall on the same
// calendar day the fingerprint uses.
func (p *Pipeline) ClassifyAndExtract(msg models.RawMessage) (*models.Transaction, classify.Decision) {
	if !msg.HasText() {
		return nil, p.classifier.Classify(msg)
	}
	if !msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = msg.ReceivedAt.In(p.fingerprint.Location())
	}

	fields := p.extractor.All(msg)
	decision := p.classifier.Decide(msg.Text, fields)
	if !decision.Accepted || !fields.Amount.Found {
		return nil, decision
	}

	t := &models.Transaction{
		Bank:         fields.Bank.Value,
		Kind:         fields.Kind.Value,
		Amount:       fields.Amount.Value,
		OccurredAt:   fields.Date.Value,
		ReceivedAt:   msg.ReceivedAt,
		Sender:       msg.Sender,
		Merchant:     fields.Merchant.Value,
		Method:       fields.Method.Value,
		Reference:    fields.Reference.Value,
		Category:     fields.Category.Value,
		Description:  p.composer.Describe(msg.Text, fields),
		IsRecurring:  fields.Recurring,
		OriginalText: msg.Text,
	}
	t.Fingerprint = p.fingerprint.Transaction(t)
	return t, decision
}

// Fingerprint returns the exact-duplicate key of t.
func (p *Pipeline) Fingerprint(t *models.Transaction) string {
	return p.fingerprint.Transaction(t)
}

// DuplicateScore returns the 0 to 100 duplicate score of a and b.
func (p *Pipeline) DuplicateScore(a, b *models.Transaction) int {
	return p.duplicates.Score(a, b)
}

// BuildPattern learns an exclusion pattern from t.
func (p *Pipeline) BuildPattern(t *models.Transaction) *models.ExclusionPattern {
	return p.builder.Build(t)
}

// PatternMatchScore returns the 0 to 100 score of t against pattern.
func (p *Pipeline) PatternMatchScore(t *models.Transaction, pattern *models.ExclusionPattern) int {
	return p.matcher.Score(t, pattern)
}
