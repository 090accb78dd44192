// Package store persists transactions and exclusion patterns.
//
// Three implementations share the Store interface:
//   - Memory keeps everything in process, for tests and one-off scans
//   - FileStore keeps a Memory in sync with a YAML document on disk
//   - postgres.Store keeps both tables in PostgreSQL
//
// Stores hand out copies. Mutating a returned record has no effect until it
// is passed back through an Update or Save method.
package store

import (
	"context"
	"time"

	"sms-expense-tracker/internal/models"
)

// TransactionStore holds extracted transactions
type TransactionStore interface {
	// SaveTransaction inserts t, assigning an ID when it has none
	SaveTransaction(ctx context.Context, t *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)
	// FindTransactionsInWindow returns transactions whose OccurredAt lies
	// in [start, end], oldest first
	FindTransactionsInWindow(ctx context.Context, start, end time.Time) ([]*models.Transaction, error)
	FindByFingerprint(ctx context.Context, fingerprint string) ([]*models.Transaction, error)
}

// PatternStore holds exclusion patterns
type PatternStore interface {
	// SavePattern inserts p, assigning an ID and CreatedAt when unset
	SavePattern(ctx context.Context, p *models.ExclusionPattern) error
	GetPattern(ctx context.Context, id string) (*models.ExclusionPattern, error)
	// FindActiveExclusionPatterns returns active patterns, oldest first
	FindActiveExclusionPatterns(ctx context.Context) ([]*models.ExclusionPattern, error)
	ListExclusionPatterns(ctx context.Context) ([]*models.ExclusionPattern, error)
	IncrementMatchCount(ctx context.Context, id string) error
	DeactivatePattern(ctx context.Context, id string) error
	DeletePattern(ctx context.Context, id string) error
}

// Store is the full persistence contract
type Store interface {
	TransactionStore
	PatternStore
	Close() error
}

// Kind names a Store implementation
type Kind string

const (
	KindMemory   Kind = "memory"
	KindFile     Kind = "file"
	KindPostgres Kind = "postgres"
)
