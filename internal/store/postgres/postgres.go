// Package postgres is the PostgreSQL implementation of store.Store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE of a duplicate key
const uniqueViolation = "23505"

// Schema creates the tables when missing
const Schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id                   TEXT PRIMARY KEY,
	bank                 TEXT NOT NULL,
	kind                 TEXT NOT NULL,
	amount               NUMERIC(14, 2) NOT NULL,
	occurred_at          TIMESTAMPTZ NOT NULL,
	received_at          TIMESTAMPTZ,
	sender               TEXT NOT NULL DEFAULT '',
	merchant             TEXT NOT NULL DEFAULT '',
	method               TEXT NOT NULL,
	reference            TEXT NOT NULL DEFAULT '',
	category             TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	fingerprint          TEXT NOT NULL,
	is_recurring         BOOLEAN NOT NULL DEFAULT FALSE,
	is_excluded          BOOLEAN NOT NULL DEFAULT FALSE,
	exclusion_pattern_id TEXT NOT NULL DEFAULT '',
	duplicate_of_id      TEXT NOT NULL DEFAULT '',
	needs_review         BOOLEAN NOT NULL DEFAULT FALSE,
	original_text        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS transactions_occurred_at_idx ON transactions (occurred_at);
CREATE INDEX IF NOT EXISTS transactions_fingerprint_idx ON transactions (fingerprint);

CREATE TABLE IF NOT EXISTS exclusion_patterns (
	id                    TEXT PRIMARY KEY,
	merchant_pattern      TEXT NOT NULL DEFAULT '',
	description_pattern   TEXT NOT NULL DEFAULT '',
	min_amount            NUMERIC(14, 2) NOT NULL,
	max_amount            NUMERIC(14, 2) NOT NULL,
	kind                  TEXT NOT NULL,
	category              TEXT NOT NULL DEFAULT '',
	source_transaction_id TEXT NOT NULL DEFAULT '',
	active                BOOLEAN NOT NULL DEFAULT TRUE,
	created_at            TIMESTAMPTZ NOT NULL,
	match_count           INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS exclusion_patterns_active_idx ON exclusion_patterns (active, created_at);
`

const transactionColumns = `id, bank, kind, amount, occurred_at, received_at, sender, merchant, method,
	reference, category, description, fingerprint, is_recurring, is_excluded,
	exclusion_pattern_id, duplicate_of_id, needs_review, original_text`

const patternColumns = `id, merchant_pattern, description_pattern, min_amount, max_amount, kind,
	category, source_transaction_id, active, created_at, match_count`

// Store keeps transactions and patterns in PostgreSQL
type Store struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

// Open connects to dsn, checks the connection and applies Schema
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "open database", "", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "ping database", "", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database handle
func New(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: logger.GetGlobalLogger().WithComponent("store").WithField("backend", "postgres"),
		now:    time.Now,
	}
}

// Migrate applies Schema
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "migrate", "schema", err)
	}
	s.logger.Debug("Schema applied")
	return nil
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveTransaction(ctx context.Context, t *models.Transaction) error {
	if t == nil {
		return errors.ValidationError(errors.CodeMissingField, "transaction", nil, nil)
	}
	if err := t.Validate(); err != nil {
		return errors.ValidationError(errors.CodeInvalidData, "transaction", t.String(), err)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := s.db.ExecContext(ctx, query, transactionArgs(t)...)
	return translate(err, "save transaction", t.ID)
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(err, "get transaction", id)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	if t == nil {
		return errors.ValidationError(errors.CodeMissingField, "transaction", nil, nil)
	}

	query := `UPDATE transactions SET
		bank = $2, kind = $3, amount = $4, occurred_at = $5, received_at = $6, sender = $7,
		merchant = $8, method = $9, reference = $10, category = $11, description = $12,
		fingerprint = $13, is_recurring = $14, is_excluded = $15, exclusion_pattern_id = $16,
		duplicate_of_id = $17, needs_review = $18, original_text = $19
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, transactionArgs(t)...)
	return affected(res, err, "update transaction", t.ID)
}

func (s *Store) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY occurred_at, id`
	return s.queryTransactions(ctx, "list transactions", query)
}

func (s *Store) FindTransactionsInWindow(ctx context.Context, start, end time.Time) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE occurred_at BETWEEN $1 AND $2
		ORDER BY occurred_at, id`
	return s.queryTransactions(ctx, "find transactions in window", query, start, end)
}

func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) ([]*models.Transaction, error) {
	if fingerprint == "" {
		return nil, nil
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE fingerprint = $1 ORDER BY occurred_at, id`
	return s.queryTransactions(ctx, "find by fingerprint", query, fingerprint)
}

func (s *Store) queryTransactions(ctx context.Context, op, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, op, "")
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, translate(err, op, "")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, op, "")
	}
	return out, nil
}

func (s *Store) SavePattern(ctx context.Context, p *models.ExclusionPattern) error {
	if p == nil {
		return errors.ValidationError(errors.CodeMissingField, "pattern", nil, nil)
	}
	if err := p.Validate(); err != nil {
		return errors.ValidationError(errors.CodeInvalidPattern, "pattern", p.String(), err)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}

	query := `INSERT INTO exclusion_patterns (` + patternColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.MerchantPattern, p.DescriptionPattern, p.MinAmount, p.MaxAmount, string(p.Kind),
		string(p.Category), p.SourceTransactionID, p.Active, p.CreatedAt, p.MatchCount,
	)
	return translate(err, "save pattern", p.ID)
}

func (s *Store) GetPattern(ctx context.Context, id string) (*models.ExclusionPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM exclusion_patterns WHERE id = $1`

	p, err := scanPattern(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(err, "get pattern", id)
	}
	return p, nil
}

func (s *Store) FindActiveExclusionPatterns(ctx context.Context) ([]*models.ExclusionPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM exclusion_patterns WHERE active ORDER BY created_at, id`
	return s.queryPatterns(ctx, "find active patterns", query)
}

func (s *Store) ListExclusionPatterns(ctx context.Context) ([]*models.ExclusionPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM exclusion_patterns ORDER BY created_at, id`
	return s.queryPatterns(ctx, "list patterns", query)
}

func (s *Store) queryPatterns(ctx context.Context, op, query string) ([]*models.ExclusionPattern, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, op, "")
	}
	defer rows.Close()

	var out []*models.ExclusionPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, translate(err, op, "")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, op, "")
	}
	return out, nil
}

func (s *Store) IncrementMatchCount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE exclusion_patterns SET match_count = match_count + 1 WHERE id = $1`, id)
	return affected(res, err, "increment match count", id)
}

func (s *Store) DeactivatePattern(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE exclusion_patterns SET active = FALSE WHERE id = $1`, id)
	return affected(res, err, "deactivate pattern", id)
}

func (s *Store) DeletePattern(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exclusion_patterns WHERE id = $1`, id)
	return affected(res, err, "delete pattern", id)
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func transactionArgs(t *models.Transaction) []any {
	return []any{
		t.ID, string(t.Bank), string(t.Kind), t.Amount, t.OccurredAt, nullTime(t.ReceivedAt), t.Sender,
		t.Merchant, string(t.Method), t.Reference, string(t.Category), t.Description, t.Fingerprint,
		t.IsRecurring, t.IsExcluded, t.ExclusionPatternID, t.DuplicateOfID, t.NeedsReview, t.OriginalText,
	}
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	var t models.Transaction
	var bank, kind, method, category string
	var received sql.NullTime

	err := row.Scan(
		&t.ID, &bank, &kind, &t.Amount, &t.OccurredAt, &received, &t.Sender,
		&t.Merchant, &method, &t.Reference, &category, &t.Description, &t.Fingerprint,
		&t.IsRecurring, &t.IsExcluded, &t.ExclusionPatternID, &t.DuplicateOfID, &t.NeedsReview, &t.OriginalText,
	)
	if err != nil {
		return nil, err
	}

	t.Bank = models.BankCode(bank)
	t.Kind = models.TransactionKind(kind)
	t.Method = models.TransactionMethod(method)
	t.Category = models.Category(category)
	if received.Valid {
		t.ReceivedAt = received.Time
	}
	return &t, nil
}

func scanPattern(row scanner) (*models.ExclusionPattern, error) {
	var p models.ExclusionPattern
	var kind, category string

	err := row.Scan(
		&p.ID, &p.MerchantPattern, &p.DescriptionPattern, &p.MinAmount, &p.MaxAmount, &kind,
		&category, &p.SourceTransactionID, &p.Active, &p.CreatedAt, &p.MatchCount,
	)
	if err != nil {
		return nil, err
	}

	p.Kind = models.TransactionKind(kind)
	p.Category = models.Category(category)
	return &p, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// translate maps driver errors onto storage errors. A nil err stays nil.
func translate(err error, op, key string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return errors.StorageError(errors.CodeNotFound, op, key, err)
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return errors.StorageError(errors.CodeAlreadyExists, op, key, err)
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return errors.InternalError(errors.CodeCancelled, op, err)
	}
	return errors.StorageError(errors.CodeQueryFailed, op, key, fmt.Errorf("%s: %w", op, err))
}

// affected turns a zero-row update into a not-found error
func affected(res sql.Result, err error, op, key string) error {
	if err != nil {
		return translate(err, op, key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, op, key)
	}
	if n == 0 {
		return errors.StorageError(errors.CodeNotFound, op, key, nil)
	}
	return nil
}
