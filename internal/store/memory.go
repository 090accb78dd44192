package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/pkg/errors"

	"github.com/google/uuid"
)

// Memory is an in-process Store safe for concurrent use
type Memory struct {
	mu           sync.RWMutex
	transactions map[string]*models.Transaction
	txOrder      []string
	patterns     map[string]*models.ExclusionPattern
	patternOrder []string
	now          func() time.Time
	newID        func() string
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[string]*models.Transaction),
		patterns:     make(map[string]*models.ExclusionPattern),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// SetClock replaces the time source used for CreatedAt
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) clock() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now()
}

func (m *Memory) SaveTransaction(ctx context.Context, t *models.Transaction) error {
	if t == nil {
		return errors.ValidationError(errors.CodeMissingField, "transaction", nil, nil)
	}
	if err := t.Validate(); err != nil {
		return errors.ValidationError(errors.CodeInvalidData, "transaction", t.String(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = m.newID()
	}
	if _, exists := m.transactions[t.ID]; exists {
		return errors.StorageError(errors.CodeAlreadyExists, "save transaction", t.ID, nil)
	}

	m.transactions[t.ID] = t.Clone()
	m.txOrder = append(m.txOrder, t.ID)
	return nil
}

func (m *Memory) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transactions[id]
	if !ok {
		return nil, errors.StorageError(errors.CodeNotFound, "get transaction", id, nil)
	}
	return t.Clone(), nil
}

func (m *Memory) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	if t == nil {
		return errors.ValidationError(errors.CodeMissingField, "transaction", nil, nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[t.ID]; !ok {
		return errors.StorageError(errors.CodeNotFound, "update transaction", t.ID, nil)
	}
	m.transactions[t.ID] = t.Clone()
	return nil
}

func (m *Memory) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return m.selectTransactions(func(*models.Transaction) bool { return true }), nil
}

func (m *Memory) FindTransactionsInWindow(ctx context.Context, start, end time.Time) ([]*models.Transaction, error) {
	out := m.selectTransactions(func(t *models.Transaction) bool {
		return !t.OccurredAt.Before(start) && !t.OccurredAt.After(end)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (m *Memory) FindByFingerprint(ctx context.Context, fingerprint string) ([]*models.Transaction, error) {
	if fingerprint == "" {
		return nil, nil
	}
	return m.selectTransactions(func(t *models.Transaction) bool { return t.Fingerprint == fingerprint }), nil
}

func (m *Memory) selectTransactions(keep func(*models.Transaction) bool) []*models.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Transaction
	for _, id := range m.txOrder {
		if t := m.transactions[id]; keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (m *Memory) SavePattern(ctx context.Context, p *models.ExclusionPattern) error {
	if p == nil {
		return errors.ValidationError(errors.CodeMissingField, "pattern", nil, nil)
	}
	if err := p.Validate(); err != nil {
		return errors.ValidationError(errors.CodeInvalidPattern, "pattern", p.String(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = m.newID()
	}
	if _, exists := m.patterns[p.ID]; exists {
		return errors.StorageError(errors.CodeAlreadyExists, "save pattern", p.ID, nil)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
	}

	m.patterns[p.ID] = p.Clone()
	m.patternOrder = append(m.patternOrder, p.ID)
	return nil
}

func (m *Memory) GetPattern(ctx context.Context, id string) (*models.ExclusionPattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.patterns[id]
	if !ok {
		return nil, errors.StorageError(errors.CodeNotFound, "get pattern", id, nil)
	}
	return p.Clone(), nil
}

func (m *Memory) FindActiveExclusionPatterns(ctx context.Context) ([]*models.ExclusionPattern, error) {
	out := m.selectPatterns(func(p *models.ExclusionPattern) bool { return p.Active })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListExclusionPatterns(ctx context.Context) ([]*models.ExclusionPattern, error) {
	return m.selectPatterns(func(*models.ExclusionPattern) bool { return true }), nil
}

func (m *Memory) selectPatterns(keep func(*models.ExclusionPattern) bool) []*models.ExclusionPattern {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.ExclusionPattern
	for _, id := range m.patternOrder {
		if p := m.patterns[id]; keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (m *Memory) IncrementMatchCount(ctx context.Context, id string) error {
	return m.mutatePattern("increment match count", id, func(p *models.ExclusionPattern) { p.MatchCount++ })
}

func (m *Memory) DeactivatePattern(ctx context.Context, id string) error {
	return m.mutatePattern("deactivate pattern", id, func(p *models.ExclusionPattern) { p.Active = false })
}

func (m *Memory) mutatePattern(op, id string, fn func(*models.ExclusionPattern)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patterns[id]
	if !ok {
		return errors.StorageError(errors.CodeNotFound, op, id, nil)
	}
	fn(p)
	return nil
}

func (m *Memory) DeletePattern(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.patterns[id]; !ok {
		return errors.StorageError(errors.CodeNotFound, "delete pattern", id, nil)
	}
	delete(m.patterns, id)
	for i, pid := range m.patternOrder {
		if pid == id {
			m.patternOrder = append(m.patternOrder[:i], m.patternOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}

// snapshot copies every record in insertion order
func (m *Memory) snapshot() ([]*models.Transaction, []*models.ExclusionPattern) {
	txs := m.selectTransactions(func(*models.Transaction) bool { return true })
	patterns := m.selectPatterns(func(*models.ExclusionPattern) bool { return true })
	return txs, patterns
}

// restore inserts records with their stored IDs, replacing any present
func (m *Memory) restore(txs []*models.Transaction, patterns []*models.ExclusionPattern) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range txs {
		if t == nil || t.ID == "" {
			continue
		}
		if _, exists := m.transactions[t.ID]; !exists {
			m.txOrder = append(m.txOrder, t.ID)
		}
		m.transactions[t.ID] = t.Clone()
	}
	for _, p := range patterns {
		if p == nil || p.ID == "" {
			continue
		}
		if _, exists := m.patterns[p.ID]; !exists {
			m.patternOrder = append(m.patternOrder, p.ID)
		}
		m.patterns[p.ID] = p.Clone()
	}
}
