package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"

	"gopkg.in/yaml.v3"
)

const documentVersion = 1

// document is the on-disk layout of a FileStore
type document struct {
	Version      int                        `yaml:"version"`
	SavedAt      time.Time                  `yaml:"saved_at"`
	Transactions []*models.Transaction      `yaml:"transactions"`
	Patterns     []*models.ExclusionPattern `yaml:"patterns"`
}

// FileStore is a Memory that rewrites a YAML file after every change.
// Writes go to a temporary file that is renamed over the target.
type FileStore struct {
	*Memory
	path   string
	mu     sync.Mutex
	logger logger.Logger
}

// OpenFile loads path, creating an empty store when it does not exist
func OpenFile(path string) (*FileStore, error) {
	fs := &FileStore{
		Memory: NewMemory(),
		path:   path,
		logger: logger.GetGlobalLogger().WithComponent("store").WithField("path", path),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		fs.logger.Debug("Store file not found, starting empty")
		return fs, nil
	case err != nil:
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "open store", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "decode store", path, err).
			WithSuggestion("the store file is not valid YAML; restore a backup or remove it")
	}
	if doc.Version > documentVersion {
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "open store", path, nil).
			WithSuggestion("the store was written by a newer version of tracker")
	}

	fs.Memory.restore(doc.Transactions, doc.Patterns)
	fs.logger.WithFields(logger.Fields{
		"transactions": len(doc.Transactions),
		"patterns":     len(doc.Patterns),
	}).Debug("Loaded store")

	return fs, nil
}

// Path returns the backing file
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) SaveTransaction(ctx context.Context, t *models.Transaction) error {
	if err := f.Memory.SaveTransaction(ctx, t); err != nil {
		return err
	}
	return f.flush()
}

func (f *FileStore) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	if err := f.Memory.UpdateTransaction(ctx, t); err != nil {
		return err
	}
	return f.flush()
}

func (f *FileStore) SavePattern(ctx context.Context, p *models.ExclusionPattern) error {
	if err := f.Memory.SavePattern(ctx, p); err != nil {
		return err
	}
	return f.flush()
}

func (f *FileStore) IncrementMatchCount(ctx context.Context, id string) error {
	if err := f.Memory.IncrementMatchCount(ctx, id); err != nil {
		return err
	}
	return f.flush()
}

func (f *FileStore) DeactivatePattern(ctx context.Context, id string) error {
	if err := f.Memory.DeactivatePattern(ctx, id); err != nil {
		return err
	}
	return f.flush()
}

func (f *FileStore) DeletePattern(ctx context.Context, id string) error {
	if err := f.Memory.DeletePattern(ctx, id); err != nil {
		return err
	}
	return f.flush()
}

// Close writes the store one last time
func (f *FileStore) Close() error {
	return f.flush()
}

func (f *FileStore) flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	txs, patterns := f.Memory.snapshot()
	doc := document{
		Version:      documentVersion,
		SavedAt:      f.Memory.clock().UTC(),
		Transactions: txs,
		Patterns:     patterns,
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "encode store", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.StorageError(errors.CodeStorageUnavailable, "write store", f.path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tracker-store-*")
	if err != nil {
		return errors.StorageError(errors.CodeStorageUnavailable, "write store", f.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.StorageError(errors.CodeStorageUnavailable, "write store", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.StorageError(errors.CodeStorageUnavailable, "write store", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errors.StorageError(errors.CodeStorageUnavailable, "write store", f.path, err)
	}

	return nil
}
