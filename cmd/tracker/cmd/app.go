package cmd

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"sms-expense-tracker/cmd/tracker/config"
	"sms-expense-tracker/internal/ingest"
	"sms-expense-tracker/internal/pipeline"
	"sms-expense-tracker/internal/store"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"
)

// app holds the components one command works with
type app struct {
	config    *config.Config
	pipeline  *pipeline.Pipeline
	store     store.Store
	processor *ingest.Processor
	logger    logger.Logger
}

// newApp loads the configuration and opens the store. A memory store is
// used instead of the configured one when ephemeral is set.
func newApp(ctx context.Context, ephemeral bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if ephemeral {
		cfg.Store = config.StoreConfig{Kind: string(store.KindMemory)}
	}

	p, err := cfg.Pipeline()
	if err != nil {
		return nil, err
	}
	s, err := cfg.OpenStore(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.GetGlobalLogger().WithComponent("cli")
	log.WithFields(logger.Fields{
		"store":  cfg.Store.Kind,
		"policy": cfg.Classifier.Policy,
	}).Debug("Application ready")

	return &app{
		config:    cfg,
		pipeline:  p,
		store:     s,
		processor: ingest.New(p, s, cfg.IngestConfig()),
		logger:    log,
	}, nil
}

// Close releases the store
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close store")
	}
}

// parseDay reads a YYYY-MM-DD flag as midnight in the configured zone
func (a *app) parseDay(flag, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	loc, err := a.config.Location()
	if err != nil {
		return time.Time{}, err
	}
	day, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, errors.ValidationError(errors.CodeInvalidDate, flag, value, err).
			WithSuggestion("use the YYYY-MM-DD format")
	}
	return day, nil
}

// dayRange parses --since and --until; until is inclusive, so the returned
// end is the start of the following day
func (a *app) dayRange(since, until string) (time.Time, time.Time, error) {
	start, err := a.parseDay("since", since)
	if err != nil {
		return start, start, err
	}
	end, err := a.parseDay("until", until)
	if err != nil {
		return start, end, err
	}
	if !end.IsZero() {
		end = end.AddDate(0, 0, 1)
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return start, end, errors.ValidationError(errors.CodeOutOfRange, "since", since, nil).
			WithSuggestion("since must not be after until")
	}
	return start, end, nil
}

// openOutput returns the writer a report goes to. An empty path is the
// command's stdout.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		code := errors.CodeFileNotFound
		if os.IsPermission(err) {
			code = errors.CodeFilePermission
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInput, code, "cannot create output file: "+path).
			WithSuggestion("check the output directory exists and is writable")
	}
	return f, func() { f.Close() }, nil
}
