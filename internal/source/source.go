// Package source reads raw SMS messages from exports on disk.
//
// Two formats are understood:
//   - XML written by the Android "SMS Backup & Restore" app
//     (<smses><sms address="..." body="..." date="..." type="1"/></smses>)
//   - CSV with a header row naming sender, body and received_at columns
//
// Unreadable records are collected as parse errors and skipped so one bad
// row does not abort an import. Reading stops once Config.MaxErrors is hit.
//
// Example usage:
//
//	cfg := source.DefaultConfig()
//	cfg.Filter.Senders = []string{"HDFCBK"}
//	msgs, stats, err := source.ReadFile(ctx, "sms-2024.xml", cfg)
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"
)

// Format is an export file layout
type Format string

const (
	FormatXML Format = "xml"
	FormatCSV Format = "csv"
)

// ParseFormat accepts a format name, ignoring case and a leading dot
func ParseFormat(s string) (Format, error) {
	switch Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")) {
	case FormatXML:
		return FormatXML, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported source format '%s': must be xml or csv", s)
	}
}

// DetectFormat picks the format from the file extension
func DetectFormat(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Filter narrows which messages are returned
type Filter struct {
	// Senders keeps messages whose sender contains any of these, ignoring
	// case. Empty keeps every sender.
	Senders []string
	// Since and Until bound ReceivedAt as [Since, Until). Messages without
	// a receipt time pass both bounds.
	Since time.Time
	Until time.Time
}

// Matches reports whether msg passes the filter
func (f Filter) Matches(msg models.RawMessage) bool {
	if len(f.Senders) > 0 {
		sender := strings.ToUpper(msg.Sender)
		found := false
		for _, s := range f.Senders {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" && strings.Contains(sender, s) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if msg.ReceivedAt.IsZero() {
		return true
	}
	if !f.Since.IsZero() && msg.ReceivedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !msg.ReceivedAt.Before(f.Until) {
		return false
	}
	return true
}

// Config configures a read
type Config struct {
	// Format overrides extension detection when set
	Format Format
	Filter Filter
	// Location is used for timestamps that carry no zone
	Location *time.Location
	// MaxErrors stops the read after this many bad records. Zero means no
	// limit.
	MaxErrors int
	// IncludeSent keeps outgoing messages from XML backups
	IncludeSent bool
}

// DefaultConfig reads inbox messages in the local zone and gives up after
// 100 bad records.
func DefaultConfig() *Config {
	return &Config{
		Location:  time.Local,
		MaxErrors: 100,
	}
}

// Stats describes one read
type Stats struct {
	Source   string                 `json:"source"`
	Records  int                    `json:"records"`
	Returned int                    `json:"returned"`
	Filtered int                    `json:"filtered"`
	Skipped  int                    `json:"skipped"`
	Errors   []*errors.TrackerError `json:"errors,omitempty"`
}

// HasErrors reports whether any record failed to parse
func (s *Stats) HasErrors() bool {
	return len(s.Errors) > 0
}

// String returns a one-line summary
func (s *Stats) String() string {
	return fmt.Sprintf("%s: %d records, %d returned, %d filtered, %d skipped, %d errors",
		s.Source, s.Records, s.Returned, s.Filtered, s.Skipped, len(s.Errors))
}

// ReadFile reads every message in path
func ReadFile(ctx context.Context, path string, cfg *Config) ([]models.RawMessage, *Stats, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	format := cfg.Format
	if format == "" {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, nil, errors.InputError(errors.CodeUnsupportedFormat, path, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, nil, errors.InputError(errors.CodeFileNotFound, path, err)
		case os.IsPermission(err):
			return nil, nil, errors.InputError(errors.CodeFilePermission, path, err)
		default:
			return nil, nil, errors.InputError("", path, err)
		}
	}
	defer f.Close()

	return Read(ctx, f, filepath.Base(path), format, cfg)
}

// Read reads messages of the given format from r. name labels errors.
func Read(ctx context.Context, r io.Reader, name string, format Format, cfg *Config) ([]models.RawMessage, *Stats, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	rd := &reader{
		ctx:       ctx,
		name:      name,
		cfg:       cfg,
		collector: errors.NewCollector(cfg.MaxErrors),
		stats:     &Stats{Source: name},
		log: logger.GetGlobalLogger().WithComponent("source").WithFields(logger.Fields{
			"source": name,
			"format": string(format),
		}),
	}

	var err error
	switch format {
	case FormatXML:
		err = rd.readXML(r)
	case FormatCSV:
		err = rd.readCSV(r)
	default:
		err = errors.InputError(errors.CodeUnsupportedFormat, name, nil)
	}

	rd.stats.Errors = rd.collector.Errors()
	rd.stats.Returned = len(rd.messages)

	if err != nil {
		rd.log.WithError(err).Error("Read failed")
		return rd.messages, rd.stats, err
	}

	rd.log.WithFields(logger.Fields{
		"records":  rd.stats.Records,
		"returned": rd.stats.Returned,
		"filtered": rd.stats.Filtered,
		"errors":   len(rd.stats.Errors),
	}).Info("Read messages")

	return rd.messages, rd.stats, nil
}

// reader carries the state of one Read
type reader struct {
	ctx       context.Context
	name      string
	cfg       *Config
	collector *errors.Collector
	stats     *Stats
	messages  []models.RawMessage
	log       logger.Logger
}

func (rd *reader) cancelled() error {
	if rd.ctx == nil {
		return nil
	}
	if err := rd.ctx.Err(); err != nil {
		return errors.InternalError(errors.CodeCancelled, "read "+rd.name, err)
	}
	return nil
}

// fail records a bad record and returns an error once the limit is hit
func (rd *reader) fail(err *errors.TrackerError) error {
	rd.log.WithError(err).Debug("Skipping bad record")
	if rd.collector.Add(err) {
		return nil
	}
	return errors.New(errors.CategoryParse, errors.CodeInvalidData,
		fmt.Sprintf("too many bad records in %s (%d)", rd.name, rd.collector.Len())).
		WithSuggestion("check the export format or raise the error limit").
		WithContext("source", rd.name)
}

func (rd *reader) accept(msg models.RawMessage) {
	if !rd.cfg.Filter.Matches(msg) {
		rd.stats.Filtered++
		return
	}
	rd.messages = append(rd.messages, msg)
}
