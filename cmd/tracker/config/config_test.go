package config

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sms-expense-tracker/internal/classify"
	"sms-expense-tracker/internal/duplicate"
	"sms-expense-tracker/internal/reporter"
	"sms-expense-tracker/internal/source"
	"sms-expense-tracker/internal/store"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"

	"github.com/spf13/viper"
)

func load(t *testing.T, settings map[string]interface{}) (*Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	for k, val := range settings {
		v.Set(k, val)
	}
	return Load(v)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Classifier.Policy != "cascade" {
		t.Errorf("expected cascade policy, got %q", cfg.Classifier.Policy)
	}
	if cfg.Classifier.Threshold != classify.DefaultThreshold {
		t.Errorf("expected threshold %v, got %v", classify.DefaultThreshold, cfg.Classifier.Threshold)
	}
	if cfg.Duplicate.HighConfidence != 80 || cfg.Duplicate.Potential != 50 {
		t.Errorf("unexpected duplicate thresholds: %+v", cfg.Duplicate)
	}
	if cfg.Exclusion.Threshold != 85 {
		t.Errorf("expected exclusion threshold 85, got %d", cfg.Exclusion.Threshold)
	}
	if cfg.Store.Kind != "file" || cfg.Store.Path != DefaultStorePath {
		t.Errorf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected :8080, got %q", cfg.Server.Addr)
	}
	if cfg.Ingest.Workers < 1 {
		t.Errorf("expected at least one worker, got %d", cfg.Ingest.Workers)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(t, map[string]interface{}{
		KeyClassifierPolicy:    "weighted",
		KeyClassifierThreshold: 25.0,
		KeyDuplicateWindow:     "8h",
		KeyExclusionDescTokens: 8,
		KeyFingerprintTimezone: "Asia/Kolkata",
		KeyIngestWorkers:       3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opts, err := cfg.PipelineOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Classifier.Policy != classify.Weighted(25) {
		t.Errorf("expected weighted(25), got %v", opts.Classifier.Policy)
	}
	if opts.Duplicate.Window != duplicate.WindowHours || opts.Duplicate.WindowSpan != 8*time.Hour {
		t.Errorf("expected an 8h window, got %v %v", opts.Duplicate.Window, opts.Duplicate.WindowSpan)
	}
	if opts.Duplicate.Location.String() != "Asia/Kolkata" {
		t.Errorf("expected Asia/Kolkata, got %s", opts.Duplicate.Location)
	}
	if opts.Exclusion.DescriptionTokens != 8 {
		t.Errorf("expected 8 description tokens, got %d", opts.Exclusion.DescriptionTokens)
	}
	if got := cfg.IngestConfig().Workers; got != 3 {
		t.Errorf("expected 3 workers, got %d", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
		code     errors.ErrorCode
	}{
		{"unknown policy", map[string]interface{}{KeyClassifierPolicy: "magic"}, errors.CodeInvalidConfig},
		{"bad window", map[string]interface{}{KeyDuplicateWindow: "soon"}, errors.CodeInvalidConfig},
		{"inverted thresholds", map[string]interface{}{KeyDuplicatePotential: 90, KeyDuplicateHigh: 60}, errors.CodeConfigConflict},
		{"too few tokens", map[string]interface{}{KeyExclusionDescTokens: 2}, errors.CodeInvalidConfig},
		{"bad timezone", map[string]interface{}{KeyFingerprintTimezone: "Mars/Olympus"}, errors.CodeInvalidConfig},
		{"no workers", map[string]interface{}{KeyIngestWorkers: 0}, errors.CodeInvalidConfig},
		{"bad log level", map[string]interface{}{KeyLogLevel: "loud"}, errors.CodeInvalidConfig},
		{"bad store kind", map[string]interface{}{KeyStoreKind: "s3"}, errors.CodeInvalidConfig},
		{"postgres without url", map[string]interface{}{KeyStoreKind: "postgres"}, errors.CodeMissingConfig},
		{"empty addr", map[string]interface{}{KeyServerAddr: " "}, errors.CodeMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.settings)
			if err == nil {
				t.Fatal("expected error but got none")
			}
			te, ok := errors.AsTrackerError(err)
			if !ok {
				t.Fatalf("expected a TrackerError, got %T", err)
			}
			if te.Category != errors.CategoryConfiguration {
				t.Errorf("expected configuration category, got %s", te.Category)
			}
			if te.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, te.Code)
			}
		})
	}
}

func TestStoreKind(t *testing.T) {
	tests := []struct {
		name  string
		store StoreConfig
		want  store.Kind
	}{
		{"memory", StoreConfig{Kind: "memory"}, store.KindMemory},
		{"file", StoreConfig{Kind: "FILE", Path: "x.yaml"}, store.KindFile},
		{"postgres", StoreConfig{Kind: "postgres", DatabaseURL: "postgres://localhost/tracker"}, store.KindPostgres},
		{"url implies postgres", StoreConfig{DatabaseURL: "postgres://localhost/tracker"}, store.KindPostgres},
		{"empty kind is file", StoreConfig{Path: "x.yaml"}, store.KindFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Store = tt.store
			got, err := cfg.StoreKind()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestOpenStore(t *testing.T) {
	cfg := Default()
	cfg.Store = StoreConfig{Kind: "memory"}
	s, err := cfg.OpenStore(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*store.Memory); !ok {
		t.Errorf("expected a memory store, got %T", s)
	}
	s.Close()

	path := filepath.Join(t.TempDir(), "tracker.yaml")
	cfg.Store = StoreConfig{Kind: "file", Path: path}
	s, err = cfg.OpenStore(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fs, ok := s.(*store.FileStore)
	if !ok {
		t.Fatalf("expected a file store, got %T", s)
	}
	if fs.Path() != path {
		t.Errorf("expected path %s, got %s", path, fs.Path())
	}
	s.Close()
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Log = LogConfig{Level: "DEBUG", Format: "json", File: filepath.Join(t.TempDir(), "tracker.log")}

	lc, err := cfg.LoggerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lc.Level != logger.DebugLevel || lc.Format != logger.JSONFormat {
		t.Errorf("unexpected logger config: %+v", lc)
	}
	if lc.Output != logger.FileOutput || !strings.HasSuffix(lc.File, "tracker.log") {
		t.Errorf("expected file output, got %s %s", lc.Output, lc.File)
	}
}

func TestSourceConfig(t *testing.T) {
	cfg := Default()
	cfg.Fingerprint.Timezone = "Asia/Kolkata"

	filter := source.Filter{Senders: []string{"HDFC"}}
	sc, err := cfg.SourceConfig(filter, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Location.String() != "Asia/Kolkata" {
		t.Errorf("expected Asia/Kolkata, got %s", sc.Location)
	}
	if !sc.IncludeSent || len(sc.Filter.Senders) != 1 {
		t.Errorf("filter not applied: %+v", sc)
	}
}

func TestReportConfig(t *testing.T) {
	rc, err := ReportConfig("JSON", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Format != reporter.FormatJSON || !rc.IncludeRejected {
		t.Errorf("unexpected report config: %+v", rc)
	}

	rc, err = ReportConfig("csv", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.IncludeSourceStats {
		t.Error("expected source stats off for csv")
	}

	if _, err := ReportConfig("pdf", false); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestServerConfig(t *testing.T) {
	cfg := Default()
	cfg.Server.Addr = "127.0.0.1:9090"
	sc := cfg.ServerConfig("1.2.3")
	if sc.Addr != "127.0.0.1:9090" || sc.Version != "1.2.3" {
		t.Errorf("unexpected server config: %+v", sc)
	}
}
