// Package config turns viper settings into the configuration structs of
// the tracker's components.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"sms-expense-tracker/internal/classify"
	"sms-expense-tracker/internal/duplicate"
	"sms-expense-tracker/internal/exclusion"
	"sms-expense-tracker/internal/ingest"
	"sms-expense-tracker/internal/pipeline"
	"sms-expense-tracker/internal/reporter"
	"sms-expense-tracker/internal/server"
	"sms-expense-tracker/internal/source"
	"sms-expense-tracker/internal/store"
	"sms-expense-tracker/internal/store/postgres"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"

	"github.com/spf13/viper"
)

// Setting keys
const (
	KeyClassifierPolicy     = "classifier.policy"
	KeyClassifierThreshold  = "classifier.threshold"
	KeyDuplicateWindow      = "duplicate.window"
	KeyDuplicateHigh        = "duplicate.high_confidence"
	KeyDuplicatePotential   = "duplicate.potential"
	KeyExclusionThreshold   = "exclusion.threshold"
	KeyExclusionDescTokens  = "exclusion.description_tokens"
	KeyFingerprintTimezone  = "fingerprint.timezone"
	KeyIngestWorkers        = "ingest.workers"
	KeyStoreKind            = "store.kind"
	KeyStorePath            = "store.path"
	KeyStoreDatabaseURL     = "store.database_url"
	KeyLogLevel             = "log.level"
	KeyLogFormat            = "log.format"
	KeyLogFile              = "log.file"
	KeyServerAddr           = "server.addr"
	DefaultStorePath        = "tracker.yaml"
	DefaultFingerprintZone  = "Local"
	defaultDuplicateWindow  = "day"
	defaultClassifierPolicy = "cascade"
)

// Config is the tracker's full configuration
type Config struct {
	Classifier  ClassifierConfig  `mapstructure:"classifier"`
	Duplicate   DuplicateConfig   `mapstructure:"duplicate"`
	Exclusion   ExclusionConfig   `mapstructure:"exclusion"`
	Fingerprint FingerprintConfig `mapstructure:"fingerprint"`
	Ingest      IngestConfig      `mapstructure:"ingest"`
	Store       StoreConfig       `mapstructure:"store"`
	Log         LogConfig         `mapstructure:"log"`
	Server      ServerConfig      `mapstructure:"server"`
}

type ClassifierConfig struct {
	Policy    string  `mapstructure:"policy"`
	Threshold float64 `mapstructure:"threshold"`
}

type DuplicateConfig struct {
	Window         string `mapstructure:"window"`
	HighConfidence int    `mapstructure:"high_confidence"`
	Potential      int    `mapstructure:"potential"`
}

type ExclusionConfig struct {
	Threshold         int `mapstructure:"threshold"`
	DescriptionTokens int `mapstructure:"description_tokens"`
}

type FingerprintConfig struct {
	// Timezone is an IANA name; calendar days are taken in it
	Timezone string `mapstructure:"timezone"`
}

type IngestConfig struct {
	Workers int `mapstructure:"workers"`
}

type StoreConfig struct {
	Kind        string `mapstructure:"kind"`
	Path        string `mapstructure:"path"`
	DatabaseURL string `mapstructure:"database_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers the default of every key on v
func SetDefaults(v *viper.Viper) {
	dup := duplicate.DefaultConfig()
	exc := exclusion.DefaultConfig()

	v.SetDefault(KeyClassifierPolicy, defaultClassifierPolicy)
	v.SetDefault(KeyClassifierThreshold, classify.DefaultThreshold)
	v.SetDefault(KeyDuplicateWindow, defaultDuplicateWindow)
	v.SetDefault(KeyDuplicateHigh, dup.HighConfidence)
	v.SetDefault(KeyDuplicatePotential, dup.Potential)
	v.SetDefault(KeyExclusionThreshold, exc.Threshold)
	v.SetDefault(KeyExclusionDescTokens, exc.DescriptionTokens)
	v.SetDefault(KeyFingerprintTimezone, DefaultFingerprintZone)
	v.SetDefault(KeyIngestWorkers, ingest.DefaultConfig().Workers)
	v.SetDefault(KeyStoreKind, string(store.KindFile))
	v.SetDefault(KeyStorePath, DefaultStorePath)
	v.SetDefault(KeyStoreDatabaseURL, "")
	v.SetDefault(KeyLogLevel, string(logger.InfoLevel))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyServerAddr, server.DefaultConfig().Addr)
}

// Load reads and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", v.ConfigFileUsed(), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Validate checks every section by building its component configuration
func (c *Config) Validate() error {
	if _, err := c.PipelineOptions(); err != nil {
		return err
	}
	if _, err := c.StoreKind(); err != nil {
		return err
	}
	if c.Ingest.Workers < 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, KeyIngestWorkers, c.Ingest.Workers, nil).
			WithSuggestion("use at least one worker")
	}
	if _, err := c.LoggerConfig(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, KeyServerAddr, c.Server.Addr, nil)
	}
	return nil
}

// Location resolves fingerprint.timezone
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Fingerprint.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyFingerprintTimezone, name, err).
			WithSuggestion("use an IANA zone name such as Asia/Kolkata")
	}
	return loc, nil
}

// PipelineOptions builds the core component configurations
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	var opts pipeline.Options

	policy, err := classify.ParsePolicy(c.Classifier.Policy, c.Classifier.Threshold)
	if err != nil {
		return opts, errors.ConfigurationError(errors.CodeInvalidConfig, KeyClassifierPolicy, c.Classifier.Policy, err)
	}
	cls := classify.DefaultConfig()
	cls.Policy = policy
	if err := cls.Validate(); err != nil {
		return opts, errors.ConfigurationError(errors.CodeInvalidConfig, KeyClassifierThreshold, c.Classifier.Threshold, err)
	}

	loc, err := c.Location()
	if err != nil {
		return opts, err
	}

	dup := duplicate.DefaultConfig()
	dup.Location = loc
	dup.HighConfidence = c.Duplicate.HighConfidence
	dup.Potential = c.Duplicate.Potential
	mode, span, err := duplicate.ParseWindow(c.Duplicate.Window)
	if err != nil {
		return opts, errors.ConfigurationError(errors.CodeInvalidConfig, KeyDuplicateWindow, c.Duplicate.Window, err)
	}
	dup.Window = mode
	if mode == duplicate.WindowHours {
		dup.WindowSpan = span
	}
	if err := dup.Validate(); err != nil {
		return opts, errors.ConfigurationError(errors.CodeConfigConflict, "duplicate", c.Duplicate, err).
			WithSuggestion("potential must not exceed high_confidence and both must be within 0 to 100")
	}

	exc := exclusion.DefaultConfig()
	exc.Threshold = c.Exclusion.Threshold
	exc.DescriptionTokens = c.Exclusion.DescriptionTokens
	if err := exc.Validate(); err != nil {
		return opts, errors.ConfigurationError(errors.CodeInvalidConfig, "exclusion", c.Exclusion, err)
	}

	opts.Classifier = cls
	opts.Duplicate = dup
	opts.Exclusion = exc
	return opts, nil
}

// Pipeline builds the classification pipeline
func (c *Config) Pipeline() (*pipeline.Pipeline, error) {
	opts, err := c.PipelineOptions()
	if err != nil {
		return nil, err
	}
	return pipeline.New(opts), nil
}

// IngestConfig builds the processor configuration
func (c *Config) IngestConfig() *ingest.Config {
	cfg := ingest.DefaultConfig()
	cfg.Workers = c.Ingest.Workers
	return cfg
}

// LoggerConfig builds the logger configuration. A log file switches output
// to that file.
func (c *Config) LoggerConfig() (*logger.Config, error) {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.Level(strings.ToLower(c.Log.Level))
	cfg.Format = logger.Format(strings.ToLower(c.Log.Format))
	if c.Log.File != "" {
		cfg.Output = logger.FileOutput
		cfg.File = c.Log.File
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", c.Log, err)
	}
	return cfg, nil
}

// SourceConfig builds a message reader configuration. Timestamps without a
// zone are read in fingerprint.timezone.
func (c *Config) SourceConfig(filter source.Filter, includeSent bool) (*source.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	cfg := source.DefaultConfig()
	cfg.Location = loc
	cfg.Filter = filter
	cfg.IncludeSent = includeSent
	return cfg, nil
}

// ServerConfig builds the HTTP server configuration
func (c *Config) ServerConfig(version string) *server.Config {
	cfg := server.DefaultConfig()
	cfg.Addr = c.Server.Addr
	cfg.Version = version
	return cfg
}

// ReportConfig builds a report configuration for an output format
func ReportConfig(format string, showRejected bool) (*reporter.ReportConfig, error) {
	cfg := reporter.DefaultReportConfig()
	cfg.Format = reporter.OutputFormat(strings.ToLower(format))
	cfg.IncludeRejected = showRejected

	if cfg.Format == reporter.FormatCSV {
		cfg.IncludeSourceStats = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "output-format", format, err).
			WithSuggestion("use console, json or csv")
	}
	return cfg, nil
}

// StoreKind resolves store.kind. A database URL without an explicit kind
// selects postgres.
func (c *Config) StoreKind() (store.Kind, error) {
	kind := store.Kind(strings.ToLower(strings.TrimSpace(c.Store.Kind)))
	switch kind {
	case store.KindMemory:
		return kind, nil
	case store.KindFile, "":
		if kind == "" && c.Store.DatabaseURL != "" {
			return store.KindPostgres, nil
		}
		if c.Store.Path == "" {
			return "", errors.ConfigurationError(errors.CodeMissingConfig, KeyStorePath, "", nil)
		}
		return store.KindFile, nil
	case store.KindPostgres:
		if c.Store.DatabaseURL == "" {
			return "", errors.ConfigurationError(errors.CodeMissingConfig, KeyStoreDatabaseURL, "", nil).
				WithSuggestion("set TRACKER_STORE_DATABASE_URL or store.database_url")
		}
		return kind, nil
	default:
		return "", errors.ConfigurationError(errors.CodeInvalidConfig, KeyStoreKind, c.Store.Kind, nil).
			WithSuggestion("use memory, file or postgres")
	}
}

// OpenStore opens the configured store
func (c *Config) OpenStore(ctx context.Context) (store.Store, error) {
	kind, err := c.StoreKind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case store.KindMemory:
		return store.NewMemory(), nil
	case store.KindPostgres:
		return postgres.Open(ctx, c.Store.DatabaseURL)
	default:
		return store.OpenFile(c.Store.Path)
	}
}
