package cmd

import (
	"context"
	"fmt"
	"strings"

	"sms-expense-tracker/cmd/tracker/config"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	verbose   bool
	configErr error
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Expense tracker for bank SMS messages",
	Long: `Tracker reads bank SMS messages, decides which of them are real
transactions, extracts the amount, merchant and category of each one, and
records them while catching duplicates and applying learned exclusions.

Examples:
  tracker scan sms_backup.xml
  tracker scan export.csv --sender HDFC --since 2024-05-01 --output-format json
  tracker classify "Rs.500 debited from A/c XX1234 to Amazon"
  tracker exclude 3f6c2a9e-...
  tracker patterns list
  tracker serve --addr :8080`,
	Version:           getVersionString(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which subcommands use for
// cancellation
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (optional)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("store", "", "store kind: memory, file, postgres")
	flags.String("store-path", "", "path of the file store")
	flags.String("database-url", "", "postgres connection string")
	flags.String("timezone", "", "zone calendar days are taken in")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text, json")

	// Bind flags to viper
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.BindPFlag(config.KeyStoreKind, flags.Lookup("store"))
	viper.BindPFlag(config.KeyStorePath, flags.Lookup("store-path"))
	viper.BindPFlag(config.KeyStoreDatabaseURL, flags.Lookup("database-url"))
	viper.BindPFlag(config.KeyFingerprintTimezone, flags.Lookup("timezone"))
	viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	viper.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	configErr = nil
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			configErr = errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err).
				WithSuggestion("check the config file exists and is valid YAML")
			return
		}
	}

	// TRACKER_STORE_PATH overrides store.path
	viper.SetEnvPrefix("TRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setupLogging installs the configured global logger before any subcommand
// runs
func setupLogging(cmd *cobra.Command, args []string) error {
	if configErr != nil {
		return configErr
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	lc, err := cfg.LoggerConfig()
	if err != nil {
		return err
	}
	if viper.GetBool("verbose") {
		lc.Level = logger.DebugLevel
	}

	log, err := logger.NewLogger(lc)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", lc.File, err)
	}
	logger.SetGlobalLogger(log)

	if used := viper.ConfigFileUsed(); used != "" {
		log.WithField("config", used).Debug("Using config file")
	}
	return nil
}

// loadConfig reads the validated configuration for a subcommand
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
