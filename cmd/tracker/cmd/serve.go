package cmd

import (
	"sms-expense-tracker/cmd/tracker/config"
	"sms-expense-tracker/internal/server"
	"sms-expense-tracker/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the classifier and scoring engines over HTTP",
	Long: `Serve starts an HTTP server exposing classification, fingerprinting,
duplicate scoring and exclusion pattern scoring as JSON endpoints, with
Prometheus metrics on /metrics. The endpoints are stateless.

Examples:
  tracker serve
  tracker serve --addr 127.0.0.1:9000
  curl -s localhost:8080/api/v1/classify -d '{"text":"Rs.500 debited from A/c XX1234 to Amazon"}'`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	viper.BindPFlag(config.KeyServerAddr, serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := cfg.Pipeline()
	if err != nil {
		return err
	}

	sc := cfg.ServerConfig(version)
	if err := sc.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "server", sc.Addr, err)
	}
	return server.New(p, sc).Run(cmd.Context())
}
