package cmd

import (
	"fmt"
	"time"

	"sms-expense-tracker/cmd/tracker/config"
	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/internal/reporter"
	"sms-expense-tracker/internal/source"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"

	"github.com/spf13/cobra"
)

// Flags for the scan command
var (
	scanSenders      []string
	scanSince        string
	scanUntil        string
	scanFormat       string
	scanIncludeSent  bool
	scanOutputFormat string
	scanOutputFile   string
	scanShowRejected bool
	scanDryRun       bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan FILE...",
	Short: "Read SMS exports and record the transactions they contain",
	Long: `Scan reads one or more SMS exports, classifies every message and
records the accepted transactions. Exact repeats and near duplicates are
caught against the store, and learned exclusion patterns are applied.

Supported inputs:
- SMS Backup & Restore XML files (.xml)
- CSV files with sender, body and received_at columns (.csv)

Examples:
  # Record everything in a phone backup
  tracker scan sms_backup.xml

  # Only one bank, one month, as JSON
  tracker scan sms_backup.xml --sender HDFC --since 2024-05-01 --until 2024-05-31 \
    --output-format json --output-file may.json

  # See what would be recorded without touching the store
  tracker scan export.csv --dry-run --show-rejected`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	flags := scanCmd.Flags()
	flags.StringSliceVar(&scanSenders, "sender", nil, "keep messages whose sender contains any of these")
	flags.StringVar(&scanSince, "since", "", "keep messages received on or after this day (YYYY-MM-DD)")
	flags.StringVar(&scanUntil, "until", "", "keep messages received on or before this day (YYYY-MM-DD)")
	flags.StringVar(&scanFormat, "input-format", "", "input format: xml, csv (default: by extension)")
	flags.BoolVar(&scanIncludeSent, "include-sent", false, "also read sent messages from XML backups")
	flags.StringVarP(&scanOutputFormat, "output-format", "f", "console", "output format: console, json, csv")
	flags.StringVarP(&scanOutputFile, "output-file", "o", "", "output file path (default: stdout)")
	flags.BoolVar(&scanShowRejected, "show-rejected", false, "list messages that were not transactions")
	flags.BoolVar(&scanDryRun, "dry-run", false, "use an empty in-memory store")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	reportConfig, err := config.ReportConfig(scanOutputFormat, scanShowRejected)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, scanDryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	since, until, err := a.dayRange(scanSince, scanUntil)
	if err != nil {
		return err
	}
	sourceConfig, err := a.config.SourceConfig(source.Filter{Senders: scanSenders, Since: since, Until: until}, scanIncludeSent)
	if err != nil {
		return err
	}
	if scanFormat != "" {
		if sourceConfig.Format, err = source.ParseFormat(scanFormat); err != nil {
			return errors.InputError(errors.CodeUnsupportedFormat, scanFormat, err)
		}
	}

	var (
		messages []models.RawMessage
		stats    []*source.Stats
	)
	for _, path := range args {
		msgs, st, err := source.ReadFile(ctx, path, sourceConfig)
		if err != nil {
			return err
		}
		a.logger.WithFields(logger.Fields{
			"source":   st.Source,
			"returned": st.Returned,
			"errors":   len(st.Errors),
		}).Info("Read messages")
		messages = append(messages, msgs...)
		stats = append(stats, st)
	}

	results, summary, batchErr := a.processor.ProcessBatch(ctx, messages)
	report := &reporter.ScanReport{
		Sources:     stats,
		Results:     results,
		Summary:     summary,
		GeneratedAt: time.Now(),
	}

	out, closeOut, err := openOutput(scanOutputFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	gen, err := reporter.NewSafeReportGenerator(reportConfig, a.logger)
	if err != nil {
		return err
	}
	if err := gen.WriteScanReport(report, out); err != nil {
		return err
	}

	if scanOutputFile != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", scanOutputFile)
	}
	if batchErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nScan stopped after %d of %d messages; the report covers the processed ones.\n",
			len(results), len(messages))
		return batchErr
	}
	if summary.Errors != nil && summary.Errors.Total > 0 {
		return summary.Errors
	}
	return nil
}
