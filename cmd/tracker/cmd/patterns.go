package cmd

import (
	"fmt"
	"os"
	"time"

	"sms-expense-tracker/cmd/tracker/config"
	"sms-expense-tracker/internal/reporter"
	"sms-expense-tracker/internal/store"
	"sms-expense-tracker/pkg/errors"

	"github.com/spf13/cobra"
)

var (
	patternsOutputFormat string
	patternsOutputFile   string
)

// patternsCmd groups the exclusion pattern subcommands
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Manage learned exclusion patterns",
	Long: `Patterns lists, deactivates, deletes, exports and imports the exclusion
patterns learned by 'tracker exclude'.

Examples:
  tracker patterns list
  tracker patterns deactivate 9d2e...
  tracker patterns export -o patterns.yaml
  tracker patterns import patterns.yaml`,
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patterns, most used first",
	Args:  cobra.NoArgs,
	RunE:  runPatternsList,
}

var patternsDeactivateCmd = &cobra.Command{
	Use:   "deactivate PATTERN_ID",
	Short: "Stop applying a pattern without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatternsDeactivate,
}

var patternsDeleteCmd = &cobra.Command{
	Use:   "delete PATTERN_ID",
	Short: "Delete a pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatternsDelete,
}

var patternsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every pattern as YAML",
	Args:  cobra.NoArgs,
	RunE:  runPatternsExport,
}

var patternsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Add the patterns of an exported YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatternsImport,
}

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.AddCommand(patternsListCmd, patternsDeactivateCmd, patternsDeleteCmd, patternsExportCmd, patternsImportCmd)

	patternsListCmd.Flags().StringVarP(&patternsOutputFormat, "output-format", "f", "console", "output format: console, json, csv")
	patternsExportCmd.Flags().StringVarP(&patternsOutputFile, "output-file", "o", "", "output file path (default: stdout)")
}

func runPatternsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	reportConfig, err := config.ReportConfig(patternsOutputFormat, false)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	patterns, err := a.processor.Patterns(ctx)
	if err != nil {
		return err
	}

	gen, err := reporter.NewSafeReportGenerator(reportConfig, a.logger)
	if err != nil {
		return err
	}
	return gen.WritePatternReport(patterns, cmd.OutOrStdout())
}

func runPatternsDeactivate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.processor.DeactivatePattern(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deactivated pattern %s\n", args[0])
	return nil
}

func runPatternsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.processor.DeletePattern(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted pattern %s\n", args[0])
	return nil
}

func runPatternsExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	patterns, err := a.processor.Patterns(ctx)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(patternsOutputFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	if err := store.ExportPatterns(out, patterns, time.Now()); err != nil {
		return err
	}
	if patternsOutputFile != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d patterns to %s\n", len(patterns), patternsOutputFile)
	}
	return nil
}

func runPatternsImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		code := errors.CodeFileNotFound
		if os.IsPermission(err) {
			code = errors.CodeFilePermission
		}
		return errors.InputError(code, args[0], err)
	}
	defer f.Close()

	patterns, err := store.ImportPatterns(f)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	saved, err := a.processor.ImportPatterns(ctx, patterns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d patterns\n", saved, len(patterns))
	return nil
}
