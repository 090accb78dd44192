package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// excludeCmd represents the exclude command
var excludeCmd = &cobra.Command{
	Use:   "exclude TRANSACTION_ID",
	Short: "Exclude a recorded transaction and learn a pattern from it",
	Long: `Exclude marks a recorded transaction as not an expense and learns an
exclusion pattern from it. Later transactions that match the pattern are
excluded automatically when they are scanned.

Example:
  tracker exclude 3f6c2a9e-1d2b-4c8e-9f00-7a1b2c3d4e5f`,
	Args: cobra.ExactArgs(1),
	RunE: runExclude,
}

// includeCmd represents the include command
var includeCmd = &cobra.Command{
	Use:   "include TRANSACTION_ID",
	Short: "Undo the exclusion of a transaction",
	Long: `Include clears the exclusion of a transaction and deactivates the
patterns that were learned from it.

Example:
  tracker include 3f6c2a9e-1d2b-4c8e-9f00-7a1b2c3d4e5f`,
	Args: cobra.ExactArgs(1),
	RunE: runInclude,
}

func init() {
	rootCmd.AddCommand(excludeCmd)
	rootCmd.AddCommand(includeCmd)
}

func runExclude(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	pattern, err := a.processor.ExcludeManually(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Excluded transaction %s\n", args[0])
	fmt.Fprintf(out, "Learned pattern %s\n", pattern.ID)
	fmt.Fprintf(out, "  Merchant:    %s\n", pattern.MerchantPattern)
	fmt.Fprintf(out, "  Description: %s\n", pattern.DescriptionPattern)
	fmt.Fprintf(out, "  Amount:      %s to %s\n", pattern.MinAmount.StringFixed(2), pattern.MaxAmount.StringFixed(2))
	return nil
}

func runInclude(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.processor.IncludeManually(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Included transaction %s\n", args[0])
	return nil
}
