package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	duplicatesSince string
	duplicatesUntil string
)

// duplicatesCmd represents the duplicates command
var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List groups of stored transactions that look like duplicates",
	Long: `Duplicates clusters the stored transactions of a date range into groups
that score at least the potential duplicate threshold against each other.

Example:
  tracker duplicates --since 2024-05-01 --until 2024-05-31`,
	Args: cobra.NoArgs,
	RunE: runDuplicates,
}

func init() {
	rootCmd.AddCommand(duplicatesCmd)

	duplicatesCmd.Flags().StringVar(&duplicatesSince, "since", "", "first day to check (YYYY-MM-DD, default: 30 days ago)")
	duplicatesCmd.Flags().StringVar(&duplicatesUntil, "until", "", "last day to check (YYYY-MM-DD, default: today)")
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	start, end, err := a.dayRange(duplicatesSince, duplicatesUntil)
	if err != nil {
		return err
	}
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}

	groups, err := a.processor.FindDuplicateGroups(ctx, start, end)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(groups) == 0 {
		fmt.Fprintln(out, "No duplicate groups found")
		return nil
	}

	fmt.Fprintf(out, "DUPLICATE GROUPS (%d)\n", len(groups))
	for i, g := range groups {
		fmt.Fprintf(out, "\n%d. %s  confidence %.0f%%  %s\n", i+1, g.GroupID, g.Confidence*100, g.Reason)
		for _, t := range g.Transactions {
			fmt.Fprintf(out, "   %s  %s  %10s  %s\n",
				t.ID, t.OccurredAt.Format("2006-01-02 15:04"), t.Amount.StringFixed(2), t.Merchant)
		}
	}
	return nil
}
