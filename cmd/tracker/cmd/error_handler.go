package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler turns command errors into messages and exit codes
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
	out     io.Writer
}

// NewCLIErrorHandler creates a handler writing to stderr
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
		out:     os.Stderr,
	}
}

// HandleError prints err and returns the exit code for it
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	var summary *errors.ErrorSummary
	if stderrors.As(err, &summary) {
		return h.handleErrorSummary(summary)
	}
	if trackerErr, ok := errors.AsTrackerError(err); ok {
		return h.handleTrackerError(trackerErr)
	}
	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleTrackerError(err *errors.TrackerError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleErrorSummary reports the per-message failures of a scan that
// otherwise finished
func (h *CLIErrorHandler) handleErrorSummary(summary *errors.ErrorSummary) int {
	fmt.Fprintf(h.out, "Error: %s\n", summary.Error())

	for i, err := range summary.SampleErrors {
		fmt.Fprintf(h.out, "  %d. %s\n", i+1, err.Message)
	}
	if more := summary.Total - len(summary.SampleErrors); more > 0 {
		fmt.Fprintf(h.out, "  ... and %d more errors\n", more)
	}
	fmt.Fprintf(h.out, "\nThe report lists these messages as failed; scan them again once the store is healthy.\n")

	return summary.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	switch {
	case h.isFileNotFoundError(err):
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	case h.isPermissionError(err):
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	case h.isDiskFullError(err):
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	if !h.verbose {
		fmt.Fprintf(h.out, "\nRun with --verbose for more details\n")
	}
	return 1
}

func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryInput:
		return `Input error help:
• Check the path to the SMS export and that it is readable
• Exports must be SMS Backup & Restore XML or CSV with sender, body and received_at columns
• Use --input-format when the file extension does not match its content`

	case errors.CategoryParse:
		return `Parse error help:
• Check the export finished writing and is not truncated
• Ensure the file uses UTF-8 encoding
• Records that fail to parse are skipped; see the SOURCES section of the report`

	case errors.CategoryValidation:
		return `Validation error help:
• Dates on the command line use YYYY-MM-DD
• Amounts must be non-negative decimal numbers
• Transaction and pattern ids are listed by 'tracker scan' and 'tracker patterns list'`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Environment variables use the TRACKER_ prefix, e.g. TRACKER_STORE_PATH
• Try running with default settings first`

	case errors.CategoryStorage:
		return `Storage error help:
• Check store.path points to a writable file, or that the database is reachable
• Use --store memory to run without persisting anything
• A failed write leaves the store as it was before the command`

	default:
		return `For more help:
• Use 'tracker --help' for general help
• Use 'tracker <command> --help' for command-specific help
• Re-run with --verbose to see the underlying error`
	}
}

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if stderrors.Is(err, syscall.ENOSPC) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "device full")
}
