package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with input validation, logging
// and fallbacks when the requested format or output fails
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a report generator that reports failures as
// TrackerErrors
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("Check the report format and list size settings")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// WriteScanReport renders a scan report, falling back to console format or a
// backup file when the first attempt fails
func (srg *SafeReportGenerator) WriteScanReport(report *ScanReport, writer io.Writer) error {
	if report == nil || report.Summary == nil {
		return errors.ValidationError(errors.CodeMissingField, "report", nil, nil).
			WithSuggestion("Run a scan before generating its report")
	}
	return srg.generate("scan", writer, func(g *ReportGenerator, w io.Writer) error {
		return g.GenerateScanReport(report, w)
	})
}

// WritePatternReport renders a pattern listing with the same fallbacks
func (srg *SafeReportGenerator) WritePatternReport(patterns []*models.ExclusionPattern, writer io.Writer) error {
	return srg.generate("patterns", writer, func(g *ReportGenerator, w io.Writer) error {
		return g.GeneratePatternReport(patterns, w)
	})
}

// WriteExplanation renders classifier explanations with the same fallbacks
func (srg *SafeReportGenerator) WriteExplanation(text string, explanations []Explanation, writer io.Writer) error {
	if len(explanations) == 0 {
		return errors.ValidationError(errors.CodeMissingField, "explanations", nil, nil)
	}
	return srg.generate("explanation", writer, func(g *ReportGenerator, w io.Writer) error {
		return g.GenerateExplanation(text, explanations, w)
	})
}

type renderFunc func(*ReportGenerator, io.Writer) error

func (srg *SafeReportGenerator) generate(kind string, writer io.Writer, render renderFunc) error {
	log := srg.logger.WithFields(logger.Fields{
		"report": kind,
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	})

	if writer == nil {
		return errors.ValidationError(errors.CodeMissingField, "writer", nil, nil).
			WithSuggestion("Provide a valid output writer")
	}

	log.Debug("Starting report generation")

	err := render(srg.ReportGenerator, writer)
	if err == nil {
		log.Debug("Report generation completed")
		return nil
	}

	log.WithError(err).Warn("Report generation failed, attempting fallback")

	switch {
	case srg.shouldAttemptOutputFallback(err, writer):
		err = srg.generateWithOutputFallback(writer.(*os.File), render, err)
	case srg.config.Format != FormatConsole:
		err = srg.generateWithFormatFallback(writer, render, err)
	default:
		err = srg.wrapGenerationError(err)
	}

	if err != nil {
		log.WithError(err).Error("Report generation failed")
	}
	return err
}

func (srg *SafeReportGenerator) generateWithFormatFallback(writer io.Writer, render renderFunc, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallback, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: Report generated in console format due to an error with %s output\n", srg.config.Format)
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := render(fallback, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}
	return nil
}

func (srg *SafeReportGenerator) shouldAttemptOutputFallback(err error, writer io.Writer) bool {
	if file, ok := writer.(*os.File); ok && file.Name() != "" && file != os.Stdout && file != os.Stderr {
		return isFileError(err)
	}
	return false
}

func (srg *SafeReportGenerator) generateWithOutputFallback(file *os.File, render renderFunc, originalErr error) error {
	originalPath := file.Name()
	backupPath := generateBackupPath(originalPath)

	srg.logger.WithFields(logger.Fields{
		"original_file": originalPath,
		"backup_file":   backupPath,
	}).Info("Attempting output fallback")

	backup, err := os.Create(backupPath)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}
	defer backup.Close()

	if err := render(srg.ReportGenerator, backup); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_output_fallback",
			fmt.Errorf("both primary and backup output failed: primary=%v, backup=%v", originalErr, err),
		)
	}

	fmt.Fprintf(os.Stderr, "Warning: could not write to %s, report saved to %s\n", originalPath, backupPath)
	return nil
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if trackerErr, ok := errors.AsTrackerError(err); ok {
		return trackerErr
	}

	return errors.InternalError(
		errors.CodeUnexpectedError,
		"report_generation",
		err,
	).WithSuggestion("Check the output destination and report format settings")
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case nil:
		return "none"
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}

func isFileError(err error) bool {
	return os.IsPermission(err) ||
		os.IsNotExist(err) ||
		os.IsExist(err) ||
		isSpaceError(err)
}

func isSpaceError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "device full")
}

func generateBackupPath(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]

	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", name, ext))
}
