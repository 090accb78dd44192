// Package reporter renders scan results, exclusion patterns and classifier
// explanations.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: one row per message or pattern for spreadsheets
//
// Example usage:
//
//	gen, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	err = gen.GenerateScanReport(&reporter.ScanReport{Results: results, Summary: summary}, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"sms-expense-tracker/internal/classify"
	"sms-expense-tracker/internal/ingest"
	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/internal/source"

	"github.com/shopspring/decimal"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeTransactions bool `json:"include_transactions"`
	IncludeDuplicates   bool `json:"include_duplicates"`
	IncludeExcluded     bool `json:"include_excluded"`
	IncludeRejected     bool `json:"include_rejected"`
	IncludeSourceStats  bool `json:"include_source_stats"`

	// MaxListItems caps each console list; the rest are counted
	MaxListItems int `json:"max_list_items"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`

	SortByAmount bool `json:"sort_by_amount"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		IncludeTransactions: true,
		IncludeDuplicates:   true,
		IncludeExcluded:     true,
		IncludeRejected:     false,
		IncludeSourceStats:  true,
		MaxListItems:        20,
		CSVDelimiter:        ',',
		CSVHeaders:          true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxListItems < 1 {
		return fmt.Errorf("max list items must be at least 1, got %d", c.MaxListItems)
	}

	if c.Format == FormatCSV && (c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n') {
		return fmt.Errorf("invalid csv delimiter %q", c.CSVDelimiter)
	}

	return nil
}

// ScanReport is everything one scan produced
type ScanReport struct {
	Sources     []*source.Stats  `json:"sources,omitempty"`
	Results     []*ingest.Result `json:"results"`
	Summary     *ingest.Summary  `json:"summary"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Explanation is one policy's decision on a message
type Explanation struct {
	Decision    classify.Decision   `json:"decision"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// ReportGenerator renders reports in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateScanReport writes a scan report to writer
func (rg *ReportGenerator) GenerateScanReport(report *ScanReport, writer io.Writer) error {
	if report == nil || report.Summary == nil {
		return fmt.Errorf("scan report and its summary cannot be nil")
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.scanConsole(report, writer)
	case FormatJSON:
		return writeJSON(writer, rg.filterScanForOutput(report))
	case FormatCSV:
		return rg.scanCSV(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// GeneratePatternReport writes a pattern listing to writer
func (rg *ReportGenerator) GeneratePatternReport(patterns []*models.ExclusionPattern, writer io.Writer) error {
	switch rg.config.Format {
	case FormatConsole:
		rg.patternsConsole(patterns, writer)
		return nil
	case FormatJSON:
		if patterns == nil {
			patterns = []*models.ExclusionPattern{}
		}
		return writeJSON(writer, map[string]interface{}{
			"count":    len(patterns),
			"patterns": patterns,
		})
	case FormatCSV:
		return rg.patternsCSV(patterns, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// GenerateExplanation writes how each policy decided on text
func (rg *ReportGenerator) GenerateExplanation(text string, explanations []Explanation, writer io.Writer) error {
	switch rg.config.Format {
	case FormatConsole:
		rg.explanationConsole(text, explanations, writer)
		return nil
	case FormatJSON:
		return writeJSON(writer, map[string]interface{}{
			"text":         text,
			"explanations": explanations,
		})
	case FormatCSV:
		return rg.explanationCSV(explanations, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func writeJSON(writer io.Writer, v interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (rg *ReportGenerator) scanConsole(report *ScanReport, writer io.Writer) error {
	fmt.Fprintf(writer, "SCAN REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Processing Duration: %v\n\n", report.Summary.Duration.Round(time.Millisecond))

	if rg.config.IncludeSourceStats && len(report.Sources) > 0 {
		fmt.Fprintf(writer, "=== SOURCES ===\n")
		for _, s := range report.Sources {
			fmt.Fprintf(writer, "%s\n", s)
		}
		fmt.Fprintf(writer, "\n")
	}

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	rg.printSummary(report.Summary, writer)
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== TOTALS ===\n")
	rg.printTotals(report.Results, writer)
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeTransactions {
		rg.printSection("RECORDED TRANSACTIONS", withStatus(report.Results, ingest.StatusRecorded), writer, rg.transactionLine)
	}
	rg.printSection("NEEDS REVIEW", withStatus(report.Results, ingest.StatusPotentialDuplicate), writer, rg.duplicateLine)
	if rg.config.IncludeDuplicates {
		rg.printSection("DUPLICATES", withStatus(report.Results, ingest.StatusDuplicate), writer, rg.duplicateLine)
	}
	if rg.config.IncludeExcluded {
		rg.printSection("EXCLUDED", withStatus(report.Results, ingest.StatusExcluded), writer, rg.excludedLine)
	}
	if rg.config.IncludeRejected {
		rg.printSection("REJECTED", withStatus(report.Results, ingest.StatusRejected), writer, rg.rejectedLine)
	}
	rg.printSection("FAILED", withStatus(report.Results, ingest.StatusFailed), writer, rg.failedLine)

	return nil
}

func (rg *ReportGenerator) printSummary(summary *ingest.Summary, writer io.Writer) {
	fmt.Fprintf(writer, "Messages:            %d\n", summary.Total)
	for _, status := range ingest.Statuses {
		n := summary.Count(status)
		if n == 0 && status == ingest.StatusFailed {
			continue
		}
		label := strings.ReplaceAll(string(status), "_", " ")
		fmt.Fprintf(writer, "  %-19s %d (%.1f%%)\n", label+":", n, calculatePercentage(n, summary.Total))
	}
	if summary.Errors != nil {
		fmt.Fprintf(writer, "Errors:              %s\n", summary.Errors.Error())
	}
}

// printTotals sums the transactions that count towards spending: those
// saved and not excluded.
func (rg *ReportGenerator) printTotals(results []*ingest.Result, writer io.Writer) {
	debits, credits := decimal.Zero, decimal.Zero
	byCategory := make(map[models.Category]decimal.Decimal)

	for _, r := range results {
		if !r.Saved() || r.Transaction.IsExcluded {
			continue
		}
		tx := r.Transaction
		switch {
		case tx.IsCredit():
			credits = credits.Add(tx.Amount)
		case tx.IsDebit():
			debits = debits.Add(tx.Amount)
			byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
		}
	}

	fmt.Fprintf(writer, "Total Debits:  %s\n", debits.StringFixed(2))
	fmt.Fprintf(writer, "Total Credits: %s\n", credits.StringFixed(2))
	fmt.Fprintf(writer, "Net:           %s\n", credits.Sub(debits).StringFixed(2))

	if len(byCategory) == 0 {
		return
	}
	categories := make([]models.Category, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		a, b := byCategory[categories[i]], byCategory[categories[j]]
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return categories[i] < categories[j]
	})

	fmt.Fprintf(writer, "\nSpending by Category:\n")
	for _, c := range categories {
		name := string(c)
		if name == "" {
			name = "Uncategorized"
		}
		fmt.Fprintf(writer, "  %-16s %s\n", name, byCategory[c].StringFixed(2))
	}
}

func (rg *ReportGenerator) printSection(title string, results []*ingest.Result, writer io.Writer, line func(*ingest.Result) string) {
	if len(results) == 0 {
		return
	}
	if rg.config.SortByAmount {
		sort.SliceStable(results, func(i, j int) bool {
			return amountOf(results[i]).GreaterThan(amountOf(results[j]))
		})
	}

	fmt.Fprintf(writer, "=== %s (%d) ===\n", title, len(results))
	for i, r := range results {
		if i >= rg.config.MaxListItems {
			fmt.Fprintf(writer, "  ... and %d more\n", len(results)-i)
			break
		}
		fmt.Fprintf(writer, "  %d. %s\n", i+1, line(r))
	}
	fmt.Fprintf(writer, "\n")
}

func (rg *ReportGenerator) transactionLine(r *ingest.Result) string {
	tx := r.Transaction
	return fmt.Sprintf("%s %s %s %s [%s] %s",
		tx.OccurredAt.Format("2006-01-02"),
		strings.ToUpper(string(tx.Kind)),
		tx.Amount.StringFixed(2),
		orDash(tx.Merchant),
		orDash(string(tx.Category)),
		tx.Description)
}

func (rg *ReportGenerator) duplicateLine(r *ingest.Result) string {
	return fmt.Sprintf("%s (duplicate of %s, score %d)", rg.transactionLine(r), r.DuplicateOf, r.DuplicateScore)
}

func (rg *ReportGenerator) excludedLine(r *ingest.Result) string {
	return fmt.Sprintf("%s (pattern %s, score %d)", rg.transactionLine(r), r.PatternID, r.PatternScore)
}

func (rg *ReportGenerator) rejectedLine(r *ingest.Result) string {
	return fmt.Sprintf("%s: %q (%s)", orDash(r.Message.Sender), truncate(r.Message.Text, 60), r.Decision.Reason)
}

func (rg *ReportGenerator) failedLine(r *ingest.Result) string {
	msg := "unknown error"
	if r.Err != nil {
		msg = r.Err.Error()
	}
	return fmt.Sprintf("%s: %q: %s", orDash(r.Message.Sender), truncate(r.Message.Text, 60), msg)
}

var scanHeaders = []string{
	"Status", "ID", "Date", "Kind", "Amount", "Bank", "Merchant", "Category",
	"Method", "Reference", "Description", "Duplicate_Of", "Duplicate_Score",
	"Pattern_ID", "Pattern_Score", "Sender", "Reason",
}

func (rg *ReportGenerator) scanCSV(report *ScanReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(scanHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, r := range report.Results {
		if !rg.includes(r.Status) {
			continue
		}
		if err := csvWriter.Write(scanRecord(r)); err != nil {
			return fmt.Errorf("failed to write %s record: %w", r.Status, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func scanRecord(r *ingest.Result) []string {
	record := make([]string, len(scanHeaders))
	record[0] = string(r.Status)
	if tx := r.Transaction; tx != nil {
		record[1] = tx.ID
		record[2] = tx.OccurredAt.Format("2006-01-02 15:04:05")
		record[3] = string(tx.Kind)
		record[4] = tx.Amount.StringFixed(2)
		record[5] = string(tx.Bank)
		record[6] = tx.Merchant
		record[7] = string(tx.Category)
		record[8] = string(tx.Method)
		record[9] = tx.Reference
		record[10] = tx.Description
	}
	record[11] = r.DuplicateOf
	if r.DuplicateScore > 0 {
		record[12] = strconv.Itoa(r.DuplicateScore)
	}
	record[13] = r.PatternID
	if r.PatternScore > 0 {
		record[14] = strconv.Itoa(r.PatternScore)
	}
	record[15] = r.Message.Sender
	switch {
	case r.Err != nil:
		record[16] = r.Err.Error()
	case r.Status == ingest.StatusRejected:
		record[16] = r.Decision.Reason
	}
	return record
}

func (rg *ReportGenerator) includes(status ingest.Status) bool {
	switch status {
	case ingest.StatusRecorded:
		return rg.config.IncludeTransactions
	case ingest.StatusDuplicate:
		return rg.config.IncludeDuplicates
	case ingest.StatusExcluded:
		return rg.config.IncludeExcluded
	case ingest.StatusRejected:
		return rg.config.IncludeRejected
	default:
		return true
	}
}

func (rg *ReportGenerator) filterScanForOutput(report *ScanReport) map[string]interface{} {
	output := map[string]interface{}{
		"summary":      report.Summary,
		"generated_at": report.GeneratedAt,
	}

	if rg.config.IncludeSourceStats && len(report.Sources) > 0 {
		output["sources"] = report.Sources
	}

	results := make([]*ingest.Result, 0, len(report.Results))
	for _, r := range report.Results {
		if rg.includes(r.Status) {
			results = append(results, r)
		}
	}
	output["results"] = results

	return output
}

func (rg *ReportGenerator) patternsConsole(patterns []*models.ExclusionPattern, writer io.Writer) {
	fmt.Fprintf(writer, "EXCLUSION PATTERNS (%d)\n", len(patterns))
	if len(patterns) == 0 {
		fmt.Fprintf(writer, "No patterns learned yet. Exclude a transaction to create one.\n")
		return
	}

	for i, p := range patterns {
		state := "active"
		if !p.Active {
			state = "inactive"
		}
		fmt.Fprintf(writer, "\n%d. %s [%s]\n", i+1, p.ID, state)
		fmt.Fprintf(writer, "   Merchant:    %s\n", orDash(p.MerchantPattern))
		fmt.Fprintf(writer, "   Description: %s\n", orDash(p.DescriptionPattern))
		fmt.Fprintf(writer, "   Amount:      %s - %s\n", p.MinAmount.StringFixed(2), p.MaxAmount.StringFixed(2))
		fmt.Fprintf(writer, "   Kind:        %s\n", p.Kind)
		if p.Category != "" {
			fmt.Fprintf(writer, "   Category:    %s\n", p.Category)
		}
		fmt.Fprintf(writer, "   Matches:     %d\n", p.MatchCount)
		if !p.CreatedAt.IsZero() {
			fmt.Fprintf(writer, "   Created:     %s\n", p.CreatedAt.Format(time.RFC3339))
		}
	}
}

var patternHeaders = []string{
	"ID", "Merchant_Pattern", "Description_Pattern", "Min_Amount", "Max_Amount",
	"Kind", "Category", "Active", "Match_Count", "Source_Transaction", "Created_At",
}

func (rg *ReportGenerator) patternsCSV(patterns []*models.ExclusionPattern, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(patternHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, p := range patterns {
		created := ""
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.Format(time.RFC3339)
		}
		record := []string{
			p.ID,
			p.MerchantPattern,
			p.DescriptionPattern,
			p.MinAmount.StringFixed(2),
			p.MaxAmount.StringFixed(2),
			string(p.Kind),
			string(p.Category),
			strconv.FormatBool(p.Active),
			strconv.Itoa(p.MatchCount),
			p.SourceTransactionID,
			created,
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write pattern record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (rg *ReportGenerator) explanationConsole(text string, explanations []Explanation, writer io.Writer) {
	fmt.Fprintf(writer, "MESSAGE\n%s\n", text)

	for _, e := range explanations {
		d := e.Decision
		verdict := "REJECTED"
		if d.Accepted {
			verdict = "ACCEPTED"
		}

		fmt.Fprintf(writer, "\n=== %s: %s ===\n", strings.ToUpper(d.Policy.String()), verdict)
		fmt.Fprintf(writer, "Reason: %s\n", d.Reason)
		if d.Policy.Kind == classify.WeightedScore {
			fmt.Fprintf(writer, "Score:  %.1f (threshold %.1f)\n", d.Score, d.Policy.Threshold)
		}

		if len(d.Signals) > 0 {
			fmt.Fprintf(writer, "Signals:\n")
			for _, s := range d.Signals {
				fmt.Fprintf(writer, "  %-22s %+6.1f", s.Name, s.Weight)
				if s.Detail != "" {
					fmt.Fprintf(writer, "  %s", s.Detail)
				}
				fmt.Fprintf(writer, "\n")
			}
		}

		if tx := e.Transaction; tx != nil {
			fmt.Fprintf(writer, "Transaction:\n")
			fmt.Fprintf(writer, "  Amount:      %s %s\n", tx.Amount.StringFixed(2), tx.Kind)
			fmt.Fprintf(writer, "  Date:        %s\n", tx.OccurredAt.Format("2006-01-02"))
			fmt.Fprintf(writer, "  Bank:        %s\n", tx.Bank)
			fmt.Fprintf(writer, "  Merchant:    %s\n", orDash(tx.Merchant))
			fmt.Fprintf(writer, "  Method:      %s\n", tx.Method)
			fmt.Fprintf(writer, "  Reference:   %s\n", orDash(tx.Reference))
			fmt.Fprintf(writer, "  Category:    %s\n", orDash(string(tx.Category)))
			fmt.Fprintf(writer, "  Description: %s\n", tx.Description)
			fmt.Fprintf(writer, "  Fingerprint: %s\n", tx.Fingerprint)
		}
	}
}

func (rg *ReportGenerator) explanationCSV(explanations []Explanation, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write([]string{"Policy", "Accepted", "Reason", "Score", "Signals", "Amount", "Merchant"}); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, e := range explanations {
		names := make([]string, len(e.Decision.Signals))
		for i, s := range e.Decision.Signals {
			names[i] = s.Name
		}
		amount, merchant := "", ""
		if e.Transaction != nil {
			amount = e.Transaction.Amount.StringFixed(2)
			merchant = e.Transaction.Merchant
		}
		record := []string{
			e.Decision.Policy.String(),
			strconv.FormatBool(e.Decision.Accepted),
			e.Decision.Reason,
			strconv.FormatFloat(e.Decision.Score, 'f', 1, 64),
			strings.Join(names, ";"),
			amount,
			merchant,
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write explanation record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

func withStatus(results []*ingest.Result, status ingest.Status) []*ingest.Result {
	var out []*ingest.Result
	for _, r := range results {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

func amountOf(r *ingest.Result) decimal.Decimal {
	if r.Transaction == nil {
		return decimal.Zero
	}
	return r.Transaction.Amount
}

func calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
