package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"sms-expense-tracker/internal/classify"
	"sms-expense-tracker/internal/ingest"
	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/internal/source"
	"sms-expense-tracker/pkg/logger"

	"github.com/shopspring/decimal"
)

var generatedAt = time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)

func sampleTransaction(id, merchant, amount string, kind models.TransactionKind, category models.Category) *models.Transaction {
	return &models.Transaction{
		ID:          id,
		Bank:        models.BankHDFC,
		Kind:        kind,
		Amount:      decimal.RequireFromString(amount),
		OccurredAt:  time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC),
		Merchant:    merchant,
		Method:      models.MethodUPI,
		Category:    category,
		Description: "UPI payment to " + merchant,
	}
}

func createSampleScanReport() *ScanReport {
	amazon := sampleTransaction("tx-1", "Amazon", "500", models.KindDebit, models.CategoryShopping)
	salary := sampleTransaction("tx-2", "", "5000", models.KindCredit, "")
	salary.Description = "NEFT credit"
	grocer := sampleTransaction("tx-3", "Local Grocer", "250", models.KindDebit, models.CategoryFood)
	grocer.IsExcluded = true
	grocer.ExclusionPatternID = "pat-1"
	review := sampleTransaction("tx-4", "Zomato", "500", models.KindDebit, models.CategoryFood)
	review.NeedsReview = true
	review.DuplicateOfID = "tx-1"

	results := []*ingest.Result{
		{Status: ingest.StatusRecorded, Transaction: amazon, Message: models.RawMessage{Sender: "VM-HDFCBK"}},
		{Status: ingest.StatusDuplicate, Transaction: amazon.Clone(), DuplicateOf: "tx-1", DuplicateScore: 100},
		{Status: ingest.StatusRecorded, Transaction: salary},
		{Status: ingest.StatusExcluded, Transaction: grocer, PatternID: "pat-1", PatternScore: 100},
		{Status: ingest.StatusPotentialDuplicate, Transaction: review, DuplicateOf: "tx-1", DuplicateScore: 65},
		{
			Status:   ingest.StatusRejected,
			Message:  models.RawMessage{Sender: "AD-PROMO", Text: "Use code SAVE50 for 50% off!"},
			Decision: classify.Decision{Reason: classify.ReasonInsufficient},
		},
	}

	summary := &ingest.Summary{Total: len(results), ByStatus: map[ingest.Status]int{}, Duration: 1500 * time.Millisecond}
	for _, r := range results {
		summary.ByStatus[r.Status]++
	}

	return &ScanReport{
		Sources:     []*source.Stats{{Source: "backup.xml", Records: 7, Returned: 6, Skipped: 1}},
		Results:     results,
		Summary:     summary,
		GeneratedAt: generatedAt,
	}
}

func samplePatterns() []*models.ExclusionPattern {
	return []*models.ExclusionPattern{
		{
			ID:                  "pat-1",
			MerchantPattern:     "local grocer",
			DescriptionPattern:  "upi payment to local grocer",
			MinAmount:           decimal.NewFromInt(216),
			MaxAmount:           decimal.NewFromInt(264),
			Kind:                models.KindDebit,
			Category:            models.CategoryFood,
			SourceTransactionID: "tx-0",
			Active:              true,
			CreatedAt:           generatedAt,
			MatchCount:          3,
		},
		{
			ID:              "pat-2",
			MerchantPattern: "gym",
			MinAmount:       decimal.NewFromInt(1350),
			MaxAmount:       decimal.NewFromInt(1650),
			Kind:            models.KindDebit,
		},
	}
}

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{name: "default config", config: nil},
		{name: "valid config", config: DefaultReportConfig()},
		{name: "invalid format", config: &ReportConfig{Format: "invalid", MaxListItems: 10}, expectError: true},
		{name: "no list items", config: &ReportConfig{Format: FormatConsole}, expectError: true},
		{name: "csv without delimiter", config: &ReportConfig{Format: FormatCSV, MaxListItems: 10}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if generator == nil {
				t.Errorf("expected generator but got nil")
			}
		})
	}
}

func TestOutputFormatValidation(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{FormatConsole, true},
		{FormatJSON, true},
		{FormatCSV, true},
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if tt.format.IsValid() != tt.valid {
				t.Errorf("expected IsValid() = %v for format %s", tt.valid, tt.format)
			}
		})
	}
}

func TestGenerateScanReport_Console(t *testing.T) {
	generator, _ := NewReportGenerator(nil)
	var buf bytes.Buffer

	if err := generator.GenerateScanReport(createSampleScanReport(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	expected := []string{
		"SCAN REPORT",
		"Generated: 2024-05-14T09:00:00Z",
		"=== SOURCES ===",
		"backup.xml: 7 records, 6 returned, 0 filtered, 1 skipped, 0 errors",
		"Messages:            6",
		"recorded:           2 (33.3%)",
		"potential duplicate: 1 (16.7%)",
		"Total Debits:  1000.00",
		"Total Credits: 5000.00",
		"Net:           4000.00",
		"Spending by Category:",
		"=== RECORDED TRANSACTIONS (2) ===",
		"1. 2024-05-12 DEBIT 500.00 Amazon [Shopping] UPI payment to Amazon",
		"=== NEEDS REVIEW (1) ===",
		"(duplicate of tx-1, score 65)",
		"=== DUPLICATES (1) ===",
		"=== EXCLUDED (1) ===",
		"(pattern pat-1, score 100)",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("expected console output to contain %q\n%s", want, output)
		}
	}

	// excluded spending does not count
	if strings.Contains(output, "Total Debits:  1250.00") {
		t.Errorf("excluded transaction was counted in totals")
	}
	if strings.Contains(output, "REJECTED") {
		t.Errorf("rejected messages are hidden by default")
	}
	if strings.Contains(output, "FAILED") {
		t.Errorf("empty sections should not be printed")
	}
}

func TestGenerateScanReport_ConsoleListLimit(t *testing.T) {
	config := DefaultReportConfig()
	config.MaxListItems = 1
	config.IncludeRejected = true
	config.SortByAmount = true
	generator, _ := NewReportGenerator(config)

	var buf bytes.Buffer
	if err := generator.GenerateScanReport(createSampleScanReport(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "1. 2024-05-12 CREDIT 5000.00 - [-] NEFT credit") {
		t.Errorf("expected the largest transaction first\n%s", output)
	}
	if !strings.Contains(output, "... and 1 more") {
		t.Errorf("expected list to be truncated\n%s", output)
	}
	if !strings.Contains(output, `AD-PROMO: "Use code SAVE50 for 50% off!" (insufficient_evidence)`) {
		t.Errorf("expected rejected message line\n%s", output)
	}
}

func TestGenerateScanReport_JSON(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatJSON
	generator, _ := NewReportGenerator(config)

	var buf bytes.Buffer
	if err := generator.GenerateScanReport(createSampleScanReport(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Summary struct {
			Total    int            `json:"total"`
			ByStatus map[string]int `json:"by_status"`
		} `json:"summary"`
		Results []struct {
			Status      string `json:"status"`
			DuplicateOf string `json:"duplicate_of"`
		} `json:"results"`
		Sources []map[string]interface{} `json:"sources"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}

	if decoded.Summary.Total != 6 {
		t.Errorf("expected total 6, got %d", decoded.Summary.Total)
	}
	if decoded.Summary.ByStatus["duplicate"] != 1 {
		t.Errorf("expected one duplicate, got %v", decoded.Summary.ByStatus)
	}
	if len(decoded.Results) != 5 {
		t.Errorf("expected 5 results without the rejected one, got %d", len(decoded.Results))
	}
	if len(decoded.Sources) != 1 {
		t.Errorf("expected source stats, got %d", len(decoded.Sources))
	}
}

func TestGenerateScanReport_CSV(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatCSV
	config.IncludeRejected = true
	generator, _ := NewReportGenerator(config)

	var buf bytes.Buffer
	if err := generator.GenerateScanReport(createSampleScanReport(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV output: %v", err)
	}
	if len(records) != 7 {
		t.Fatalf("expected header and 6 rows, got %d", len(records))
	}
	if records[0][0] != "Status" || len(records[0]) != len(scanHeaders) {
		t.Errorf("unexpected header: %v", records[0])
	}

	dup := records[2]
	if dup[0] != "duplicate" || dup[11] != "tx-1" || dup[12] != "100" {
		t.Errorf("unexpected duplicate row: %v", dup)
	}
	rejected := records[6]
	if rejected[0] != "rejected" || rejected[1] != "" || rejected[16] != classify.ReasonInsufficient {
		t.Errorf("unexpected rejected row: %v", rejected)
	}
}

func TestGenerateScanReport_NilReport(t *testing.T) {
	generator, _ := NewReportGenerator(nil)
	if err := generator.GenerateScanReport(nil, io.Discard); err == nil {
		t.Errorf("expected error for nil report")
	}
	if err := generator.GenerateScanReport(&ScanReport{}, io.Discard); err == nil {
		t.Errorf("expected error for missing summary")
	}
}

func TestGeneratePatternReport(t *testing.T) {
	tests := []struct {
		format   OutputFormat
		patterns []*models.ExclusionPattern
		contains []string
	}{
		{
			format:   FormatConsole,
			patterns: samplePatterns(),
			contains: []string{
				"EXCLUSION PATTERNS (2)",
				"1. pat-1 [active]",
				"Amount:      216.00 - 264.00",
				"Matches:     3",
				"2. pat-2 [inactive]",
				"Description: -",
			},
		},
		{
			format:   FormatConsole,
			contains: []string{"EXCLUSION PATTERNS (0)", "No patterns learned yet"},
		},
		{
			format:   FormatJSON,
			patterns: samplePatterns(),
			contains: []string{`"count": 2`, `"merchant_pattern": "local grocer"`},
		},
		{
			format:   FormatJSON,
			contains: []string{`"count": 0`, `"patterns": []`},
		},
		{
			format:   FormatCSV,
			patterns: samplePatterns(),
			contains: []string{
				"ID,Merchant_Pattern,Description_Pattern",
				"pat-1,local grocer,upi payment to local grocer,216.00,264.00,DEBIT,Food,true,3,tx-0,2024-05-14T09:00:00Z",
				"pat-2,gym,,1350.00,1650.00,DEBIT,,false,0,,",
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			config := DefaultReportConfig()
			config.Format = tt.format
			generator, _ := NewReportGenerator(config)

			var buf bytes.Buffer
			if err := generator.GeneratePatternReport(tt.patterns, &buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("expected output to contain %q\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestGenerateExplanation(t *testing.T) {
	tx := sampleTransaction("", "Amazon", "500", models.KindDebit, models.CategoryShopping)
	explanations := []Explanation{
		{
			Decision: classify.Decision{
				Accepted: true,
				Policy:   classify.Cascade(),
				Reason:   classify.ReasonAccountVerb,
				Signals:  []classify.Signal{{Name: classify.SignalAmount, Weight: 4}, {Name: classify.SignalStrongVerb, Weight: 5}},
			},
			Transaction: tx,
		},
		{
			Decision: classify.Decision{
				Accepted: false,
				Policy:   classify.Weighted(10),
				Score:    9,
				Reason:   classify.ReasonBelowScore,
				Signals:  []classify.Signal{{Name: classify.SignalURL, Weight: -10, Detail: "bit.ly"}},
			},
		},
	}

	generator, _ := NewReportGenerator(nil)
	var buf bytes.Buffer
	if err := generator.GenerateExplanation("Rs.500 debited", explanations, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"MESSAGE\nRs.500 debited",
		"=== CASCADE: ACCEPTED ===",
		"Reason: account_verb_amount",
		"Merchant:    Amazon",
		"=== WEIGHTED(10.0): REJECTED ===",
		"Score:  9.0 (threshold 10.0)",
		"bit.ly",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected explanation to contain %q\n%s", want, output)
		}
	}

	config := DefaultReportConfig()
	config.Format = FormatCSV
	generator, _ = NewReportGenerator(config)
	buf.Reset()
	if err := generator.GenerateExplanation("Rs.500 debited", explanations, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "true,account_verb_amount,0.0,amount;strong_verb,500.00,Amazon") {
		t.Errorf("unexpected CSV explanation:\n%s", buf.String())
	}
}

type failingWriter struct {
	failures int
	buf      bytes.Buffer
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.failures > 0 {
		w.failures--
		return 0, errors.New("write failed")
	}
	return w.buf.Write(p)
}

func TestSafeReportGenerator_FormatFallback(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatJSON
	safe, err := NewSafeReportGenerator(config, logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := &failingWriter{failures: 1}
	if err := safe.WriteScanReport(createSampleScanReport(), w); err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if !strings.Contains(w.buf.String(), "NOTE: Report generated in console format") {
		t.Errorf("expected fallback notice\n%s", w.buf.String())
	}
	if !strings.Contains(w.buf.String(), "SCAN REPORT") {
		t.Errorf("expected console report after fallback")
	}
}

func TestSafeReportGenerator_Validation(t *testing.T) {
	if _, err := NewSafeReportGenerator(&ReportConfig{Format: "xml"}, logger.Nop()); err == nil {
		t.Errorf("expected configuration error")
	}

	safe, _ := NewSafeReportGenerator(nil, logger.Nop())
	if err := safe.WriteScanReport(nil, io.Discard); err == nil {
		t.Errorf("expected error for nil report")
	}
	if err := safe.WritePatternReport(samplePatterns(), nil); err == nil {
		t.Errorf("expected error for nil writer")
	}
	if err := safe.WriteExplanation("text", nil, io.Discard); err == nil {
		t.Errorf("expected error for no explanations")
	}
}

func TestGenerateBackupPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/tmp/report.json", "/tmp/report_backup.json"},
		{"report", "report_backup"},
		{"out/scan.csv", "out/scan_backup.csv"},
	}
	for _, tt := range tests {
		if got := generateBackupPath(tt.in); got != tt.want {
			t.Errorf("generateBackupPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
