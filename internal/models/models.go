// Package models defines the records shared by the classifier, the duplicate
// detector, the exclusion engine and the storage layers around them.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind tells whether money left or entered the account.
type TransactionKind string

const (
	// KindDebit represents money leaving the account
	KindDebit TransactionKind = "DEBIT"
	// KindCredit represents money entering the account
	KindCredit TransactionKind = "CREDIT"
)

// DefaultKind is used when a message carries no debit or credit keyword.
// Most unlabelled bank alerts are spends, so the bias is towards debits.
const DefaultKind = KindDebit

// String returns the string representation of TransactionKind
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid checks if the transaction kind is valid
func (k TransactionKind) IsValid() bool {
	return k == KindDebit || k == KindCredit
}

// ParseTransactionKind parses a kind from user or file input.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBIT", "D", "DR":
		return KindDebit, nil
	case "CREDIT", "C", "CR":
		return KindCredit, nil
	default:
		return "", fmt.Errorf("invalid transaction kind '%s': must be DEBIT or CREDIT", s)
	}
}

// RawMessage is an SMS exactly as it was received. It is never persisted.
type RawMessage struct {
	Text       string    `json:"text"`
	Sender     string    `json:"sender,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// HasText reports whether the message carries anything beyond whitespace.
func (m RawMessage) HasText() bool {
	return strings.TrimSpace(m.Text) != ""
}

// Transaction is the structured record extracted from one bank message.
//
// The extraction fields are filled by the classifier pipeline. ID, exclusion
// and review fields belong to the storage layer and stay zero until the
// transaction is persisted.
type Transaction struct {
	ID          string            `json:"id,omitempty" yaml:"id,omitempty"`
	Bank        BankCode          `json:"bank" yaml:"bank"`
	Kind        TransactionKind   `json:"kind" yaml:"kind"`
	Amount      decimal.Decimal   `json:"amount" yaml:"amount"`
	OccurredAt  time.Time         `json:"occurred_at" yaml:"occurred_at"`
	ReceivedAt  time.Time         `json:"received_at,omitempty" yaml:"received_at,omitempty"`
	Sender      string            `json:"sender,omitempty" yaml:"sender,omitempty"`
	Merchant    string            `json:"merchant,omitempty" yaml:"merchant,omitempty"`
	Method      TransactionMethod `json:"method" yaml:"method"`
	Reference   string            `json:"reference,omitempty" yaml:"reference,omitempty"`
	Category    Category          `json:"category" yaml:"category"`
	Description string            `json:"description" yaml:"description"`
	Fingerprint string            `json:"fingerprint" yaml:"fingerprint"`
	IsRecurring bool              `json:"is_recurring" yaml:"is_recurring"`

	IsExcluded         bool   `json:"is_excluded" yaml:"is_excluded"`
	ExclusionPatternID string `json:"exclusion_pattern_id,omitempty" yaml:"exclusion_pattern_id,omitempty"`
	DuplicateOfID      string `json:"duplicate_of_id,omitempty" yaml:"duplicate_of_id,omitempty"`
	NeedsReview        bool   `json:"needs_review,omitempty" yaml:"needs_review,omitempty"`

	OriginalText string `json:"original_text" yaml:"original_text"`
}

// Validate performs basic validation on the Transaction
func (t *Transaction) Validate() error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("transaction amount cannot be negative")
	}

	if !t.Kind.IsValid() {
		return fmt.Errorf("invalid transaction kind: %s", t.Kind)
	}

	if !t.Bank.IsValid() {
		return fmt.Errorf("invalid bank code: %s", t.Bank)
	}

	if !t.Category.IsValid() {
		return fmt.Errorf("invalid category: %s", t.Category)
	}

	if t.OccurredAt.IsZero() {
		return fmt.Errorf("transaction time cannot be zero")
	}

	return nil
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{Bank: %s, Kind: %s, Amount: %s, Date: %s, Merchant: %q}",
		t.Bank, t.Kind, t.Amount.StringFixed(2), t.OccurredAt.Format("2006-01-02"), t.Merchant)
}

// Clone returns a shallow copy safe to hand to another owner.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// IsDebit returns true if the transaction is a debit
func (t *Transaction) IsDebit() bool {
	return t.Kind == KindDebit
}

// IsCredit returns true if the transaction is a credit
func (t *Transaction) IsCredit() bool {
	return t.Kind == KindCredit
}

// TimeOfRecord returns the receipt time when known, else the occurrence time.
func (t *Transaction) TimeOfRecord() time.Time {
	if !t.ReceivedAt.IsZero() {
		return t.ReceivedAt
	}
	return t.OccurredAt
}

// CompareAmountsWithTolerance compares two decimal amounts with a tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// ParseTimeInLocation parses timestamps found in message exports. Strings
// of 12 or more digits are read as Unix milliseconds, the form Android
// backups use. Zone-less layouts are read in loc.
func ParseTimeInLocation(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}
	if loc == nil {
		loc = time.Local
	}

	if len(s) >= 12 && isDigits(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid epoch milliseconds '%s': %w", s, err)
		}
		return time.UnixMilli(ms).In(loc), nil
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"02/01/2006 15:04:05",
		"02/01/2006 15:04",
		"02/01/2006",
		"02-01-2006",
		"Jan 2, 2006 3:04:05 PM",
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.ParseInLocation(format, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
