// Package fingerprint derives the exact-duplicate key of a transaction.
//
// The key is a digest of the amount to two decimals, the calendar day the
// transaction occurred on, the composed description and the lower-cased
// merchant. Two transactions with the same key are the same transaction.
package fingerprint

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"sms-expense-tracker/internal/models"

	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

// Hasher turns the fingerprint input into an opaque key.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// HasherFunc adapts a function to Hasher.
type HasherFunc func(data []byte) (string, error)

// Hash calls f.
func (f HasherFunc) Hash(data []byte) (string, error) {
	return f(data)
}

// SHA256 is the default hasher: base64 of the SHA-256 digest.
type SHA256 struct{}

// Hash returns the standard base64 encoding of the SHA-256 digest of data.
func (SHA256) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// Generator computes fingerprints in one time zone.
type Generator struct {
	hasher   Hasher
	location *time.Location
}

// New creates a generator. A nil hasher uses SHA256 and a nil location uses
// time.Local.
func New(hasher Hasher, location *time.Location) *Generator {
	if hasher == nil {
		hasher = SHA256{}
	}
	if location == nil {
		location = time.Local
	}
	return &Generator{hasher: hasher, location: location}
}

// Location returns the zone calendar days are taken in.
func (g *Generator) Location() *time.Location {
	return g.location
}

// Input returns the string that is hashed.
func (g *Generator) Input(amount decimal.Decimal, occurredAt time.Time, description, merchant string) string {
	return strings.Join([]string{
		amount.StringFixed(2),
		occurredAt.In(g.location).Format(dayLayout),
		description,
		strings.ToLower(merchant),
	}, "|")
}

// Compute returns the fingerprint of the given fields. If hashing fails the
// raw input is returned so the key stays deterministic.
func (g *Generator) Compute(amount decimal.Decimal, occurredAt time.Time, description, merchant string) string {
	input := g.Input(amount, occurredAt, description, merchant)
	key, err := g.hasher.Hash([]byte(input))
	if err != nil || key == "" {
		return input
	}
	return key
}

// Transaction returns the fingerprint of t.
func (g *Generator) Transaction(t *models.Transaction) string {
	if t == nil {
		return ""
	}
	return g.Compute(t.Amount, t.OccurredAt, t.Description, t.Merchant)
}
