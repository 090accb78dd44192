// Package describe renders extracted fields into a one-line summary such as
// "UPI payment to Swiggy for Dinner (Ref: 412345678901)".
package describe

import (
	"strings"

	"sms-expense-tracker/internal/dictionary"
	"sms-expense-tracker/internal/extract"
	"sms-expense-tracker/internal/models"
)

// Parts are the inputs of a description. Empty fields are omitted.
type Parts struct {
	Method    models.TransactionMethod
	Kind      models.TransactionKind
	Merchant  string
	Purpose   string
	Reference string
	Label     string
}

// Compose renders parts as
// "<method> <payment|received>[ to|from <merchant>][ for <purpose>][ (Ref: <ref>)][ (<label>)]".
func Compose(p Parts) string {
	method := string(p.Method)
	if method == "" {
		method = string(models.MethodGeneric)
	}

	var b strings.Builder
	b.WriteString(method)
	if p.Kind == models.KindCredit {
		b.WriteString(" received")
		if p.Merchant != "" {
			b.WriteString(" from ")
			b.WriteString(p.Merchant)
		}
	} else {
		b.WriteString(" payment")
		if p.Merchant != "" {
			b.WriteString(" to ")
			b.WriteString(p.Merchant)
		}
	}
	if p.Purpose != "" {
		b.WriteString(" for ")
		b.WriteString(p.Purpose)
	}
	if p.Reference != "" {
		b.WriteString(" (Ref: ")
		b.WriteString(p.Reference)
		b.WriteString(")")
	}
	if p.Label != "" {
		b.WriteString(" (")
		b.WriteString(p.Label)
		b.WriteString(")")
	}
	return b.String()
}

// Composer attaches dictionary labels to descriptions.
type Composer struct {
	dict *dictionary.Dictionary
}

// New creates a composer over dict, or the default dictionary when nil.
func New(dict *dictionary.Dictionary) *Composer {
	if dict == nil {
		dict = dictionary.Default()
	}
	return &Composer{dict: dict}
}

// Label returns the first label (Refund, Cashback, Salary, EMI Payment)
// whose keywords occur in text.
func (c *Composer) Label(text string) string {
	for _, l := range c.dict.DescriptionLabels {
		if l.Pattern.MatchString(text) {
			return l.Name
		}
	}
	return ""
}

// Describe composes the description of a message from its extracted fields.
func (c *Composer) Describe(text string, f extract.Fields) string {
	return Compose(Parts{
		Method:    f.Method.Value,
		Kind:      f.Kind.Value,
		Merchant:  f.Merchant.Value,
		Purpose:   f.Purpose.Value,
		Reference: f.Reference.Value,
		Label:     c.Label(text),
	})
}
