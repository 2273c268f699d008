package models

import "time"

// Category labels used before and after categorization.
const (
	CategoryUncategorized = "Uncategorized"
	CategoryOther         = "Other"
)

// Transaction represents a single ledger entry extracted from a statement.
type Transaction struct {
	ID          string     `json:"id,omitempty"`
	Date        *time.Time `json:"date"` // nil when the source date could not be resolved
	Payee       string     `json:"payee"`
	Amount      float64    `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	IsAnomaly   bool       `json:"is_anomaly"`
}

// NewTransaction returns a transaction with the default category.
func NewTransaction(date *time.Time, payee string, amount float64, description string) Transaction {
	return Transaction{
		Date:        date,
		Payee:       payee,
		Amount:      amount,
		Category:    CategoryUncategorized,
		Description: description,
	}
}

// HasDate reports whether the transaction carries a resolved date.
func (t Transaction) HasDate() bool {
	return t.Date != nil && !t.Date.IsZero()
}

// Day returns the calendar day of the transaction as read in its own
// location, as midnight UTC. Dates carrying different offsets still land on
// the same day value.
func (t Transaction) Day() time.Time {
	if !t.HasDate() {
		return time.Time{}
	}
	y, m, d := t.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Clone returns a copy whose Date pointer is not shared with t.
func (t Transaction) Clone() Transaction {
	if t.Date != nil {
		d := *t.Date
		t.Date = &d
	}
	return t
}

// CloneAll copies a transaction slice so later stages never alias the input.
func CloneAll(txns []Transaction) []Transaction {
	out := make([]Transaction, len(txns))
	for i, t := range txns {
		out[i] = t.Clone()
	}
	return out
}

// AnyDated reports whether at least one transaction has a date.
func AnyDated(txns []Transaction) bool {
	for _, t := range txns {
		if t.HasDate() {
			return true
		}
	}
	return false
}

// Category is a named keyword rule set.
type Category struct {
	Name     string   `json:"name" mapstructure:"name" yaml:"name"`
	Keywords []string `json:"keywords" mapstructure:"keywords" yaml:"keywords"`
}

// CategoryTotal holds running totals accumulated during batch categorization.
type CategoryTotal struct {
	Category string  `json:"category" csv:"category"`
	Total    float64 `json:"total" csv:"total"`
	Count    int     `json:"count" csv:"count"`
	Average  float64 `json:"average" csv:"average"`
}

// DebugLine captures what the parser did with each input line.
type DebugLine struct {
	LineNum int    `json:"lineNum"`
	Text    string `json:"text"`
	HasDate bool   `json:"hasDate"`
	Result  string `json:"result"` // "parsed", "skipped", "unparsed-date", "duplicate"
}
