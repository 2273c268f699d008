package ledger

import (
	"fmt"
	"time"

	"github.com/insightdelivered/statement-insights/internal/models"
)

const dateLayout = "2006-01-02"

// Record is the persisted form of a transaction. Date is an ISO-8601 date,
// or a full RFC 3339 timestamp when the time of day is not midnight.
type Record struct {
	ID          string  `json:"id,omitempty" csv:"id"`
	Date        *string `json:"date" csv:"date"`
	Payee       string  `json:"payee" csv:"payee"`
	Amount      float64 `json:"amount" csv:"amount"`
	Category    string  `json:"category" csv:"category"`
	Description string  `json:"description,omitempty" csv:"description"`
	IsAnomaly   bool    `json:"is_anomaly" csv:"is_anomaly"`
}

// FormatDate renders a transaction date for storage.
func FormatDate(t time.Time) string {
	if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return t.Format(dateLayout)
	}
	return t.Format(time.RFC3339Nano)
}

// ParseDate reads a date written by FormatDate.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ToRecord converts a transaction for persistence.
func ToRecord(t models.Transaction) Record {
	r := Record{
		ID:          t.ID,
		Payee:       t.Payee,
		Amount:      t.Amount,
		Category:    t.Category,
		Description: t.Description,
		IsAnomaly:   t.IsAnomaly,
	}
	if t.HasDate() {
		d := FormatDate(*t.Date)
		r.Date = &d
	}
	return r
}

// Transaction converts a record back. An empty category becomes
// models.CategoryUncategorized.
func (r Record) Transaction() (models.Transaction, error) {
	t := models.Transaction{
		ID:          r.ID,
		Payee:       r.Payee,
		Amount:      r.Amount,
		Category:    r.Category,
		Description: r.Description,
		IsAnomaly:   r.IsAnomaly,
	}
	if t.Category == "" {
		t.Category = models.CategoryUncategorized
	}
	if r.Date != nil && *r.Date != "" {
		d, err := ParseDate(*r.Date)
		if err != nil {
			return t, err
		}
		t.Date = &d
	}
	return t, nil
}
