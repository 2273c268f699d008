package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/insightdelivered/statement-insights/internal/models"
)

// ErrMissingColumn is returned when tabular input has no amount column.
var ErrMissingColumn = errors.New("missing required column")

// Canonical column names.
const (
	ColumnDate        = "date"
	ColumnPayee       = "payee"
	ColumnAmount      = "amount"
	ColumnDescription = "description"
)

// columnSynonyms maps each canonical column to the header names that mean it.
// Canonical names are resolved in this order.
var columnSynonyms = []struct {
	name     string
	synonyms []string
}{
	{ColumnDate, []string{"date", "transaction date", "posting date", "trans date", "post date"}},
	{ColumnPayee, []string{"merchant", "description", "desc", "payee", "vendor"}},
	{ColumnAmount, []string{"amount", "debit", "withdrawal", "spent", "charge"}},
}

var descriptionSynonyms = []string{"description", "memo", "details"}

// Schema records which input columns were mapped to canonical names.
type Schema struct {
	// Columns maps a canonical name to its index in the input header.
	Columns map[string]int
}

func (s Schema) has(name string) bool {
	_, ok := s.Columns[name]
	return ok
}

// HasDate reports whether a date column was found.
func (s Schema) HasDate() bool { return s.has(ColumnDate) }

// HasPayee reports whether a payee column was found.
func (s Schema) HasPayee() bool { return s.has(ColumnPayee) }

// ColumnStandardizer maps arbitrary tabular headers onto the canonical
// transaction columns and coerces cell values.
type ColumnStandardizer struct{}

// Resolve works out the schema for a header row.
func (ColumnStandardizer) Resolve(header []string) (Schema, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	schema := Schema{Columns: make(map[string]int)}
	claimed := make(map[int]bool)

	claim := func(name string, synonyms []string) {
		for i, h := range normalized {
			if claimed[i] {
				continue
			}
			for _, syn := range synonyms {
				if h == syn {
					schema.Columns[name] = i
					claimed[i] = true
					return
				}
			}
		}
	}

	for _, c := range columnSynonyms {
		claim(c.name, c.synonyms)
	}
	claim(ColumnDescription, descriptionSynonyms)

	if !schema.has(ColumnAmount) {
		return schema, fmt.Errorf("%w: amount (header %v)", ErrMissingColumn, header)
	}
	return schema, nil
}

// Standardized is the result of standardizing a table.
type Standardized struct {
	Schema       Schema
	Transactions []models.Transaction
	// Coerced counts cells that could not be converted and were replaced by
	// a nil date or a zero amount.
	Coerced int
}

// Standardize converts a header plus data rows into transactions. Rows are
// kept in input order; bad cells are coerced, never fatal.
func (cs ColumnStandardizer) Standardize(header []string, rows [][]string) (*Standardized, error) {
	schema, err := cs.Resolve(header)
	if err != nil {
		return nil, err
	}

	out := &Standardized{Schema: schema}
	for _, row := range rows {
		if blankRow(row) {
			continue
		}

		var date *time.Time
		if schema.HasDate() {
			if raw := cell(row, schema.Columns[ColumnDate]); raw != "" {
				if t, ok := parseDate(raw); ok {
					date = &t
				} else {
					out.Coerced++
				}
			} else {
				out.Coerced++
			}
		}

		amount, ok := coerceAmount(cell(row, schema.Columns[ColumnAmount]))
		if !ok {
			out.Coerced++
		}

		var payee, desc string
		if schema.HasPayee() {
			payee = cell(row, schema.Columns[ColumnPayee])
		}
		if idx, ok := schema.Columns[ColumnDescription]; ok {
			desc = cell(row, idx)
		}

		out.Transactions = append(out.Transactions, models.NewTransaction(date, payee, amount, desc))
	}
	return out, nil
}

// coerceAmount parses a cell as an amount. Cells without any digits or that
// fail to parse yield zero and false.
func coerceAmount(raw string) (float64, bool) {
	if !strings.ContainsAny(raw, "0123456789") {
		return 0, false
	}
	amount, err := parseAmount(raw)
	if err != nil {
		return 0, false
	}
	return amount, true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
