package parser

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
)

// ParseCSV reads a tabular statement export and standardizes its columns.
// The first record is the header.
func ParseCSV(r io.Reader) (*Standardized, error) {
	records, err := gocsv.LazyCSVReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty CSV input", ErrMissingColumn)
	}

	out, err := ColumnStandardizer{}.Standardize(records[0], records[1:])
	if err != nil {
		return nil, err
	}
	for i := range out.Transactions {
		out.Transactions[i].ID = uuid.NewString()
	}
	return out, nil
}
