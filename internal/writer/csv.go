package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/insightdelivered/statement-insights/internal/models"
	"github.com/insightdelivered/statement-insights/internal/pipeline"
)

// Export tables accepted by WriteReport.
const (
	ExportTransactions = "transactions"
	ExportAnomalies    = "anomalies"
	ExportDuplicates   = "duplicates"
	ExportCategories   = "categories"
)

// ErrUnknownExport is returned by WriteReport for an unrecognized table.
var ErrUnknownExport = errors.New("unknown export")

// CSVWriter exports analysis results as CSV.
type CSVWriter struct {
	// IncludeHeader writes "# key,value" metadata rows before the table.
	IncludeHeader bool
	// Source names the analyzed input in the metadata rows.
	Source string
}

type transactionRow struct {
	ID          string `csv:"id"`
	Date        string `csv:"date"`
	Payee       string `csv:"payee"`
	Amount      string `csv:"amount"`
	Category    string `csv:"category"`
	Description string `csv:"description"`
	IsAnomaly   bool   `csv:"is_anomaly"`
}

type duplicateRow struct {
	Date1     string `csv:"date1"`
	Payee1    string `csv:"payee1"`
	Amount    string `csv:"amount"`
	Date2     string `csv:"date2"`
	Payee2    string `csv:"payee2"`
	DaysApart int    `csv:"days_apart"`
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, txns []models.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	if err := w.WriteTransactions(f, txns); err != nil {
		return err
	}
	return f.Close()
}

// WriteReport writes one table of an analysis report.
func (w *CSVWriter) WriteReport(out io.Writer, export string, report *pipeline.Report) error {
	switch export {
	case ExportTransactions, "":
		return w.WriteTransactions(out, report.Transactions)
	case ExportAnomalies:
		return w.WriteAnomalies(out, report.Transactions)
	case ExportDuplicates:
		return w.WriteDuplicates(out, report.Duplicates)
	case ExportCategories:
		return w.WriteCategories(out, report.Categories)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExport, export)
	}
}

// WriteTransactions writes every transaction, one row each.
func (w *CSVWriter) WriteTransactions(out io.Writer, txns []models.Transaction) error {
	rows := make([]transactionRow, len(txns))
	for i, t := range txns {
		rows[i] = toRow(t)
	}
	return w.marshal(out, "transactions", len(rows), rows)
}

// WriteAnomalies writes only the transactions flagged as anomalies.
func (w *CSVWriter) WriteAnomalies(out io.Writer, txns []models.Transaction) error {
	rows := []transactionRow{}
	for _, t := range txns {
		if t.IsAnomaly {
			rows = append(rows, toRow(t))
		}
	}
	return w.marshal(out, "anomalies", len(rows), rows)
}

// WriteDuplicates writes potential duplicate pairs.
func (w *CSVWriter) WriteDuplicates(out io.Writer, pairs []models.DuplicatePair) error {
	rows := make([]duplicateRow, len(pairs))
	for i, p := range pairs {
		rows[i] = duplicateRow{
			Date1:     p.Date1.Format("2006-01-02"),
			Payee1:    p.Payee1,
			Amount:    formatAmount(p.Amount),
			Date2:     p.Date2.Format("2006-01-02"),
			Payee2:    p.Payee2,
			DaysApart: p.DaysApart,
		}
	}
	return w.marshal(out, "duplicates", len(rows), rows)
}

// WriteCategories writes per-category totals.
func (w *CSVWriter) WriteCategories(out io.Writer, totals []models.CategoryTotal) error {
	if totals == nil {
		totals = []models.CategoryTotal{}
	}
	return w.marshal(out, "categories", len(totals), totals)
}

func (w *CSVWriter) marshal(out io.Writer, kind string, n int, rows interface{}) error {
	if w.IncludeHeader {
		if err := w.writeMetadata(out, kind, n); err != nil {
			return err
		}
	}
	if err := gocsv.Marshal(rows, out); err != nil {
		return fmt.Errorf("failed to write CSV %s: %w", kind, err)
	}
	return nil
}

func (w *CSVWriter) writeMetadata(out io.Writer, kind string, n int) error {
	writer := csv.NewWriter(out)
	if w.Source != "" {
		writer.Write([]string{"# Source", w.Source})
	}
	writer.Write([]string{"# Export", kind})
	writer.Write([]string{"# Rows", strconv.Itoa(n)})
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write CSV metadata: %w", err)
	}
	return nil
}

func toRow(t models.Transaction) transactionRow {
	row := transactionRow{
		ID:          t.ID,
		Payee:       t.Payee,
		Amount:      formatAmount(t.Amount),
		Category:    t.Category,
		Description: t.Description,
		IsAnomaly:   t.IsAnomaly,
	}
	if t.HasDate() {
		row.Date = t.Date.Format("2006-01-02")
	}
	return row
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
