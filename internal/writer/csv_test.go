package writer

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/insightdelivered/statement-insights/internal/models"
)

func sampleTransactions() []models.Transaction {
	d1 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	a := models.NewTransaction(&d1, "Amazon.com", 45.99, "01/15/2024 Amazon.com $45.99")
	a.Category = "Shopping"
	b := models.NewTransaction(&d2, "Best, Buy", 1000, "")
	b.Category = "Shopping"
	b.IsAnomaly = true
	c := models.NewTransaction(nil, "Unknown", 0, "")
	return []models.Transaction{a, b, c}
}

func readAll(t *testing.T, s string) [][]string {
	t.Helper()
	r := csv.NewReader(strings.NewReader(s))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v\n%s", err, s)
	}
	return records
}

func TestCSVWriter_WriteTransactions(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true, Source: "statement.txt"}
	if err := w.WriteTransactions(&buf, sampleTransactions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := readAll(t, buf.String())
	// 3 metadata rows + 1 header + 3 transactions
	if len(records) != 7 {
		t.Fatalf("expected 7 records, got %d", len(records))
	}
	if records[0][0] != "# Source" || records[0][1] != "statement.txt" {
		t.Errorf("unexpected metadata row %v", records[0])
	}
	if got := strings.Join(records[3], ","); got != "id,date,payee,amount,category,description,is_anomaly" {
		t.Errorf("unexpected column headers %q", got)
	}

	first := records[4]
	if first[1] != "2024-01-15" || first[2] != "Amazon.com" || first[3] != "45.99" {
		t.Errorf("unexpected first row %v", first)
	}
	if records[5][2] != "Best, Buy" {
		t.Errorf("payee with comma not preserved: %v", records[5])
	}
	if records[5][6] != "true" {
		t.Errorf("expected anomaly flag, got %v", records[5])
	}
	if records[6][1] != "" || records[6][3] != "0.00" {
		t.Errorf("unexpected undated row %v", records[6])
	}
}

func TestCSVWriter_WriteNoHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: false, Source: "statement.txt"}
	if err := w.WriteTransactions(&buf, sampleTransactions()[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "# Source") {
		t.Error("should not have metadata when IncludeHeader=false")
	}
	if !strings.HasPrefix(output, "id,date,payee") {
		t.Errorf("expected column headers first, got %q", output)
	}
}

func TestCSVWriter_WriteAnomalies(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{}
	if err := w.WriteAnomalies(&buf, sampleTransactions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := readAll(t, buf.String())
	if len(records) != 2 {
		t.Fatalf("expected header + 1 anomaly, got %d records", len(records))
	}
	if records[1][3] != "1000.00" {
		t.Errorf("unexpected anomaly row %v", records[1])
	}
}

func TestCSVWriter_WriteDuplicates(t *testing.T) {
	pairs := []models.DuplicatePair{{
		Date1:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Payee1:    "Netflix",
		Amount:    15.99,
		Date2:     time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
		Payee2:    "Netflix",
		DaysApart: 1,
	}}

	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	if err := w.WriteDuplicates(&buf, pairs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "2024-01-15,Netflix,15.99,2024-01-16,Netflix,1"
	if !strings.Contains(buf.String(), want) {
		t.Errorf("expected row %q in output:\n%s", want, buf.String())
	}
	if !strings.Contains(buf.String(), "# Rows,1") {
		t.Errorf("expected row count metadata in output:\n%s", buf.String())
	}
}

func TestCSVWriter_WriteCategories(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{}
	totals := []models.CategoryTotal{{Category: "Shopping", Total: 1045.99, Count: 2, Average: 523}}
	if err := w.WriteCategories(&buf, totals); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := readAll(t, buf.String())
	if len(records) != 2 || records[0][0] != "category" || records[1][0] != "Shopping" {
		t.Errorf("unexpected records %v", records)
	}
}

func TestCSVWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := &CSVWriter{}
	if err := w.WriteToFile(path, sampleTransactions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if len(readAll(t, string(data))) != 4 {
		t.Errorf("expected header + 3 rows in file")
	}

	if err := w.WriteToFile(filepath.Join(t.TempDir(), "missing", "out.csv"), nil); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{25.99, "25.99"},
		{1234.56, "1234.56"},
		{0, "0.00"},
		{-5.5, "-5.50"},
	}

	for _, tt := range tests {
		got := formatAmount(tt.input)
		if got != tt.expected {
			t.Errorf("formatAmount(%f): got %q, want %q", tt.input, got, tt.expected)
		}
	}
}
