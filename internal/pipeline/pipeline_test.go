package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/insightdelivered/statement-insights/internal/anomaly"
	"github.com/insightdelivered/statement-insights/internal/logger"
	"github.com/insightdelivered/statement-insights/internal/models"
	"github.com/insightdelivered/statement-insights/internal/parser"
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func day(d int) *time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
	return &t
}

func TestAnalyzeText_SingleLine(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))

	report, err := newAnalyzer(t).AnalyzeText(ctx, "01/15/2024  Amazon.com   $45.99")
	if err != nil {
		t.Fatalf("AnalyzeText: %v", err)
	}
	if len(report.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(report.Transactions))
	}

	got := report.Transactions[0]
	if got.Payee != "Amazon.com" {
		t.Errorf("payee = %q, want Amazon.com", got.Payee)
	}
	if got.Amount != 45.99 {
		t.Errorf("amount = %v, want 45.99", got.Amount)
	}
	if !got.HasDate() || got.Date.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("date = %v, want 2024-01-15", got.Date)
	}
	if got.Category != "Shopping" {
		t.Errorf("category = %q, want Shopping", got.Category)
	}
	if got.IsAnomaly {
		t.Error("single transaction should not be flagged")
	}

	if len(report.Categories) != 1 || report.Categories[0].Category != "Shopping" {
		t.Errorf("categories = %+v", report.Categories)
	}
	if report.Insights.TopMerchant != "Amazon.com" {
		t.Errorf("top merchant = %q", report.Insights.TopMerchant)
	}
	if len(report.Trends) != 1 {
		t.Errorf("got %d trend points, want 1", len(report.Trends))
	}
	if !strings.Contains(buf.String(), "analysis complete") {
		t.Errorf("expected stage logs, got: %s", buf.String())
	}
}

func TestAnalyzeText_Statement(t *testing.T) {
	text := `ACME BANK STATEMENT
01/15/2024  Amazon.com   $45.99
01/16/2024 Starbucks Coffee $5.75
01/14/2024 Shell Oil $40.00
13/13/2024 Broken Row $9.99
01/16/2024 Starbucks Coffee $5.75`

	report, err := newAnalyzer(t).AnalyzeText(context.Background(), text)
	if err != nil {
		t.Fatalf("AnalyzeText: %v", err)
	}
	if len(report.Transactions) != 3 {
		t.Fatalf("got %d transactions, want 3", len(report.Transactions))
	}
	if report.Unparsed != 1 {
		t.Errorf("Unparsed = %d, want 1", report.Unparsed)
	}
	if len(report.Lines) != 6 {
		t.Errorf("got %d debug lines, want 6", len(report.Lines))
	}

	want := map[string]string{
		"Amazon.com":       "Shopping",
		"Starbucks Coffee": "Food & Dining",
		"Shell Oil":        "Transportation",
	}
	for _, txn := range report.Transactions {
		if txn.Category != want[txn.Payee] {
			t.Errorf("%s: category = %q, want %q", txn.Payee, txn.Category, want[txn.Payee])
		}
	}
}

func TestAnalyzeTransactions_Outlier(t *testing.T) {
	var txns []models.Transaction
	for i := 0; i < 50; i++ {
		txns = append(txns, models.NewTransaction(day(i), "Corner Shop", float64(50+i%21), ""))
	}
	big := models.NewTransaction(day(20), "Electronics Shop", 1000, "")
	txns = append(txns, big)

	report, err := newAnalyzer(t).AnalyzeTransactions(context.Background(), txns)
	if err != nil {
		t.Fatalf("AnalyzeTransactions: %v", err)
	}

	if report.Detectors.Statistical == 0 {
		t.Error("expected the statistical detector to fire")
	}
	var flagged bool
	for _, txn := range report.Transactions {
		if txn.Amount == 1000 {
			flagged = txn.IsAnomaly
		}
	}
	if !flagged {
		t.Error("expected the 1000 transaction to be flagged")
	}
	if report.Anomalies.AnomalyCount == 0 || report.Anomalies.Anomalies[0].Amount != 1000 {
		t.Errorf("anomaly summary = %+v", report.Anomalies)
	}
	for _, txn := range txns {
		if txn.IsAnomaly || txn.Category != models.CategoryUncategorized {
			t.Fatal("input transactions were modified")
		}
	}
}

func TestAnalyzeTransactions_SmallSample(t *testing.T) {
	var txns []models.Transaction
	for i := 0; i < 8; i++ {
		txns = append(txns, models.NewTransaction(day(i*3), "Corner Shop", float64(50+i), ""))
	}
	txns = append(txns, models.NewTransaction(day(30), "Corner Shop", 1000, ""))

	report, err := newAnalyzer(t).AnalyzeTransactions(context.Background(), txns)
	if err != nil {
		t.Fatalf("AnalyzeTransactions: %v", err)
	}
	if report.Detectors.Outlier != 0 {
		t.Errorf("outlier detector flagged %d with fewer than %d transactions", report.Detectors.Outlier, anomaly.MinOutlierSample)
	}
	if report.Detectors.Statistical == 0 {
		t.Error("expected the statistical detector to fire")
	}
}

func TestAnalyzeTransactions_Undated(t *testing.T) {
	txns := []models.Transaction{
		models.NewTransaction(nil, "Amazon", 20, ""),
		models.NewTransaction(nil, "Amazon", 20, ""),
	}

	report, err := newAnalyzer(t).AnalyzeTransactions(context.Background(), txns)
	if err != nil {
		t.Fatalf("AnalyzeTransactions: %v", err)
	}
	if len(report.Duplicates) != 0 || report.Insights.PotentialDuplicates != 0 {
		t.Errorf("undated input produced duplicates: %+v", report.Duplicates)
	}
	if report.Trends != nil {
		t.Errorf("undated input produced trends: %+v", report.Trends)
	}
	if report.Insights.BasicStats.HasDates {
		t.Error("HasDates should be false")
	}
}

func TestAnalyzeTransactions_Empty(t *testing.T) {
	report, err := newAnalyzer(t).AnalyzeTransactions(context.Background(), nil)
	if err != nil {
		t.Fatalf("AnalyzeTransactions: %v", err)
	}
	if report.Transactions == nil || len(report.Transactions) != 0 {
		t.Errorf("transactions = %v, want empty slice", report.Transactions)
	}
	if report.Anomalies.AnomalyPercentage != 0 {
		t.Errorf("anomaly percentage = %v, want 0", report.Anomalies.AnomalyPercentage)
	}
}

func TestAnalyzeTransactions_Duplicates(t *testing.T) {
	txns := []models.Transaction{
		models.NewTransaction(day(0), "Netflix", 15.99, ""),
		models.NewTransaction(day(1), "Netflix", 15.99, ""),
		models.NewTransaction(day(9), "Spotify", 9.99, ""),
	}

	report, err := newAnalyzer(t).AnalyzeTransactions(context.Background(), txns)
	if err != nil {
		t.Fatalf("AnalyzeTransactions: %v", err)
	}
	if len(report.Duplicates) != 1 {
		t.Fatalf("got %d duplicate pairs, want 1", len(report.Duplicates))
	}
	if report.Duplicates[0].DaysApart != 1 {
		t.Errorf("days apart = %d, want 1", report.Duplicates[0].DaysApart)
	}
}

func TestAnalyzeCSV(t *testing.T) {
	input := "Date,Description,Amount\n2024-01-15,Amazon.com,45.99\n2024-01-16,Starbucks,5.75\nnot a date,Uber,abc\n"

	report, err := newAnalyzer(t).AnalyzeCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("AnalyzeCSV: %v", err)
	}
	if len(report.Transactions) != 3 {
		t.Fatalf("got %d transactions, want 3", len(report.Transactions))
	}
	if report.Coerced != 2 {
		t.Errorf("Coerced = %d, want 2", report.Coerced)
	}
	if report.Transactions[0].Category != "Shopping" {
		t.Errorf("category = %q, want Shopping", report.Transactions[0].Category)
	}

	_, err = newAnalyzer(t).AnalyzeCSV(context.Background(), strings.NewReader("Date,Merchant\n2024-01-15,Amazon\n"))
	if !errors.Is(err, parser.ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestAnalyze_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAnalyzer(t).AnalyzeText(ctx, "01/15/2024  Amazon.com   $45.99")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"contamination", func(o *Options) { o.Anomaly.Contamination = 0.7 }},
		{"duplicate window", func(o *Options) { o.DuplicateWindow = -1 }},
		{"trend window", func(o *Options) { o.TrendWindow = 0 }},
		{"layout", func(o *Options) { o.Layout = "sideways" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			if _, err := New(opts); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestAnalyzeText_ForcedLayout(t *testing.T) {
	opts := DefaultOptions()
	opts.Layout = string(parser.ModeTrailing)
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := a.AnalyzeText(context.Background(), "15/01/2024 TESCO STORES 23.40")
	if err != nil {
		t.Fatalf("AnalyzeText: %v", err)
	}
	if len(report.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(report.Transactions))
	}
	if got := report.Transactions[0]; got.Amount != 23.40 || got.Payee != "TESCO STORES" {
		t.Errorf("got %+v", got)
	}
}
