package anomaly

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/insightdelivered/statement-insights/internal/models"
)

func at(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func tx(date *time.Time, payee string, amount float64, category string) models.Transaction {
	t := models.NewTransaction(date, payee, amount, "")
	t.Category = category
	return t
}

func TestStatistical(t *testing.T) {
	baselines := map[string]models.Baseline{
		"Food":   {Count: 20, Mean: 50, StdDev: 10, Median: 50, Q1: 40, Q3: 60},
		"Flat":   {Count: 4, Mean: 10, StdDev: 0, Median: 10, Q1: 10, Q3: 10},
		"Single": {Count: 1, Mean: 10, StdDev: 0, Median: 10, Q1: 5, Q3: 15},
	}

	tests := []struct {
		name   string
		txns   []models.Transaction
		expect []int
	}{
		{
			name: "z-score boundary",
			txns: []models.Transaction{
				tx(nil, "a", 81, "Food"), // z = 3.1
				tx(nil, "b", 79, "Food"), // z = 2.9
				tx(nil, "c", -81, "Food"),
			},
			expect: []int{0, 2},
		},
		{
			name:   "degenerate IQR flags nothing",
			txns:   []models.Transaction{tx(nil, "a", 1000, "Flat")},
			expect: nil,
		},
		{
			name: "fences only without variance",
			txns: []models.Transaction{
				tx(nil, "a", 40, "Single"),
				tx(nil, "b", 29, "Single"),
			},
			expect: []int{0},
		},
		{
			name:   "unknown category skipped",
			txns:   []models.Transaction{tx(nil, "a", 1e6, "Nope")},
			expect: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Statistical(tt.txns, baselines)
			if !reflect.DeepEqual(got, tt.expect) {
				t.Errorf("got %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestComputeBaselines(t *testing.T) {
	b := ComputeBaselines([]models.Transaction{
		tx(nil, "a", -10, "Food"),
		tx(nil, "b", 20, "Food"),
		tx(nil, "c", 30, "Food"),
		tx(nil, "d", 40, "Food"),
		tx(nil, "e", 5, "Travel"),
	})

	food := b["Food"]
	if food.Count != 4 || food.Mean != 25 || food.Median != 25 {
		t.Errorf("food baseline = %+v", food)
	}
	if food.Q1 != 17.5 || food.Q3 != 32.5 {
		t.Errorf("food quartiles = %v, %v, want 17.5, 32.5", food.Q1, food.Q3)
	}
	if b["Travel"].StdDev != 0 {
		t.Errorf("single value std = %v, want 0", b["Travel"].StdDev)
	}
}

// spread builds n same-category transactions between 50 and 70 on distinct
// days and payees.
func spread(n int) []models.Transaction {
	var txns []models.Transaction
	for i := 0; i < n; i++ {
		txns = append(txns, tx(at(2024, 1, 1+i%28), fmt.Sprintf("Shop %d", i), float64(50+i%21), "Shopping"))
	}
	return txns
}

func TestDetectAll_LargeOutlier(t *testing.T) {
	txns := append(spread(50), tx(at(2024, 1, 15), "Jeweller", 1000, "Shopping"))
	big := len(txns) - 1

	e, err := NewEngine(DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := e.DetectAll(txns)

	if !reflect.DeepEqual(res.Statistical, []int{big}) {
		t.Errorf("statistical = %v, want [%d]", res.Statistical, big)
	}
	if len(res.Outlier) == 0 || len(res.Outlier) > 5 {
		t.Errorf("outlier count = %d, want 1..5", len(res.Outlier))
	}
	found := false
	for _, i := range res.Outlier {
		found = found || i == big
	}
	if !found {
		t.Errorf("outlier detector missed the 1000 transaction: %v", res.Outlier)
	}
	if len(res.Frequency) != 0 {
		t.Errorf("frequency = %v, want none", res.Frequency)
	}

	flagged := 0
	for _, txn := range res.Transactions {
		if txn.IsAnomaly {
			flagged++
		}
	}
	if flagged != len(res.Flagged()) {
		t.Errorf("flag count %d != union size %d", flagged, len(res.Flagged()))
	}
	for _, txn := range txns {
		if txn.IsAnomaly {
			t.Fatal("input transactions must not be modified")
		}
	}
}

func TestDetectAll_Deterministic(t *testing.T) {
	txns := append(spread(30), tx(at(2024, 1, 3), "Jeweller", 900, "Shopping"))
	e1, _ := NewEngine(DefaultOptions())
	e2, _ := NewEngine(DefaultOptions())

	if a, b := e1.DetectAll(txns).Outlier, e2.DetectAll(txns).Outlier; !reflect.DeepEqual(a, b) {
		t.Errorf("outlier results differ between runs: %v vs %v", a, b)
	}
}

func TestDetectAll_SmallSample(t *testing.T) {
	var txns []models.Transaction
	for i, amt := range []float64{10, 11, 12, 13, 100} {
		txns = append(txns, tx(at(2024, 2, 1+i*5), fmt.Sprintf("P%d", i), amt, "Food"))
	}

	e, _ := NewEngine(DefaultOptions())
	res := e.DetectAll(txns)

	if len(res.Outlier) != 0 {
		t.Errorf("outlier detector should be skipped, got %v", res.Outlier)
	}
	if !reflect.DeepEqual(res.Statistical, []int{4}) {
		t.Errorf("statistical = %v, want [4]", res.Statistical)
	}
}

func TestDetectAll_ResetsFlags(t *testing.T) {
	txns := []models.Transaction{tx(nil, "a", 10, "Food"), tx(nil, "b", 10, "Food")}
	txns[0].IsAnomaly = true

	e, _ := NewEngine(DefaultOptions())
	res := e.DetectAll(txns)
	if res.Transactions[0].IsAnomaly {
		t.Error("expected stale flag to be reset")
	}
}

func TestFrequency(t *testing.T) {
	txns := []models.Transaction{
		tx(at(2024, 1, 20), "Coffee", 4, "Food"),
		tx(at(2024, 1, 1), "Coffee", 4, "Food"),
		tx(at(2024, 1, 11), "Coffee", 4, "Food"),
		tx(at(2024, 1, 10), "Coffee", 4, "Food"),
		tx(nil, "Coffee", 4, "Food"),
		tx(at(2024, 1, 1), "Rent", 900, "Housing"),
		tx(at(2024, 1, 31), "Rent", 900, "Housing"),
		tx(at(2024, 3, 1), "Same Day", 1, "Other"),
		tx(at(2024, 3, 1), "Same Day", 1, "Other"),
	}

	got := Frequency(txns)
	if want := []int{2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSummarize(t *testing.T) {
	var txns []models.Transaction
	for i := 0; i < 12; i++ {
		txn := tx(at(2024, 1, 1+i), "P", float64(i+1), "Food")
		if i%2 == 0 {
			txn.Amount = -txn.Amount
		}
		txn.IsAnomaly = true
		txns = append(txns, txn)
	}
	for i := 0; i < 3; i++ {
		txns = append(txns, tx(nil, "Q", 1000, "Food"))
	}

	s := Summarize(txns)
	if s.TotalTransactions != 15 || s.AnomalyCount != 12 {
		t.Errorf("counts = %d/%d", s.TotalTransactions, s.AnomalyCount)
	}
	if s.AnomalyPercentage != 80 {
		t.Errorf("percentage = %v, want 80", s.AnomalyPercentage)
	}
	if s.TotalAnomalyAmount != 78 {
		t.Errorf("total anomaly amount = %v, want 78", s.TotalAnomalyAmount)
	}
	if len(s.Anomalies) != 10 {
		t.Fatalf("listed %d anomalies, want 10", len(s.Anomalies))
	}
	if s.Anomalies[0].Amount != 12 || s.Anomalies[1].Amount != -11 {
		t.Errorf("anomalies not ordered by absolute amount: %+v", s.Anomalies[:2])
	}
	if s.Anomalies[0].Date != "2024-01-12" {
		t.Errorf("date = %q, want 2024-01-12", s.Anomalies[0].Date)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.AnomalyPercentage != 0 || s.AnomalyCount != 0 || len(s.Anomalies) != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestNewEngine_Options(t *testing.T) {
	tests := []struct {
		contamination float64
		wantErr       bool
	}{
		{0.1, false},
		{0.5, false},
		{0, true},
		{0.6, true},
		{-0.1, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.contamination), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Contamination = tt.contamination
			_, err := NewEngine(opts)
			if tt.wantErr != (err != nil) {
				t.Fatalf("NewEngine(contamination=%v) error = %v, wantErr %v", tt.contamination, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("expected ErrInvalidOptions, got %v", err)
			}
		})
	}
}

func TestEngine_BaselineMemo(t *testing.T) {
	e, _ := NewEngine(DefaultOptions())
	first := []models.Transaction{tx(nil, "a", 10, "Food")}
	second := []models.Transaction{tx(nil, "a", 99, "Food")}

	if got := e.Baselines(first)["Food"].Mean; got != 10 {
		t.Fatalf("mean = %v, want 10", got)
	}
	if got := e.Baselines(second)["Food"].Mean; got != 10 {
		t.Errorf("memoized mean = %v, want 10", got)
	}
	e.Recompute(second)
	if got := e.Baselines(first)["Food"].Mean; got != 99 {
		t.Errorf("recomputed mean = %v, want 99", got)
	}
}

func TestCategoryHash(t *testing.T) {
	if categoryHash("Food & Dining") != categoryHash("Food & Dining") {
		t.Error("hash must be stable")
	}
	if h := categoryHash("Travel"); h >= 100 {
		t.Errorf("hash %d out of range", h)
	}
}

func TestAveragePathLength(t *testing.T) {
	if averagePathLength(1) != 0 || averagePathLength(2) != 1 {
		t.Error("unexpected base cases")
	}
	if c := averagePathLength(256); c < 10 || c > 11 {
		t.Errorf("c(256) = %v, want about 10.24", c)
	}
}
