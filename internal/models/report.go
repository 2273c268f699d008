package models

import "time"

// Baseline holds the per-category reference statistics used by the
// statistical anomaly detector. Amounts are absolute values.
type Baseline struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
}

// IQR returns the interquartile range.
func (b Baseline) IQR() float64 {
	return b.Q3 - b.Q1
}

// AnomalyEntry is one row of the anomaly summary.
type AnomalyEntry struct {
	Date        string  `json:"date"`
	Payee       string  `json:"payee"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

// AnomalySummary reports how much of a transaction set was flagged.
type AnomalySummary struct {
	TotalTransactions  int            `json:"total_transactions"`
	AnomalyCount       int            `json:"anomaly_count"`
	AnomalyPercentage  float64        `json:"anomaly_percentage"`
	TotalAnomalyAmount float64        `json:"total_anomaly_amount"`
	Anomalies          []AnomalyEntry `json:"anomalies"`
}

// FlaggedTransaction is a transaction returned by a standalone detection method.
type FlaggedTransaction struct {
	Transaction
	ZScore float64 `json:"z_score,omitempty"`
	Reason string  `json:"reason"`
}

// DuplicatePair is a potential duplicate charge.
type DuplicatePair struct {
	Date1     time.Time `json:"date1"`
	Payee1    string    `json:"payee1"`
	Amount    float64   `json:"amount"`
	Date2     time.Time `json:"date2"`
	Payee2    string    `json:"payee2"`
	DaysApart int       `json:"days_apart"`
}

// BasicStats are descriptive statistics over transaction amounts.
type BasicStats struct {
	TotalTransactions   int     `json:"total_transactions"`
	TotalSpent          float64 `json:"total_spent"`
	AverageTransaction  float64 `json:"average_transaction"`
	MedianTransaction   float64 `json:"median_transaction"`
	LargestTransaction  float64 `json:"largest_transaction"`
	SmallestTransaction float64 `json:"smallest_transaction"`
	StdDeviation        float64 `json:"std_deviation"`
	HasDates            bool    `json:"has_dates"`
	DateRangeDays       int     `json:"date_range_days,omitempty"`
	TransactionsPerDay  float64 `json:"transactions_per_day,omitempty"`
}

// PeriodSummary aggregates spending for one calendar bucket.
type PeriodSummary struct {
	Start   time.Time `json:"start"`
	Total   float64   `json:"total"`
	Count   int       `json:"count"`
	Average float64   `json:"average"`
}

// TrendPoint is one day of the moving-average series. Trend is nil for the
// first point.
type TrendPoint struct {
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
	MovingAvg float64   `json:"moving_avg"`
	Trend     *float64  `json:"trend"`
}

// PeriodComparison compares spending across two date ranges.
type PeriodComparison struct {
	Period1Total     float64 `json:"period1_total"`
	Period1Count     int     `json:"period1_count"`
	Period1Average   float64 `json:"period1_average"`
	Period2Total     float64 `json:"period2_total"`
	Period2Count     int     `json:"period2_count"`
	Period2Average   float64 `json:"period2_average"`
	TotalDifference  float64 `json:"total_difference"`
	PercentageChange float64 `json:"percentage_change"`
}

// MerchantSummary aggregates spending for one payee.
type MerchantSummary struct {
	Payee   string  `json:"payee"`
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// Insights is the report consumed by the presentation layer.
type Insights struct {
	BasicStats          BasicStats      `json:"basic_stats"`
	TopCategory         string          `json:"top_category,omitempty"`
	TopCategoryAmount   float64         `json:"top_category_amount"`
	CategoryBreakdown   []CategoryTotal `json:"category_breakdown,omitempty"`
	TopMerchant         string          `json:"top_merchant,omitempty"`
	TopMerchantAmount   float64         `json:"top_merchant_amount"`
	AnomalyCount        int             `json:"anomaly_count"`
	PotentialDuplicates int             `json:"potential_duplicates"`
}
