package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/insightdelivered/statement-insights/internal/models"
)

var (
	// ErrNoDates is returned by date-dependent operations when no
	// transaction carries a date.
	ErrNoDates = errors.New("transactions have no dates")
	// ErrUnknownPeriod is returned for an unrecognized period granularity.
	ErrUnknownPeriod = errors.New("unknown period")
	// ErrInvalidWindow is returned for a moving-average window below one.
	ErrInvalidWindow = errors.New("invalid window")
)

// Period is a calendar bucket granularity.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts "day", "week", "month" or their one-letter forms.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d", "day", "daily":
		return PeriodDay, nil
	case "w", "week", "weekly":
		return PeriodWeek, nil
	case "m", "month", "monthly":
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
}

// Engine computes descriptive statistics over a transaction set. Amounts are
// used with their sign.
type Engine struct {
	txns []models.Transaction
}

// New returns an engine over a copy of txns.
func New(txns []models.Transaction) *Engine {
	return &Engine{txns: models.CloneAll(txns)}
}

func (e *Engine) amounts() []float64 {
	out := make([]float64, len(e.txns))
	for i, t := range e.txns {
		out[i] = t.Amount
	}
	return out
}

func (e *Engine) dated() []models.Transaction {
	var out []models.Transaction
	for _, t := range e.txns {
		if t.HasDate() {
			out = append(out, t)
		}
	}
	return out
}

// Basic returns count, sum, mean, median, extremes and sample standard
// deviation. Date fields are filled only when some transaction has a date.
func (e *Engine) Basic() models.BasicStats {
	amounts := e.amounts()
	lo, hi := MinMax(amounts)

	s := models.BasicStats{
		TotalTransactions:   len(amounts),
		TotalSpent:          Sum(amounts),
		AverageTransaction:  Mean(amounts),
		MedianTransaction:   Median(amounts),
		LargestTransaction:  hi,
		SmallestTransaction: lo,
		StdDeviation:        StdDev(amounts, 1),
	}

	if first, last, ok := e.span(); ok {
		days := int(math.Floor(last.Sub(first).Hours() / 24))
		s.HasDates = true
		s.DateRangeDays = days
		s.TransactionsPerDay = float64(len(amounts)) / float64(max(days, 1))
	}
	return s
}

// span returns the earliest and latest transaction dates.
func (e *Engine) span() (time.Time, time.Time, bool) {
	var first, last time.Time
	found := false
	for _, t := range e.txns {
		if !t.HasDate() {
			continue
		}
		if !found || t.Date.Before(first) {
			first = *t.Date
		}
		if !found || t.Date.After(last) {
			last = *t.Date
		}
		found = true
	}
	return first, last, found
}

// bucketStart truncates d to the start of its period, keeping d's wall-clock
// calendar day and reporting it as midnight UTC. Weeks start Monday.
func bucketStart(d time.Time, p Period) time.Time {
	y, m, day := d.Date()
	switch p {
	case PeriodWeek:
		offset := (int(d.Weekday()) + 6) % 7
		return time.Date(y, m, day-offset, 0, 0, 0, 0, time.UTC)
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}
}

func nextBucket(start time.Time, p Period) time.Time {
	switch p {
	case PeriodWeek:
		return start.AddDate(0, 0, 7)
	case PeriodMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// ByPeriod aggregates spending into contiguous calendar buckets from the
// first to the last date. Buckets without transactions are reported with
// zero values.
func (e *Engine) ByPeriod(p Period) ([]models.PeriodSummary, error) {
	p, err := ParsePeriod(string(p))
	if err != nil {
		return nil, err
	}
	dated := e.dated()
	if len(dated) == 0 {
		return nil, fmt.Errorf("spending by period: %w", ErrNoDates)
	}

	type agg struct {
		total float64
		count int
	}
	var first, end time.Time
	buckets := make(map[time.Time]*agg)
	for _, t := range dated {
		k := bucketStart(*t.Date, p)
		a, ok := buckets[k]
		if !ok {
			a = &agg{}
			buckets[k] = a
		}
		a.total += t.Amount
		a.count++
		if first.IsZero() || k.Before(first) {
			first = k
		}
		if k.After(end) {
			end = k
		}
	}

	var out []models.PeriodSummary
	for start := first; !start.After(end); start = nextBucket(start, p) {
		ps := models.PeriodSummary{Start: start}
		if a, ok := buckets[start]; ok {
			ps.Total = Round2(a.total)
			ps.Count = a.count
			ps.Average = Round2(a.total / float64(a.count))
		}
		out = append(out, ps)
	}
	return out, nil
}

// Trends returns daily totals with a trailing moving average over window
// points (at least one point required) and its first difference.
func (e *Engine) Trends(window int) ([]models.TrendPoint, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}
	dated := e.dated()
	if len(dated) == 0 {
		return nil, fmt.Errorf("spending trends: %w", ErrNoDates)
	}

	daily := make(map[time.Time]float64)
	for _, t := range dated {
		daily[t.Day()] += t.Amount
	}
	days := make([]time.Time, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	amounts := make([]float64, len(days))
	for i, d := range days {
		amounts[i] = daily[d]
	}
	return MovingAverage(days, amounts, window), nil
}

// MovingAverage builds trend points from an ordered series. The average
// covers the trailing window points, or fewer at the start of the series.
func MovingAverage(days []time.Time, amounts []float64, window int) []models.TrendPoint {
	out := make([]models.TrendPoint, len(amounts))
	for i := range amounts {
		lo := max(0, i-window+1)
		out[i] = models.TrendPoint{
			Date:      days[i],
			Amount:    amounts[i],
			MovingAvg: Mean(amounts[lo : i+1]),
		}
		if i > 0 {
			diff := out[i].MovingAvg - out[i-1].MovingAvg
			out[i].Trend = &diff
		}
	}
	return out
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) contains(d time.Time) bool {
	day := bucketStart(d, PeriodDay)
	return !day.Before(bucketStart(r.Start, PeriodDay)) && !day.After(bucketStart(r.End, PeriodDay))
}

// ComparePeriods compares total, count and mean spending between two date
// ranges. The percentage change is 0 when the first total is not positive.
func (e *Engine) ComparePeriods(p1, p2 DateRange) (models.PeriodComparison, error) {
	dated := e.dated()
	if len(dated) == 0 {
		return models.PeriodComparison{}, fmt.Errorf("compare periods: %w", ErrNoDates)
	}

	var a1, a2 []float64
	for _, t := range dated {
		if p1.contains(*t.Date) {
			a1 = append(a1, t.Amount)
		}
		if p2.contains(*t.Date) {
			a2 = append(a2, t.Amount)
		}
	}

	c := models.PeriodComparison{
		Period1Total:   Sum(a1),
		Period1Count:   len(a1),
		Period1Average: Mean(a1),
		Period2Total:   Sum(a2),
		Period2Count:   len(a2),
		Period2Average: Mean(a2),
	}
	c.TotalDifference = c.Period2Total - c.Period1Total
	if c.Period1Total > 0 {
		c.PercentageChange = c.TotalDifference / c.Period1Total * 100
	}
	return c, nil
}

// TopMerchants returns the n payees with the largest total spending. n <= 0
// returns all payees.
func (e *Engine) TopMerchants(n int) []models.MerchantSummary {
	type agg struct {
		total float64
		count int
	}
	byPayee := make(map[string]*agg)
	for _, t := range e.txns {
		a, ok := byPayee[t.Payee]
		if !ok {
			a = &agg{}
			byPayee[t.Payee] = a
		}
		a.total += t.Amount
		a.count++
	}

	out := make([]models.MerchantSummary, 0, len(byPayee))
	for payee, a := range byPayee {
		out = append(out, models.MerchantSummary{
			Payee:   payee,
			Total:   Round2(a.total),
			Count:   a.count,
			Average: Round2(a.total / float64(a.count)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Payee < out[j].Payee
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// CategoryTotals aggregates spending per category, largest total first.
func (e *Engine) CategoryTotals() []models.CategoryTotal {
	type agg struct {
		total float64
		count int
	}
	byCat := make(map[string]*agg)
	for _, t := range e.txns {
		a, ok := byCat[t.Category]
		if !ok {
			a = &agg{}
			byCat[t.Category] = a
		}
		a.total += t.Amount
		a.count++
	}

	out := make([]models.CategoryTotal, 0, len(byCat))
	for cat, a := range byCat {
		out = append(out, models.CategoryTotal{
			Category: cat,
			Total:    Round2(a.total),
			Count:    a.count,
			Average:  Round2(a.total / float64(a.count)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthCategories holds per-category totals for one calendar month.
type MonthCategories struct {
	Month  time.Time          `json:"month"`
	Totals map[string]float64 `json:"totals"`
}

// MonthlyCategoryBreakdown pivots spending by month and category. Every
// month lists every category seen in the data, with zero where absent.
func (e *Engine) MonthlyCategoryBreakdown() ([]MonthCategories, error) {
	dated := e.dated()
	if len(dated) == 0 {
		return nil, fmt.Errorf("monthly category breakdown: %w", ErrNoDates)
	}

	categories := make(map[string]bool)
	byMonth := make(map[time.Time]map[string]float64)
	for _, t := range dated {
		m := bucketStart(*t.Date, PeriodMonth)
		if byMonth[m] == nil {
			byMonth[m] = make(map[string]float64)
		}
		byMonth[m][t.Category] += t.Amount
		categories[t.Category] = true
	}

	months := make([]time.Time, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := make([]MonthCategories, len(months))
	for i, m := range months {
		totals := make(map[string]float64, len(categories))
		for cat := range categories {
			totals[cat] = Round2(byMonth[m][cat])
		}
		out[i] = MonthCategories{Month: m, Totals: totals}
	}
	return out, nil
}
