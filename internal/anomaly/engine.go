package anomaly

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/insightdelivered/statement-insights/internal/models"
	"github.com/insightdelivered/statement-insights/internal/stats"
)

// ErrInvalidOptions is returned by NewEngine for out-of-range settings.
var ErrInvalidOptions = errors.New("invalid anomaly options")

// Options tunes the outlier detector.
type Options struct {
	// Contamination is the expected share of anomalies, in (0, 0.5].
	Contamination float64
	Trees         int
	SampleSize    int
	Seed          int64
}

// DefaultOptions returns the standard detector settings.
func DefaultOptions() Options {
	return Options{
		Contamination: 0.1,
		Trees:         100,
		SampleSize:    256,
		Seed:          42,
	}
}

func (o Options) validate() error {
	if !(o.Contamination > 0 && o.Contamination <= 0.5) {
		return fmt.Errorf("%w: contamination %v must be in (0, 0.5]", ErrInvalidOptions, o.Contamination)
	}
	if o.Trees < 1 {
		return fmt.Errorf("%w: trees %d must be positive", ErrInvalidOptions, o.Trees)
	}
	if o.SampleSize < 2 {
		return fmt.Errorf("%w: sample size %d must be at least 2", ErrInvalidOptions, o.SampleSize)
	}
	return nil
}

// Engine runs the statistical, outlier and frequency detectors. Category
// baselines are computed on first use and reused until Recompute.
type Engine struct {
	opts Options

	mu        sync.Mutex
	baselines map[string]models.Baseline
}

// NewEngine validates opts and returns an engine.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// Options returns the engine settings.
func (e *Engine) Options() Options {
	return e.opts
}

// Baselines returns the memoized baselines, computing them from txns if
// none exist yet.
func (e *Engine) Baselines(txns []models.Transaction) map[string]models.Baseline {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.baselines == nil {
		e.baselines = ComputeBaselines(txns)
	}
	return e.baselines
}

// Recompute replaces the memoized baselines with ones computed from txns.
func (e *Engine) Recompute(txns []models.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.baselines = ComputeBaselines(txns)
}

// Result holds flagged transactions and each detector's own findings.
// Index slices refer to positions in Transactions.
type Result struct {
	Transactions []models.Transaction
	Statistical  []int
	Outlier      []int
	Frequency    []int
}

// Select returns the transactions at the given indexes.
func (r Result) Select(idx []int) []models.Transaction {
	out := make([]models.Transaction, len(idx))
	for i, k := range idx {
		out[i] = r.Transactions[k]
	}
	return out
}

// Flagged returns the union of all detector findings in ascending order.
func (r Result) Flagged() []int {
	return union(r.Statistical, r.Outlier, r.Frequency)
}

// DetectAll runs every detector against the same copy of txns and sets
// IsAnomaly on the union of their findings. The input is not modified.
func (e *Engine) DetectAll(txns []models.Transaction) Result {
	out := models.CloneAll(txns)
	for i := range out {
		out[i].IsAnomaly = false
	}

	res := Result{
		Transactions: out,
		Statistical:  Statistical(out, e.Baselines(out)),
		Outlier:      Outliers(out, e.opts),
		Frequency:    Frequency(out),
	}
	for _, i := range res.Flagged() {
		out[i].IsAnomaly = true
	}
	return res
}

func union(sets ...[]int) []int {
	seen := make(map[int]bool)
	for _, s := range sets {
		for _, i := range s {
			seen[i] = true
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// summaryLimit caps the anomaly list in a summary.
const summaryLimit = 10

// Summarize reports how many transactions are flagged and lists the largest
// by absolute amount.
func Summarize(txns []models.Transaction) models.AnomalySummary {
	var flagged []models.Transaction
	total := 0.0
	for _, t := range txns {
		if t.IsAnomaly {
			flagged = append(flagged, t)
			total += math.Abs(t.Amount)
		}
	}

	s := models.AnomalySummary{
		TotalTransactions:  len(txns),
		AnomalyCount:       len(flagged),
		TotalAnomalyAmount: stats.Round2(total),
		Anomalies:          []models.AnomalyEntry{},
	}
	if len(txns) > 0 {
		s.AnomalyPercentage = stats.Round2(float64(len(flagged)) / float64(len(txns)) * 100)
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		return math.Abs(flagged[i].Amount) > math.Abs(flagged[j].Amount)
	})
	if len(flagged) > summaryLimit {
		flagged = flagged[:summaryLimit]
	}
	for _, t := range flagged {
		entry := models.AnomalyEntry{
			Payee:       t.Payee,
			Description: t.Description,
			Amount:      t.Amount,
			Category:    t.Category,
		}
		if t.HasDate() {
			entry.Date = t.Date.Format("2006-01-02")
		}
		s.Anomalies = append(s.Anomalies, entry)
	}
	return s
}
