package anomaly

import (
	"math"
	"math/rand"

	"github.com/cespare/xxhash/v2"

	"github.com/insightdelivered/statement-insights/internal/models"
	"github.com/insightdelivered/statement-insights/internal/stats"
)

// MinOutlierSample is the smallest number of dated transactions the outlier
// detector will fit on.
const MinOutlierSample = 10

// Outliers flags transactions that an isolation forest separates quickly.
// Each transaction becomes [|amount|, weekday (Mon=0), day of month,
// category hash mod 100], standardized per column. Undated transactions are
// ignored. Fewer than MinOutlierSample dated transactions yields nothing.
func Outliers(txns []models.Transaction, opts Options) []int {
	var (
		X     [][]float64
		index []int
	)
	for i, t := range txns {
		if !t.HasDate() {
			continue
		}
		X = append(X, features(t))
		index = append(index, i)
	}
	if len(X) < MinOutlierSample {
		return nil
	}

	var flagged []int
	for _, k := range isolate(standardize(X), opts) {
		flagged = append(flagged, index[k])
	}
	return flagged
}

func features(t models.Transaction) []float64 {
	weekday := (int(t.Date.Weekday()) + 6) % 7
	return []float64{
		math.Abs(t.Amount),
		float64(weekday),
		float64(t.Date.Day()),
		float64(categoryHash(t.Category)),
	}
}

// categoryHash is stable across runs and platforms.
func categoryHash(category string) uint64 {
	return xxhash.Sum64String(category) % 100
}

// isolate fits a forest on X and returns the rows whose score exceeds the
// (1 - contamination) quantile of all scores.
func isolate(X [][]float64, opts Options) []int {
	if len(X) < 2 {
		return nil
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	forest := fitForest(X, opts.Trees, opts.SampleSize, rng)

	scores := make([]float64, len(X))
	for i, x := range X {
		scores[i] = forest.score(x)
	}
	threshold := stats.Quantile(scores, 1-opts.Contamination)

	var out []int
	for i, s := range scores {
		if s > threshold {
			out = append(out, i)
		}
	}
	return out
}
