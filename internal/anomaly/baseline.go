package anomaly

import (
	"math"

	"github.com/insightdelivered/statement-insights/internal/models"
	"github.com/insightdelivered/statement-insights/internal/stats"
)

// ComputeBaselines groups absolute amounts by category and computes the
// reference statistics for each group.
func ComputeBaselines(txns []models.Transaction) map[string]models.Baseline {
	byCat := make(map[string][]float64)
	for _, t := range txns {
		byCat[t.Category] = append(byCat[t.Category], math.Abs(t.Amount))
	}

	out := make(map[string]models.Baseline, len(byCat))
	for cat, amounts := range byCat {
		out[cat] = models.Baseline{
			Count:  len(amounts),
			Mean:   stats.Mean(amounts),
			StdDev: stats.StdDev(amounts, 0),
			Median: stats.Median(amounts),
			Q1:     stats.Quantile(amounts, 0.25),
			Q3:     stats.Quantile(amounts, 0.75),
		}
	}
	return out
}

// Statistical flags transactions whose absolute amount is more than three
// standard deviations from the category mean, or outside the Tukey fences
// of the category. Categories with fewer than two observations or zero
// variance use the fences only; a zero IQR disables the fences.
func Statistical(txns []models.Transaction, baselines map[string]models.Baseline) []int {
	var flagged []int
	for i, t := range txns {
		b, ok := baselines[t.Category]
		if !ok {
			continue
		}
		amount := math.Abs(t.Amount)

		if b.Count >= 2 && b.StdDev > 0 {
			if math.Abs(amount-b.Mean)/b.StdDev > zLimit {
				flagged = append(flagged, i)
				continue
			}
		}

		iqr := b.IQR()
		if iqr <= 0 {
			continue
		}
		if amount < b.Q1-fenceFactor*iqr || amount > b.Q3+fenceFactor*iqr {
			flagged = append(flagged, i)
		}
	}
	return flagged
}

const (
	zLimit      = 3.0
	fenceFactor = 1.5
)
