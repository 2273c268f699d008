package anomaly

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/insightdelivered/statement-insights/internal/models"
	"github.com/insightdelivered/statement-insights/internal/stats"
)

// ErrUnknownMethod is returned for an unrecognized detection method.
var ErrUnknownMethod = errors.New("unknown detection method")

// Method names a standalone detection method.
type Method string

const (
	MethodZScore    Method = "zscore"
	MethodIQR       Method = "iqr"
	MethodIsolation Method = "isolation"
)

// DefaultZThreshold is used by the z-score method when no threshold is given.
const DefaultZThreshold = 3.0

// ParseMethod validates a method name.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case MethodZScore, MethodIQR, MethodIsolation:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

// Detect runs a single method over all amounts, without per-category
// baselines. Results are sorted by amount, largest first.
func Detect(txns []models.Transaction, method Method, threshold float64) ([]models.FlaggedTransaction, error) {
	var out []models.FlaggedTransaction
	switch method {
	case MethodZScore:
		out = detectZScore(txns, threshold)
	case MethodIQR:
		out = detectIQR(txns)
	case MethodIsolation:
		out = detectIsolation(txns)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount > out[j].Amount
	})
	return out, nil
}

func amountsOf(txns []models.Transaction) []float64 {
	out := make([]float64, len(txns))
	for i, t := range txns {
		out[i] = t.Amount
	}
	return out
}

func detectZScore(txns []models.Transaction, threshold float64) []models.FlaggedTransaction {
	if threshold <= 0 {
		threshold = DefaultZThreshold
	}
	amounts := amountsOf(txns)
	mean := stats.Mean(amounts)
	std := stats.StdDev(amounts, 0)
	if std == 0 {
		return nil
	}

	reason := "Unusually high amount (Z-score > " + formatThreshold(threshold) + ")"
	var out []models.FlaggedTransaction
	for _, t := range txns {
		z := math.Abs((t.Amount - mean) / std)
		if z > threshold {
			out = append(out, models.FlaggedTransaction{Transaction: t.Clone(), ZScore: z, Reason: reason})
		}
	}
	return out
}

// formatThreshold always shows at least one decimal place, so 3 prints
// as "3.0".
func formatThreshold(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func detectIQR(txns []models.Transaction) []models.FlaggedTransaction {
	if len(txns) == 0 {
		return nil
	}
	amounts := amountsOf(txns)
	q1 := stats.Quantile(amounts, 0.25)
	q3 := stats.Quantile(amounts, 0.75)
	iqr := q3 - q1
	lower, upper := q1-fenceFactor*iqr, q3+fenceFactor*iqr

	var out []models.FlaggedTransaction
	for _, t := range txns {
		switch {
		case t.Amount < lower:
			out = append(out, models.FlaggedTransaction{Transaction: t.Clone(), Reason: "Unusually low"})
		case t.Amount > upper:
			out = append(out, models.FlaggedTransaction{Transaction: t.Clone(), Reason: "Unusually high"})
		}
	}
	return out
}

// detectIsolation fits the forest on the raw amount alone.
func detectIsolation(txns []models.Transaction) []models.FlaggedTransaction {
	X := make([][]float64, len(txns))
	for i, t := range txns {
		X[i] = []float64{t.Amount}
	}

	var out []models.FlaggedTransaction
	for _, i := range isolate(X, DefaultOptions()) {
		out = append(out, models.FlaggedTransaction{
			Transaction: txns[i].Clone(),
			Reason:      "Detected by Isolation Forest",
		})
	}
	return out
}
