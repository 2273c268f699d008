package anomaly

import (
	"math"
	"sort"

	"github.com/insightdelivered/statement-insights/internal/models"
)

// Frequency flags both transactions of any consecutive same-payee pair that
// are less than two days apart and closer than a third of that payee's
// mean gap. Undated transactions are ignored.
func Frequency(txns []models.Transaction) []int {
	groups := make(map[string][]int)
	var order []string
	for i, t := range txns {
		if !t.HasDate() {
			continue
		}
		if _, ok := groups[t.Payee]; !ok {
			order = append(order, t.Payee)
		}
		groups[t.Payee] = append(groups[t.Payee], i)
	}

	seen := make(map[int]bool)
	for _, payee := range order {
		idx := groups[payee]
		if len(idx) < 2 {
			continue
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return txns[idx[a]].Date.Before(*txns[idx[b]].Date)
		})

		gaps := make([]float64, len(idx)-1)
		total := 0.0
		for k := 1; k < len(idx); k++ {
			gaps[k-1] = math.Floor(txns[idx[k]].Date.Sub(*txns[idx[k-1]].Date).Hours() / 24)
			total += gaps[k-1]
		}
		mean := total / float64(len(gaps))

		for k, gap := range gaps {
			if gap < mean/3 && gap < 2 {
				seen[idx[k]] = true
				seen[idx[k+1]] = true
			}
		}
	}

	flagged := make([]int, 0, len(seen))
	for i := range seen {
		flagged = append(flagged, i)
	}
	sort.Ints(flagged)
	return flagged
}
