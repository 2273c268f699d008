package duplicate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/insightdelivered/statement-insights/internal/models"
)

var (
	// ErrNoDates is returned when no transaction carries a date.
	ErrNoDates = errors.New("transactions have no dates")
	// ErrInvalidWindow is returned for a negative window.
	ErrInvalidWindow = errors.New("invalid duplicate window")
)

// DefaultWindowDays is the default look-ahead for a matching charge.
const DefaultWindowDays = 1

// Find reports every ordered pair of transactions with the same amount where
// the second falls on or up to windowDays after the first. Undated
// transactions are ignored and identical pair rows are reported once.
func Find(txns []models.Transaction, windowDays int) ([]models.DuplicatePair, error) {
	if windowDays < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, windowDays)
	}

	var dated []models.Transaction
	for _, t := range txns {
		if t.HasDate() {
			dated = append(dated, t)
		}
	}
	if len(dated) == 0 {
		return nil, fmt.Errorf("find duplicates: %w", ErrNoDates)
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].Date.Before(*dated[j].Date)
	})

	window := time.Duration(windowDays) * 24 * time.Hour
	type pairKey struct {
		date1, date2   int64
		payee1, payee2 string
		amount         float64
	}
	seen := make(map[pairKey]bool)
	pairs := []models.DuplicatePair{}
	for i, a := range dated {
		limit := a.Date.Add(window)
		for j, b := range dated {
			if i == j || a.Amount != b.Amount {
				continue
			}
			if b.Date.Before(*a.Date) || b.Date.After(limit) {
				continue
			}
			p := models.DuplicatePair{
				Date1:     *a.Date,
				Payee1:    a.Payee,
				Amount:    a.Amount,
				Date2:     *b.Date,
				Payee2:    b.Payee,
				DaysApart: int(math.Floor(b.Date.Sub(*a.Date).Hours() / 24)),
			}
			k := pairKey{a.Date.UnixNano(), b.Date.UnixNano(), a.Payee, b.Payee, a.Amount}
			if seen[k] {
				continue
			}
			seen[k] = true
			pairs = append(pairs, p)
		}
	}
	return pairs, nil
}
