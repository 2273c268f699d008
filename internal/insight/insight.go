package insight

import (
	"context"
	"errors"
	"fmt"

	"github.com/insightdelivered/statement-insights/internal/anomaly"
	"github.com/insightdelivered/statement-insights/internal/duplicate"
	"github.com/insightdelivered/statement-insights/internal/logger"
	"github.com/insightdelivered/statement-insights/internal/models"
	"github.com/insightdelivered/statement-insights/internal/stats"
)

// ZThreshold is the z-score limit used to count anomalies in the report.
const ZThreshold = 2.5

// Build assembles the insight report for a categorized transaction set.
// Without dates the duplicate count is reported as zero and a warning is
// logged.
func Build(ctx context.Context, txns []models.Transaction) (models.Insights, error) {
	log := logger.FromContext(ctx)
	engine := stats.New(txns)

	report := models.Insights{
		BasicStats:        engine.Basic(),
		CategoryBreakdown: engine.CategoryTotals(),
	}
	if len(report.CategoryBreakdown) > 0 {
		report.TopCategory = report.CategoryBreakdown[0].Category
		report.TopCategoryAmount = report.CategoryBreakdown[0].Total
	}
	if top := engine.TopMerchants(1); len(top) > 0 {
		report.TopMerchant = top[0].Payee
		report.TopMerchantAmount = top[0].Total
	}

	flagged, err := anomaly.Detect(txns, anomaly.MethodZScore, ZThreshold)
	if err != nil {
		return report, fmt.Errorf("failed to count anomalies: %w", err)
	}
	report.AnomalyCount = len(flagged)

	pairs, err := duplicate.Find(txns, duplicate.DefaultWindowDays)
	switch {
	case errors.Is(err, duplicate.ErrNoDates):
		log.Warn().Int("transactions", len(txns)).Msg("no dated transactions, skipping duplicate search")
	case err != nil:
		return report, fmt.Errorf("failed to find duplicates: %w", err)
	default:
		report.PotentialDuplicates = len(pairs)
	}

	log.Debug().
		Int("anomalies", report.AnomalyCount).
		Int("duplicates", report.PotentialDuplicates).
		Str("top_category", report.TopCategory).
		Msg("insights built")
	return report, nil
}
