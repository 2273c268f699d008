package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/insightdelivered/statement-insights/internal/anomaly"
	"github.com/insightdelivered/statement-insights/internal/categorizer"
	"github.com/insightdelivered/statement-insights/internal/duplicate"
	"github.com/insightdelivered/statement-insights/internal/insight"
	"github.com/insightdelivered/statement-insights/internal/logger"
	"github.com/insightdelivered/statement-insights/internal/models"
	"github.com/insightdelivered/statement-insights/internal/parser"
	"github.com/insightdelivered/statement-insights/internal/stats"
)

// LayoutAuto picks the line layout from the statement text.
const LayoutAuto = "auto"

// Options configures an Analyzer.
type Options struct {
	Categories      categorizer.Config
	Anomaly         anomaly.Options
	DuplicateWindow int
	TrendWindow     int
	// Layout is a parser line layout name or LayoutAuto.
	Layout string
}

// DefaultOptions returns the standard pipeline settings.
func DefaultOptions() Options {
	return Options{
		Categories:      categorizer.DefaultConfig(),
		Anomaly:         anomaly.DefaultOptions(),
		DuplicateWindow: duplicate.DefaultWindowDays,
		TrendWindow:     7,
		Layout:          LayoutAuto,
	}
}

// DetectorCounts reports how many transactions each anomaly detector flagged.
type DetectorCounts struct {
	Statistical int `json:"statistical"`
	Outlier     int `json:"outlier"`
	Frequency   int `json:"frequency"`
}

// Report is everything produced by one analysis run.
type Report struct {
	Transactions []models.Transaction `json:"transactions"`
	// Unparsed counts statement lines dropped for an unresolvable date.
	Unparsed int `json:"unparsed"`
	// Coerced counts CSV cells replaced by a nil date or zero amount.
	Coerced    int                    `json:"coerced,omitempty"`
	Lines      []models.DebugLine     `json:"debug_lines,omitempty"`
	Categories []models.CategoryTotal `json:"categories"`
	Anomalies  models.AnomalySummary  `json:"anomalies"`
	Detectors  DetectorCounts         `json:"detectors"`
	Duplicates []models.DuplicatePair `json:"duplicates"`
	Insights   models.Insights        `json:"insights"`
	Trends     []models.TrendPoint    `json:"trends,omitempty"`
}

// Analyzer runs parse, categorize, detect and report over statement input.
// It holds no per-run state and is safe for concurrent use.
type Analyzer struct {
	opts Options
}

// New validates opts and returns an analyzer.
func New(opts Options) (*Analyzer, error) {
	if _, err := anomaly.NewEngine(opts.Anomaly); err != nil {
		return nil, err
	}
	if opts.DuplicateWindow < 0 {
		return nil, fmt.Errorf("%w: %d", duplicate.ErrInvalidWindow, opts.DuplicateWindow)
	}
	if opts.TrendWindow < 1 {
		return nil, fmt.Errorf("%w: %d", stats.ErrInvalidWindow, opts.TrendWindow)
	}
	if !isAuto(opts.Layout) {
		if _, err := parser.ParseMode(opts.Layout); err != nil {
			return nil, err
		}
	}
	opts.Categories = opts.Categories.Clone()
	return &Analyzer{opts: opts}, nil
}

func isAuto(layout string) bool {
	return layout == "" || strings.EqualFold(layout, LayoutAuto)
}

// Options returns the analyzer settings.
func (a *Analyzer) Options() Options {
	return a.opts
}

// AnalyzeText analyzes a block of statement text.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (*Report, error) {
	return a.AnalyzePages(ctx, []string{text})
}

// AnalyzePages analyzes statement text split into pages, as produced by the
// PDF extractor.
func (a *Analyzer) AnalyzePages(ctx context.Context, pages []string) (*Report, error) {
	log := logger.FromContext(ctx)

	mode := parser.DetectLayout(pages)
	if !isAuto(a.opts.Layout) {
		mode, _ = parser.ParseMode(a.opts.Layout)
	}

	res, err := parser.NewStatementParser(mode).Parse(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement: %w", err)
	}
	log.Info().
		Str("layout", string(mode)).
		Int("transactions", len(res.Transactions)).
		Int("unparsed", res.Unparsed).
		Int("duplicates", res.Duplicates).
		Msg("statement parsed")

	report, err := a.AnalyzeTransactions(ctx, res.Transactions)
	if err != nil {
		return nil, err
	}
	report.Unparsed = res.Unparsed
	report.Lines = res.Lines
	return report, nil
}

// AnalyzeCSV analyzes a tabular statement export.
func (a *Analyzer) AnalyzeCSV(ctx context.Context, r io.Reader) (*Report, error) {
	log := logger.FromContext(ctx)

	std, err := parser.ParseCSV(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	log.Info().
		Int("transactions", len(std.Transactions)).
		Int("coerced", std.Coerced).
		Bool("has_date", std.Schema.HasDate()).
		Bool("has_payee", std.Schema.HasPayee()).
		Msg("csv standardized")

	report, err := a.AnalyzeTransactions(ctx, std.Transactions)
	if err != nil {
		return nil, err
	}
	report.Coerced = std.Coerced
	return report, nil
}

// AnalyzeTransactions categorizes txns, runs anomaly and duplicate
// detection and builds the insight report. The input is not modified.
func (a *Analyzer) AnalyzeTransactions(ctx context.Context, txns []models.Transaction) (*Report, error) {
	log := logger.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cat := categorizer.New(a.opts.Categories, log)
	categorized := cat.CategorizeAll(txns)
	log.Debug().Int("transactions", len(categorized)).Msg("transactions categorized")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// A fresh engine per run keeps baselines from leaking between inputs.
	engine, err := anomaly.NewEngine(a.opts.Anomaly)
	if err != nil {
		return nil, err
	}
	detected := engine.DetectAll(categorized)

	report := &Report{
		Transactions: detected.Transactions,
		Categories:   cat.Summary(),
		Anomalies:    anomaly.Summarize(detected.Transactions),
		Detectors: DetectorCounts{
			Statistical: len(detected.Statistical),
			Outlier:     len(detected.Outlier),
			Frequency:   len(detected.Frequency),
		},
		Duplicates: []models.DuplicatePair{},
	}
	if report.Transactions == nil {
		report.Transactions = []models.Transaction{}
	}
	log.Info().
		Int("flagged", report.Anomalies.AnomalyCount).
		Int("statistical", report.Detectors.Statistical).
		Int("outlier", report.Detectors.Outlier).
		Int("frequency", report.Detectors.Frequency).
		Msg("anomaly detection finished")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pairs, err := duplicate.Find(detected.Transactions, a.opts.DuplicateWindow)
	switch {
	case errors.Is(err, duplicate.ErrNoDates):
	case err != nil:
		return nil, fmt.Errorf("failed to find duplicates: %w", err)
	default:
		report.Duplicates = pairs
	}

	report.Insights, err = insight.Build(ctx, detected.Transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to build insights: %w", err)
	}

	trends, err := stats.New(detected.Transactions).Trends(a.opts.TrendWindow)
	switch {
	case errors.Is(err, stats.ErrNoDates):
	case err != nil:
		return nil, fmt.Errorf("failed to compute trends: %w", err)
	default:
		report.Trends = trends
	}

	log.Info().
		Int("transactions", len(report.Transactions)).
		Int("duplicates", len(report.Duplicates)).
		Msg("analysis complete")
	return report, nil
}
