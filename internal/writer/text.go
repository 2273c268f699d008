package writer

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/insightdelivered/statement-insights/internal/pipeline"
)

var (
	heading = color.New(color.Bold, color.FgCyan)
	flagged = color.New(color.FgRed)
	muted   = color.New(color.Faint)
)

// maxRows caps each table in the text report.
const maxRows = 10

// TextReport writes a human-readable summary of report to out. Colors
// follow color.NoColor, which is set when stdout is not a terminal.
func TextReport(out io.Writer, source string, report *pipeline.Report) error {
	tw := &textWriter{out: out}

	title := "Statement insights"
	if source != "" {
		title += ": " + source
	}
	tw.heading(title)

	ins := report.Insights
	bs := ins.BasicStats
	tw.printf("Transactions:   %d", bs.TotalTransactions)
	if report.Unparsed > 0 {
		tw.printf("  (%d lines dropped: date not recognized)", report.Unparsed)
	}
	if report.Coerced > 0 {
		tw.printf("  (%d cells coerced)", report.Coerced)
	}
	tw.printf("\n")
	tw.printf("Total spent:    %s\n", money(bs.TotalSpent))
	tw.printf("Average:        %s   Median: %s\n", money(bs.AverageTransaction), money(bs.MedianTransaction))
	tw.printf("Largest:        %s   Smallest: %s\n", money(bs.LargestTransaction), money(bs.SmallestTransaction))
	if bs.HasDates {
		tw.printf("Date range:     %d days, %.2f transactions/day\n", bs.DateRangeDays, bs.TransactionsPerDay)
	}
	if ins.TopCategory != "" {
		tw.printf("Top category:   %s (%s)\n", ins.TopCategory, money(ins.TopCategoryAmount))
	}
	if ins.TopMerchant != "" {
		tw.printf("Top merchant:   %s (%s)\n", ins.TopMerchant, money(ins.TopMerchantAmount))
	}

	tw.heading("Categories")
	if len(report.Categories) == 0 {
		tw.muted("none")
	}
	for _, c := range report.Categories {
		tw.printf("  %-20s %12s  %4d\n", c.Category, money(c.Total), c.Count)
	}

	a := report.Anomalies
	tw.heading(fmt.Sprintf("Anomalies (%d of %d, %.2f%%)", a.AnomalyCount, a.TotalTransactions, a.AnomalyPercentage))
	if len(a.Anomalies) == 0 {
		tw.muted("none")
	} else {
		tw.printf("  statistical %d, outlier %d, frequency %d\n",
			report.Detectors.Statistical, report.Detectors.Outlier, report.Detectors.Frequency)
	}
	for _, e := range a.Anomalies {
		tw.colored(flagged, "  %-10s %-28s %12s  %s\n", orDash(e.Date), truncate(e.Payee, 28), money(e.Amount), e.Category)
	}

	tw.heading(fmt.Sprintf("Potential duplicates (%d)", len(report.Duplicates)))
	if len(report.Duplicates) == 0 {
		tw.muted("none")
	}
	for i, d := range report.Duplicates {
		if i == maxRows {
			tw.muted(fmt.Sprintf("... %d more", len(report.Duplicates)-maxRows))
			break
		}
		tw.printf("  %s %-20s / %s %-20s %12s  %dd apart\n",
			d.Date1.Format("2006-01-02"), truncate(d.Payee1, 20),
			d.Date2.Format("2006-01-02"), truncate(d.Payee2, 20),
			money(d.Amount), d.DaysApart)
	}

	return tw.err
}

// textWriter remembers the first write error so the report reads linearly.
type textWriter struct {
	out io.Writer
	err error
}

func (tw *textWriter) printf(format string, args ...interface{}) {
	if tw.err == nil {
		_, tw.err = fmt.Fprintf(tw.out, format, args...)
	}
}

func (tw *textWriter) colored(c *color.Color, format string, args ...interface{}) {
	if tw.err == nil {
		_, tw.err = c.Fprintf(tw.out, format, args...)
	}
}

func (tw *textWriter) heading(s string) {
	tw.printf("\n")
	tw.colored(heading, "%s\n", s)
	tw.colored(heading, "%s\n", strings.Repeat("-", len(s)))
}

func (tw *textWriter) muted(s string) {
	tw.colored(muted, "  %s\n", s)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
