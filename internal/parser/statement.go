package parser

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/insightdelivered/statement-insights/internal/models"
)

// Line results recorded in ParseResult.Lines.
const (
	ResultParsed       = "parsed"
	ResultSkipped      = "skipped"
	ResultUnparsedDate = "unparsed-date"
	ResultDuplicate    = "duplicate"
)

// ParseResult is the output of a statement parse.
type ParseResult struct {
	Transactions []models.Transaction
	Lines        []models.DebugLine
	// Unparsed counts lines that looked like transactions but whose date
	// could not be resolved. Such lines are dropped.
	Unparsed int
	// Duplicates counts exact (date, payee, amount) repeats that were removed.
	Duplicates int
}

// StatementParser applies a LineParser to every line of a statement and
// post-processes the result.
type StatementParser struct {
	lines *LineParser
}

// NewStatementParser returns a statement parser for the given line layout.
func NewStatementParser(mode Mode) *StatementParser {
	return &StatementParser{lines: NewLineParser(mode)}
}

// Parse parses each page in order. It never fails on malformed lines.
func (p *StatementParser) Parse(pages []string) (*ParseResult, error) {
	res := &ParseResult{}
	var entries []entry
	lineNum := 0

	for _, page := range pages {
		for _, raw := range strings.Split(page, "\n") {
			lineNum++
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}

			dl := models.DebugLine{
				LineNum: lineNum,
				Text:    line,
				HasDate: datePattern.MatchString(line),
				Result:  ResultSkipped,
			}

			f, ok := p.lines.Parse(line)
			switch {
			case !ok:
			case f.Date == nil:
				dl.Result = ResultUnparsedDate
				res.Unparsed++
			default:
				dl.Result = ResultParsed
				entries = append(entries, entry{
					txn:  models.NewTransaction(f.Date, f.Payee, f.Amount, f.Description),
					line: len(res.Lines),
				})
			}
			res.Lines = append(res.Lines, dl)
		}
	}

	for _, e := range sortAndDedupe(entries) {
		if e.duplicate {
			res.Lines[e.line].Result = ResultDuplicate
			res.Duplicates++
			continue
		}
		e.txn.ID = uuid.NewString()
		res.Transactions = append(res.Transactions, e.txn)
	}
	return res, nil
}

// ParseText is a convenience wrapper for a single block of text.
func (p *StatementParser) ParseText(text string) (*ParseResult, error) {
	return p.Parse([]string{text})
}

// entry ties a parsed transaction to the debug line it came from.
type entry struct {
	txn       models.Transaction
	line      int
	duplicate bool
}

// sortAndDedupe orders entries newest first, keeping input order for equal
// dates, then marks later exact (date, payee, amount) repeats as duplicates.
func sortAndDedupe(entries []entry) []entry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].txn.Date.After(*entries[j].txn.Date)
	})

	type key struct {
		unix   int64
		payee  string
		amount float64
	}
	seen := make(map[key]bool, len(entries))
	for i := range entries {
		t := entries[i].txn
		k := key{t.Date.UnixNano(), t.Payee, t.Amount}
		if seen[k] {
			entries[i].duplicate = true
			continue
		}
		seen[k] = true
	}
	return entries
}
