package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Mode selects how payee and amount are located on a line.
type Mode string

const (
	// ModeBetween takes the payee from the text between the date and the
	// chosen amount.
	ModeBetween Mode = "between"
	// ModeTrailing is the OCR variant: the amount is the last number on the
	// line and the payee is whatever remains after stripping numbers.
	ModeTrailing Mode = "trailing"
)

// ParseMode validates a mode name. An empty name selects ModeBetween.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "", ModeBetween:
		return ModeBetween, nil
	case ModeTrailing:
		return ModeTrailing, nil
	default:
		return "", fmt.Errorf("unsupported line layout: %q", name)
	}
}

// Fields is the raw material extracted from a single statement line.
// Date is nil when the matched date text could not be resolved.
type Fields struct {
	DateText    string
	Date        *time.Time
	Payee       string
	AmountText  string
	Amount      float64
	Description string
}

// LineParser recognizes transaction lines in free-form statement text.
type LineParser struct {
	mode Mode
}

// NewLineParser returns a line parser for the given mode.
func NewLineParser(mode Mode) *LineParser {
	if mode == "" {
		mode = ModeBetween
	}
	return &LineParser{mode: mode}
}

// Mode reports the layout this parser was built for.
func (p *LineParser) Mode() Mode {
	return p.mode
}

// Parse extracts fields from one line. It returns false when the line has
// no date or no amount after the date.
func (p *LineParser) Parse(line string) (Fields, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Fields{}, false
	}
	if p.mode == ModeTrailing {
		line = sanitizeOCRAmounts(line)
	}

	loc := datePattern.FindStringIndex(line)
	if loc == nil {
		return Fields{}, false
	}
	dateText := line[loc[0]:loc[1]]
	rest := line[loc[1]:]

	var payee, amountText string
	switch p.mode {
	case ModeTrailing:
		matches := amountBare.FindAllString(rest, -1)
		if len(matches) == 0 {
			return Fields{}, false
		}
		amountText = matches[len(matches)-1]
		payee = cleanPayee(stripDates(numericRun.ReplaceAllString(rest, " ")))
		if payee == "" {
			return Fields{}, false
		}
	default:
		aloc := findAmount(rest)
		if aloc == nil {
			return Fields{}, false
		}
		amountText = rest[aloc[0]:aloc[1]]
		payee = cleanPayee(stripDates(rest[:aloc[0]]))
	}

	f := Fields{
		DateText:    dateText,
		Payee:       payee,
		AmountText:  amountText,
		Description: line,
	}
	// Unparseable amounts fall back to zero; the line is still a transaction.
	f.Amount, _ = parseAmount(amountText)
	if t, ok := parseDate(dateText); ok {
		f.Date = &t
	}
	return f, true
}

// findAmount returns the location of the amount in s: the first
// currency-marked amount when there is one, else the last bare number.
func findAmount(s string) []int {
	var best []int
	for _, re := range []*regexp.Regexp{amountCurrencyPrefixed, amountCurrencySuffixed} {
		if loc := re.FindStringIndex(s); loc != nil && (best == nil || loc[0] < best[0]) {
			best = loc
		}
	}
	if best != nil {
		return best
	}

	all := amountBare.FindAllStringIndex(s, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func stripDates(s string) string {
	return datePattern.ReplaceAllString(s, " ")
}
