package parser

import "strings"

// Parser defines the interface for statement text parsers.
type Parser interface {
	// Parse takes raw text pages and returns the recognized transactions.
	Parse(pages []string) (*ParseResult, error)
}

// New returns the parser for the named line layout ("between" or
// "trailing"). An empty name selects the default layout.
func New(layout string) (Parser, error) {
	mode, err := ParseMode(layout)
	if err != nil {
		return nil, err
	}
	return NewStatementParser(mode), nil
}

// DetectLayout guesses the line layout from the text. OCR output tends to
// end transaction lines with a bare amount and garble currency symbols, so
// text with no currency-marked amounts on dated lines is treated as trailing.
func DetectLayout(pages []string) Mode {
	dated, marked := 0, 0
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			loc := datePattern.FindStringIndex(line)
			if loc == nil {
				continue
			}
			dated++
			rest := line[loc[1]:]
			if amountCurrencyPrefixed.MatchString(rest) || amountCurrencySuffixed.MatchString(rest) {
				marked++
			}
		}
	}
	if dated > 0 && marked == 0 {
		return ModeTrailing
	}
	return ModeBetween
}
