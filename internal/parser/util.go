package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Common date patterns found in bank statements. Tried together; the
// leftmost match on a line wins.
var (
	// YYYY/MM/DD or YYYY-MM-DD
	datePatternISO = `\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`
	// DD/MM/YYYY, MM/DD/YYYY, DD-MM-YY, ...
	datePatternSlash = `\b\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2})\b`
	// DD Mon YYYY or DD-Mon-YY (e.g., 15 Jan 2024)
	datePatternText = `\b\d{1,2}[\s-]+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?[\s-]+(?:\d{4}|\d{2})\b`
	// Mon DD, YYYY (e.g., Jan 15, 2024)
	datePatternMonthFirst = `\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`

	datePattern = regexp.MustCompile(`(?i)` + strings.Join([]string{
		datePatternISO, datePatternSlash, datePatternText, datePatternMonthFirst,
	}, "|"))
)

// Amount patterns. Currency-marked amounts are preferred over bare numbers.
var (
	amountCurrencyPrefixed = regexp.MustCompile(`-?[$€£¥₹]\s*-?\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|-?[$€£¥₹]\s*-?\d+(?:\.\d{1,2})?`)
	amountCurrencySuffixed = regexp.MustCompile(`(?i)-?\b\d{1,3}(?:,\d{3})+(?:\.\d{2})?\s*(?:USD|EUR|GBP|INR|RS)\b|-?\b\d+(?:\.\d{2})?\s*(?:USD|EUR|GBP|INR|RS)\b`)
	amountBare             = regexp.MustCompile(`-?\b\d{1,3}(?:,\d{3})+(?:\.\d{2})?\b|-?\b\d+(?:\.\d{2})?\b`)

	// numericRun matches any number-like token, used to strip amounts out of
	// payee text in trailing mode.
	numericRun = regexp.MustCompile(`[-+]?[$€£¥₹]?\s*\d[\d,.]*`)

	amountNoise = regexp.MustCompile(`[^\d.,-]`)
)

// Payee cleanup patterns.
var (
	payeePrefix = regexp.MustCompile(`(?i)^(?:POS|ATM|ONLINE|DEBIT|CREDIT)\b\s*`)
	payeeSuffix = regexp.MustCompile(`(?i)\s+(?:LLC|INC|CORP|LTD)\.?$`)
)

// parseAmount converts a string like "1,234.56", "$45.99" or "-£1,234.56" to
// a float64. Everything but digits and separators is stripped first.
func parseAmount(s string) (float64, error) {
	s = amountNoise.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.ReplaceAll(s, ",", "")

	if s == "" || s == "-" {
		return 0, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// Layouts tried in order by parseDate. Full date-times come first so CSV
// values keep their time of day.
var (
	dateTimeLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	strictLayouts = []string{
		"2006/1/2",
	}
	monthFirstLayouts = []string{
		"1/2/2006",
		"1/2/06",
	}
	dayFirstLayouts = []string{
		"2/1/2006",
		"2/1/06",
	}
	monthNameLayouts = []string{
		"2 Jan 2006",
		"2 January 2006",
		"2 Jan 06",
		"2 January 06",
		"Jan 2 2006",
		"January 2 2006",
	}
)

var (
	ordinalSuffix = regexp.MustCompile(`(?i)(\d)(?:st|nd|rd|th)\b`)
	dateSpaces    = regexp.MustCompile(`[\s,]+`)
	// time.Parse knows "Sep" and "September" but not "Sept".
	septAbbrev    = regexp.MustCompile(`(?i)\bsept\b`)
)

// parseDate resolves a matched date string. It tries the strict ISO form
// first, then month-first and day-first numeric forms, then month names.
// The second return value is false when nothing fits.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	numeric := strings.ReplaceAll(s, "-", "/")
	for _, group := range [][]string{strictLayouts, monthFirstLayouts, dayFirstLayouts} {
		for _, layout := range group {
			if t, err := time.Parse(layout, numeric); err == nil {
				return t, true
			}
		}
	}

	text := ordinalSuffix.ReplaceAllString(s, "$1")
	text = strings.ReplaceAll(text, "-", " ")
	text = strings.ReplaceAll(text, ".", "")
	text = strings.TrimSpace(dateSpaces.ReplaceAllString(text, " "))
	text = septAbbrev.ReplaceAllString(text, "Sep")
	for _, layout := range monthNameLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// cleanPayee strips transaction-type prefixes and legal-entity suffixes and
// normalizes whitespace.
func cleanPayee(payee string) string {
	payee = strings.TrimSpace(payee)
	payee = payeePrefix.ReplaceAllString(payee, "")
	payee = payeeSuffix.ReplaceAllString(payee, "")
	return strings.Join(strings.Fields(payee), " ")
}

// sanitizeOCRAmounts fixes common OCR errors in amount strings.
// Tesseract often misreads periods as semicolons or colons in numbers.
// E.g., "19,720; 15:" → "19,720.15", "1.00" stays "1.00".
func sanitizeOCRAmounts(line string) string {
	line = ocrSemicolonDecimal.ReplaceAllString(line, "$1.$3")
	line = ocrColonDecimal.ReplaceAllString(line, "$1.$2")
	line = ocrTrailingColon.ReplaceAllString(line, "$1 ")
	line = ocrTrailingColonEOL.ReplaceAllString(line, "$1")
	return ocrNA.ReplaceAllString(line, "")
}

var (
	ocrSemicolonDecimal = regexp.MustCompile(`(\d);(\s*)(\d)`)
	ocrColonDecimal     = regexp.MustCompile(`(\d):(\d{2})\b`)
	ocrTrailingColon    = regexp.MustCompile(`(\d):\s`)
	ocrTrailingColonEOL = regexp.MustCompile(`(\d):$`)
	ocrNA               = regexp.MustCompile(`\s+NA\b`)
)
