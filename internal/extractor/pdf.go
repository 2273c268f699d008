package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/statement-insights/internal/logger"
)

var (
	// ErrUnsupportedFormat is returned for file types with no extractor.
	ErrUnsupportedFormat = errors.New("unsupported input format")
	// ErrNoText is returned when no method produced readable statement text.
	ErrNoText = errors.New("no readable text extracted")
)

// Kind classifies an input file by extension.
type Kind string

const (
	KindText  Kind = "text"
	KindCSV   Kind = "csv"
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".bmp": true,
}

// KindOf returns the input kind for a file name.
func KindOf(name string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".txt":
		return KindText, nil
	case ext == ".csv":
		return KindCSV, nil
	case ext == ".pdf":
		return KindPDF, nil
	case imageExts[ext]:
		return KindImage, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Extract returns the statement text of a text, PDF or image file, one
// entry per page. CSV files are tabular and are not handled here.
func Extract(ctx context.Context, filePath string) ([]string, error) {
	kind, err := KindOf(filePath)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindText:
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
		}
		return []string{string(data)}, nil
	case KindPDF:
		return ExtractText(ctx, filePath)
	case KindImage:
		return ExtractImage(ctx, filePath)
	default:
		return nil, fmt.Errorf("%w: %s files are read as tables", ErrUnsupportedFormat, kind)
	}
}

// ExtractText reads a PDF file and returns the text of each page. The
// embedded text layer is tried first through ledongthuc/pdf, then the
// external pdftotext command, then OCR of the rendered pages.
func ExtractText(ctx context.Context, filePath string) ([]string, error) {
	log := logger.FromContext(ctx).With().Str("file", filePath).Logger()

	pages, libErr := extractWithLibrary(filePath)
	if libErr == nil && isReadableText(pages) {
		log.Debug().Int("pages", len(pages)).Msg("pdf text layer extracted")
		return pages, nil
	}
	log.Debug().AnErr("error", libErr).Msg("pdf library gave no readable text, trying pdftotext")

	pages, err := extractWithPdftotext(ctx, filePath)
	if err == nil && isReadableText(pages) {
		return pages, nil
	}
	log.Debug().AnErr("error", err).Msg("pdftotext gave no readable text, trying OCR")

	pages, err = ExtractTextOCR(ctx, filePath)
	if err == nil && isReadableText(pages) {
		return pages, nil
	}

	if libErr != nil {
		return nil, fmt.Errorf("%w from %s: %v", ErrNoText, filePath, libErr)
	}
	return nil, fmt.Errorf("%w from %s: the file may be scanned or use unmappable fonts", ErrNoText, filePath)
}

// readableRatio returns the share of runes that are ASCII letters, digits,
// whitespace, common punctuation or currency symbols.
func readableRatio(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsPunct(r)) ||
				unicode.IsSpace(r) || strings.ContainsRune("$€£¥₹+=<>|", r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// dateLike matches the numeric and month-name date shapes that mark a
// transaction line.
var dateLike = regexp.MustCompile(`(?i)\b(\d{1,4}[/-]\d{1,2}[/-]\d{2,4}|\d{1,2}\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{2,4}|(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{1,2},?\s+\d{4})\b`)

// isReadableText requires some volume of mostly printable text with at least
// one date-like token, which rules out the glyph soup produced by fonts
// without a usable encoding.
func isReadableText(pages []string) bool {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	if n <= 20 || readableRatio(pages) <= 0.6 {
		return false
	}
	for _, p := range pages {
		if dateLike.MatchString(p) {
			return true
		}
	}
	return false
}

// IsReadableText reports whether extracted pages look like usable
// statement text.
func IsReadableText(pages []string) bool {
	return isReadableText(pages)
}

func extractWithPdftotext(ctx context.Context, filePath string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	var pages []string
	for i := 1; i <= pageCount(ctx, filePath); i++ {
		n := strconv.Itoa(i)
		out, err := exec.CommandContext(ctx, "pdftotext", "-layout", "-f", n, "-l", n, filePath, "-").Output()
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) > 0 {
		return pages, nil
	}

	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", filePath, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return []string{text}, nil
}

// pageCount asks pdfinfo for the page count, defaulting to one page.
func pageCount(ctx context.Context, filePath string) int {
	out, err := exec.CommandContext(ctx, "pdfinfo", filePath).Output()
	if err != nil {
		return 1
	}
	for _, line := range strings.Split(string(out), "\n") {
		if rest, ok := strings.CutPrefix(line, "Pages:"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil && n > 0 {
				return n
			}
		}
	}
	return 1
}

// extractWithLibrary tries row, positioned-content and whole-document text
// extraction in turn. The library panics on some malformed files.
func extractWithLibrary(filePath string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	for _, method := range []func(*pdf.Reader, int) []string{byRow, byContent} {
		if pages = method(r, numPages); isReadableText(pages) {
			return pages, nil
		}
	}
	if text := plainText(r); isReadableText([]string{text}) {
		return []string{text}, nil
	}
	return pages, nil
}

func byRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// columnGap is the horizontal distance, in points, treated as a column break.
const columnGap = 15

// byContent rebuilds lines from positioned text: pieces are grouped by
// rounded Y (top of page first) and ordered by X within a line.
func byContent(r *pdf.Reader, numPages int) []string {
	type piece struct {
		x float64
		s string
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows := make(map[int][]piece)
		for _, t := range page.Content().Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			y := int(math.Round(t.Y))
			rows[y] = append(rows[y], piece{x: t.X, s: t.S})
		}
		if len(rows) == 0 {
			continue
		}

		ys := make([]int, 0, len(rows))
		for y := range rows {
			ys = append(ys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		lines := make([]string, 0, len(ys))
		for _, y := range ys {
			row := rows[y]
			sort.Slice(row, func(a, b int) bool { return row[a].x < row[b].x })

			var sb strings.Builder
			for j, p := range row {
				if j > 0 && p.x-row[j-1].x > columnGap {
					sb.WriteString("  ")
				}
				sb.WriteString(p.s)
			}
			if line := strings.TrimSpace(sb.String()); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func plainText(r *pdf.Reader) string {
	rd, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
