package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/insightdelivered/statement-insights/internal/logger"
)

// ErrToolMissing is returned when an external OCR tool is not installed.
var ErrToolMissing = errors.New("external tool not available")

// Page segmentation mode 4 assumes a single column of variable-size text,
// which suits statement tables.
var tesseractArgs = []string{"-l", "eng", "--psm", "4"}

func requireTools(names ...string) error {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("%w: %s", ErrToolMissing, name)
		}
	}
	return nil
}

// IsOCRAvailable reports whether both pdftoppm and tesseract are installed.
func IsOCRAvailable() bool {
	return requireTools("pdftoppm", "tesseract") == nil
}

// ExtractImage runs Tesseract on a single statement image.
func ExtractImage(ctx context.Context, imagePath string) ([]string, error) {
	if err := requireTools("tesseract"); err != nil {
		return nil, err
	}
	if _, err := os.Stat(imagePath); err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	text, err := tesseract(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: tesseract found no text in %s", ErrNoText, imagePath)
	}
	return []string{text}, nil
}

// tesseract OCRs one image and returns its trimmed text.
func tesseract(ctx context.Context, imagePath string) (string, error) {
	args := append([]string{imagePath, "stdout"}, tesseractArgs...)
	out, err := exec.CommandContext(ctx, "tesseract", args...).Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed on %s: %w", imagePath, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ExtractTextOCR renders each PDF page at 300 DPI with pdftoppm and OCRs
// the images. It serves scanned PDFs without a text layer. Pages that fail
// OCR are skipped.
func ExtractTextOCR(ctx context.Context, filePath string) ([]string, error) {
	if err := requireTools("pdftoppm", "tesseract"); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	tmpDir, err := os.MkdirTemp("", "ocr-pages-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	if out, err := exec.CommandContext(ctx, "pdftoppm", "-r", "300", "-png", filePath, prefix).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, out)
	}

	images, err := pageImages(tmpDir)
	if err != nil {
		return nil, err
	}

	var pages []string
	for _, img := range images {
		text, err := tesseract(ctx, img)
		if err != nil {
			log.Warn().Err(err).Str("image", filepath.Base(img)).Msg("skipping page")
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: OCR found no text in %d page images", ErrNoText, len(images))
	}
	return pages, nil
}

// pageImages lists the PNG files in dir in page order. pdftoppm zero-pads
// page numbers, so name order is page order.
func pageImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp dir: %w", err)
	}
	var images []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	if len(images) == 0 {
		return nil, errors.New("pdftoppm produced no page images")
	}
	sort.Strings(images)
	return images, nil
}
