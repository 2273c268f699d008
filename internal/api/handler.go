package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-insights/internal/anomaly"
	"github.com/insightdelivered/statement-insights/internal/extractor"
	"github.com/insightdelivered/statement-insights/internal/ledger"
	"github.com/insightdelivered/statement-insights/internal/models"
	"github.com/insightdelivered/statement-insights/internal/parser"
	"github.com/insightdelivered/statement-insights/internal/pipeline"
)

// maxUpload caps request bodies.
const maxUpload = 32 << 20

// Options configures the HTTP API.
type Options struct {
	Analyzer *pipeline.Analyzer
	// Store persists each analyzed statement when set.
	Store *ledger.Store
	// ZThreshold is the default threshold for the zscore anomaly method.
	ZThreshold float64
	Version    string
	Log        zerolog.Logger
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	analyzer   *pipeline.Analyzer
	store      *ledger.Store
	zThreshold float64
	version    string
	log        zerolog.Logger
}

// AnalyzeResponse is the JSON response from /api/analyze.
type AnalyzeResponse struct {
	Success bool             `json:"success"`
	Source  string           `json:"source,omitempty"`
	BatchID string           `json:"batch_id,omitempty"`
	Report  *pipeline.Report `json:"report"`
}

// AnomaliesResponse is the JSON response from /api/anomalies.
type AnomaliesResponse struct {
	Success   bool                        `json:"success"`
	Method    anomaly.Method              `json:"method"`
	Count     int                         `json:"count"`
	Anomalies []models.FlaggedTransaction `json:"anomalies"`
}

// New builds the fiber app with middleware and all routes registered.
func New(opts Options) *fiber.App {
	h := &Handler{
		analyzer:   opts.Analyzer,
		store:      opts.Store,
		zThreshold: opts.ZThreshold,
		version:    opts.Version,
		log:        opts.Log,
	}
	if h.zThreshold <= 0 {
		h.zThreshold = anomaly.DefaultZThreshold
	}

	app := fiber.New(fiber.Config{
		AppName:               "statement-insights",
		BodyLimit:             maxUpload,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	app.Use(fiberrecover.New())
	app.Use(cors.New())
	app.Use(RequestLogger(opts.Log))
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes. Batch routes exist only when a
// store is configured.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/health", h.handleHealth)
	api.Get("/categories", h.handleCategories)
	api.Post("/analyze", h.handleAnalyze)
	api.Post("/anomalies", h.handleAnomalies)

	if h.store != nil {
		api.Get("/batches", h.handleListBatches)
		api.Get("/batches/:id", h.handleGetBatch)
	}
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.version,
	})
}

func (h *Handler) handleCategories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"categories": h.analyzer.Options().Categories,
	})
}

func (h *Handler) handleAnalyze(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var (
		report *pipeline.Report
		source string
		err    error
	)
	if fh, ferr := c.FormFile("file"); ferr == nil {
		source = fh.Filename
		report, err = h.analyzeUpload(ctx, c, fh)
	} else {
		text := c.FormValue("text")
		if text == "" && c.Is("json") {
			var req struct {
				Text string `json:"text"`
			}
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body.")
			}
			text = req.Text
		}
		if strings.TrimSpace(text) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "No input. Upload a file in form field 'file' or send 'text'.")
		}
		report, err = h.analyzer.AnalyzeText(ctx, text)
	}
	if err != nil {
		return analysisError(err)
	}

	resp := AnalyzeResponse{Success: true, Source: source, Report: report}
	if h.store != nil {
		id, err := h.store.SaveBatch(ctx, source, report.Transactions)
		if err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}
		resp.BatchID = id
	}
	return c.JSON(resp)
}

func (h *Handler) analyzeUpload(ctx context.Context, c *fiber.Ctx, fh *multipart.FileHeader) (*pipeline.Report, error) {
	kind, err := extractor.KindOf(fh.Filename)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Unsupported file type. Use .txt, .csv, .pdf or an image.")
	}

	switch kind {
	case extractor.KindCSV, extractor.KindText:
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()
		if kind == extractor.KindCSV {
			return h.analyzer.AnalyzeCSV(ctx, f)
		}
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		return h.analyzer.AnalyzeText(ctx, string(data))
	}

	// PDF and image extraction shell out to tools that need a real file.
	tmp, err := os.CreateTemp("", "statement-*"+strings.ToLower(filepath.Ext(fh.Filename)))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := c.SaveFile(fh, tmp.Name()); err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}
	pages, err := extractor.Extract(ctx, tmp.Name())
	if err != nil {
		return nil, err
	}
	return h.analyzer.AnalyzePages(ctx, pages)
}

// analysisError maps input problems to 422 and everything else to 500.
func analysisError(err error) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe
	case errors.Is(err, parser.ErrMissingColumn),
		errors.Is(err, extractor.ErrNoText),
		errors.Is(err, extractor.ErrToolMissing):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return err
	}
}

type anomaliesRequest struct {
	Transactions []ledger.Record `json:"transactions"`
	Threshold    float64         `json:"threshold"`
}

func (h *Handler) handleAnomalies(c *fiber.Ctx) error {
	method, err := anomaly.ParseMethod(c.Query("method", string(anomaly.MethodZScore)))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var req anomaliesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body.")
	}
	txns := make([]models.Transaction, 0, len(req.Transactions))
	for i, rec := range req.Transactions {
		t, err := rec.Transaction()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("transaction %d: %v", i, err))
		}
		txns = append(txns, t)
	}

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = h.zThreshold
	}
	flagged, err := anomaly.Detect(txns, method, threshold)
	if err != nil {
		return err
	}
	if flagged == nil {
		flagged = []models.FlaggedTransaction{}
	}
	return c.JSON(AnomaliesResponse{
		Success:   true,
		Method:    method,
		Count:     len(flagged),
		Anomalies: flagged,
	})
}

func (h *Handler) handleListBatches(c *fiber.Ctx) error {
	batches, err := h.store.ListBatches(c.UserContext())
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}
	if batches == nil {
		batches = []ledger.Batch{}
	}
	return c.JSON(fiber.Map{"batches": batches, "count": len(batches)})
}

func (h *Handler) handleGetBatch(c *fiber.Ctx) error {
	txns, err := h.store.LoadBatch(c.UserContext(), c.Params("id"))
	if errors.Is(err, ledger.ErrBatchNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return fmt.Errorf("failed to load batch: %w", err)
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	return c.JSON(fiber.Map{"id": c.Params("id"), "transactions": txns})
}
