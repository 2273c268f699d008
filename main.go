package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-insights/internal/api"
	"github.com/insightdelivered/statement-insights/internal/config"
	"github.com/insightdelivered/statement-insights/internal/extractor"
	"github.com/insightdelivered/statement-insights/internal/ledger"
	"github.com/insightdelivered/statement-insights/internal/logger"
	"github.com/insightdelivered/statement-insights/internal/pipeline"
	"github.com/insightdelivered/statement-insights/internal/writer"
)

const version = "1.0.0"

var errUnknownFormat = errors.New("unknown output format")

// cliOptions holds the flags that shape a single CLI run.
type cliOptions struct {
	format string
	export string
	output string
	header bool
}

func main() {
	formatFlag := flag.String("format", "text", "Output format: text, json, csv")
	exportFlag := flag.String("export", writer.ExportTransactions, "Table written by --format=csv: transactions, anomalies, duplicates, categories")
	outputFlag := flag.String("output", "", "Write the report to this file instead of stdout")
	headerFlag := flag.Bool("header", false, "Include metadata rows in CSV output")
	configFlag := flag.String("config", "", "Path to a YAML config file")
	layoutFlag := flag.String("layout", pipeline.LayoutAuto, "Statement line layout: auto, between, trailing")
	windowFlag := flag.Int("window", 0, "Moving-average window in days (overrides config)")
	contaminationFlag := flag.Float64("contamination", 0, "Expected share of anomalies in (0, 0.5] (overrides config)")
	dbFlag := flag.String("db", "", "SQLite ledger path; each analyzed statement is saved as a batch")
	serveFlag := flag.Bool("serve", false, "Start the HTTP API instead of analyzing files")
	portFlag := flag.Int("port", 0, "HTTP port for --serve (overrides config)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Statement Insights
by Insight Delivered

Turns statement text (.txt, OCR output), CSV exports, PDFs and scanned
images into a categorized ledger with anomaly and duplicate reports.

Usage:
  statement-insights [flags] <statement> [statement2 ...]
  statement-insights --serve [--port=8080]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Summarize a statement in the terminal
  statement-insights statement.txt

  # Full report as JSON
  statement-insights --format=json --output=report.json statement.pdf

  # Export flagged transactions as CSV
  statement-insights --format=csv --export=anomalies export.csv

  # Keep a ledger of every run
  statement-insights --db=ledger.db jan.pdf feb.pdf

Environment:
  STATEMENT_INSIGHTS_* variables override config values, e.g.
  STATEMENT_INSIGHTS_SERVER_PORT=9090 or STATEMENT_INSIGHTS_LOG_LEVEL=debug
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("statement-insights v%s\n", version)
		os.Exit(0)
	}
	if *helpFlag || (flag.NArg() == 0 && !*serveFlag) {
		flag.Usage()
		os.Exit(0)
	}

	opts := cliOptions{
		format: strings.ToLower(*formatFlag),
		export: strings.ToLower(*exportFlag),
		output: *outputFlag,
		header: *headerFlag,
	}
	if err := opts.validate(); err != nil {
		fatalf("%v\n", err)
	}
	if opts.output != "" && flag.NArg() > 1 {
		fatalf("--output takes a single input file, got %d\n", flag.NArg())
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fatalf("Config error: %v\n", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "window":
			cfg.Trends.Window = *windowFlag
		case "contamination":
			cfg.Anomaly.Contamination = *contaminationFlag
		case "port":
			cfg.Server.Port = *portFlag
		case "db":
			cfg.Database.Path = *dbFlag
		}
	})
	if err := cfg.Validate(); err != nil {
		fatalf("Config error: %v\n", err)
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	pipeOpts := pipeline.DefaultOptions()
	pipeOpts.Categories = cfg.CategoryConfig()
	pipeOpts.Anomaly.Contamination = cfg.Anomaly.Contamination
	pipeOpts.DuplicateWindow = cfg.Duplicates.WindowDays
	pipeOpts.TrendWindow = cfg.Trends.Window
	pipeOpts.Layout = *layoutFlag
	analyzer, err := pipeline.New(pipeOpts)
	if err != nil {
		fatalf("Invalid settings: %v\n", err)
	}

	var store *ledger.Store
	if cfg.Database.Path != "" {
		store, err = openStore(ctx, cfg.Database.Path)
		if err != nil {
			fatalf("Ledger error: %v\n", err)
		}
		defer store.Close()
	}

	if *serveFlag {
		if err := serve(ctx, cfg, analyzer, store, log); err != nil {
			log.Error().Err(err).Msg("server stopped")
			os.Exit(1)
		}
		return
	}

	for _, inputPath := range flag.Args() {
		if err := processFile(ctx, inputPath, analyzer, store, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

func (o cliOptions) validate() error {
	switch o.format {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("%w %q. Supported: text, json, csv", errUnknownFormat, o.format)
	}
	switch o.export {
	case writer.ExportTransactions, writer.ExportAnomalies, writer.ExportDuplicates, writer.ExportCategories:
		return nil
	default:
		return fmt.Errorf("%w %q", writer.ErrUnknownExport, o.export)
	}
}

func openStore(ctx context.Context, path string) (*ledger.Store, error) {
	store, err := ledger.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func serve(ctx context.Context, cfg *config.Config, analyzer *pipeline.Analyzer, store *ledger.Store, log zerolog.Logger) error {
	app := api.New(api.Options{
		Analyzer:   analyzer,
		Store:      store,
		ZThreshold: cfg.Anomaly.ZThreshold,
		Version:    version,
		Log:        log,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	log.Info().Str("addr", addr).Bool("ledger", store != nil).Msg("HTTP API listening")
	return app.Listen(addr)
}

func processFile(ctx context.Context, inputPath string, analyzer *pipeline.Analyzer, store *ledger.Store, opts cliOptions) error {
	log := logger.FromContext(ctx).With().Str("file", filepath.Base(inputPath)).Logger()
	ctx = logger.WithContext(ctx, log)

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	kind, err := extractor.KindOf(inputPath)
	if err != nil {
		return err
	}

	var report *pipeline.Report
	if kind == extractor.KindCSV {
		f, err := os.Open(inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		report, err = analyzer.AnalyzeCSV(ctx, f)
		if err != nil {
			return err
		}
	} else {
		pages, err := extractor.Extract(ctx, inputPath)
		if err != nil {
			return fmt.Errorf("text extraction failed: %w", err)
		}
		log.Debug().Int("pages", len(pages)).Msg("text extracted")
		report, err = analyzer.AnalyzePages(ctx, pages)
		if err != nil {
			return err
		}
	}

	if len(report.Transactions) == 0 {
		log.Warn().Msg("no transactions found; the statement layout may not match, try --layout=trailing for OCR text")
	}

	if store != nil {
		id, err := store.SaveBatch(ctx, inputPath, report.Transactions)
		if err != nil {
			return err
		}
		log.Info().Str("batch", id).Msg("saved to ledger")
	}

	var out io.Writer = os.Stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create output file %q: %w", opts.output, err)
		}
		defer f.Close()
		out = f
	}
	if err := writeReport(out, inputPath, report, opts); err != nil {
		return err
	}
	if opts.output != "" {
		log.Info().Str("output", opts.output).Msg("report written")
	}
	return nil
}

func writeReport(out io.Writer, source string, report *pipeline.Report, opts cliOptions) error {
	switch opts.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "csv":
		w := &writer.CSVWriter{IncludeHeader: opts.header, Source: source}
		return w.WriteReport(out, opts.export, report)
	default:
		return writer.TextReport(out, source, report)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
