// Command casecsv runs the ingest and aggregation pipeline over case export
// files in batch, without the web server. Each input file gets a report
// directory containing one CSV per view and a summary.json.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"casepulse/internal/config"
	"casepulse/internal/exporter"
	"casepulse/internal/infrastructure"
	"casepulse/internal/services"
	"casepulse/internal/session"
)

func main() {
	inDir := flag.String("in", "", "input directory scanned for .csv/.xlsx files (default: data dir)")
	outDir := flag.String("out", "", "output directory for reports (default: reports dir)")
	delimiter := flag.String("delimiter", "", "CSV field delimiter (default: configured delimiter)")
	views := flag.String("views", "all", "comma-separated view names to export, or \"all\"")
	workers := flag.Int("workers", 4, "number of files processed concurrently")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	// Batch runs log to the console only.
	cfg.Logging.Output = "console"
	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	if *inDir == "" {
		*inDir = cfg.Paths.DataDir
	}
	if *outDir == "" {
		*outDir = cfg.Paths.ReportsDir
	}

	selected, err := resolveViews(*views)
	if err != nil {
		logger.Error("invalid view selection", "error", err)
		os.Exit(1)
	}

	files, err := collectInputs(flag.Args(), *inDir)
	if err != nil {
		logger.Error("failed to collect input files", "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		logger.Error("no input files found", "in", *inDir)
		os.Exit(1)
	}

	logger.Info("starting batch run",
		"files", len(files),
		"out", *outDir,
		"workers", *workers,
		"views", len(selected))

	metrics := infrastructure.NewMetrics()

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*workers)

	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := processFile(ctx, file, *outDir, *delimiter, selected, cfg, metrics, logger); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(file), err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("batch run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("batch run complete", "files", len(files))
}

// collectInputs returns the explicit file arguments, or scans the input
// directory for case export files when no arguments were given.
func collectInputs(args []string, inDir string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".csv", ".txt", ".xlsx", ".xlsm":
			files = append(files, filepath.Join(inDir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}

// resolveViews expands the -views flag into concrete view names.
func resolveViews(spec string) ([]string, error) {
	if spec == "" || spec == "all" {
		return exporter.ViewNames(), nil
	}

	known := make(map[string]bool, len(exporter.ViewNames()))
	for _, name := range exporter.ViewNames() {
		known[name] = true
	}

	var selected []string
	for _, name := range strings.Split(spec, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !known[name] {
			return nil, fmt.Errorf("unknown view %q", name)
		}
		selected = append(selected, name)
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("no views selected")
	}
	return selected, nil
}

// processFile runs one input file through the pipeline and writes its reports.
// Each file gets its own session so files cannot interfere with each other.
func processFile(ctx context.Context, path, outDir, delimiter string, views []string, cfg *config.Config, metrics *infrastructure.Metrics, logger *slog.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	svc := services.NewAnalyticsService(session.New(), nil, metrics, cfg.DelimiterRune(), logger)

	snap, err := svc.Load(ctx, file, services.UploadOptions{
		Filename:  filepath.Base(path),
		Delimiter: delimiter,
	})
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	logger.Info("file processed",
		"file", filepath.Base(path),
		"raw_rows", snap.Stats.RawRows,
		"rows", snap.Stats.Rows,
		"dropped", snap.Stats.Dropped)

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	writer := exporter.NewCSVWriter(outDir)

	for _, view := range views {
		headers, rows, err := exporter.ViewTable(*snap.Result, view)
		if err != nil {
			return fmt.Errorf("view %s: %w", view, err)
		}
		if err := writer.WriteSimpleCSV(filepath.Join(base, view+".csv"), headers, rows); err != nil {
			return fmt.Errorf("write %s: %w", view, err)
		}
	}

	return writeSummary(filepath.Join(outDir, base, "summary.json"), snap)
}

// writeSummary persists the full aggregation result and ingest stats as JSON.
func writeSummary(path string, snap session.Snapshot) error {
	payload := map[string]interface{}{
		"source": snap.Source,
		"stats":  snap.Stats,
		"result": snap.Result,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}
