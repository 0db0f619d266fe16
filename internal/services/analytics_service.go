// Package services holds the business layer between HTTP transport and the
// core ingest/analytics/session packages.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"casepulse/internal/analytics"
	"casepulse/internal/exporter"
	"casepulse/internal/infrastructure"
	"casepulse/internal/ingest"
	"casepulse/internal/session"
	ws "casepulse/internal/websocket"
)

// Upload formats accepted by the analytics service.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// UploadOptions describes one upload request. Zero values fall back to the
// service defaults.
type UploadOptions struct {
	Filename  string `validate:"omitempty,max=255"`
	Format    string `validate:"omitempty,oneof=csv xlsx"`
	Delimiter string `validate:"omitempty,len=1"`
	NoHeader  bool
}

// AnalyticsService owns the dataset lifecycle: it ingests uploads, derives the
// views, and serves them to the transport layer.
type AnalyticsService struct {
	session  *session.Session
	hub      *ws.Hub
	metrics  *infrastructure.Metrics
	validate *validator.Validate
	logger   *slog.Logger

	defaultDelimiter rune
}

// NewAnalyticsService creates the service with its dependencies injected.
// hub and metrics may be nil (the CLI runs without them).
func NewAnalyticsService(sess *session.Session, hub *ws.Hub, metrics *infrastructure.Metrics, defaultDelimiter rune, logger *slog.Logger) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultDelimiter == 0 {
		defaultDelimiter = ingest.DefaultDelimiter
	}

	return &AnalyticsService{
		session:          sess,
		hub:              hub,
		metrics:          metrics,
		validate:         validator.New(),
		logger:           logger.With(slog.String("component", "analytics_service")),
		defaultDelimiter: defaultDelimiter,
	}
}

// Load runs one full ingestion: validate options, parse the payload, derive
// the views, and move the session to ready. Any failure lands the session in
// the error phase.
func (s *AnalyticsService) Load(ctx context.Context, r io.Reader, opts UploadOptions) (session.Snapshot, error) {
	if err := s.validate.Struct(opts); err != nil {
		return s.session.Snapshot(), fmt.Errorf("invalid upload options: %w", err)
	}

	format, err := s.resolveFormat(opts)
	if err != nil {
		return s.session.Snapshot(), err
	}

	if err := s.session.BeginLoad(opts.Filename); err != nil {
		return s.session.Snapshot(), err
	}

	s.broadcastProgress("parsing", fmt.Sprintf("ingesting %s upload", format))
	start := time.Now()

	records, stats, err := s.ingestPayload(r, format, opts)
	s.observeIngest(time.Since(start), stats, err)

	if err != nil {
		s.session.FailLoad(err)
		s.logger.ErrorContext(ctx, "ingestion failed",
			slog.String("source", opts.Filename),
			slog.String("format", format),
			slog.String("error", err.Error()))
		s.broadcastError(err.Error(), infrastructure.GetTraceID(ctx))
		s.broadcastState()
		return s.session.Snapshot(), err
	}

	s.broadcastProgress("aggregating", fmt.Sprintf("computing views over %d rows", stats.Rows))

	result := analytics.Aggregate(records)
	if s.metrics != nil {
		s.metrics.AggregateRuns.Inc()
	}

	s.session.CompleteLoad(result, stats)
	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", opts.Filename),
		slog.String("format", format),
		slog.Int("raw_rows", stats.RawRows),
		slog.Int("rows", stats.Rows),
		slog.Int("dropped", stats.Dropped),
		slog.Duration("elapsed", time.Since(start)))
	s.broadcastState()

	return s.session.Snapshot(), nil
}

// Summary returns the current dataset's derived views.
func (s *AnalyticsService) Summary(ctx context.Context) (analytics.Result, error) {
	result, ok := s.session.Result()
	if !ok {
		return analytics.Result{}, ErrNoDataLoaded
	}
	return result, nil
}

// State returns the current session snapshot.
func (s *AnalyticsService) State(ctx context.Context) session.Snapshot {
	return s.session.Snapshot()
}

// Clear drops the current dataset and notifies connected dashboards.
func (s *AnalyticsService) Clear(ctx context.Context) session.Snapshot {
	s.session.Clear()
	s.logger.InfoContext(ctx, "session cleared")
	s.broadcastState()
	return s.session.Snapshot()
}

// ExportView streams one aggregation view as CSV.
func (s *AnalyticsService) ExportView(ctx context.Context, out io.Writer, view string) error {
	result, ok := s.session.Result()
	if !ok {
		return ErrNoDataLoaded
	}

	headers, rows, err := exporter.ViewTable(result, view)
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ExportRequests.WithLabelValues(view).Inc()
	}
	s.logger.InfoContext(ctx, "view exported",
		slog.String("view", view),
		slog.Int("rows", len(rows)))

	return exporter.WriteTo(out, headers, rows)
}

// resolveFormat picks the upload format from the explicit option or the
// filename extension, defaulting to CSV.
func (s *AnalyticsService) resolveFormat(opts UploadOptions) (string, error) {
	if opts.Format != "" {
		return opts.Format, nil
	}

	switch strings.ToLower(filepath.Ext(opts.Filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt", "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, opts.Filename)
	}
}

func (s *AnalyticsService) ingestPayload(r io.Reader, format string, opts UploadOptions) ([]ingest.Record, ingest.Stats, error) {
	ingestOpts := ingest.Options{
		Delimiter: s.defaultDelimiter,
		NoHeader:  opts.NoHeader,
	}
	if opts.Delimiter != "" {
		ingestOpts.Delimiter = []rune(opts.Delimiter)[0]
	}

	if format == FormatXLSX {
		return ingest.IngestWorkbook(r, ingestOpts)
	}
	return ingest.Ingest(r, ingestOpts)
}

func (s *AnalyticsService) observeIngest(elapsed time.Duration, stats ingest.Stats, err error) {
	if s.metrics == nil {
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.IngestRuns.WithLabelValues(outcome).Inc()
	s.metrics.IngestRows.Add(float64(stats.Rows))
	s.metrics.IngestDropped.Add(float64(stats.Dropped))
	s.metrics.IngestSeconds.Observe(elapsed.Seconds())
}

func (s *AnalyticsService) broadcastState() {
	if s.hub != nil {
		s.hub.BroadcastState(s.session.Snapshot())
	}
}

func (s *AnalyticsService) broadcastProgress(stage, message string) {
	if s.hub != nil {
		s.hub.BroadcastProgress(stage, message)
	}
}

func (s *AnalyticsService) broadcastError(message, traceID string) {
	if s.hub != nil {
		s.hub.BroadcastError(message, traceID)
	}
}
