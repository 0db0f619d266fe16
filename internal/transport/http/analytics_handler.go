// Package http contains the HTTP handlers that expose the analytics service
// with RFC 7807 error responses.
package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "casepulse/internal/errors"
	"casepulse/internal/exporter"
	"casepulse/internal/infrastructure"
	"casepulse/internal/services"
)

// AnalyticsHandler handles dataset upload and view requests
type AnalyticsHandler struct {
	service        *services.AnalyticsService
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
}

// NewAnalyticsHandler creates a new analytics handler with RFC 7807 error handling
func NewAnalyticsHandler(service *services.AnalyticsService, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalyticsHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &AnalyticsHandler{
		service:        service,
		logger:         logger.With(slog.String("component", "analytics_handler")),
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the analytics routes with proper Chi patterns
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/upload", h.Upload)
	r.Get("/summary", h.GetSummary)
	r.Get("/state", h.GetState)
	r.Post("/clear", h.Clear)
	r.Get("/export/{view}", h.ExportView)

	return r
}

// Upload handles POST /api/analytics/upload. The payload arrives either as a
// multipart "file" part or as the raw request body.
func (h *AnalyticsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := infrastructure.GetTraceID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	payload, opts, cleanup, err := h.extractPayload(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer cleanup()

	h.logger.InfoContext(ctx, "upload received",
		slog.String("request_id", reqID),
		slog.String("filename", opts.Filename),
		slog.String("format", opts.Format),
	)

	snapshot, err := h.service.Load(ctx, payload, opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, uploadErrorToAPI(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   snapshot,
	})
}

// GetSummary handles GET /api/analytics/summary
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Summary(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoDataLoaded) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusNotFound,
				"NO_DATA_LOADED",
				"No dataset is loaded",
			))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}

// GetState handles GET /api/analytics/state
func (h *AnalyticsHandler) GetState(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.State(r.Context()),
	})
}

// Clear handles POST /api/analytics/clear
func (h *AnalyticsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.Clear(r.Context())

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   snapshot,
	})
}

// ExportView handles GET /api/analytics/export/{view} as a CSV download.
func (h *AnalyticsHandler) ExportView(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, view))

	err := h.service.ExportView(r.Context(), w, view)
	if err == nil {
		return
	}

	// Nothing has been written yet on these errors, so a problem response is
	// still possible.
	w.Header().Del("Content-Disposition")
	switch {
	case errors.Is(err, services.ErrNoDataLoaded):
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusNotFound,
			"NO_DATA_LOADED",
			"No dataset is loaded",
		))
	case errors.Is(err, exporter.ErrUnknownView):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("view", fmt.Sprintf("Unknown view: %s", view)))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

// uploadErrorToAPI maps option-level load failures to client errors before
// they reach the central handler. Ingest and session errors pass through; the
// handler already knows those.
func uploadErrorToAPI(err error) error {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		fields := make([]apierrors.ValidationError, 0, len(verr))
		for _, fe := range verr {
			fields = append(fields, apierrors.ValidationError{
				Field:   strings.ToLower(fe.Field()),
				Message: fe.Error(),
			})
		}
		return apierrors.NewValidationErrors(fields)
	}

	if errors.Is(err, services.ErrUnknownFormat) {
		return apierrors.ErrValidation("format", err.Error())
	}

	return err
}

// extractPayload pulls the upload body and its options out of the request.
func (h *AnalyticsHandler) extractPayload(r *http.Request) (payload io.Reader, opts services.UploadOptions, cleanup func(), err error) {
	opts = services.UploadOptions{
		Format:    r.URL.Query().Get("format"),
		Delimiter: r.URL.Query().Get("delimiter"),
		NoHeader:  r.URL.Query().Get("no_header") == "true",
	}
	cleanup = func() {}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var file multipart.File
		var header *multipart.FileHeader

		file, header, err = r.FormFile("file")
		if err != nil {
			return nil, opts, cleanup, apierrors.InvalidRequestWithError(fmt.Errorf("missing multipart file part: %w", err))
		}

		opts.Filename = header.Filename
		return file, opts, func() { file.Close() }, nil
	}

	opts.Filename = r.URL.Query().Get("filename")
	return r.Body, opts, cleanup, nil
}
