package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepulse/internal/config"
	"casepulse/internal/infrastructure"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	cfg := config.Default()
	cfg.Logging.Output = "console"
	cfg.Logging.Level = "error"
	cfg.Paths.ExecutableDir = t.TempDir()
	cfg.Paths.WebDir = "" // no static assets in tests
	cfg.Security.RateLimit.Enabled = false

	app, err := NewApplication(cfg)
	require.NoError(t, err)
	return app
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	_, err := NewApplication(nil)
	assert.Error(t, err)
}

func TestRouter_HealthAndVersion(t *testing.T) {
	app := newTestApplication(t)

	for _, path := range []string{"/api/health", "/api/health/live", "/api/health/ready", "/api/version"} {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_UploadAndSummary(t *testing.T) {
	app := newTestApplication(t)

	payload := "ID;CREATED_DATE;ACTION_DATE;REGISTRATION_DATE;STAFF;ACTION;REFERENCE\n" +
		"C-1;2024.03.01 08:00:00;2024.03.04 08:00:00;;Alice;resolve;\n"

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/upload?filename=cases.csv", strings.NewReader(payload))
	app.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["monthly_series"])
}

func TestRouter_NotFoundIsProblemJSON(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/errors/not-found", body["type"])
	assert.NotEmpty(t, body["trace_id"])
}

func TestRouter_MetricsExposed(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "casepulse_ingest_rows_total")
}

func TestRouter_SetsRequestID(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestWaitForReady(t *testing.T) {
	app := newTestApplication(t)

	server := httptest.NewServer(app.Router)
	defer server.Close()

	assert.NoError(t, WaitForReady(server.URL, 2*time.Second))
	assert.Error(t, WaitForReady("http://127.0.0.1:1", 300*time.Millisecond))
}

func TestCheckWebSocketOrigin(t *testing.T) {
	app := newTestApplication(t)
	app.Config.Security.AllowedOrigins = []string{"http://localhost:8080"}

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin header", "", true},
		{"allowed origin", "http://localhost:8080", true},
		{"case-insensitive match", "HTTP://LOCALHOST:8080", true},
		{"rejected origin", "http://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, app.checkWebSocketOrigin(req))
		})
	}
}
