// Package app wires the CasePulse application together: configuration,
// logging, metrics, the WebSocket hub, services, and the HTTP router.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"casepulse/internal/config"
	apierrors "casepulse/internal/errors"
	"casepulse/internal/infrastructure"
	customMiddleware "casepulse/internal/middleware"
	"casepulse/internal/services"
	"casepulse/internal/session"
	transporthttp "casepulse/internal/transport/http"
	ws "casepulse/internal/websocket"
)

// AppName is the service name reported in logs and version info.
const AppName = "CasePulse"

// Build information, overridable at link time.
var (
	VERSION   = "0.9.0"
	BuildTime = "unknown"
)

// Application represents the main application with all its dependencies
type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *infrastructure.Metrics
	Router  chi.Router
	Server  *http.Server

	Session      *session.Session
	WebSocketHub *ws.Hub

	AnalyticsService *services.AnalyticsService
	HealthService    *services.HealthService

	ErrorHandler *apierrors.ErrorHandler

	wsUpgrader websocket.Upgrader
}

// NewApplication creates a new application instance with all dependencies wired
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &Application{
		Config:  cfg,
		Logger:  logger,
		Metrics: infrastructure.NewMetrics(),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices creates the session, hub, and domain services.
func (a *Application) initializeServices() error {
	a.Session = session.New()
	a.WebSocketHub = ws.NewHub(a.Logger)

	a.AnalyticsService = services.NewAnalyticsService(
		a.Session,
		a.WebSocketHub,
		a.Metrics,
		a.Config.DelimiterRune(),
		a.Logger,
	)
	a.HealthService = services.NewHealthService(VERSION, BuildTime, a.Session, a.WebSocketHub, a.Logger)

	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	a.wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin:     a.checkWebSocketOrigin,
	}

	return nil
}

// setupRouter configures the Chi router with middleware and routes.
// WebSocket and metrics endpoints sit outside the full middleware chain so
// long-lived connections and scrapes are not logged, limited, or timed out.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Get("/ws", a.handleWebSocket)
	r.Handle("/metrics", a.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			limiter := customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			)
			r.Use(limiter.Handler)
		}

		a.setupAPIRoutes(r)
		a.setupStaticRoutes(r)
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes mounts the API handlers under /api.
func (a *Application) setupAPIRoutes(r chi.Router) {
	analyticsHandler := transporthttp.NewAnalyticsHandler(
		a.AnalyticsService,
		a.Config.Ingest.MaxUploadBytes,
		a.Logger,
		a.ErrorHandler,
	)
	healthHandler := transporthttp.NewHealthHandler(a.HealthService, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

		r.Mount("/analytics", analyticsHandler.Routes())
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.GetVersion)
	})
}

// setupStaticRoutes serves the dashboard assets from the web directory when it
// exists. Unknown paths fall back to index.html so client-side routing works.
func (a *Application) setupStaticRoutes(r chi.Router) {
	webDir := a.Config.Paths.WebDir
	if webDir == "" {
		return
	}
	if _, err := os.Stat(webDir); err != nil {
		a.Logger.Warn("web directory not found, static serving disabled",
			slog.String("web_dir", webDir))
		return
	}

	fileServer := http.FileServer(http.Dir(webDir))

	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/api/") {
			a.ErrorHandler.NotFound(w, req)
			return
		}

		requested := filepath.Join(webDir, filepath.Clean("/"+req.URL.Path))
		if info, err := os.Stat(requested); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, req)
			return
		}

		http.ServeFile(w, req, filepath.Join(webDir, "index.html"))
	})
}

// getCORSConfig returns the CORS configuration derived from security settings.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins:   a.Config.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server from the router and server settings.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the hub and the HTTP server. Server errors cancel the context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Logger.InfoContext(ctx, "application paths",
		slog.String("executable_dir", a.Config.Paths.ExecutableDir),
		slog.String("data_dir", a.Config.Paths.DataDir),
		slog.String("reports_dir", a.Config.Paths.ReportsDir),
		slog.String("web_dir", a.Config.Paths.WebDir),
		slog.String("logs_dir", a.Config.Paths.LogsDir))

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "failed to close log file", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "context cancelled")
	}

	return a.Stop(context.Background())
}

// handleWebSocket upgrades the connection and hands it to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())

	a.Logger.InfoContext(ctx, "websocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")))

	conn, err := a.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		a.Logger.ErrorContext(ctx, "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
		return
	}

	ws.ServeWS(a.WebSocketHub, conn)
}

// checkWebSocketOrigin validates the Origin header against allowed origins.
// Requests without an Origin header (CLI clients, same-host tools) pass.
func (a *Application) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range a.Config.Security.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}

	a.Logger.Warn("websocket origin rejected", slog.String("origin", origin))
	return false
}

// WaitForReady polls the health endpoint until the server responds or the
// timeout elapses. Used by tooling that starts the server out of process.
func WaitForReady(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	healthURL := baseURL + "/api/health/live"

	for time.Now().Before(deadline) {
		resp, err := http.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(250 * time.Millisecond)
	}

	return fmt.Errorf("server at %s not ready within %s", baseURL, timeout)
}
