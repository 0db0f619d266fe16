package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"casepulse/internal/session"
	ws "casepulse/internal/websocket"
)

// HealthService provides health check functionality
type HealthService struct {
	version      string
	buildTime    string
	sess         *session.Session
	webSocketHub *ws.Hub
	startTime    time.Time
	logger       *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// VersionInfo represents build information
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// NewHealthService creates a new health service with injected dependencies
func NewHealthService(version, buildTime string, sess *session.Session, webSocketHub *ws.Hub, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthService{
		version:      version,
		buildTime:    buildTime,
		sess:         sess,
		webSocketHub: webSocketHub,
		startTime:    time.Now(),
		logger:       logger.With(slog.String("component", "health_service")),
	}
}

// Health returns the overall health status with runtime details.
func (h *HealthService) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(h.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"os":             runtime.GOOS,
			"arch":           runtime.GOARCH,
		},
		Services: map[string]interface{}{
			"session": string(h.sess.Phase()),
		},
	}

	if h.webSocketHub != nil {
		status.Services["websocket_clients"] = h.webSocketHub.ClientCount()
	}

	return status
}

// Liveness reports whether the process is alive. Always true when reachable.
func (h *HealthService) Liveness(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   h.version,
	}
}

// Readiness reports whether the service can take traffic.
func (h *HealthService) Readiness(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   h.version,
	}
}

// Version returns build information.
func (h *HealthService) Version(ctx context.Context) VersionInfo {
	return VersionInfo{
		Version:   h.version,
		BuildTime: h.buildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
