package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"tickpulse/internal/infrastructure"
	"tickpulse/pkg/contracts"
	"tickpulse/pkg/contracts/domain"
)

// SnapshotSource is the part of MarketService the health checks need
type SnapshotSource interface {
	Ready() bool
	SnapshotInfo(ctx context.Context) (domain.SnapshotInfo, error)
	LastFailure() (time.Time, error)
}

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// Health status values
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	market    SnapshotSource
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
	Snapshot  *domain.SnapshotInfo     `json:"snapshot,omitempty"`
}

// ServiceHealth represents individual component health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. clients may be nil.
func NewHealthService(version string, market SnapshotSource, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		market:    market,
		clients:   clients,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck reports StatusOK when a snapshot is served and StatusDegraded otherwise
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := hs.ReadinessCheck(ctx)
	if status.Status == StatusReady {
		status.Status = StatusOK
	} else {
		status.Status = StatusDegraded
	}
	return status
}

// ReadinessCheck returns readiness status of each component
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"data":      hs.checkDataHealth(ctx),
			"websocket": hs.checkWebSocketHealth(),
		},
	}

	if info, err := hs.market.SnapshotInfo(ctx); err == nil {
		status.Snapshot = &info
	}

	for _, svc := range status.Services {
		if svc.Status != StatusReady {
			status.Status = StatusNotReady
			break
		}
	}

	hs.logger.DebugContext(ctx, "Readiness check completed", slog.String("status", status.Status))
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":     hs.version,
		"api_version": info.APIVersion,
		"build_time":  info.BuildTime,
		"git_commit":  info.GitCommit,
		"go_version":  info.GoVersion,
		"os":          info.OS,
		"arch":        info.Architecture,
		"uptime":      time.Since(hs.startTime).Seconds(),
		"start_time":  hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDataHealth(ctx context.Context) ServiceHealth {
	if hs.market.Ready() {
		return ServiceHealth{Status: StatusReady, Message: "snapshot loaded"}
	}
	if _, err := hs.market.LastFailure(); err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	return ServiceHealth{Status: StatusNotReady, Message: "no snapshot built yet"}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{Status: StatusReady, Message: "websocket disabled"}
	}
	return ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("%d clients connected", hs.clients.ClientCount())}
}
