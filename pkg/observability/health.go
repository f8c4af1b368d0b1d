package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker probes the service's backing dependencies
type HealthChecker struct {
	db      *sql.DB
	redis   *redis.Client
	version string
}

// NewHealthChecker creates a new health checker. The redis client may be nil
// when no denylist is configured.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client, version string) *HealthChecker {
	return &HealthChecker{
		db:      db,
		redis:   redisClient,
		version: version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Liveness returns a simple liveness probe (200 whenever the server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now().UTC(),
	})
}

// Readiness checks all dependencies and returns 503 when unhealthy
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(status)
}

// Check probes every dependency and aggregates an overall status.
// Redis is optional, so a Redis failure only degrades the service.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		start := time.Now()
		dep := DependencyStatus{Status: StatusHealthy}
		if err := h.db.PingContext(ctx); err != nil {
			dep.Status = StatusUnhealthy
			dep.Message = err.Error()
			status.Status = StatusUnhealthy
		}
		dep.LatencyMS = time.Since(start).Milliseconds()
		status.Dependencies["database"] = dep
	}

	if h.redis != nil {
		start := time.Now()
		dep := DependencyStatus{Status: StatusHealthy}
		if err := h.redis.Ping(ctx).Err(); err != nil {
			dep.Status = StatusUnhealthy
			dep.Message = err.Error()
			if status.Status == StatusHealthy {
				status.Status = StatusDegraded
			}
		}
		dep.LatencyMS = time.Since(start).Milliseconds()
		status.Dependencies["redis"] = dep
	}

	return status
}
