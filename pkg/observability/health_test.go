package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveness_AlwaysOK(t *testing.T) {
	hc := NewHealthChecker(nil, nil, "test")

	rec := httptest.NewRecorder()
	hc.Liveness(rec, httptest.NewRequest("GET", "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheck_NoDependencies(t *testing.T) {
	hc := NewHealthChecker(nil, nil, "test")

	status := hc.Check(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, "test", status.Version)
	assert.Empty(t, status.Dependencies)
}

func TestCheck_RedisHealthy(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hc := NewHealthChecker(nil, client, "test")
	status := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["redis"].Status)
}

func TestCheck_RedisFailureDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	hc := NewHealthChecker(nil, client, "test")
	status := hc.Check(context.Background())

	// Redis backs only early token revocation, so its loss degrades
	// rather than fails the service.
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["redis"].Status)
}

func TestReadiness_DegradedStillReady(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	hc := NewHealthChecker(nil, client, "test")

	rec := httptest.NewRecorder()
	hc.Readiness(rec, httptest.NewRequest("GET", "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusDegraded, status.Status)
}
