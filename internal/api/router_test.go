package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/jengzang/caseheat-backend-go/internal/aggregation"
	"github.com/jengzang/caseheat-backend-go/internal/config"
	"github.com/jengzang/caseheat-backend-go/internal/handler"
	"github.com/jengzang/caseheat-backend-go/internal/metrics"
	"github.com/jengzang/caseheat-backend-go/internal/middleware"
	"github.com/jengzang/caseheat-backend-go/internal/models"
	"github.com/jengzang/caseheat-backend-go/internal/service"
)

type memorySource []models.CaseRecord

func (m memorySource) Name() string { return "memory" }

func (m memorySource) Load(ctx context.Context) ([]models.CaseRecord, error) {
	return m, nil
}

func testConfig() *config.Config {
	return &config.Config{Server: config.ServerConfig{Mode: "test", CORSOrigin: "*"}}
}

func newTestRouter(t *testing.T, limiter *middleware.RateLimiter) http.Handler {
	t.Helper()
	svc := service.NewHeatmapService(memorySource{
		models.NewCaseRecord(1, 2, "2020-01-01", ""),
	}, aggregation.DefaultOptions())
	_, err := svc.Reload(context.Background())
	assert.NoError(t, err)

	reg := prometheus.NewRegistry()
	assert.NoError(t, metrics.Register(reg))
	return SetupRouter(testConfig(), handler.NewHeatmapHandler(svc, time.Second), limiter, reg)
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(t, nil)

	tests := []struct {
		method string
		path   string
		code   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/heatmap/points", http.StatusOK},
		{http.MethodGet, "/api/v1/heatmap/timeline", http.StatusOK},
		{http.MethodGet, "/api/v1/heatmap/filter", http.StatusOK},
		{http.MethodDelete, "/api/v1/heatmap/filter", http.StatusOK},
		{http.MethodGet, "/api/v1/heatmap/tooltip?timestamp=0", http.StatusOK},
		{http.MethodGet, "/api/v1/datasets/current", http.StatusOK},
		{http.MethodPost, "/api/v1/datasets/reload", http.StatusOK},
		{http.MethodOptions, "/api/v1/heatmap/points", http.StatusNoContent},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/heatmap/points", nil))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "caseheat_aggregations_total")
	assert.Contains(t, w.Body.String(), `route="/api/v1/heatmap/points"`)
}

func TestRateLimitedGroup(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 1, time.Minute)
	defer limiter.Stop()
	r := newTestRouter(t, limiter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/heatmap/points", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/heatmap/points", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// health is outside the limited group
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGzipResponses(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/heatmap/timeline", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}
