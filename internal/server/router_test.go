package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abduss/filegate/internal/config"
	"github.com/abduss/filegate/internal/document"
	"github.com/abduss/filegate/internal/file"
	"github.com/abduss/filegate/internal/filetype"
	"github.com/abduss/filegate/internal/logger"
	"github.com/abduss/filegate/internal/metrics"
	"github.com/abduss/filegate/internal/storage"
)

type stubPinger struct {
	err    error
	bucket string
}

func (s *stubPinger) Ping(_ context.Context, bucket string) error {
	s.bucket = bucket
	return s.err
}

func newTestRouter(t *testing.T, pinger Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	backend := storage.NewMemoryBackend("http://localhost:9000")
	gateway := storage.NewGateway(backend, storage.GatewayConfig{PublicEndpoint: "http://localhost:9000"})
	service := file.NewService(filetype.Default(), gateway, document.NewPDFExtractor(), file.Options{})

	var cfg config.Config
	cfg.Metrics.PrometheusPath = "/metrics"
	return NewRouter(Dependencies{
		Config:          cfg,
		ObjectStore:     pinger,
		ReadinessBucket: "file-service-files",
		FileService:     service,
	})
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, &stubPinger{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestHealthReady(t *testing.T) {
	pinger := &stubPinger{}
	router := newTestRouter(t, pinger)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "file-service-files", pinger.bucket)

	pinger.err = errors.New("connection refused")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "object_store")
}

func TestCorrelationIDIsEchoed(t *testing.T) {
	router := newTestRouter(t, &stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(logger.CorrelationIDHeader, "req-42")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "req-42", rr.Header().Get(logger.CorrelationIDHeader))
}

func TestFileRoutesMounted(t *testing.T) {
	router := newTestRouter(t, &stubPinger{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/files/exists/IMAGE/missing.jpg", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"exists":false}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/files/list/NOPE", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubPinger{})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "filegate_http_requests_total")
}
