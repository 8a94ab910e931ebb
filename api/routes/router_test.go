package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/baystatus/api/controllers"
	"github.com/angelmondragon/baystatus/internal/baystatus"
	"github.com/angelmondragon/baystatus/internal/transport"
	"github.com/angelmondragon/baystatus/pkg/config"
	"github.com/angelmondragon/baystatus/pkg/logger"
	"github.com/angelmondragon/baystatus/pkg/metrics"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func newTestRouter(t *testing.T, pingers map[string]controllers.Pinger) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	registry, err := baystatus.NewRegistry([]string{"1"}, baystatus.Deps{
		Subscriber:         transport.NewMemory(),
		DistributorMetrics: metrics.NewDistributorMetrics(reg),
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	cfg := &config.Config{
		App:  config.AppConfig{Env: "test"},
		HTTP: config.HTTPConfig{CORSOrigins: []string{"http://localhost:3000"}},
	}
	return NewRouter(cfg, logger.Nop(), registry, pingers, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func TestRouterServesHealthAndBays(t *testing.T) {
	router := newTestRouter(t, map[string]controllers.Pinger{"broker": stubPinger{}})

	cases := []struct {
		path   string
		status int
	}{
		{"/health/live", http.StatusOK},
		{"/health/ready", http.StatusOK},
		{"/api/v1/bays", http.StatusOK},
		{"/api/v1/bays/1/widgets", http.StatusOK},
		{"/api/v1/bays/1/status", http.StatusNotFound},
		{"/api/v1/bays/7/widgets", http.StatusNotFound},
		{"/metrics", http.StatusOK},
		{"/api/v1/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.status, w.Code)
		}
	}
}

func TestRouterReadinessFailure(t *testing.T) {
	router := newTestRouter(t, map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("down")}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRouterEchoesRequestIDAndCORS(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bays", nil)
	req.Header.Set("X-Request-ID", "req-123")
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("unexpected request id %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}
