package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newthinker/swiftsig/internal/backtest"
	"github.com/newthinker/swiftsig/internal/core"
	"github.com/newthinker/swiftsig/internal/metrics"
	"github.com/newthinker/swiftsig/internal/strategy"
	"github.com/newthinker/swiftsig/internal/strategy/ma_crossover"
)

type emptyProvider struct{}

func (emptyProvider) FetchHistory(symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	return nil, nil
}

func newTestServer(t *testing.T, cfg Config) (*Server, *metrics.Registry) {
	t.Helper()
	reg := metrics.NewRegistry()
	strategies := strategy.NewRegistry()
	strategies.Register(ma_crossover.NewDefault())

	srv, err := NewServer(cfg, Dependencies{
		Backtester: backtest.New(emptyProvider{}, backtest.WithRecorder(reg)),
		Strategies: strategies,
		Metrics:    reg,
	}, zap.NewNop())
	require.NoError(t, err)
	return srv, reg
}

func serve(srv *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(Config{}, Dependencies{}, zap.NewNop())
	assert.Error(t, err)
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, Config{Host: "localhost"})

	w := serve(srv, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(metrics.RequestIDHeader))
}

func TestServer_Routes(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{"GET", "/api/v1/strategies", "", http.StatusOK},
		{"GET", "/api/v1/backtests", "", http.StatusOK},
		{"POST", "/api/v1/backtests", `{"pair":"EURUSD","strategy":"ma_crossover"}`, http.StatusAccepted},
		{"GET", "/api/v1/backtests/missing", "", http.StatusNotFound},
		{"GET", "/api/v1/backtests/missing/files/trades", "", http.StatusNotFound},
		{"DELETE", "/api/v1/backtests/missing", "", http.StatusMethodNotAllowed},
		{"GET", "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestServer_APIAuth(t *testing.T) {
	srv, _ := newTestServer(t, Config{APIKey: "secret"})

	assert.Equal(t, http.StatusUnauthorized, serve(srv, "GET", "/api/v1/strategies", "").Code)
	assert.Equal(t, http.StatusOK, serve(srv, "GET", "/api/v1/strategies", "", "X-API-Key", "secret").Code)

	// health and metrics stay open
	assert.Equal(t, http.StatusOK, serve(srv, "GET", "/api/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(srv, "GET", "/metrics", "").Code)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	serve(srv, "GET", "/api/v1/backtests/abc", "")
	w := serve(srv, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `path="/api/v1/backtests/{id}"`), "route pattern should label requests")
	assert.Contains(t, body, "http_requests_total")
}
