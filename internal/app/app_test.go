package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickpulse/internal/config"
	"tickpulse/internal/shared/testutil"
	ws "tickpulse/internal/websocket"
)

func testConfig(t *testing.T, datasetPath string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Dataset.Path = datasetPath
	cfg.Dataset.LoadOnStart = false
	cfg.Security.RateLimit.Enabled = false
	// the prometheus exporter registers on the default registry once per process
	cfg.Telemetry.EnableMetrics = false
	cfg.Telemetry.EnableTracing = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := New(cfg, logger)
	require.NoError(t, err)
	return a
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestApplication_RoutesBeforeAndAfterLoad(t *testing.T) {
	a := newTestApp(t, testConfig(t, testutil.WriteTickCSV(t, 180, time.Second)))

	rec := get(t, a.Router, "/api/stock/summary")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "/errors/data/not-ready")

	rec = get(t, a.Router, "/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, err := a.MarketService.Reload(context.Background())
	require.NoError(t, err)

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/api/stock/summary", http.StatusOK, `"total_ticks":180`},
		{"/api/stock/timeseries/1Min", http.StatusOK, `"tick_count":60`},
		{"/api/stock/timeseries/2Min", http.StatusBadRequest, "timeframe"},
		{"/api/stock/orderbook?resolution=30S", http.StatusOK, "bid_ask_spread"},
		{"/api/stock/indicators", http.StatusOK, `"rsi":null`},
		{"/api/stock/correlations", http.StatusOK, `"fields"`},
		{"/api/stock/cleaning-report", http.StatusOK, `"input_rows":180`},
		{"/api/health", http.StatusOK, `"status":"ok"`},
		{"/api/health/ready", http.StatusOK, `"status":"ready"`},
		{"/api/health/live", http.StatusOK, `"status":"alive"`},
		{"/api/version", http.StatusOK, `"version"`},
		{"/api/ws/stats", http.StatusOK, `"active_clients":0`},
		{"/no/such/route", http.StatusNotFound, "/errors/not-found"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, a.Router, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_MissingDatasetReportsLoadFailure(t *testing.T) {
	cfg := testConfig(t, "/does/not/exist.csv")
	a := newTestApp(t, cfg)

	err := a.performStartupHealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/does/not/exist.csv")

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stock/reload", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "/errors/data/load-failed")

	rec = get(t, a.Router, "/api/health")
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}

func TestApplication_StartServesAndBroadcasts(t *testing.T) {
	cfg := testConfig(t, testutil.WriteTickCSV(t, 120, time.Second))
	cfg.Dataset.LoadOnStart = true
	a := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx, cancel))
	defer a.Stop(context.Background())

	require.True(t, a.MarketService.Ready())
	base := "http://" + a.Addr()

	resp, err := http.Get(base + "/api/stock/timeseries/1Min")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+a.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeConnection, msg.Type)

	reload, err := http.Post(base+"/api/stock/reload", "application/json", strings.NewReader(""))
	require.NoError(t, err)
	reload.Body.Close()
	require.Equal(t, http.StatusOK, reload.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot:ready", msg.Type)
}

func TestApplication_StopIsIdempotent(t *testing.T) {
	a := newTestApp(t, testConfig(t, testutil.WriteTickCSV(t, 10, time.Second)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx, cancel))

	assert.NoError(t, a.Stop(context.Background()))
	assert.NoError(t, a.Stop(context.Background()))
}

func TestApplication_CORSPreflight(t *testing.T) {
	cfg := testConfig(t, testutil.WriteTickCSV(t, 10, time.Second))
	cfg.Security.AllowedOrigins = []string{"http://dashboard.local"}
	a := newTestApp(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/stock/summary", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://dashboard.local", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPipelineOptions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*config.Config) {}},
		{name: "named zone", mutate: func(c *config.Config) { c.Dataset.Timezone = "America/New_York" }},
		{name: "bad zone", mutate: func(c *config.Config) { c.Dataset.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
		{name: "bad date", mutate: func(c *config.Config) { c.Dataset.DefaultDate = "01-01-2023" }, wantErr: "default date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			opts, err := PipelineOptions(cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, cfg.Pipeline.RSIPeriod, opts.Indicators.RSIPeriod)
			assert.Equal(t, 2023, opts.Load.DefaultDate.Year())
			assert.NotNil(t, opts.Load.Location)
		})
	}
}
