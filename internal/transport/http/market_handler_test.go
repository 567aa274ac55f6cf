package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tickpulse/internal/dataprocessing"
	apierrors "tickpulse/internal/errors"
	"tickpulse/internal/middleware"
	"tickpulse/internal/services"
	"tickpulse/pkg/contracts/domain"
)

// MockMarketService is a mock implementation of MarketService
type MockMarketService struct {
	mock.Mock
}

func (m *MockMarketService) SnapshotInfo(ctx context.Context) (domain.SnapshotInfo, error) {
	args := m.Called()
	return args.Get(0).(domain.SnapshotInfo), args.Error(1)
}

func (m *MockMarketService) GetSummary(ctx context.Context) (domain.SummaryStatistics, error) {
	args := m.Called()
	return args.Get(0).(domain.SummaryStatistics), args.Error(1)
}

func (m *MockMarketService) GetTimeseries(ctx context.Context, resolution string) ([]domain.ResampledBar, error) {
	args := m.Called(resolution)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ResampledBar), args.Error(1)
}

func (m *MockMarketService) GetOrderFlow(ctx context.Context) ([]domain.OrderFlowPoint, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderFlowPoint), args.Error(1)
}

func (m *MockMarketService) GetIndicators(ctx context.Context) ([]domain.IndicatorPoint, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IndicatorPoint), args.Error(1)
}

func (m *MockMarketService) GetIndicatorsAt(ctx context.Context, resolution string) ([]domain.IndicatorPoint, error) {
	args := m.Called(resolution)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IndicatorPoint), args.Error(1)
}

func (m *MockMarketService) GetOrderBook(ctx context.Context, resolution string) ([]domain.OrderBookPoint, error) {
	args := m.Called(resolution)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderBookPoint), args.Error(1)
}

func (m *MockMarketService) GetCorrelations(ctx context.Context) (domain.CorrelationMatrix, error) {
	args := m.Called()
	return args.Get(0).(domain.CorrelationMatrix), args.Error(1)
}

func (m *MockMarketService) GetCleaningReport(ctx context.Context) (domain.CleaningReport, error) {
	args := m.Called()
	return args.Get(0).(domain.CleaningReport), args.Error(1)
}

func (m *MockMarketService) Reload(ctx context.Context) (domain.SnapshotInfo, error) {
	args := m.Called()
	return args.Get(0).(domain.SnapshotInfo), args.Error(1)
}

func newTestHandler(svc MarketService) http.Handler {
	h := NewMarketHandler(svc, middleware.NewValidator(nil), apierrors.NewErrorHandler(nil, false), nil)
	return h.Routes()
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var ts = time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)

func TestMarketHandler_Timeseries(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		setup      func(*MockMarketService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "allowed timeframe",
			path: "/timeseries/5Min",
			setup: func(m *MockMarketService) {
				m.On("GetTimeseries", "5Min").Return([]domain.ResampledBar{
					{Start: ts, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 40, TickCount: 4},
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"tick_count":4`,
		},
		{
			name:       "timeframe outside allow-list",
			path:       "/timeseries/30S",
			setup:      func(m *MockMarketService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   "timeframe must be one of",
		},
		{
			name: "not ready",
			path: "/timeseries/1Min",
			setup: func(m *MockMarketService) {
				m.On("GetTimeseries", "1Min").Return(nil, &services.NotReadyError{})
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "/errors/data/not-ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMarketService)
			tt.setup(svc)

			rec := serve(t, newTestHandler(svc), http.MethodGet, tt.path)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestMarketHandler_OrderBookResolution(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantRes    string
		wantStatus int
	}{
		{name: "defaults to one minute", query: "", wantRes: DefaultOrderBookResolution, wantStatus: http.StatusOK},
		{name: "explicit seconds", query: "?resolution=30S", wantRes: "30S", wantStatus: http.StatusOK},
		{name: "pandas alias", query: "?resolution=5T", wantRes: "5T", wantStatus: http.StatusOK},
		{name: "garbage", query: "?resolution=fortnight", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMarketService)
			if tt.wantRes != "" {
				svc.On("GetOrderBook", tt.wantRes).Return([]domain.OrderBookPoint{
					{Timestamp: ts, BidAskSpread: 0.02, OrderFlowImbalance: -0.1},
				}, nil)
			}

			rec := serve(t, newTestHandler(svc), http.MethodGet, "/orderbook"+tt.query)

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestMarketHandler_Indicators(t *testing.T) {
	t.Run("per tick without resolution", func(t *testing.T) {
		svc := new(MockMarketService)
		svc.On("GetIndicators").Return([]domain.IndicatorPoint{
			{Timestamp: ts, VWAP: domain.Defined(100.25), RSI: domain.Warmup},
		}, nil)

		rec := serve(t, newTestHandler(svc), http.MethodGet, "/indicators")

		require.Equal(t, http.StatusOK, rec.Code)
		var got []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, 100.25, got[0]["vwap"])
		assert.Nil(t, got[0]["rsi"])
		svc.AssertNotCalled(t, "GetIndicatorsAt", mock.Anything)
	})

	t.Run("bucketed with resolution", func(t *testing.T) {
		svc := new(MockMarketService)
		svc.On("GetIndicatorsAt", "15Min").Return([]domain.IndicatorPoint{}, nil)

		rec := serve(t, newTestHandler(svc), http.MethodGet, "/indicators?resolution=15Min")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("invalid resolution from core", func(t *testing.T) {
		svc := new(MockMarketService)
		svc.On("GetIndicatorsAt", "0Min").Return(nil, dataprocessing.ErrInvalidResolution)

		h := NewMarketHandler(svc, nil, nil, nil).Routes()
		rec := serve(t, h, http.MethodGet, "/indicators?resolution=0Min")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMarketHandler_SimpleReads(t *testing.T) {
	report := domain.NewCleaningReport(10)
	report.OutputRows = 9
	report.Dropped[domain.DropBidAskInverted] = 1

	tests := []struct {
		name     string
		path     string
		method   string
		setup    func(*MockMarketService)
		wantBody string
	}{
		{
			name: "summary",
			path: "/summary",
			setup: func(m *MockMarketService) {
				m.On("GetSummary").Return(domain.SummaryStatistics{TotalTicks: 9, RowsDropped: 1}, nil)
			},
			wantBody: `"rows_dropped":1`,
		},
		{
			name: "snapshot info",
			path: "/snapshot",
			setup: func(m *MockMarketService) {
				m.On("SnapshotInfo").Return(domain.SnapshotInfo{ID: "abc", Rows: 9}, nil)
			},
			wantBody: `"id":"abc"`,
		},
		{
			name: "order flow",
			path: "/orderflow",
			setup: func(m *MockMarketService) {
				m.On("GetOrderFlow").Return([]domain.OrderFlowPoint{{Timestamp: ts, OrderFlowImbalance: 0.5}}, nil)
			},
			wantBody: `"order_flow_imbalance":0.5`,
		},
		{
			name: "correlations",
			path: "/correlations",
			setup: func(m *MockMarketService) {
				m.On("GetCorrelations").Return(domain.CorrelationMatrix{
					Fields: []string{"a", "b"},
					Matrix: [][]domain.Metric{{domain.Defined(1), domain.Warmup}, {domain.Warmup, domain.Defined(1)}},
				}, nil)
			},
			wantBody: `[[1,null],[null,1]]`,
		},
		{
			name: "cleaning report",
			path: "/cleaning-report",
			setup: func(m *MockMarketService) {
				m.On("GetCleaningReport").Return(report, nil)
			},
			wantBody: `"bid_ask_inverted":1`,
		},
		{
			name:   "reload",
			path:   "/reload",
			method: http.MethodPost,
			setup: func(m *MockMarketService) {
				m.On("Reload").Return(domain.SnapshotInfo{ID: "new", Rows: 9}, nil)
			},
			wantBody: `"id":"new"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMarketService)
			tt.setup(svc)
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}

			rec := serve(t, newTestHandler(svc), method, tt.path)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
			svc.AssertExpectations(t)
		})
	}
}

func TestMarketHandler_ReloadFailure(t *testing.T) {
	svc := new(MockMarketService)
	loadErr := &dataprocessing.LoadError{Path: "ticks.csv", Reason: dataprocessing.ReasonEmpty, Detail: "no data rows"}
	svc.On("Reload").Return(domain.SnapshotInfo{}, loadErr)

	rec := serve(t, newTestHandler(svc), http.MethodPost, "/reload")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "/errors/data/load-failed")
}

func TestMarketHandler_ReloadRequiresPost(t *testing.T) {
	svc := new(MockMarketService)

	rec := serve(t, newTestHandler(svc), http.MethodGet, "/reload")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	svc.AssertNotCalled(t, "Reload")
}
