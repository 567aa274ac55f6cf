package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "tickpulse/internal/errors"
	"tickpulse/internal/infrastructure"
	api "tickpulse/pkg/contracts/api/v1"
)

// DefaultOrderBookResolution is used when /orderbook is called without ?resolution
const DefaultOrderBookResolution = "1Min"

// MarketHandler serves the market data routes
type MarketHandler struct {
	service      MarketService
	validator    ParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewMarketHandler creates a market handler
func NewMarketHandler(service MarketService, validator ParamValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *MarketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &MarketHandler{
		service:      service,
		validator:    validator,
		logger:       infrastructure.WithComponent(logger, "market_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the market routes, mounted under /api/stock
func (h *MarketHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/summary", h.GetSummary)
	r.Get("/snapshot", h.GetSnapshot)
	r.Get("/timeseries/{timeframe}", h.GetTimeseries)
	r.Get("/orderflow", h.GetOrderFlow)
	r.Get("/orderbook", h.GetOrderBook)
	r.Get("/indicators", h.GetIndicators)
	r.Get("/correlations", h.GetCorrelations)
	r.Get("/cleaning-report", h.GetCleaningReport)
	r.Post("/reload", h.Reload)

	return r
}

// GetSummary handles GET /summary
func (h *MarketHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// GetSnapshot handles GET /snapshot
func (h *MarketHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.SnapshotInfo(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// GetTimeseries handles GET /timeseries/{timeframe}
func (h *MarketHandler) GetTimeseries(w http.ResponseWriter, r *http.Request) {
	params := api.TimeseriesRequest{Timeframe: chi.URLParam(r, "timeframe")}
	if err := h.validate(&params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	bars, err := h.service.GetTimeseries(r.Context(), params.Timeframe)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, bars)
}

// GetOrderFlow handles GET /orderflow
func (h *MarketHandler) GetOrderFlow(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.GetOrderFlow(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, points)
}

// GetOrderBook handles GET /orderbook[?resolution=]
func (h *MarketHandler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	params, err := h.resolution(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if params.Resolution == "" {
		params.Resolution = DefaultOrderBookResolution
	}

	points, err := h.service.GetOrderBook(r.Context(), params.Resolution)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, points)
}

// GetIndicators handles GET /indicators[?resolution=].
// Without a resolution the per-tick series is returned.
func (h *MarketHandler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	params, err := h.resolution(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var points interface{}
	if params.Resolution == "" {
		points, err = h.service.GetIndicators(r.Context())
	} else {
		points, err = h.service.GetIndicatorsAt(r.Context(), params.Resolution)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, points)
}

// GetCorrelations handles GET /correlations
func (h *MarketHandler) GetCorrelations(w http.ResponseWriter, r *http.Request) {
	matrix, err := h.service.GetCorrelations(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, matrix)
}

// GetCleaningReport handles GET /cleaning-report
func (h *MarketHandler) GetCleaningReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetCleaningReport(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// Reload handles POST /reload. It blocks until the rebuild finishes.
func (h *MarketHandler) Reload(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "reload requested",
		slog.String("remote_addr", r.RemoteAddr))

	info, err := h.service.Reload(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

func (h *MarketHandler) resolution(r *http.Request) (api.ResolutionRequest, error) {
	params := api.ResolutionRequest{Resolution: r.URL.Query().Get("resolution")}
	return params, h.validate(&params)
}

func (h *MarketHandler) validate(v interface{}) error {
	if h.validator == nil {
		return nil
	}
	return h.validator.ValidateStruct(v)
}
