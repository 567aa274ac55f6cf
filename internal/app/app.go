package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tickpulse/internal/config"
	"tickpulse/internal/dataprocessing"
	apierrors "tickpulse/internal/errors"
	"tickpulse/internal/infrastructure"
	customMiddleware "tickpulse/internal/middleware"
	"tickpulse/internal/services"
	handlers "tickpulse/internal/transport/http"
	"tickpulse/internal/validation"
	ws "tickpulse/internal/websocket"
	"tickpulse/pkg/contracts"
)

const AppName = "TickPulse"

// Version is overridden at build time with -ldflags "-X tickpulse/internal/app.Version=..."
var Version = contracts.Version

// Application wires the pipeline, the query facade and the HTTP surface
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.Metrics
	ErrorHandler  *apierrors.ErrorHandler

	Pipeline      *dataprocessing.Pipeline
	WebSocketHub  *ws.Hub
	MarketService *services.MarketService
	HealthService *services.HealthService

	listener net.Listener
	stopOnce sync.Once
}

// NewApplication loads configuration from file and environment, initializes
// logging and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("dataset", cfg.Dataset.Path))

	otelProviders, err := infrastructure.InitializeOTel(otelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Telemetry.Environment == "development"),
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()
	return a, nil
}

// PipelineOptions translates the dataset and pipeline sections of cfg
func PipelineOptions(cfg *config.Config) (dataprocessing.PipelineOptions, error) {
	loc, err := cfg.Dataset.Location()
	if err != nil {
		return dataprocessing.PipelineOptions{}, fmt.Errorf("dataset timezone: %w", err)
	}
	date, err := cfg.Dataset.StartDate()
	if err != nil {
		return dataprocessing.PipelineOptions{}, fmt.Errorf("dataset default date: %w", err)
	}

	return dataprocessing.PipelineOptions{
		Load: dataprocessing.LoadOptions{DefaultDate: date, Location: loc},
		Indicators: dataprocessing.IndicatorParams{
			RSIPeriod:             cfg.Pipeline.RSIPeriod,
			VolatilityWindow:      cfg.Pipeline.VolatilityWindow,
			StdDevWindow:          cfg.Pipeline.StdDevWindow,
			TradingSecondsPerYear: cfg.Pipeline.TradingSecondsPerYear,
		},
	}, nil
}

func otelConfig(t config.TelemetryConfig) *infrastructure.OTelConfig {
	return &infrastructure.OTelConfig{
		ServiceName:    infrastructure.ServiceName,
		ServiceVersion: Version,
		Environment:    t.Environment,
		TraceExporter:  t.TraceExporter,
		MetricExporter: t.MetricExporter,
		EnableMetrics:  t.EnableMetrics,
		EnableTracing:  t.EnableTracing,
		SampleRatio:    t.SampleRatio,
	}
}

func (a *Application) initializeServices() error {
	opts, err := PipelineOptions(a.Config)
	if err != nil {
		return err
	}
	a.Pipeline = dataprocessing.NewPipeline(opts, a.Metrics, a.Logger)

	wsOpts := ws.DefaultOptions()
	wsOpts.PingPeriod = a.Config.WebSocket.PingPeriod
	wsOpts.PongWait = a.Config.WebSocket.PongWait
	a.WebSocketHub = ws.NewHub(wsOpts, a.Metrics, a.Logger)

	a.MarketService = services.NewMarketService(a.Pipeline, a.Config.Dataset.Path, a.WebSocketHub, a.Metrics, a.Logger)
	a.HealthService = services.NewHealthService(Version, a.MarketService, a.WebSocketHub, a.Logger)
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Order: RequestID → RealIP → Recoverer, then OTel → Logger on the API group
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(a.ErrorHandler.Recoverer)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// The websocket route stays outside the group so no middleware buffers
	// or times out the hijacked connection
	r.Handle("/ws", ws.NewHandler(
		a.WebSocketHub,
		a.Config.WebSocket.ReadBufferSize,
		a.Config.WebSocket.WriteBufferSize,
		a.Config.Security.AllowedOrigins,
		a.Logger,
	))

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewValidator(a.Logger)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	marketHandler := handlers.NewMarketHandler(a.MarketService, validator, a.ErrorHandler, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.Mount("/stock", marketHandler.Routes())
		r.Get("/ws/stats", func(w http.ResponseWriter, r *http.Request) {
			render.JSON(w, r, a.WebSocketHub.Stats())
		})
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", customMiddleware.RequestIDHeader},
		ExposedHeaders: []string{customMiddleware.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
	}
}

// Start builds the first snapshot (when configured) and starts serving.
// A failed first load is logged; the API then answers 503 until a reload
// succeeds. cancel is called if the server stops unexpectedly.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("addr", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	if a.Config.Dataset.LoadOnStart {
		if _, err := a.MarketService.Reload(ctx); err != nil {
			a.Logger.WarnContext(ctx, "Initial snapshot build failed, serving not-ready until reload",
				slog.String("error", err.Error()))
		}
	}

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			if cancel != nil {
				cancel()
			}
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", ln.Addr().String()),
		slog.Bool("ready", a.MarketService.Ready()))
	return nil
}

// Addr is the address the server listens on, empty before Start
func (a *Application) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Stop gracefully stops the application. It is safe to call more than once.
func (a *Application) Stop(ctx context.Context) error {
	var stopErr error
	a.stopOnce.Do(func() {
		a.Logger.InfoContext(ctx, "Shutting down application")

		shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			stopErr = fmt.Errorf("server shutdown error: %w", err)
		}

		a.WebSocketHub.Stop()

		if a.OTelProviders != nil {
			if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
				a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
			}
		}

		if err := infrastructure.CloseLogFile(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing log file", slog.String("error", err.Error()))
		}

		a.Logger.InfoContext(ctx, "Application shutdown complete")
	})
	return stopErr
}

// Run runs the application until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	// the signal context is already done; give shutdown a fresh one
	return a.Stop(context.Background())
}

// performStartupHealthCheck reports problems that will make the first
// load fail, without failing startup
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	v := validation.NewFileValidator(a.Logger)
	if err := v.ValidateDataset(a.Config.Dataset.Path); err != nil {
		return err
	}
	a.Logger.DebugContext(ctx, "Dataset found", slog.String("path", a.Config.Dataset.Path))
	return nil
}
