// Package app wires configuration, telemetry, the tick pipeline, the query
// facade and the HTTP server together and manages their lifecycle.
//
// # Initialization
//
//  1. config.Load: defaults, then the YAML file, then TICKPULSE_* variables
//  2. infrastructure.InitializeLogger and InitializeOTel
//  3. Pipeline, websocket hub, MarketService and HealthService
//  4. chi router and http.Server
//
// # Routes
//
//	/ws            websocket feed of snapshot events
//	/api/health    health, readiness and liveness
//	/api/version   build information
//	/api/stock     market data (see internal/transport/http)
//	/metrics       Prometheus scrape endpoint, when the exporter is enabled
//
// Middleware order is RequestID → RealIP → Recoverer for every route, then
// OTel → StructuredLogger → SecurityHeaders → CORS → RateLimiter for the
// API group, with a per-request Timeout on /api.
//
// # Lifecycle
//
// Start builds the first snapshot when dataset.load_on_start is set. A
// failed first build does not stop the server: the market routes answer
// 503 until POST /api/stock/reload succeeds. Run blocks until SIGINT or
// SIGTERM and then calls Stop, which drains HTTP requests, disconnects
// websocket clients and flushes telemetry.
package app
