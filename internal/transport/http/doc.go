// Package http holds the HTTP handlers for the market data API.
//
// Handlers are thin: they decode and validate path and query parameters,
// call the query facade, and render the result as JSON. Every error is
// passed to the shared errors.ErrorHandler, which turns it into an
// RFC 7807 problem response; a handler never picks a status code itself.
//
// Routes mounted under /api/stock:
//
//	GET  /summary                 whole-table summary statistics
//	GET  /snapshot                id and row counts of the served snapshot
//	GET  /timeseries/{timeframe}  OHLCV bars; timeframe is 1Min, 5Min, 15Min or 1H
//	GET  /orderflow               per-tick order-flow imbalance
//	GET  /orderbook               bucket means of spread and imbalance (?resolution=, default 1Min)
//	GET  /indicators              per-tick indicators, or bucketed with ?resolution=
//	GET  /correlations            Pearson matrix of the derived series
//	GET  /cleaning-report         anomaly counters of the last cleaning pass
//	POST /reload                  rebuild the snapshot from the dataset file
//
// Health routes are mounted under /api/health.
package http
