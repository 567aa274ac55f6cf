// Package dataprocessing turns one equity's tick dataset into an enriched,
// immutable snapshot.
//
// # Stages
//
// The package is organized as pure stages composed by a Pipeline:
//
//  1. Loader: reads a CSV or XLSX file into ordered RawTicks
//  2. Cleaner: forward-fills, repairs and drops rows, enforcing strictly increasing time
//  3. Indicators: VWAP, RSI, realized volatility, order-flow imbalance, spread and moving averages
//  4. Aggregator: summary statistics and fixed-width OHLCV bars
//
// # Data Flow
//
//	File → Load → []RawTick → Clean → []Tick → Enrich → []EnrichedTick → Snapshot
//
// Rolling indicators carry small ring buffers through a single forward pass.
// Warm-up rows hold domain.Warmup rather than a numeric default.
//
// # Error Handling
//
// Only loading can fail. A *LoadError matches ErrLoad with errors.Is and
// carries the path and the reason. Cleaning anomalies are counted in a
// domain.CleaningReport and never returned as errors.
package dataprocessing
