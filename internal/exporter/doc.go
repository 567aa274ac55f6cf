// Package exporter writes snapshot tables to disk.
//
// CSVWriter is the low-level writer (optional UTF-8 BOM, append, streaming).
// MarketExporter builds on it to write the enriched tick table and one bar
// table per requested resolution as CSV, or all of them as sheets of a
// single .xlsx workbook. Indicator cells that are still warming up are
// written empty.
package exporter
