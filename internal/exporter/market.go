package exporter

import (
	"fmt"
	"log/slog"

	"tickpulse/internal/dataprocessing"
	"tickpulse/internal/infrastructure"
	"tickpulse/pkg/contracts/domain"
)

// Default file names written by ExportSnapshot
const (
	TicksFile       = "enriched_ticks.csv"
	BarsFilePattern = "bars_%s.csv"
	WorkbookFile    = "tickpulse.xlsx"
)

// TickHeaders is the header row of the enriched tick table
var TickHeaders = []string{
	"timestamp", "open", "high", "low", "close", "volume",
	"bid", "ask", "bid_size", "ask_size",
	"vwap", "rsi", "realized_volatility", "order_flow_imbalance", "bid_ask_spread",
	"ma_5", "ma_10", "ma_20", "price_std_20",
}

// BarHeaders is the header row of a resampled bar table
var BarHeaders = []string{"timestamp", "open", "high", "low", "close", "volume", "tick_count"}

// Result lists the files an export produced
type Result struct {
	Files []string `json:"files"`
	Rows  int      `json:"rows"`
}

// MarketExporter writes snapshot tables to disk
type MarketExporter struct {
	csv    *CSVWriter
	logger *slog.Logger
}

// NewMarketExporter creates an exporter writing below outDir
func NewMarketExporter(outDir string, logger *slog.Logger) *MarketExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketExporter{
		csv:    NewCSVWriter(outDir, logger),
		logger: infrastructure.WithComponent(logger, "market_exporter"),
	}
}

// ExportTicks streams the enriched table to name
func (e *MarketExporter) ExportTicks(ticks []domain.EnrichedTick, name string) (string, error) {
	stream, err := e.csv.CreateStreamWriter(name, TickHeaders, false)
	if err != nil {
		return "", err
	}
	for i := range ticks {
		if err := stream.WriteRecord(tickRecord(ticks[i])); err != nil {
			stream.Close()
			return "", fmt.Errorf("write tick %d: %w", i, err)
		}
	}
	if err := stream.Close(); err != nil {
		return "", err
	}
	return stream.Path(), nil
}

// ExportBars writes a resampled bar table to name
func (e *MarketExporter) ExportBars(bars []domain.ResampledBar, name string) (string, error) {
	records := make([][]string, 0, len(bars))
	for _, b := range bars {
		records = append(records, barRecord(b))
	}
	if err := e.csv.WriteCSV(name, WriteOptions{Headers: BarHeaders, Records: records}); err != nil {
		return "", err
	}
	return e.csv.resolvePath(name), nil
}

// ExportSnapshot writes the enriched table plus one bar table per resolution
func (e *MarketExporter) ExportSnapshot(snap *dataprocessing.Snapshot, resolutions []string) (Result, error) {
	var result Result

	path, err := e.ExportTicks(snap.Ticks, TicksFile)
	if err != nil {
		return result, fmt.Errorf("export ticks: %w", err)
	}
	result.Files = append(result.Files, path)
	result.Rows = len(snap.Ticks)

	for _, res := range resolutions {
		width, err := dataprocessing.ParseResolution(res)
		if err != nil {
			return result, err
		}
		bars, err := dataprocessing.Resample(snap.Ticks, width)
		if err != nil {
			return result, err
		}
		path, err := e.ExportBars(bars, fmt.Sprintf(BarsFilePattern, res))
		if err != nil {
			return result, fmt.Errorf("export %s bars: %w", res, err)
		}
		result.Files = append(result.Files, path)
	}

	e.logger.Info("snapshot exported",
		slog.String("snapshot_id", snap.ID),
		slog.Int("rows", result.Rows),
		slog.Int("files", len(result.Files)))
	return result, nil
}

func tickRecord(t domain.EnrichedTick) []string {
	return []string{
		formatTime(t.Timestamp),
		formatFloat(t.Open),
		formatFloat(t.High),
		formatFloat(t.Low),
		formatFloat(t.Close),
		formatFloat(t.Volume),
		formatFloat(t.Bid),
		formatFloat(t.Ask),
		formatFloat(t.BidSize),
		formatFloat(t.AskSize),
		formatMetric(t.VWAP),
		formatMetric(t.RSI),
		formatMetric(t.RealizedVolatility),
		formatFloat(t.OrderFlowImbalance),
		formatFloat(t.BidAskSpread),
		formatMetric(t.SMA5),
		formatMetric(t.SMA10),
		formatMetric(t.SMA20),
		formatMetric(t.PriceStdDev20),
	}
}

func barRecord(b domain.ResampledBar) []string {
	return []string{
		formatTime(b.Start),
		formatFloat(b.Open),
		formatFloat(b.High),
		formatFloat(b.Low),
		formatFloat(b.Close),
		formatFloat(b.Volume),
		formatInt(b.TickCount),
	}
}
