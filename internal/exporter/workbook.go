package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tickpulse/internal/dataprocessing"
	"tickpulse/pkg/contracts/domain"
)

const ticksSheet = "ticks"

// ExportWorkbook writes the enriched table and the bar tables as sheets of
// one .xlsx workbook. Warm-up cells are left blank.
func (e *MarketExporter) ExportWorkbook(snap *dataprocessing.Snapshot, resolutions []string, name string) (path string, err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), ticksSheet); err != nil {
		return "", err
	}
	if err := writeSheet(f, ticksSheet, TickHeaders, len(snap.Ticks), func(i int) []interface{} {
		return tickCells(snap.Ticks[i])
	}); err != nil {
		return "", fmt.Errorf("sheet %s: %w", ticksSheet, err)
	}

	for _, res := range resolutions {
		width, err := dataprocessing.ParseResolution(res)
		if err != nil {
			return "", err
		}
		bars, err := dataprocessing.Resample(snap.Ticks, width)
		if err != nil {
			return "", err
		}
		sheet := "bars_" + res
		if _, err := f.NewSheet(sheet); err != nil {
			return "", err
		}
		if err := writeSheet(f, sheet, BarHeaders, len(bars), func(i int) []interface{} {
			return barCells(bars[i])
		}); err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheet, err)
		}
	}

	path = e.csv.resolvePath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	e.logger.Info("workbook exported",
		slog.String("path", path),
		slog.Int("sheets", len(resolutions)+1))
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, n int, row func(int) []interface{}) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row(i)); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func tickCells(t domain.EnrichedTick) []interface{} {
	return []interface{}{
		formatTime(t.Timestamp),
		t.Open, t.High, t.Low, t.Close, t.Volume,
		t.Bid, t.Ask, t.BidSize, t.AskSize,
		metricCell(t.VWAP),
		metricCell(t.RSI),
		metricCell(t.RealizedVolatility),
		t.OrderFlowImbalance,
		t.BidAskSpread,
		metricCell(t.SMA5),
		metricCell(t.SMA10),
		metricCell(t.SMA20),
		metricCell(t.PriceStdDev20),
	}
}

func barCells(b domain.ResampledBar) []interface{} {
	return []interface{}{formatTime(b.Start), b.Open, b.High, b.Low, b.Close, b.Volume, b.TickCount}
}
