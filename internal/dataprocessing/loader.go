package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"tickpulse/pkg/contracts/domain"
)

// DefaultStartDate is substituted when a row's start_date is blank or 0
const DefaultStartDate = "2023-01-01"

// LoadOptions controls how date and time columns are interpreted
type LoadOptions struct {
	// DefaultDate replaces a blank or zero start_date
	DefaultDate time.Time
	// Location is applied to timestamps that carry no zone
	Location *time.Location
}

// DefaultLoadOptions returns UTC with the 2023-01-01 default date
func DefaultLoadOptions() LoadOptions {
	d, _ := time.Parse("2006-01-02", DefaultStartDate)
	return LoadOptions{DefaultDate: d, Location: time.UTC}
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02",
}

var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

// Load reads a CSV or XLSX tick dataset into RawTicks in file order.
// Rows with an unparseable timestamp are returned with Valid=false; numeric
// cells that are blank or unparseable come back as missing.
func Load(ctx context.Context, path string, opts LoadOptions) ([]domain.RawTick, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultDate.IsZero() {
		opts.DefaultDate = DefaultLoadOptions().DefaultDate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newLoadError(path, ReasonNotFound, "", err)
		}
		return nil, newLoadError(path, ReasonUnreadable, "", err)
	}
	if info.IsDir() {
		return nil, newLoadError(path, ReasonUnreadable, "path is a directory", nil)
	}

	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || isBlankRow(rows[0]) {
		return nil, newLoadError(path, ReasonEmpty, "no header row", nil)
	}

	cols, missing := resolveColumns(rows[0])
	if len(missing) > 0 {
		return nil, newLoadError(path, ReasonMissingColumn, strings.Join(missing, ", "), nil)
	}

	ticks := make([]domain.RawTick, 0, len(rows)-1)
	for i, rec := range rows[1:] {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if isBlankRow(rec) {
			continue
		}
		// header is row 1
		ticks = append(ticks, parseRow(rec, i+2, cols, opts))
	}
	if len(ticks) == 0 {
		return nil, newLoadError(path, ReasonEmpty, "no data rows", nil)
	}
	return ticks, nil
}

func readTable(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return readCSV(path)
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	default:
		return nil, newLoadError(path, ReasonUnsupported, filepath.Ext(path), nil)
	}
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, newLoadError(path, ReasonUnreadable, "", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, newLoadError(path, ReasonMalformedTable, "", err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, newLoadError(path, ReasonUnreadable, "", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, newLoadError(path, ReasonEmpty, "workbook has no sheets", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, newLoadError(path, ReasonMalformedTable, fmt.Sprintf("sheet %q", sheets[0]), err)
	}
	return rows, nil
}

func isBlankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseRow(rec []string, row int, cols columnMap, opts LoadOptions) domain.RawTick {
	cell := func(f field) string {
		idx := cols[f]
		if idx < 0 || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	tick := domain.RawTick{Row: row}
	ts, err := parseTimestamp(cell, cols, opts)
	if err != nil {
		tick.InvalidReason = err.Error()
	} else {
		tick.Timestamp = ts
		tick.Valid = true
	}

	tick.Close = parseNumber(cell(fieldClose))
	tick.Open = tick.Close
	tick.High = tick.Close
	tick.Low = tick.Close
	if cols.has(fieldOpen) {
		tick.Open = parseNumber(cell(fieldOpen))
	}
	if cols.has(fieldHigh) {
		tick.High = parseNumber(cell(fieldHigh))
	}
	if cols.has(fieldLow) {
		tick.Low = parseNumber(cell(fieldLow))
	}
	tick.Bid = parseNumber(cell(fieldBid))
	tick.Ask = parseNumber(cell(fieldAsk))
	tick.Volume = parseNumber(cell(fieldVolume))
	tick.BidSize = parseNumber(cell(fieldBidSize)).Value
	tick.AskSize = parseNumber(cell(fieldAskSize)).Value
	return tick
}

// parseNumber accepts thousands separators; NaN and infinities count as missing
func parseNumber(s string) domain.NullFloat64 {
	if s == "" {
		return domain.NullFloat64{}
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.NullFloat64{}
	}
	return domain.Float(v)
}

func parseTimestamp(cell func(field) string, cols columnMap, opts LoadOptions) (time.Time, error) {
	if raw := cell(fieldTimestamp); raw != "" {
		return parseDateTime(raw, opts.Location)
	}
	if !cols.has(fieldStartTime) {
		return time.Time{}, errors.New("missing timestamp")
	}

	clock := cell(fieldStartTime)
	if clock == "" {
		return time.Time{}, errors.New("missing start_time")
	}
	h, m, s, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	date, err := parseDate(cell(fieldStartDate), opts)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, s, 0, opts.Location), nil
}

func parseDateTime(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if ts, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// parseClock reads a numeric HHMMSS value; fractional seconds are truncated
func parseClock(raw string) (hour, minute, second int, err error) {
	v, perr := strconv.ParseFloat(raw, 64)
	if perr != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, 0, 0, fmt.Errorf("unparseable start_time %q", raw)
	}
	n := int(v)
	hour, minute, second = n/10000, (n%10000)/100, n%100
	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, fmt.Errorf("start_time %q out of range", raw)
	}
	return hour, minute, second, nil
}

func parseDate(raw string, opts LoadOptions) (time.Time, error) {
	if raw == "" || raw == "0" || raw == "0.0" {
		return opts.DefaultDate, nil
	}
	raw = strings.TrimSuffix(raw, ".0")
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, raw, opts.Location); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable start_date %q", raw)
}
