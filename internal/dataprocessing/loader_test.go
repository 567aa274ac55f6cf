package dataprocessing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tickpulse/pkg/contracts/domain"
)

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func assertTime(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestLoad_CSVWithTimestampColumn(t *testing.T) {
	path := writeDataset(t, "ticks.csv",
		"timestamp,open,high,low,close,volume,bid,ask,bid_size,ask_size\n"+
			"2024-03-01 09:15:00,100,101,99,100.5,10,100.4,100.6,5,3\n"+
			"2024-03-01 09:15:01.250,100.5,,99.5,100.7,,100.6,100.8,,\n")

	ticks, err := Load(context.Background(), path, DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	first := ticks[0]
	assert.True(t, first.Valid)
	assert.Equal(t, 2, first.Row)
	assertTime(t, time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, domain.Float(100), first.Open)
	assert.Equal(t, domain.Float(101), first.High)
	assert.Equal(t, domain.Float(99), first.Low)
	assert.Equal(t, domain.Float(100.5), first.Close)
	assert.Equal(t, domain.Float(10), first.Volume)
	assert.Equal(t, 5.0, first.BidSize)
	assert.Equal(t, 3.0, first.AskSize)

	second := ticks[1]
	assert.True(t, second.Valid)
	assertTime(t, time.Date(2024, 3, 1, 9, 15, 1, 250_000_000, time.UTC), second.Timestamp)
	assert.False(t, second.High.Valid)
	assert.False(t, second.Volume.Valid)
	assert.Zero(t, second.BidSize)
	assert.Zero(t, second.AskSize)
}

func TestLoad_CaptureFormatAliases(t *testing.T) {
	path := writeDataset(t, "capture.csv",
		"\ufeff,start_date,start_time,ltp,l1_bid_vwap,l1_ask_vwap,total_traded_volume,l1_bid_vol,l1_ask_vol\n"+
			"0,0,91401.9999,250.5,250.4,250.6,\"1,000\",20,10\n"+
			"1,2023-05-02,91402,250.6,250.5,250.7,1010,15,15\n"+
			"2,,abc,250.7,250.6,250.8,1020,10,20\n")

	ticks, err := Load(context.Background(), path, DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, ticks, 3)

	assert.True(t, ticks[0].Valid)
	assertTime(t, time.Date(2023, 1, 1, 9, 14, 1, 0, time.UTC), ticks[0].Timestamp)
	assert.Equal(t, domain.Float(250.5), ticks[0].Close)
	assert.Equal(t, ticks[0].Close, ticks[0].Open, "absent open column falls back to close")
	assert.Equal(t, ticks[0].Close, ticks[0].High)
	assert.Equal(t, ticks[0].Close, ticks[0].Low)
	assert.Equal(t, domain.Float(250.4), ticks[0].Bid)
	assert.Equal(t, domain.Float(250.6), ticks[0].Ask)
	assert.Equal(t, domain.Float(1000), ticks[0].Volume)
	assert.Equal(t, 20.0, ticks[0].BidSize)
	assert.Equal(t, 10.0, ticks[0].AskSize)

	assertTime(t, time.Date(2023, 5, 2, 9, 14, 2, 0, time.UTC), ticks[1].Timestamp)

	assert.False(t, ticks[2].Valid)
	assert.Contains(t, ticks[2].InvalidReason, "start_time")
	assert.Equal(t, domain.Float(250.7), ticks[2].Close, "invalid rows still carry their values")
}

func TestLoad_CustomDefaultDateAndLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	path := writeDataset(t, "ticks.csv",
		"start_time,close,bid,ask,volume\n"+
			"93000,10,9.9,10.1,1\n")

	opts := LoadOptions{DefaultDate: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Location: loc}
	ticks, err := Load(context.Background(), path, opts)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assertTime(t, time.Date(2024, 2, 29, 9, 30, 0, 0, loc), ticks[0].Timestamp)
}

func TestLoad_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Timestamp", "Close", "Bid", "Ask", "Volume", "Bid_Size", "Ask_Size"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"2024-03-01 09:15:00", 100.5, 100.4, 100.6, 10, 4, 6}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"2024-03-01 09:15:02", 100.75, 100.5, 100.9, 12, 2, 2}))

	path := filepath.Join(t.TempDir(), "ticks.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ticks, err := Load(context.Background(), path, DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assertTime(t, time.Date(2024, 3, 1, 9, 15, 2, 0, time.UTC), ticks[1].Timestamp)
	assert.Equal(t, domain.Float(100.75), ticks[1].Close)
	assert.Equal(t, domain.Float(12), ticks[1].Volume)
	assert.Equal(t, 4.0, ticks[0].BidSize)
	assert.Equal(t, 6.0, ticks[0].AskSize)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		body   string
		reason string
	}{
		{"empty file", "empty.csv", "", ReasonEmpty},
		{"header only", "header.csv", "timestamp,close,bid,ask,volume\n", ReasonEmpty},
		{"blank rows only", "blank.csv", "timestamp,close,bid,ask,volume\n,,,,\n", ReasonEmpty},
		{"missing ask", "noask.csv", "timestamp,close,bid,volume\n2024-03-01 09:15:00,1,1,1\n", ReasonMissingColumn},
		{"missing time", "notime.csv", "close,bid,ask,volume\n1,1,1,1\n", ReasonMissingColumn},
		{"unsupported format", "ticks.json", "{}", ReasonUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDataset(t, tt.file, tt.body)
			ticks, err := Load(context.Background(), path, DefaultLoadOptions())
			require.Error(t, err)
			assert.Nil(t, ticks)
			assert.True(t, errors.Is(err, ErrLoad))

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.reason, loadErr.Reason)
			assert.Equal(t, path, loadErr.Path)
		})
	}
}

func TestLoad_MissingColumnNamesField(t *testing.T) {
	path := writeDataset(t, "noask.csv", "timestamp,close,bid,volume\n2024-03-01 09:15:00,1,1,1\n")
	_, err := Load(context.Background(), path, DefaultLoadOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask")
}

func TestLoad_FileNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")
	_, err := Load(context.Background(), path, DefaultLoadOptions())

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ReasonNotFound, loadErr.Reason)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_CancelledContext(t *testing.T) {
	path := writeDataset(t, "ticks.csv", "timestamp,close,bid,ask,volume\n2024-03-01 09:15:00,1,1,1,1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, path, DefaultLoadOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		h, m, s int
		wantErr bool
	}{
		{in: "91401", h: 9, m: 14, s: 1},
		{in: "91401.9999", h: 9, m: 14, s: 1},
		{in: "0", h: 0, m: 0, s: 0},
		{in: "235959", h: 23, m: 59, s: 59},
		{in: "96000", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, s, err := parseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []int{tt.h, tt.m, tt.s}, []int{h, m, s})
		})
	}
}
