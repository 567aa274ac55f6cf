package exporter

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tickpulse/internal/dataprocessing"
	"tickpulse/internal/shared/testutil"
	"tickpulse/pkg/contracts/domain"
)

func buildSnapshot(t *testing.T, n int) *dataprocessing.Snapshot {
	t.Helper()
	path := testutil.WriteTickCSV(t, n, time.Second)
	p := dataprocessing.NewPipeline(dataprocessing.PipelineOptions{
		Load:       dataprocessing.DefaultLoadOptions(),
		Indicators: dataprocessing.DefaultIndicatorParams(),
	}, nil, nil)
	snap, err := p.Run(context.Background(), path)
	require.NoError(t, err)
	return snap
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestMarketExporter_ExportSnapshot(t *testing.T) {
	snap := buildSnapshot(t, 180)
	dir := t.TempDir()
	logger, _ := testutil.NewTestLogger(t)

	result, err := NewMarketExporter(dir, logger).ExportSnapshot(snap, []string{"1Min", "30S"})
	require.NoError(t, err)

	require.Len(t, result.Files, 3)
	assert.Equal(t, 180, result.Rows)
	assert.Equal(t, filepath.Join(dir, TicksFile), result.Files[0])

	ticks := readCSV(t, result.Files[0])
	require.Len(t, ticks, 181)
	assert.Equal(t, TickHeaders, ticks[0])

	first := ticks[1]
	col := func(name string) int {
		for i, h := range TickHeaders {
			if h == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}
	assert.NotEmpty(t, first[col("vwap")], "vwap is defined from the first tick")
	assert.Empty(t, first[col("rsi")], "rsi warms up")
	assert.Empty(t, first[col("ma_20")])
	assert.NotEmpty(t, ticks[180][col("rsi")])
	assert.Equal(t, "2024-03-01T09:15:00.000000Z", first[0])

	minuteBars := readCSV(t, filepath.Join(dir, "bars_1Min.csv"))
	assert.Len(t, minuteBars, 4)
	assert.Equal(t, BarHeaders, minuteBars[0])
	assert.Equal(t, "60", minuteBars[1][6])

	halfMinuteBars := readCSV(t, filepath.Join(dir, "bars_30S.csv"))
	assert.Len(t, halfMinuteBars, 7)
}

func TestMarketExporter_InvalidResolution(t *testing.T) {
	snap := buildSnapshot(t, 30)

	_, err := NewMarketExporter(t.TempDir(), nil).ExportSnapshot(snap, []string{"fortnight"})

	assert.ErrorIs(t, err, dataprocessing.ErrInvalidResolution)
}

func TestMarketExporter_ExportWorkbook(t *testing.T) {
	snap := buildSnapshot(t, 120)
	dir := t.TempDir()

	path, err := NewMarketExporter(dir, nil).ExportWorkbook(snap, []string{"1Min"}, filepath.Join("nested", WorkbookFile))
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"ticks", "bars_1Min"}, f.GetSheetList())

	rows, err := f.GetRows("ticks")
	require.NoError(t, err)
	require.Len(t, rows, 121)
	assert.Equal(t, TickHeaders, rows[0])

	bars, err := f.GetRows("bars_1Min")
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		options []WriteOptions
		want    string
	}{
		{
			name:    "headers and records",
			options: []WriteOptions{{Headers: []string{"a", "b"}, Records: [][]string{{"1", "2"}}}},
			want:    "a,b\n1,2\n",
		},
		{
			name:    "bom prefix",
			options: []WriteOptions{{Headers: []string{"a"}, BOMPrefix: true}},
			want:    "\xEF\xBB\xBFa\n",
		},
		{
			name: "append skips headers",
			options: []WriteOptions{
				{Headers: []string{"a"}, Records: [][]string{{"1"}}},
				{Headers: []string{"a"}, Records: [][]string{{"2"}}, Append: true},
			},
			want: "a\n1\n2\n",
		},
		{
			name:    "quotes fields with commas",
			options: []WriteOptions{{Records: [][]string{{"x,y", "z"}}}},
			want:    "\"x,y\",z\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewCSVWriter(t.TempDir(), nil)
			for _, opt := range tt.options {
				require.NoError(t, w.WriteCSV("sub/out.csv", opt))
			}
			got, err := os.ReadFile(w.resolvePath("sub/out.csv"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestStreamWriter(t *testing.T) {
	w := NewCSVWriter(t.TempDir(), nil)

	stream, err := w.CreateStreamWriter("stream.csv", []string{"k", "v"}, true)
	require.NoError(t, err)
	for _, rec := range [][]string{{"a", "1"}, {"b", "2"}} {
		require.NoError(t, stream.WriteRecord(rec))
	}
	assert.Equal(t, 2, stream.Rows())
	require.NoError(t, stream.Close())

	got, err := os.ReadFile(stream.Path())
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBFk,v\na,1\nb,2\n", string(got))
}

func TestResolvePath(t *testing.T) {
	abs, err := filepath.Abs("x.csv")
	require.NoError(t, err)

	assert.Equal(t, abs, NewCSVWriter("/base", nil).resolvePath(abs))
	assert.Equal(t, filepath.Join("/base", "x.csv"), NewCSVWriter("/base", nil).resolvePath("x.csv"))
	assert.Equal(t, "x.csv", NewCSVWriter("", nil).resolvePath("x.csv"))
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "", formatMetric(domain.Warmup))
	assert.Equal(t, "0", formatMetric(domain.Defined(0)))
	assert.Equal(t, "101.25", formatMetric(domain.Defined(101.25)))
	assert.Nil(t, metricCell(domain.Warmup))
	assert.Equal(t, 2.5, metricCell(domain.Defined(2.5)))
}
