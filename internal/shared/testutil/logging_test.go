package testutil

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureHandler(t *testing.T) {
	logger, h := NewTestLogger(t)
	child := logger.With(slog.String("component", "pipeline"))

	child.Info("Pipeline run started", slog.Int("rows", 3))
	logger.Error("boom")

	records := h.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "pipeline", records[0].Attrs["component"])
	assert.Equal(t, int64(3), records[0].Attrs["rows"])

	rec, ok := h.Find("run started")
	require.True(t, ok)
	assert.Equal(t, slog.LevelInfo, rec.Level)

	AssertLogged(t, h, slog.LevelError, "boom")
}

func TestWriteTickCSV(t *testing.T) {
	path := WriteTickCSV(t, 5, time.Second)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2024-03-01 09:15:04")
	assert.Equal(t, 6, len(splitLines(string(data))))
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
