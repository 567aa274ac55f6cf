package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// FixtureStart is the timestamp of the first row written by WriteTickCSV
var FixtureStart = time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)

// WriteTickCSV writes a clean dataset of n ticks spaced by step into a temp
// directory and returns its path. Prices follow a slow sine wave so every
// indicator eventually becomes defined.
func WriteTickCSV(t *testing.T, n int, step time.Duration) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("timestamp,open,high,low,close,volume,bid,ask,bid_size,ask_size\n")
	for i := 0; i < n; i++ {
		ts := FixtureStart.Add(time.Duration(i) * step).Format("2006-01-02 15:04:05")
		c := math.Round((250+5*math.Sin(float64(i)/9))*100) / 100
		fmt.Fprintf(&b, "%s,%.2f,%.2f,%.2f,%.2f,%d,%.2f,%.2f,%d,%d\n",
			ts, c, c+0.25, c-0.25, c, 100+i%13, c-0.05, c+0.05, 10+i%7, 10+i%5)
	}
	return WriteFile(t, "ticks.csv", b.String())
}

// WriteFile writes content to name inside a fresh temp directory
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
