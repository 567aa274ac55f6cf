package exporter

import (
	"strconv"
	"time"

	"tickpulse/pkg/contracts/domain"
)

// TimeLayout is used for every timestamp column
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// formatFloat writes the shortest representation that round-trips
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatMetric leaves warm-up cells empty
func formatMetric(m domain.Metric) string {
	if !m.Ready {
		return ""
	}
	return formatFloat(m.Value)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func formatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// metricCell is the spreadsheet equivalent of formatMetric
func metricCell(m domain.Metric) interface{} {
	if !m.Ready {
		return nil
	}
	return m.Value
}
