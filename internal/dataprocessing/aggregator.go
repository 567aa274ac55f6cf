package dataprocessing

import (
	"fmt"
	"math"
	"time"

	"tickpulse/pkg/contracts/domain"
)

const tradingDaysPerYear = 252

// span is one non-empty bucket [lo, hi) of a time-ordered sequence
type span struct {
	start  time.Time
	lo, hi int
}

// bucketSpans groups n time-ordered items by bucket start. Empty buckets
// produce no span.
func bucketSpans(n int, at func(int) time.Time, width time.Duration) []span {
	var spans []span
	for i := 0; i < n; i++ {
		start := bucketStart(at(i), width)
		if k := len(spans); k > 0 && spans[k-1].start.Equal(start) {
			spans[k-1].hi = i + 1
			continue
		}
		spans = append(spans, span{start: start, lo: i, hi: i + 1})
	}
	return spans
}

func checkWidth(width time.Duration) error {
	if width <= 0 {
		return fmt.Errorf("%w: width %s", ErrInvalidResolution, width)
	}
	return nil
}

// Resample builds OHLCV bars of the given width from time-ordered ticks
func Resample(ticks []domain.EnrichedTick, width time.Duration) ([]domain.ResampledBar, error) {
	if err := checkWidth(width); err != nil {
		return nil, err
	}
	bars := make([]domain.ResampledBar, len(ticks))
	for i, t := range ticks {
		bars[i] = domain.ResampledBar{
			Start: t.Timestamp, Open: t.Open, High: t.High, Low: t.Low,
			Close: t.Close, Volume: t.Volume, TickCount: 1,
		}
	}
	return mergeBars(bars, width), nil
}

// ResampleBars re-buckets bars to width. Applied at a bar sequence's own
// width it returns the sequence unchanged.
func ResampleBars(bars []domain.ResampledBar, width time.Duration) ([]domain.ResampledBar, error) {
	if err := checkWidth(width); err != nil {
		return nil, err
	}
	return mergeBars(bars, width), nil
}

func mergeBars(bars []domain.ResampledBar, width time.Duration) []domain.ResampledBar {
	spans := bucketSpans(len(bars), func(i int) time.Time { return bars[i].Start }, width)
	out := make([]domain.ResampledBar, 0, len(spans))
	for _, s := range spans {
		first, last := bars[s.lo], bars[s.hi-1]
		bar := domain.ResampledBar{
			Start: s.start,
			Open:  first.Open,
			High:  first.High,
			Low:   first.Low,
			Close: last.Close,
		}
		for _, b := range bars[s.lo:s.hi] {
			bar.High = math.Max(bar.High, b.High)
			bar.Low = math.Min(bar.Low, b.Low)
			bar.Volume += b.Volume
			bar.TickCount += b.TickCount
		}
		out = append(out, bar)
	}
	return out
}

// Summarize reduces the whole table. factor is the tick annualization
// factor; 0 leaves the annualized volatility at 0.
func Summarize(ticks []domain.EnrichedTick, factor float64) domain.SummaryStatistics {
	n := len(ticks)
	if n == 0 {
		return domain.SummaryStatistics{}
	}

	var closeSum, spreadSum, ofiSum, volume float64
	returns := make([]float64, 0, n-1)
	for i, t := range ticks {
		closeSum += t.Close
		spreadSum += t.BidAskSpread
		ofiSum += t.OrderFlowImbalance
		volume += t.Volume
		if i > 0 {
			returns = append(returns, math.Log(t.Close/ticks[i-1].Close))
		}
	}

	first, last := ticks[0].Timestamp, ticks[n-1].Timestamp
	minutes := bucketStart(last, time.Minute).Sub(bucketStart(first, time.Minute))/time.Minute + 1

	return domain.SummaryStatistics{
		TotalTicks:                n,
		AvgPrice:                  closeSum / float64(n),
		AvgBidAskSpread:           spreadSum / float64(n),
		AnnualizedVolatility:      sampleStdDev(returns) * factor,
		DailyVolatilityAnnualized: dailyVolatility(ticks),
		AvgVolumePerMinute:        volume / float64(minutes),
		AvgOrderFlowImbalance:     ofiSum / float64(n),
		TotalVolume:               volume,
		FirstTimestamp:            first,
		LastTimestamp:             last,
	}
}

// dailyVolatility is the std-dev of day-over-day last-close returns × √252
func dailyVolatility(ticks []domain.EnrichedTick) float64 {
	spans := bucketSpans(len(ticks), func(i int) time.Time { return ticks[i].Timestamp }, 24*time.Hour)
	if len(spans) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(spans)-1)
	prev := ticks[spans[0].hi-1].Close
	for _, s := range spans[1:] {
		c := ticks[s.hi-1].Close
		returns = append(returns, c/prev-1)
		prev = c
	}
	return sampleStdDev(returns) * math.Sqrt(tradingDaysPerYear)
}

// OrderFlowSeries is the per-tick order-flow imbalance
func OrderFlowSeries(ticks []domain.EnrichedTick) []domain.OrderFlowPoint {
	out := make([]domain.OrderFlowPoint, len(ticks))
	for i, t := range ticks {
		out[i] = domain.OrderFlowPoint{Timestamp: t.Timestamp, OrderFlowImbalance: t.OrderFlowImbalance}
	}
	return out
}

// IndicatorSeries is the per-tick indicator table
func IndicatorSeries(ticks []domain.EnrichedTick) []domain.IndicatorPoint {
	out := make([]domain.IndicatorPoint, len(ticks))
	for i, t := range ticks {
		out[i] = indicatorPoint(t)
	}
	return out
}

func indicatorPoint(t domain.EnrichedTick) domain.IndicatorPoint {
	return domain.IndicatorPoint{
		Timestamp:          t.Timestamp,
		VWAP:               t.VWAP,
		RSI:                t.RSI,
		RealizedVolatility: t.RealizedVolatility,
		OrderFlowImbalance: t.OrderFlowImbalance,
		BidAskSpread:       t.BidAskSpread,
		SMA5:               t.SMA5,
		SMA10:              t.SMA10,
		SMA20:              t.SMA20,
	}
}

// OrderBookSeries is the per-bucket mean spread and order-flow imbalance
func OrderBookSeries(ticks []domain.EnrichedTick, width time.Duration) ([]domain.OrderBookPoint, error) {
	if err := checkWidth(width); err != nil {
		return nil, err
	}
	spans := bucketSpans(len(ticks), func(i int) time.Time { return ticks[i].Timestamp }, width)
	out := make([]domain.OrderBookPoint, 0, len(spans))
	for _, s := range spans {
		var spread, ofi float64
		for _, t := range ticks[s.lo:s.hi] {
			spread += t.BidAskSpread
			ofi += t.OrderFlowImbalance
		}
		n := float64(s.hi - s.lo)
		out = append(out, domain.OrderBookPoint{
			Timestamp:          s.start,
			BidAskSpread:       spread / n,
			OrderFlowImbalance: ofi / n,
		})
	}
	return out, nil
}

// IndicatorSeriesAt is the per-bucket mean of each indicator. A metric is
// defined in a bucket when at least one of its ticks defines it.
func IndicatorSeriesAt(ticks []domain.EnrichedTick, width time.Duration) ([]domain.IndicatorPoint, error) {
	if err := checkWidth(width); err != nil {
		return nil, err
	}
	spans := bucketSpans(len(ticks), func(i int) time.Time { return ticks[i].Timestamp }, width)
	out := make([]domain.IndicatorPoint, 0, len(spans))
	for _, s := range spans {
		bucket := ticks[s.lo:s.hi]
		metric := func(get func(domain.EnrichedTick) domain.Metric) domain.Metric {
			var sum float64
			var n int
			for _, t := range bucket {
				if m := get(t); m.Ready {
					sum += m.Value
					n++
				}
			}
			if n == 0 {
				return domain.Warmup
			}
			return domain.Defined(sum / float64(n))
		}
		var spread, ofi float64
		for _, t := range bucket {
			spread += t.BidAskSpread
			ofi += t.OrderFlowImbalance
		}
		n := float64(len(bucket))
		out = append(out, domain.IndicatorPoint{
			Timestamp:          s.start,
			VWAP:               metric(func(t domain.EnrichedTick) domain.Metric { return t.VWAP }),
			RSI:                metric(func(t domain.EnrichedTick) domain.Metric { return t.RSI }),
			RealizedVolatility: metric(func(t domain.EnrichedTick) domain.Metric { return t.RealizedVolatility }),
			OrderFlowImbalance: ofi / n,
			BidAskSpread:       spread / n,
			SMA5:               metric(func(t domain.EnrichedTick) domain.Metric { return t.SMA5 }),
			SMA10:              metric(func(t domain.EnrichedTick) domain.Metric { return t.SMA10 }),
			SMA20:              metric(func(t domain.EnrichedTick) domain.Metric { return t.SMA20 }),
		})
	}
	return out, nil
}
