package dataprocessing

import (
	"math"

	"tickpulse/pkg/contracts/domain"
)

// TradingSecondsPerYear is 252 sessions of 6h15m
const TradingSecondsPerYear = 252 * 6.25 * 3600

// IndicatorParams sizes the rolling windows of the indicator engine
type IndicatorParams struct {
	RSIPeriod             int
	VolatilityWindow      int
	StdDevWindow          int
	TradingSecondsPerYear float64
}

// DefaultIndicatorParams returns RSI(14), 20-tick volatility and std-dev windows
func DefaultIndicatorParams() IndicatorParams {
	return IndicatorParams{
		RSIPeriod:             14,
		VolatilityWindow:      20,
		StdDevWindow:          20,
		TradingSecondsPerYear: TradingSecondsPerYear,
	}
}

// withDefaults replaces unusable values with the defaults
func (p IndicatorParams) withDefaults() IndicatorParams {
	d := DefaultIndicatorParams()
	if p.RSIPeriod < 1 {
		p.RSIPeriod = d.RSIPeriod
	}
	if p.VolatilityWindow < 3 {
		p.VolatilityWindow = d.VolatilityWindow
	}
	if p.StdDevWindow < 2 {
		p.StdDevWindow = d.StdDevWindow
	}
	if p.TradingSecondsPerYear <= 0 {
		p.TradingSecondsPerYear = d.TradingSecondsPerYear
	}
	return p
}

// AnnualizationFactor returns √(ticks per year) implied by the average
// sampling interval. ok is false for fewer than two ticks or a zero interval.
func AnnualizationFactor(ticks []domain.Tick, tradingSecondsPerYear float64) (float64, bool) {
	if len(ticks) < 2 || tradingSecondsPerYear <= 0 {
		return 0, false
	}
	span := ticks[len(ticks)-1].Timestamp.Sub(ticks[0].Timestamp).Seconds()
	interval := span / float64(len(ticks)-1)
	if interval <= 0 {
		return 0, false
	}
	return math.Sqrt(tradingSecondsPerYear / interval), true
}

// Enrich derives every indicator column for ticks. Each indicator is an
// independent pass over the same input.
func Enrich(ticks []domain.Tick, params IndicatorParams) []domain.EnrichedTick {
	params = params.withDefaults()
	factor, ok := AnnualizationFactor(ticks, params.TradingSecondsPerYear)

	vwap := VWAPSeries(ticks)
	rsi := RSISeries(ticks, params.RSIPeriod)
	vol := RealizedVolatilitySeries(ticks, params.VolatilityWindow, factor, ok)
	ofi := OrderFlowImbalanceSeries(ticks)
	spread := SpreadSeries(ticks)
	sma5 := SMASeries(ticks, 5)
	sma10 := SMASeries(ticks, 10)
	sma20 := SMASeries(ticks, 20)
	std := RollingStdDevSeries(ticks, params.StdDevWindow)

	out := make([]domain.EnrichedTick, len(ticks))
	for i, t := range ticks {
		out[i] = domain.EnrichedTick{
			Tick:               t,
			VWAP:               vwap[i],
			RSI:                rsi[i],
			RealizedVolatility: vol[i],
			OrderFlowImbalance: ofi[i],
			BidAskSpread:       spread[i],
			SMA5:               sma5[i],
			SMA10:              sma10[i],
			SMA20:              sma20[i],
			PriceStdDev20:      std[i],
		}
	}
	return out
}

// VWAPSeries is the running Σ(typical·volume)/Σvolume, undefined while no
// volume has traded.
func VWAPSeries(ticks []domain.Tick) []domain.Metric {
	out := make([]domain.Metric, len(ticks))
	var pv, v float64
	for i, t := range ticks {
		pv += t.TypicalPrice() * t.Volume
		v += t.Volume
		if v > 0 {
			out[i] = domain.Defined(pv / v)
		}
	}
	return out
}

// RSISeries averages gains and losses over the last period close deltas.
// The first period ticks are undefined; a zero average loss gives 100.
func RSISeries(ticks []domain.Tick, period int) []domain.Metric {
	out := make([]domain.Metric, len(ticks))
	if period < 1 {
		return out
	}
	gains, losses := newRing(period), newRing(period)
	for i := 1; i < len(ticks); i++ {
		delta := ticks[i].Close - ticks[i-1].Close
		gains.push(math.Max(delta, 0))
		losses.push(math.Max(-delta, 0))
		if i < period {
			continue
		}
		avgGain, avgLoss := gains.mean(), losses.mean()
		if avgLoss == 0 {
			out[i] = domain.Defined(100)
			continue
		}
		out[i] = domain.Defined(100 - 100/(1+avgGain/avgLoss))
	}
	return out
}

// RealizedVolatilitySeries is the sample std-dev of the window-1 log returns
// inside each window of ticks, scaled by factor. Nothing is defined when ok
// is false.
func RealizedVolatilitySeries(ticks []domain.Tick, window int, factor float64, ok bool) []domain.Metric {
	out := make([]domain.Metric, len(ticks))
	if !ok || window < 2 {
		return out
	}
	returns := newRing(window - 1)
	for i := 1; i < len(ticks); i++ {
		returns.push(math.Log(ticks[i].Close / ticks[i-1].Close))
		if i < window-1 {
			continue
		}
		out[i] = domain.Defined(returns.stddev() * factor)
	}
	return out
}

// OrderFlowImbalanceSeries is (bid_size-ask_size)/(bid_size+ask_size), 0 for an empty book
func OrderFlowImbalanceSeries(ticks []domain.Tick) []float64 {
	out := make([]float64, len(ticks))
	for i, t := range ticks {
		if total := t.BidSize + t.AskSize; total != 0 {
			out[i] = (t.BidSize - t.AskSize) / total
		}
	}
	return out
}

// SpreadSeries is ask-bid per tick
func SpreadSeries(ticks []domain.Tick) []float64 {
	out := make([]float64, len(ticks))
	for i, t := range ticks {
		out[i] = t.Ask - t.Bid
	}
	return out
}

// SMASeries is the simple moving average of close, defined once window ticks are seen
func SMASeries(ticks []domain.Tick, window int) []domain.Metric {
	out := make([]domain.Metric, len(ticks))
	if window < 1 {
		return out
	}
	r := newRing(window)
	for i, t := range ticks {
		r.push(t.Close)
		if r.full {
			out[i] = domain.Defined(r.mean())
		}
	}
	return out
}

// RollingStdDevSeries is the sample std-dev of close over window ticks
func RollingStdDevSeries(ticks []domain.Tick, window int) []domain.Metric {
	out := make([]domain.Metric, len(ticks))
	if window < 2 {
		return out
	}
	r := newRing(window)
	for i, t := range ticks {
		r.push(t.Close)
		if r.full {
			out[i] = domain.Defined(r.stddev())
		}
	}
	return out
}
