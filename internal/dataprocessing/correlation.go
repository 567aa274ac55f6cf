package dataprocessing

import (
	"math"

	"tickpulse/pkg/contracts/domain"
)

type correlationField struct {
	name string
	get  func(domain.EnrichedTick) float64
}

var correlationFields = []correlationField{
	{"close", func(t domain.EnrichedTick) float64 { return t.Close }},
	{"volume", func(t domain.EnrichedTick) float64 { return t.Volume }},
	{"bid_ask_spread", func(t domain.EnrichedTick) float64 { return t.BidAskSpread }},
	{"realized_volatility", func(t domain.EnrichedTick) float64 { return t.RealizedVolatility.Value }},
	{"order_flow_imbalance", func(t domain.EnrichedTick) float64 { return t.OrderFlowImbalance }},
}

// Correlate computes the Pearson matrix over the rows where realized
// volatility is defined, the only warm-up column in the set.
func Correlate(ticks []domain.EnrichedTick) domain.CorrelationMatrix {
	k := len(correlationFields)
	cols := make([][]float64, k)
	for _, t := range ticks {
		if !t.RealizedVolatility.Ready {
			continue
		}
		for j, f := range correlationFields {
			cols[j] = append(cols[j], f.get(t))
		}
	}

	m := domain.CorrelationMatrix{
		Fields:       make([]string, k),
		Matrix:       make([][]domain.Metric, k),
		Observations: len(cols[0]),
	}
	for i, f := range correlationFields {
		m.Fields[i] = f.name
		m.Matrix[i] = make([]domain.Metric, k)
	}
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			r := pearson(cols[i], cols[j])
			m.Matrix[i][j], m.Matrix[j][i] = r, r
		}
	}
	return m
}

func pearson(x, y []float64) domain.Metric {
	if len(x) < 2 || len(x) != len(y) {
		return domain.Warmup
	}
	mx, my := mean(x), mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return domain.Warmup
	}
	r := sxy / math.Sqrt(sxx*syy)
	return domain.Defined(math.Max(-1, math.Min(1, r)))
}
