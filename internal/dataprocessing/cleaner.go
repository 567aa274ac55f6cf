package dataprocessing

import (
	"math"
	"sort"

	"tickpulse/pkg/contracts/domain"
)

// Clean turns loader output into strictly time-ordered, validated ticks.
//
// Rows are processed in timestamp order (stable, so file order breaks ties):
// invalid rows are dropped, each missing price takes the last observed value
// of that field, a missing volume becomes 0, rows with non-positive prices,
// negative volume or ask < bid are dropped, inconsistent high/low are widened
// to cover open and close, and exact duplicate timestamps keep the last row.
// The input slice is not modified.
func Clean(raw []domain.RawTick) ([]domain.Tick, domain.CleaningReport) {
	report := domain.NewCleaningReport(len(raw))

	rows := make([]domain.RawTick, 0, len(raw))
	for _, r := range raw {
		if !r.Valid {
			report.Dropped[domain.DropInvalidRow]++
			continue
		}
		rows = append(rows, r)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	out := make([]domain.Tick, 0, len(rows))
	var seen observations
	for _, r := range rows {
		tick, fills, ok := seen.fill(r)
		if !ok {
			report.Dropped[domain.DropMissingLeadingValue]++
			continue
		}
		report.ForwardFills += fills
		if !r.Volume.Valid {
			report.VolumeFills++
		}

		if reason, bad := validate(tick); bad {
			report.Dropped[reason]++
			continue
		}
		if repairOHLC(&tick) {
			report.OHLCRepaired++
		}

		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(tick.Timestamp) {
			out[n-1] = tick
			report.Dropped[domain.DropDuplicateTimestamp]++
		} else {
			out = append(out, tick)
		}
	}

	report.OutputRows = len(out)
	return out, report
}

// observations holds the last present value of each price field, taken from
// every valid row whether or not that row is kept
type observations struct {
	open, high, low, close, bid, ask domain.NullFloat64
}

// fill records the present prices of r and resolves its missing ones. It
// fails when a field has never been observed.
func (o *observations) fill(r domain.RawTick) (domain.Tick, int, bool) {
	tick := domain.Tick{
		Timestamp: r.Timestamp,
		BidSize:   r.BidSize,
		AskSize:   r.AskSize,
	}
	if r.Volume.Valid {
		tick.Volume = r.Volume.Value
	}

	fills := 0
	ok := true
	prices := []struct {
		src  domain.NullFloat64
		last *domain.NullFloat64
		dst  *float64
	}{
		{r.Open, &o.open, &tick.Open},
		{r.High, &o.high, &tick.High},
		{r.Low, &o.low, &tick.Low},
		{r.Close, &o.close, &tick.Close},
		{r.Bid, &o.bid, &tick.Bid},
		{r.Ask, &o.ask, &tick.Ask},
	}
	for _, p := range prices {
		switch {
		case p.src.Valid:
			*p.last = p.src
			*p.dst = p.src.Value
		case p.last.Valid:
			*p.dst = p.last.Value
			fills++
		default:
			ok = false
		}
	}
	if !ok {
		return domain.Tick{}, 0, false
	}
	return tick, fills, true
}

func validate(t domain.Tick) (domain.DropReason, bool) {
	switch {
	case t.Open <= 0 || t.High <= 0 || t.Low <= 0 || t.Close <= 0 || t.Bid <= 0 || t.Ask <= 0:
		return domain.DropNonPositivePrice, true
	case t.Volume < 0:
		return domain.DropNegativeVolume, true
	case t.Ask < t.Bid:
		return domain.DropBidAskInverted, true
	}
	return "", false
}

// repairOHLC widens high and low to enclose open and close
func repairOHLC(t *domain.Tick) bool {
	high := math.Max(t.High, math.Max(t.Open, t.Close))
	low := math.Min(t.Low, math.Min(t.Open, t.Close))
	if high == t.High && low == t.Low {
		return false
	}
	t.High, t.Low = high, low
	return true
}
