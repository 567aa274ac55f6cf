package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// NullFloat64 is a numeric cell that may be absent in the source dataset
type NullFloat64 struct {
	Value float64
	Valid bool
}

// Float returns a present NullFloat64
func Float(v float64) NullFloat64 {
	return NullFloat64{Value: v, Valid: true}
}

// RawTick is one row of the source dataset as read by the loader.
// Valid is false when a mandatory field (the timestamp) could not be parsed.
type RawTick struct {
	Row           int
	Timestamp     time.Time
	Valid         bool
	InvalidReason string

	Open   NullFloat64
	High   NullFloat64
	Low    NullFloat64
	Close  NullFloat64
	Bid    NullFloat64
	Ask    NullFloat64
	Volume NullFloat64

	BidSize float64
	AskSize float64
}

// Tick is a cleaned tick. Every numeric field is present and
// high >= max(open, close) >= min(open, close) >= low, ask >= bid, volume >= 0.
type Tick struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	BidSize   float64   `json:"bid_size"`
	AskSize   float64   `json:"ask_size"`
}

// TypicalPrice returns (high+low+close)/3
func (t Tick) TypicalPrice() float64 {
	return (t.High + t.Low + t.Close) / 3
}

// Metric is a derived value that may still be warming up.
// A Metric that is not Ready marshals to JSON null.
type Metric struct {
	Value float64
	Ready bool
}

// Defined returns a ready Metric
func Defined(v float64) Metric {
	return Metric{Value: v, Ready: true}
}

// Warmup is the "not yet available" marker
var Warmup = Metric{}

// MarshalJSON implements json.Marshaler
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Ready {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, m.Value, 'f', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Warmup
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}

// EnrichedTick is a cleaned tick plus its derived indicator fields
type EnrichedTick struct {
	Tick

	VWAP               Metric  `json:"vwap"`
	RSI                Metric  `json:"rsi"`
	RealizedVolatility Metric  `json:"realized_volatility"`
	OrderFlowImbalance float64 `json:"order_flow_imbalance"`
	BidAskSpread       float64 `json:"bid_ask_spread"`

	SMA5          Metric `json:"ma_5"`
	SMA10         Metric `json:"ma_10"`
	SMA20         Metric `json:"ma_20"`
	PriceStdDev20 Metric `json:"price_std_20"`
}

// SummaryStatistics is a whole-table reduction over the enriched ticks
type SummaryStatistics struct {
	TotalTicks                int       `json:"total_ticks"`
	AvgPrice                  float64   `json:"avg_price"`
	AvgBidAskSpread           float64   `json:"avg_bid_ask_spread"`
	AnnualizedVolatility      float64   `json:"annualized_volatility"`
	DailyVolatilityAnnualized float64   `json:"daily_volatility_annualized"`
	AvgVolumePerMinute        float64   `json:"avg_volume_per_min"`
	AvgOrderFlowImbalance     float64   `json:"avg_order_flow_imbalance"`
	TotalVolume               float64   `json:"total_volume"`
	RowsDropped               int       `json:"rows_dropped"`
	FirstTimestamp            time.Time `json:"first_timestamp"`
	LastTimestamp             time.Time `json:"last_timestamp"`
}

// ResampledBar is an OHLCV aggregate over one fixed-width time bucket
type ResampledBar struct {
	Start     time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	TickCount int       `json:"tick_count"`
}

// OrderFlowPoint is the per-tick order-flow imbalance series element
type OrderFlowPoint struct {
	Timestamp          time.Time `json:"timestamp"`
	OrderFlowImbalance float64   `json:"order_flow_imbalance"`
}

// OrderBookPoint is a bucket mean of the order-book derived series
type OrderBookPoint struct {
	Timestamp          time.Time `json:"timestamp"`
	BidAskSpread       float64   `json:"bid_ask_spread"`
	OrderFlowImbalance float64   `json:"order_flow_imbalance"`
}

// IndicatorPoint is one row of the indicator series
type IndicatorPoint struct {
	Timestamp          time.Time `json:"timestamp"`
	VWAP               Metric    `json:"vwap"`
	RSI                Metric    `json:"rsi"`
	RealizedVolatility Metric    `json:"realized_volatility"`
	OrderFlowImbalance float64   `json:"order_flow_imbalance"`
	BidAskSpread       float64   `json:"bid_ask_spread"`
	SMA5               Metric    `json:"ma_5"`
	SMA10              Metric    `json:"ma_10"`
	SMA20              Metric    `json:"ma_20"`
}

// CorrelationMatrix holds pairwise Pearson coefficients; Matrix[i][j] pairs
// Fields[i] with Fields[j]. A cell is null when either series has no variance.
type CorrelationMatrix struct {
	Fields       []string   `json:"fields"`
	Matrix       [][]Metric `json:"matrix"`
	Observations int        `json:"observations"`
}

// SnapshotInfo describes the snapshot currently being served
type SnapshotInfo struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	BuiltAt       time.Time `json:"built_at"`
	BuildDuration string    `json:"build_duration"`
	Rows          int       `json:"rows"`
	InputRows     int       `json:"input_rows"`
	DroppedRows   int       `json:"dropped_rows"`
}
