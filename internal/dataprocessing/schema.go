package dataprocessing

import "strings"

// field is a semantic column of the tick dataset
type field int

const (
	fieldTimestamp field = iota
	fieldStartDate
	fieldStartTime
	fieldOpen
	fieldHigh
	fieldLow
	fieldClose
	fieldBid
	fieldAsk
	fieldVolume
	fieldBidSize
	fieldAskSize
	fieldCount
)

var fieldNames = [fieldCount]string{
	"timestamp", "start_date", "start_time",
	"open", "high", "low", "close",
	"bid", "ask", "volume", "bid_size", "ask_size",
}

func (f field) String() string {
	return fieldNames[f]
}

// columnAliases maps each field to the header names it may appear under.
// The first alias present in the header wins.
var columnAliases = [fieldCount][]string{
	fieldTimestamp: {"timestamp", "datetime"},
	fieldStartDate: {"start_date", "date"},
	fieldStartTime: {"start_time", "time"},
	fieldOpen:      {"open"},
	fieldHigh:      {"high"},
	fieldLow:       {"low"},
	fieldClose:     {"close", "ltp", "last_price"},
	fieldBid:       {"bid", "l1_bid_vwap", "buy_price"},
	fieldAsk:       {"ask", "l1_ask_vwap", "sell_price"},
	fieldVolume:    {"volume", "total_traded_volume"},
	fieldBidSize:   {"bid_size", "l1_bid_vol", "buy_quantity"},
	fieldAskSize:   {"ask_size", "l1_ask_vol", "sell_quantity"},
}

var requiredFields = []field{fieldClose, fieldBid, fieldAsk, fieldVolume}

// columnMap holds the header index of every field, -1 when absent
type columnMap [fieldCount]int

func (m columnMap) has(f field) bool {
	return m[f] >= 0
}

// normalizeHeader lower-cases a header cell and strips whitespace and a UTF-8 BOM
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.TrimSpace(s))
}

// resolveColumns matches header cells against the alias table and reports
// the first missing required field, if any.
func resolveColumns(header []string) (columnMap, []string) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if name == "" {
			continue
		}
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	var m columnMap
	for f := field(0); f < fieldCount; f++ {
		m[f] = -1
		for _, alias := range columnAliases[f] {
			if idx, ok := positions[alias]; ok {
				m[f] = idx
				break
			}
		}
	}

	var missing []string
	if !m.has(fieldTimestamp) && !m.has(fieldStartTime) {
		missing = append(missing, "timestamp|start_time")
	}
	for _, f := range requiredFields {
		if !m.has(f) {
			missing = append(missing, f.String())
		}
	}
	return m, missing
}
