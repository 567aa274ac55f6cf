package domain

// DropReason names why the cleaner discarded a row
type DropReason string

const (
	DropInvalidRow          DropReason = "invalid_row"
	DropMissingLeadingValue DropReason = "missing_leading_value"
	DropNonPositivePrice    DropReason = "non_positive_price"
	DropNegativeVolume      DropReason = "negative_volume"
	DropBidAskInverted      DropReason = "bid_ask_inverted"
	DropDuplicateTimestamp  DropReason = "duplicate_timestamp"
)

// DropReasons lists every reason in reporting order
var DropReasons = []DropReason{
	DropInvalidRow,
	DropMissingLeadingValue,
	DropNonPositivePrice,
	DropNegativeVolume,
	DropBidAskInverted,
	DropDuplicateTimestamp,
}

// CleaningReport aggregates the anomalies seen while cleaning one dataset.
// It is an observability signal only; nothing in the pipeline branches on it.
type CleaningReport struct {
	InputRows    int                `json:"input_rows"`
	OutputRows   int                `json:"output_rows"`
	Dropped      map[DropReason]int `json:"dropped"`
	OHLCRepaired int                `json:"ohlc_repaired"`
	ForwardFills int                `json:"forward_fills"`
	VolumeFills  int                `json:"volume_fills"`
}

// NewCleaningReport returns a report with every reason present at zero
func NewCleaningReport(inputRows int) CleaningReport {
	dropped := make(map[DropReason]int, len(DropReasons))
	for _, reason := range DropReasons {
		dropped[reason] = 0
	}
	return CleaningReport{InputRows: inputRows, Dropped: dropped}
}

// TotalDropped sums the per-reason drop counters
func (r CleaningReport) TotalDropped() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}
