package dataprocessing

import (
	"time"

	"tickpulse/pkg/contracts/domain"
)

// Snapshot is the immutable output of one successful pipeline run.
// Nothing may modify it after Pipeline.Run returns.
type Snapshot struct {
	ID       string
	Source   string
	BuiltAt  time.Time
	Duration time.Duration

	Ticks  []domain.EnrichedTick
	Report domain.CleaningReport
	Params IndicatorParams

	// AnnualizationFactor is 0 when the sampling interval is undefined
	AnnualizationFactor float64
}

// Info summarizes the snapshot for health and status views
func (s *Snapshot) Info() domain.SnapshotInfo {
	return domain.SnapshotInfo{
		ID:            s.ID,
		Source:        s.Source,
		BuiltAt:       s.BuiltAt,
		BuildDuration: s.Duration.String(),
		Rows:          len(s.Ticks),
		InputRows:     s.Report.InputRows,
		DroppedRows:   s.Report.TotalDropped(),
	}
}

// Summary reduces the whole snapshot table
func (s *Snapshot) Summary() domain.SummaryStatistics {
	summary := Summarize(s.Ticks, s.AnnualizationFactor)
	summary.RowsDropped = s.Report.TotalDropped()
	return summary
}
