package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"tickpulse/internal/dataprocessing"
	"tickpulse/internal/infrastructure"
	"tickpulse/pkg/contracts/domain"
	"tickpulse/pkg/contracts/events"
)

// Websocket event types published on reload
const (
	EventSnapshotReady  = events.TypeSnapshotReady
	EventSnapshotFailed = events.TypeSnapshotFailed
)

// PipelineRunner builds a snapshot from a dataset path
type PipelineRunner interface {
	Run(ctx context.Context, path string) (*dataprocessing.Snapshot, error)
}

// EventBroadcaster publishes events to connected websocket clients
type EventBroadcaster interface {
	Broadcast(messageType string, data interface{})
}

// reloadFailure is the last failed reload, cleared by the next success
type reloadFailure struct {
	err error
	at  time.Time
}

// MarketService is the query facade over the current snapshot. Reads are
// lock-free; a reload swaps the whole snapshot with a single atomic store.
type MarketService struct {
	runner  PipelineRunner
	path    string
	events  EventBroadcaster
	metrics *infrastructure.Metrics
	logger  *slog.Logger

	snapshot    atomic.Pointer[dataprocessing.Snapshot]
	lastFailure atomic.Pointer[reloadFailure]
	reloads     singleflight.Group
}

// NewMarketService creates a facade that reloads from path. events and
// metrics may be nil.
func NewMarketService(runner PipelineRunner, path string, events EventBroadcaster, metrics *infrastructure.Metrics, logger *slog.Logger) *MarketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketService{
		runner:  runner,
		path:    path,
		events:  events,
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "market_service"),
	}
}

// Reload rebuilds the snapshot from the configured path. Concurrent calls
// share one pipeline run. On failure the previous snapshot keeps serving.
func (s *MarketService) Reload(ctx context.Context) (domain.SnapshotInfo, error) {
	// the shared run must not die with whichever request started it
	runCtx := context.WithoutCancel(ctx)

	v, err, shared := s.reloads.Do("reload", func() (interface{}, error) {
		return s.reload(runCtx)
	})
	if shared {
		s.logger.DebugContext(ctx, "Joined in-flight reload")
	}
	if err != nil {
		return domain.SnapshotInfo{}, err
	}
	return v.(*dataprocessing.Snapshot).Info(), nil
}

func (s *MarketService) reload(ctx context.Context) (*dataprocessing.Snapshot, error) {
	snap, err := s.runner.Run(ctx, s.path)
	if err != nil {
		s.lastFailure.Store(&reloadFailure{err: err, at: time.Now()})
		s.logger.ErrorContext(ctx, "Snapshot reload failed",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
			slog.Bool("serving_previous", s.snapshot.Load() != nil))
		failed := events.SnapshotFailed{
			Source:          s.path,
			Error:           err.Error(),
			ServingPrevious: s.snapshot.Load() != nil,
			At:              time.Now(),
		}
		var loadErr *dataprocessing.LoadError
		if errors.As(err, &loadErr) {
			failed.Reason = loadErr.Reason
		}
		s.publish(EventSnapshotFailed, failed)
		return nil, fmt.Errorf("reload %s: %w", s.path, err)
	}

	s.snapshot.Store(snap)
	s.lastFailure.Store(nil)
	s.metrics.RecordSnapshot(ctx, len(snap.Ticks))

	info := snap.Info()
	s.logger.InfoContext(ctx, "Snapshot swapped",
		slog.String("snapshot_id", info.ID),
		slog.Int("rows", info.Rows),
		slog.Int("dropped_rows", info.DroppedRows))
	s.publish(EventSnapshotReady, info)
	return snap, nil
}

func (s *MarketService) publish(event string, data interface{}) {
	if s.events != nil {
		s.events.Broadcast(event, data)
	}
}

// current returns the served snapshot or a *NotReadyError
func (s *MarketService) current() (*dataprocessing.Snapshot, error) {
	if snap := s.snapshot.Load(); snap != nil {
		return snap, nil
	}
	var cause error
	if f := s.lastFailure.Load(); f != nil {
		cause = f.err
	}
	return nil, &NotReadyError{Cause: cause}
}

// Ready reports whether a snapshot is being served
func (s *MarketService) Ready() bool {
	return s.snapshot.Load() != nil
}

// LastFailure returns the most recent reload error since the last success
func (s *MarketService) LastFailure() (at time.Time, err error) {
	if f := s.lastFailure.Load(); f != nil {
		return f.at, f.err
	}
	return time.Time{}, nil
}

// SnapshotInfo describes the served snapshot
func (s *MarketService) SnapshotInfo(ctx context.Context) (domain.SnapshotInfo, error) {
	snap, err := s.current()
	if err != nil {
		return domain.SnapshotInfo{}, err
	}
	return snap.Info(), nil
}

// GetSummary returns whole-table summary statistics
func (s *MarketService) GetSummary(ctx context.Context) (domain.SummaryStatistics, error) {
	snap, err := s.current()
	if err != nil {
		return domain.SummaryStatistics{}, err
	}
	return snap.Summary(), nil
}

// GetTimeseries resamples the enriched table to resolution, e.g. "5Min"
func (s *MarketService) GetTimeseries(ctx context.Context, resolution string) ([]domain.ResampledBar, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	width, err := dataprocessing.ParseResolution(resolution)
	if err != nil {
		return nil, err
	}
	return dataprocessing.Resample(snap.Ticks, width)
}

// GetOrderFlow returns the per-tick order-flow imbalance series
func (s *MarketService) GetOrderFlow(ctx context.Context) ([]domain.OrderFlowPoint, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return dataprocessing.OrderFlowSeries(snap.Ticks), nil
}

// GetIndicators returns the per-tick indicator series
func (s *MarketService) GetIndicators(ctx context.Context) ([]domain.IndicatorPoint, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return dataprocessing.IndicatorSeries(snap.Ticks), nil
}

// GetIndicatorsAt returns per-bucket means of each defined indicator
func (s *MarketService) GetIndicatorsAt(ctx context.Context, resolution string) ([]domain.IndicatorPoint, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	width, err := dataprocessing.ParseResolution(resolution)
	if err != nil {
		return nil, err
	}
	return dataprocessing.IndicatorSeriesAt(snap.Ticks, width)
}

// GetOrderBook returns per-bucket mean spread and order-flow imbalance
func (s *MarketService) GetOrderBook(ctx context.Context, resolution string) ([]domain.OrderBookPoint, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	width, err := dataprocessing.ParseResolution(resolution)
	if err != nil {
		return nil, err
	}
	return dataprocessing.OrderBookSeries(snap.Ticks, width)
}

// GetCorrelations returns the Pearson matrix of the core series
func (s *MarketService) GetCorrelations(ctx context.Context) (domain.CorrelationMatrix, error) {
	snap, err := s.current()
	if err != nil {
		return domain.CorrelationMatrix{}, err
	}
	return dataprocessing.Correlate(snap.Ticks), nil
}

// GetCleaningReport returns the anomaly counters of the served snapshot
func (s *MarketService) GetCleaningReport(ctx context.Context) (domain.CleaningReport, error) {
	snap, err := s.current()
	if err != nil {
		return domain.CleaningReport{}, err
	}
	return snap.Report, nil
}

// GetEnrichedTicks returns the served enriched table. Callers must not
// modify the returned slice.
func (s *MarketService) GetEnrichedTicks(ctx context.Context) ([]domain.EnrichedTick, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return snap.Ticks, nil
}
