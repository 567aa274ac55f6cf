package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tickpulse/internal/infrastructure"
	"tickpulse/pkg/contracts/domain"
)

// PipelineOptions configures a Pipeline
type PipelineOptions struct {
	Load       LoadOptions
	Indicators IndicatorParams
}

// Pipeline runs load → clean → enrich and produces a Snapshot
type Pipeline struct {
	opts    PipelineOptions
	metrics *infrastructure.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
	now     func() time.Time
}

// NewPipeline creates a pipeline. metrics and logger may be nil.
func NewPipeline(opts PipelineOptions, metrics *infrastructure.Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	opts.Indicators = opts.Indicators.withDefaults()
	return &Pipeline{
		opts:    opts,
		metrics: metrics,
		tracer:  otel.Tracer(infrastructure.MeterName),
		logger:  infrastructure.WithComponent(logger, "pipeline"),
		now:     time.Now,
	}
}

// Run builds a new snapshot from path. A load failure returns a *LoadError
// and no snapshot.
func (p *Pipeline) Run(ctx context.Context, path string) (snap *Snapshot, err error) {
	runID := uuid.New().String()
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("pipeline.run_id", runID),
		attribute.String("dataset.path", path),
	))
	defer span.End()

	started := p.now()
	logger := p.logger.With(slog.String("run_id", runID))
	logger.InfoContext(ctx, "Pipeline run started", slog.String("path", path))

	defer func() {
		elapsed := p.now().Sub(started)
		p.metrics.RecordPipelineRun(ctx, elapsed, err)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			logger.ErrorContext(ctx, "Pipeline run failed",
				slog.String("error", err.Error()),
				slog.Duration("duration", elapsed))
			return
		}
		logger.InfoContext(ctx, "Pipeline run completed",
			slog.String("snapshot_id", snap.ID),
			slog.Int("rows", len(snap.Ticks)),
			slog.Duration("duration", elapsed))
	}()

	var raw []domain.RawTick
	err = p.stage(ctx, "load", func(ctx context.Context) (int, error) {
		var loadErr error
		raw, loadErr = Load(ctx, path, p.opts.Load)
		return len(raw), loadErr
	})
	if err != nil {
		return nil, err
	}

	var (
		ticks  []domain.Tick
		report domain.CleaningReport
	)
	p.step(ctx, "clean", func() int {
		ticks, report = Clean(raw)
		return len(ticks)
	})
	p.recordReport(ctx, logger, report)

	var enriched []domain.EnrichedTick
	p.step(ctx, "enrich", func() int {
		enriched = Enrich(ticks, p.opts.Indicators)
		return len(enriched)
	})

	factor, ok := AnnualizationFactor(ticks, p.opts.Indicators.TradingSecondsPerYear)
	if !ok {
		logger.WarnContext(ctx, "Sampling interval undefined, volatility left unset",
			slog.Int("rows", len(ticks)))
	}

	snap = &Snapshot{
		ID:                  runID,
		Source:              path,
		BuiltAt:             p.now(),
		Ticks:               enriched,
		Report:              report,
		Params:              p.opts.Indicators,
		AnnualizationFactor: factor,
	}
	snap.Duration = snap.BuiltAt.Sub(started)
	infrastructure.SetSpanAttributes(ctx, attribute.Int("snapshot.rows", len(enriched)))
	return snap, nil
}

// stage runs fn inside its own span and records its duration and row count
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) (int, error)) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	started := p.now()
	rows, err := fn(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return fmt.Errorf("%s stage: %w", name, err)
	}
	p.finishStage(ctx, name, started, rows)
	return nil
}

// step is stage for work that cannot fail
func (p *Pipeline) step(ctx context.Context, name string, fn func() int) {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	started := p.now()
	p.finishStage(ctx, name, started, fn())
}

func (p *Pipeline) finishStage(ctx context.Context, name string, started time.Time, rows int) {
	elapsed := p.now().Sub(started)
	infrastructure.SetSpanAttributes(ctx, attribute.Int("rows", rows))
	p.metrics.RecordStage(ctx, name, elapsed, rows)
	p.logger.DebugContext(ctx, "Pipeline stage finished",
		slog.String("stage", name),
		slog.Int("rows", rows),
		slog.Duration("duration", elapsed))
}

func (p *Pipeline) recordReport(ctx context.Context, logger *slog.Logger, report domain.CleaningReport) {
	events := []attribute.KeyValue{
		attribute.Int("input_rows", report.InputRows),
		attribute.Int("output_rows", report.OutputRows),
		attribute.Int("ohlc_repaired", report.OHLCRepaired),
		attribute.Int("forward_fills", report.ForwardFills),
	}
	attrs := []any{
		slog.Int("input_rows", report.InputRows),
		slog.Int("output_rows", report.OutputRows),
		slog.Int("ohlc_repaired", report.OHLCRepaired),
		slog.Int("forward_fills", report.ForwardFills),
		slog.Int("volume_fills", report.VolumeFills),
	}
	for _, reason := range domain.DropReasons {
		n := report.Dropped[reason]
		attrs = append(attrs, slog.Int("dropped_"+string(reason), n))
		events = append(events, attribute.Int("dropped."+string(reason), n))
		p.metrics.RecordDropped(ctx, string(reason), n)
	}
	p.metrics.RecordRepaired(ctx, report.OHLCRepaired)
	infrastructure.AddSpanEvent(ctx, "cleaning.report", events...)
	logger.InfoContext(ctx, "Cleaning report", attrs...)
}
