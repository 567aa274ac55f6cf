package http

import (
	"context"

	"tickpulse/pkg/contracts/domain"
)

// MarketService is the query facade the market routes are served from.
// services.MarketService implements it.
type MarketService interface {
	SnapshotInfo(ctx context.Context) (domain.SnapshotInfo, error)
	GetSummary(ctx context.Context) (domain.SummaryStatistics, error)
	GetTimeseries(ctx context.Context, resolution string) ([]domain.ResampledBar, error)
	GetOrderFlow(ctx context.Context) ([]domain.OrderFlowPoint, error)
	GetIndicators(ctx context.Context) ([]domain.IndicatorPoint, error)
	GetIndicatorsAt(ctx context.Context, resolution string) ([]domain.IndicatorPoint, error)
	GetOrderBook(ctx context.Context, resolution string) ([]domain.OrderBookPoint, error)
	GetCorrelations(ctx context.Context) (domain.CorrelationMatrix, error)
	GetCleaningReport(ctx context.Context) (domain.CleaningReport, error)
	Reload(ctx context.Context) (domain.SnapshotInfo, error)
}

// ParamValidator validates decoded request parameters
type ParamValidator interface {
	ValidateStruct(v interface{}) error
}
