// Package api contains the request contracts of the HTTP API.
// Tags are checked by middleware.Validator; "timeframe" and "resolution"
// are custom tags registered there.
package api

// TimeseriesRequest is the path parameter of GET /api/stock/timeseries/{timeframe}
type TimeseriesRequest struct {
	Timeframe string `json:"timeframe" query:"timeframe" validate:"required,timeframe"`
}

// ResolutionRequest is the optional ?resolution= of the bucketed endpoints
type ResolutionRequest struct {
	Resolution string `json:"resolution,omitempty" query:"resolution" validate:"omitempty,resolution"`
}
