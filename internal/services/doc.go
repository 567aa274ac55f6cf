// Package services is the query facade between the HTTP layer and the
// dataprocessing pipeline.
//
// MarketService owns the snapshot currently being served. Readers load it
// through an atomic pointer and never block; Reload runs the pipeline and
// swaps the pointer only on success, so a failed reload leaves the previous
// snapshot in place. Concurrent Reload calls are collapsed into one run.
//
// Every read operation returns ErrNotReady (as a *NotReadyError carrying the
// last reload failure) until the first successful run:
//
//	svc := services.NewMarketService(pipeline, cfg.Dataset.Path, hub, metrics, logger)
//	if _, err := svc.Reload(ctx); err != nil {
//		// serving nothing yet; queries answer ErrNotReady
//	}
//	bars, err := svc.GetTimeseries(ctx, "5Min")
//
// HealthService reports readiness from the same facade.
package services
