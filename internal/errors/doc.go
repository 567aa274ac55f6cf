// Package errors renders failures as RFC 7807 problem documents.
//
// Handlers return plain Go errors; ErrorHandler.HandleError classifies them:
//
//	services.ErrNotReady            503 /errors/data/not-ready
//	*dataprocessing.LoadError       503 /errors/data/load-failed
//	dataprocessing.ErrInvalidResolution  400 /errors/data/invalid-resolution
//	context.Canceled / DeadlineExceeded  504 /errors/timeout
//	*APIError                       its own status and code
//	anything else                   500 /errors/internal
package errors
