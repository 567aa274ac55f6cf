package dataprocessing

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad is matched by every *LoadError
	ErrLoad = errors.New("dataset load failed")

	// ErrInvalidResolution is returned for a bucket width that cannot be parsed
	ErrInvalidResolution = errors.New("invalid resolution")
)

// Load failure reasons
const (
	ReasonNotFound       = "file_not_found"
	ReasonUnreadable     = "file_unreadable"
	ReasonUnsupported    = "unsupported_format"
	ReasonEmpty          = "empty_dataset"
	ReasonMissingColumn  = "missing_column"
	ReasonMalformedTable = "malformed_table"
)

// LoadError is a fatal dataset problem. A run that hits it produces no snapshot.
type LoadError struct {
	Path   string
	Reason string
	Detail string
	Err    error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("load %s: %s", e.Path, e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrLoad
func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

func newLoadError(path, reason, detail string, err error) *LoadError {
	return &LoadError{Path: path, Reason: reason, Detail: detail, Err: err}
}
