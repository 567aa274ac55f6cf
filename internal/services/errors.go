package services

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by every read operation until a snapshot exists
var ErrNotReady = errors.New("market data not ready")

// NotReadyError carries the most recent reload failure, if any, while no
// snapshot is being served. errors.Is(err, ErrNotReady) holds.
type NotReadyError struct {
	Cause error
}

func (e *NotReadyError) Error() string {
	if e.Cause == nil {
		return ErrNotReady.Error()
	}
	return fmt.Sprintf("%s: %v", ErrNotReady, e.Cause)
}

func (e *NotReadyError) Unwrap() error { return e.Cause }

func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }
