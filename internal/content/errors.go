package content

import "errors"

// Sentinel errors for the locate/load pipeline. Callers map these to
// HTTP statuses with errors.Is.
var (
	ErrNotFound   = errors.New("content not found")
	ErrForbidden  = errors.New("forbidden path")
	ErrReadFailed = errors.New("read failed")
	ErrExecFailed = errors.New("execution failed")
)
