package services

import "errors"

// Sentinel errors returned by the comparison and baseline services. Handlers
// map these onto HTTP statuses; anything else is an internal processing error.
var (
	ErrRunNotFound           = errors.New("run not found")
	ErrRunMetricsNotFound    = errors.New("run has no metrics")
	ErrBaselineNotFound      = errors.New("baseline not found")
	ErrBaselineSnapshotEmpty = errors.New("baseline has no metric snapshot")
	ErrJobNotFound           = errors.New("comparison job not found")
	ErrResultNotReady        = errors.New("comparison result not ready")
	ErrInvalidComparisonType = errors.New("invalid comparison type")
)
