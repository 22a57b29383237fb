package pipeline

import "errors"

// Sentinel errors returned by pipeline operations.
var (
	// ErrBusy is returned by Process when another pass is in flight.
	ErrBusy = errors.New("pipeline: pass already in flight")

	// ErrNotConfigured is returned when a frame arrives before Configure succeeded.
	ErrNotConfigured = errors.New("pipeline: not configured")

	// ErrInferenceUnavailable wraps detector failures. The track set is left unchanged.
	ErrInferenceUnavailable = errors.New("pipeline: inference unavailable")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pipeline: closed")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("pipeline: invalid config")
)
