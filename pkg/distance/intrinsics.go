package distance

import (
	"context"
	"log/slog"
	"sync"
)

// Intrinsics are the camera properties the distance formula needs.
// FocalLength and SensorHeight share a unit (millimeters on most platforms).
type Intrinsics struct {
	FocalLength  float64 `json:"focal_length"`
	SensorHeight float64 `json:"sensor_height"`
}

// Validate reports which value, if any, is missing.
func (i Intrinsics) Validate() error {
	if i.FocalLength <= 0 {
		return ErrNoFocalLength
	}
	if i.SensorHeight <= 0 {
		return ErrNoSensorHeight
	}
	return nil
}

// IntrinsicsSource provides camera intrinsics, typically from a platform query.
type IntrinsicsSource interface {
	Intrinsics(ctx context.Context) (Intrinsics, error)
}

// StaticIntrinsics is an IntrinsicsSource with fixed values.
type StaticIntrinsics Intrinsics

// Intrinsics returns the fixed values.
func (s StaticIntrinsics) Intrinsics(ctx context.Context) (Intrinsics, error) {
	return Intrinsics(s), nil
}

// IntrinsicsFunc adapts a function to IntrinsicsSource.
type IntrinsicsFunc func(ctx context.Context) (Intrinsics, error)

// Intrinsics calls f.
func (f IntrinsicsFunc) Intrinsics(ctx context.Context) (Intrinsics, error) {
	return f(ctx)
}

// LazyIntrinsics queries its source on first need and caches the first valid answer.
// Failed lookups are not cached, so the next call retries.
type LazyIntrinsics struct {
	source IntrinsicsSource
	logger *slog.Logger

	mu     sync.Mutex
	cached *Intrinsics
}

// NewLazyIntrinsics wraps source with lookup-once caching.
func NewLazyIntrinsics(source IntrinsicsSource, logger *slog.Logger) *LazyIntrinsics {
	if logger == nil {
		logger = slog.Default()
	}
	return &LazyIntrinsics{source: source, logger: logger.With("component", "distance.intrinsics")}
}

// Intrinsics returns the cached value or performs the lookup.
func (l *LazyIntrinsics) Intrinsics(ctx context.Context) (Intrinsics, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil {
		return *l.cached, nil
	}

	intr, err := l.source.Intrinsics(ctx)
	if err != nil {
		return Intrinsics{}, err
	}
	if err := intr.Validate(); err != nil {
		return Intrinsics{}, err
	}

	l.cached = &intr
	l.logger.Info("camera intrinsics loaded",
		"focal_length", intr.FocalLength,
		"sensor_height", intr.SensorHeight,
	)
	return intr, nil
}

// Reset drops the cached value so the next call queries the source again.
func (l *LazyIntrinsics) Reset() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
}
