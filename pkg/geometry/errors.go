package geometry

import (
	"errors"
	"fmt"
)

// Sentinel errors for transform configuration.
var (
	// ErrInvalidDimensions is returned when a source or destination size is not positive.
	ErrInvalidDimensions = errors.New("geometry: dimensions must be positive")

	// ErrInvalidRotation is returned when a rotation is not a multiple of 90 degrees.
	ErrInvalidRotation = errors.New("geometry: rotation must be a multiple of 90 degrees")

	// ErrSingularTransform is returned when a transform has no inverse.
	ErrSingularTransform = errors.New("geometry: transform is not invertible")
)

// ConfigError reports a mapping configuration that cannot produce a usable transform pair.
type ConfigError struct {
	Param string
	Value any
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("geometry: invalid %s %v: %v", e.Param, e.Value, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
