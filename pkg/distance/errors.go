package distance

import (
	"errors"
	"fmt"
)

// Sentinel errors for estimation failures. None of them are fatal to the pipeline.
var (
	// ErrZeroBoxHeight is returned when the box has no height.
	ErrZeroBoxHeight = errors.New("distance: box height must be positive")

	// ErrNoSensorHeight is returned when the physical sensor height is unknown.
	ErrNoSensorHeight = errors.New("distance: sensor physical height unavailable")

	// ErrNoFocalLength is returned when the focal length is unknown.
	ErrNoFocalLength = errors.New("distance: focal length unavailable")

	// ErrNoPreviewHeight is returned when the preview frame height is not set.
	ErrNoPreviewHeight = errors.New("distance: preview height must be positive")

	// ErrNoReferenceHeight is returned when a label has no known real-world height.
	ErrNoReferenceHeight = errors.New("distance: no reference height for label")
)

// EstimationError wraps an estimation failure with the label it happened for.
type EstimationError struct {
	Label string
	Err   error
}

// Error implements the error interface.
func (e *EstimationError) Error() string {
	return fmt.Sprintf("distance [%s]: %v", e.Label, e.Err)
}

// Unwrap returns the underlying error.
func (e *EstimationError) Unwrap() error {
	return e.Err
}
