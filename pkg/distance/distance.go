// Package distance estimates how far away a detected object is from the size of
// its bounding box, the camera intrinsics and a per-label reference height.
package distance

import "math"

// Unit is the linear unit distances are reported in. It is the unit of the
// reference heights.
const Unit = "centimeters"

// Estimate is one successful distance computation.
type Estimate struct {
	Name     string  `json:"name"`     // Display name without height suffix
	Distance float64 `json:"distance"` // In Unit
}

// Estimator turns box heights into distances.
type Estimator struct {
	References    ReferenceHeights
	PreviewHeight int // Preview frame height in pixels
}

// NewEstimator creates an estimator for frames of the given pixel height.
// A nil refs map relies on label suffixes only.
func NewEstimator(refs ReferenceHeights, previewHeight int) *Estimator {
	if refs == nil {
		refs = ReferenceHeights{}
	}
	return &Estimator{References: refs, PreviewHeight: previewHeight}
}

// Estimate computes
//
//	distance = focal × referenceHeight × previewHeight / (boxHeight × sensorHeight)
//
// and returns an *EstimationError when any input is missing or zero.
func (e *Estimator) Estimate(label string, boxHeight float64, intr Intrinsics) (Estimate, error) {
	name, ref, ok := e.References.Lookup(label)
	switch {
	case !(boxHeight > 0):
		return Estimate{}, &EstimationError{Label: label, Err: ErrZeroBoxHeight}
	case e.PreviewHeight <= 0:
		return Estimate{}, &EstimationError{Label: label, Err: ErrNoPreviewHeight}
	case !ok:
		return Estimate{}, &EstimationError{Label: label, Err: ErrNoReferenceHeight}
	}
	if err := intr.Validate(); err != nil {
		return Estimate{}, &EstimationError{Label: label, Err: err}
	}

	d := (intr.FocalLength * ref * float64(e.PreviewHeight)) / (boxHeight * intr.SensorHeight)
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return Estimate{}, &EstimationError{Label: label, Err: ErrZeroBoxHeight}
	}
	return Estimate{Name: name, Distance: d}, nil
}

// Round returns the distance rounded to the nearest whole unit.
func Round(d float64) int {
	return int(math.Round(d))
}

// Category returns a human-readable distance category for a distance in centimeters.
func Category(d float64) string {
	if d <= 0 {
		return "unknown"
	}
	if d < 50 {
		return "very close"
	}
	if d < 100 {
		return "close"
	}
	if d < 200 {
		return "nearby"
	}
	if d < 300 {
		return "moderate"
	}
	return "far"
}
