package detection

import "github.com/teslashibe/go-rangefinder/pkg/geometry"

// Filter keeps detections with Confidence >= minConfidence, maps each surviving box
// through cropToFrame exactly once, and drops boxes that collapse to nothing.
// Output order follows input order.
func Filter(raw []Detection, minConfidence float64, cropToFrame geometry.Transform) []FrameDetection {
	out := make([]FrameDetection, 0, len(raw))
	for _, d := range raw {
		if d.Confidence < minConfidence {
			continue
		}
		box := cropToFrame.MapRect(d.Box)
		if box.Empty() {
			continue
		}
		out = append(out, FrameDetection{
			Label:      d.Label,
			Confidence: d.Confidence,
			Box:        box,
			Raw:        d.Box,
		})
	}
	return out
}
