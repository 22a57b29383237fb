// Package detection defines raw model detections, the confidence filter that moves
// them into camera-frame space, and the Detector interface inference backends implement.
package detection

import (
	"context"
	"image"

	"github.com/teslashibe/go-rangefinder/pkg/geometry"
)

// Detection is one raw inference result. Box is in model-input (crop) pixels.
type Detection struct {
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"` // 0-1
	Box        geometry.Rect `json:"box"`
}

// FrameDetection is a Detection that passed the confidence threshold and whose
// box has been mapped into camera-frame pixels.
type FrameDetection struct {
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"`
	Box        geometry.Rect `json:"box"` // Frame space
	Raw        geometry.Rect `json:"raw"` // Original crop-space box
}

// Detector is the interface for inference backends.
type Detector interface {
	// Detect runs the model on a crop of the configured input size and returns
	// boxes in crop coordinates.
	Detect(ctx context.Context, crop image.Image) ([]Detection, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	ModelPath        string  // Path to ONNX model
	LabelsPath       string  // Optional labels file, one per line
	ConfidenceThresh float64 // Minimum confidence kept by the pipeline (default 0.5)
	NMSThresh        float64 // Non-maximum suppression overlap
	InputSize        int     // Square model input side in pixels
}

// DefaultConfig returns defaults for a 416x416 YOLOv4-style model.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov4-416.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputSize:        416,
	}
}
