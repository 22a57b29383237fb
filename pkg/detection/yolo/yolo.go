// Package yolo runs a YOLO ONNX model through the OpenCV DNN module.
package yolo

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-rangefinder/pkg/detection"
	"github.com/teslashibe/go-rangefinder/pkg/geometry"
)

// Config holds YOLO detector configuration
type Config struct {
	detection.Config

	// ScoreFloor is the minimum class score kept before NMS. The pipeline applies
	// its own, usually higher, threshold afterwards.
	ScoreFloor float32

	Logger *slog.Logger
}

// DefaultConfig returns production defaults for a 416x416 model.
func DefaultConfig() Config {
	return Config{
		Config:     detection.DefaultConfig(),
		ScoreFloor: 0.1,
		Logger:     slog.Default(),
	}
}

// Detector uses a YOLO network for general object detection.
type Detector struct {
	net       gocv.Net
	config    Config
	labels    []string
	mu        sync.Mutex
	inputSize image.Point
	logger    *slog.Logger
}

// New loads the model and its labels.
func New(cfg Config) (*Detector, error) {
	if cfg.InputSize <= 0 {
		return nil, fmt.Errorf("input size must be positive, got %d", cfg.InputSize)
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	labels := detection.COCOClasses
	if cfg.LabelsPath != "" {
		loaded, err := detection.LoadLabels(cfg.LabelsPath)
		if err != nil {
			return nil, err
		}
		labels = loaded
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Detector{
		net:       net,
		config:    cfg,
		labels:    labels,
		inputSize: image.Pt(cfg.InputSize, cfg.InputSize),
		logger:    logger.With("component", "detection.yolo"),
	}, nil
}

// Detect runs the network on a crop and returns boxes in crop pixels.
func (d *Detector) Detect(ctx context.Context, crop image.Image) ([]detection.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if crop == nil {
		return nil, fmt.Errorf("nil crop")
	}

	img, err := gocv.ImageToMatRGB(crop)
	if err != nil {
		return nil, fmt.Errorf("convert crop: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Crop is already RGB, so no channel swap
	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	scaleX := float32(img.Cols()) / float32(d.inputSize.X)
	scaleY := float32(img.Rows()) / float32(d.inputSize.Y)

	dets, err := d.parseOutput(output, scaleX, scaleY)
	if err != nil {
		return nil, err
	}

	if len(dets) > 0 {
		d.logger.Debug("yolo found objects", "count", len(dets))
	}
	return dets, nil
}

// parseOutput decodes a [1, 4+C, N] tensor: per candidate a center box followed by class scores.
func (d *Detector) parseOutput(output gocv.Mat, scaleX, scaleY float32) ([]detection.Detection, error) {
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}
	cols := sizes[1] // 4 bbox + classes
	rows := sizes[2] // candidates

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	var boxes []image.Rectangle
	var confidences []float32
	var classIDs []int

	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		maxClassID := 0

		for c := 4; c < cols; c++ {
			score := data[c*rows+i]
			if score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}

		if maxScore < d.config.ScoreFloor {
			continue
		}

		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		x1 := int((cx - w/2) * scaleX)
		y1 := int((cy - h/2) * scaleY)
		x2 := int((cx + w/2) * scaleX)
		y2 := int((cy + h/2) * scaleY)

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClassID)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.config.ScoreFloor, float32(d.config.NMSThresh))

	dets := make([]detection.Detection, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx]
		dets = append(dets, detection.Detection{
			Label:      detection.LabelFor(d.labels, classIDs[idx]),
			Confidence: float64(confidences[idx]),
			Box: geometry.Rect{
				Left:   float64(box.Min.X),
				Top:    float64(box.Min.Y),
				Right:  float64(box.Max.X),
				Bottom: float64(box.Max.Y),
			},
		})
	}
	return dets, nil
}

// Labels returns the class names the detector reports.
func (d *Detector) Labels() []string {
	return d.labels
}

// Close releases the detector resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

var _ detection.Detector = (*Detector)(nil)
