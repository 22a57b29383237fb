// Package yunet detects faces with OpenCV's FaceDetectorYN.
package yunet

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

// Label is the class name given to every detection.
const Label = "face"

// Config holds YuNet configuration.
type Config struct {
	ModelPath        string
	InputSize        int     // Square crop side the detector expects
	ConfidenceThresh float64 // Score threshold inside the detector
	NMSThresh        float64
	TopK             int
	Logger           *slog.Logger
}

// DefaultConfig returns defaults for the 2023mar YuNet model.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet_2023mar.onnx",
		InputSize:        416,
		ConfidenceThresh: 0.5,
		NMSThresh:        0.3,
		TopK:             5000,
		Logger:           slog.Default(),
	}
}

// Detector finds faces and reports them under Label.
type Detector struct {
	detector gocv.FaceDetectorYN
	size     image.Point
	logger   *slog.Logger
	mu       sync.Mutex // Protects inference
}

// New loads the model.
func New(cfg Config) (*Detector, error) {
	if cfg.InputSize <= 0 {
		return nil, fmt.Errorf("input size must be positive, got %d", cfg.InputSize)
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	size := image.Pt(cfg.InputSize, cfg.InputSize)
	fd := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"", // ONNX needs no config file
		size,
		float32(cfg.ConfidenceThresh),
		float32(cfg.NMSThresh),
		cfg.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &Detector{
		detector: fd,
		size:     size,
		logger:   logger.With("component", "detection.yunet"),
	}, nil
}

// Detect finds faces in the crop and returns their boxes in crop pixels.
func (d *Detector) Detect(ctx context.Context, crop image.Image) ([]detection.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if crop == nil {
		return nil, fmt.Errorf("nil crop")
	}

	rgb, err := gocv.ImageToMatRGB(crop)
	if err != nil {
		return nil, fmt.Errorf("convert crop: %w", err)
	}
	defer rgb.Close()
	if rgb.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	img := gocv.NewMat()
	defer img.Close()
	gocv.CvtColor(rgb, &img, gocv.ColorRGBToBGR)

	d.mu.Lock()
	defer d.mu.Unlock()

	if pt := image.Pt(img.Cols(), img.Rows()); pt != d.size {
		d.detector.SetInputSize(pt)
		d.size = pt
	}

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(img, &faces)

	return parseFaces(faces), nil
}

// parseFaces reads the 15-column YuNet output: x, y, w, h, five landmark
// pairs, then the score.
func parseFaces(faces gocv.Mat) []detection.Detection {
	dets := make([]detection.Detection, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		x := float64(faces.GetFloatAt(r, 0))
		y := float64(faces.GetFloatAt(r, 1))
		w := float64(faces.GetFloatAt(r, 2))
		h := float64(faces.GetFloatAt(r, 3))
		dets = append(dets, detection.Detection{
			Label:      Label,
			Confidence: float64(faces.GetFloatAt(r, 14)),
			Box:        geometry.Rect{Left: x, Top: y, Right: x + w, Bottom: y + h},
		})
	}
	return dets
}

// Close releases the detector.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

var _ detection.Detector = (*Detector)(nil)
