package cv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-rangefinder/pkg/camera"
)

// Capture reads frames from a camera device or a video file.
type Capture struct {
	device string
	logger *slog.Logger

	mu      sync.Mutex
	capture *gocv.VideoCapture
	mat     gocv.Mat
	seq     uint64
	closed  bool
}

// Open opens device, which is either a path to a video file or a camera index.
func Open(device string, logger *slog.Logger) (*Capture, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var vc *gocv.VideoCapture
	var err error
	if _, statErr := os.Stat(device); statErr == nil {
		vc, err = gocv.VideoCaptureFile(device)
	} else {
		id, convErr := strconv.Atoi(device)
		if convErr != nil {
			return nil, fmt.Errorf("device %q is neither a file nor a camera index", device)
		}
		vc, err = gocv.VideoCaptureDevice(id)
	}
	if err != nil {
		return nil, fmt.Errorf("open capture %q: %w", device, err)
	}

	c := &Capture{
		device:  device,
		logger:  logger.With("component", "camera.capture", "device", device),
		capture: vc,
		mat:     gocv.NewMat(),
	}
	c.logger.Info("capture opened",
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)),
		"fps", vc.Get(gocv.VideoCaptureFPS),
	)
	return c, nil
}

// SetSize asks the device for a preview size. Files ignore it.
func (c *Capture) SetSize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	c.capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
}

// FrameCount reports the number of frames in a video file, or 0 for live devices.
func (c *Capture) FrameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := int(c.capture.Get(gocv.VideoCaptureFrameCount))
	if n < 0 {
		return 0
	}
	return n
}

// Read grabs the next frame.
func (c *Capture) Read(ctx context.Context) (camera.Frame, error) {
	if err := ctx.Err(); err != nil {
		return camera.Frame{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return camera.Frame{}, camera.ErrSourceClosed
	}
	if ok := c.capture.Read(&c.mat); !ok || c.mat.Empty() {
		return camera.Frame{}, camera.ErrSourceClosed
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return camera.Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	c.seq++
	return camera.NewFrame(img, c.seq, nil), nil
}

// Close releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.mat.Close()
	return c.capture.Close()
}
