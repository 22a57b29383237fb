package camera

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"
)

// ErrSourceClosed is returned by Read once a source has been closed or exhausted.
var ErrSourceClosed = errors.New("camera: source closed")

// Frame is a single preview image. Release must be called exactly once when
// the consumer is done with it; the source may not deliver the next frame
// until then.
type Frame struct {
	Image     image.Image
	Seq       uint64
	Timestamp time.Time

	release func()
	once    *sync.Once
}

// NewFrame wraps img. release may be nil.
func NewFrame(img image.Image, seq uint64, release func()) Frame {
	return Frame{
		Image:     img,
		Seq:       seq,
		Timestamp: time.Now(),
		release:   release,
		once:      &sync.Once{},
	}
}

// Width of the frame in pixels.
func (f Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height of the frame in pixels.
func (f Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// Release hands the frame back to its source. Extra calls are no-ops.
func (f Frame) Release() {
	if f.once == nil || f.release == nil {
		return
	}
	f.once.Do(f.release)
}

// Source produces preview frames.
type Source interface {
	// Read blocks until a frame is available.
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Cropper turns a preview frame into a model input using a frame→crop affine
// transform laid out as [a b c; d e f].
type Cropper interface {
	Crop(ctx context.Context, frame image.Image, affine [6]float64, width, height int) (image.Image, error)
}
