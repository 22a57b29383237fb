package camera

import (
	"context"
	"image"
	"sync"
)

// ImageSource replays a fixed list of images, then reports ErrSourceClosed.
type ImageSource struct {
	mu     sync.Mutex
	images []image.Image
	next   int
	closed bool
}

// NewImageSource returns a source over imgs.
func NewImageSource(imgs ...image.Image) *ImageSource {
	return &ImageSource{images: imgs}
}

// Read returns the next image.
func (s *ImageSource) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.next >= len(s.images) {
		return Frame{}, ErrSourceClosed
	}
	img := s.images[s.next]
	s.next++
	return NewFrame(img, uint64(s.next), nil), nil
}

// Close stops the replay.
func (s *ImageSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
