package detection

import (
	"context"
	"errors"
	"image"
	"sync"
)

// ErrNoDetectFunc is returned by Mock when DetectFunc is nil.
var ErrNoDetectFunc = errors.New("detection: mock has no DetectFunc")

// Mock implements Detector for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(ctx context.Context, crop image.Image) ([]Detection, error)

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMock returns a mock that always reports dets.
func NewMock(dets ...Detection) *Mock {
	return &Mock{
		DetectFunc: func(ctx context.Context, crop image.Image) ([]Detection, error) {
			out := make([]Detection, len(dets))
			copy(out, dets)
			return out, nil
		},
	}
}

// Detect calls DetectFunc and counts the call.
func (m *Mock) Detect(ctx context.Context, crop image.Image) ([]Detection, error) {
	m.mu.Lock()
	m.calls++
	fn := m.DetectFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, ErrNoDetectFunc
	}
	return fn(ctx, crop)
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns how many times Detect was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Detector at compile time.
var _ Detector = (*Mock)(nil)
