package tts

import (
	"context"
	"sync"
)

// Mock implements Provider for testing.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns a short silent PCM buffer.
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)

	// HealthFunc is called when Health is invoked. If nil, healthy.
	HealthFunc func(ctx context.Context) error

	mu     sync.Mutex
	texts  []string
	closed bool
}

// NewMock creates a mock that returns silence.
func NewMock() *Mock {
	return &Mock{}
}

// WithError returns a mock whose Synthesize and Health always fail with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text string) (*AudioResult, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Synthesize records text and calls SynthesizeFunc.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	fn := m.SynthesizeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	// ~20ms of 24kHz PCM16 per character
	return &AudioResult{
		Audio:     make([]byte, len(text)*960),
		Format:    AudioFormat{Encoding: EncodingPCM, SampleRate: 24000, Channels: 1, BitDepth: 16},
		CharCount: len(text),
		Provider:  "mock",
	}, nil
}

// Health calls HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Texts returns every text passed to Synthesize, in order.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Provider = (*Mock)(nil)
