// Package tts turns announcement text into audio.
//
// Providers share one interface so the speaker can fall back from a cloud voice
// to a local synthesizer without changing caller code:
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceNova),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "person is located at 385 centimeters")
package tts

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to a complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider availability.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	Audio     []byte
	Format    AudioFormat
	Duration  time.Duration // Estimated playback length, zero if unknown
	CharCount int
	LatencyMs int64
	Provider  string
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
	BitDepth   int // PCM only
}

// Encoding represents audio container/codec types.
type Encoding string

const (
	EncodingMP3  Encoding = "mp3"
	EncodingWAV  Encoding = "wav"
	EncodingPCM  Encoding = "pcm" // Raw 24kHz mono PCM16
	EncodingOpus Encoding = "opus"
)

// ParseEncoding maps a name such as "wav" to an Encoding.
func ParseEncoding(name string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(strings.TrimSpace(name))); e {
	case EncodingMP3, EncodingWAV, EncodingPCM, EncodingOpus:
		return e, nil
	}
	return "", fmt.Errorf("unknown audio encoding %q", name)
}

// Extension returns the file extension players expect for the encoding.
func (e Encoding) Extension() string {
	switch e {
	case EncodingWAV:
		return ".wav"
	case EncodingPCM:
		return ".pcm"
	case EncodingOpus:
		return ".opus"
	default:
		return ".mp3"
	}
}
