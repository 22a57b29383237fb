package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/teslashibe/go-rangefinder/pkg/tts"
)

// Sink plays synthesized audio. Play blocks until playback finishes.
type Sink interface {
	Play(ctx context.Context, audio *tts.AudioResult) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, audio *tts.AudioResult) error

// Play calls f.
func (f SinkFunc) Play(ctx context.Context, audio *tts.AudioResult) error {
	return f(ctx, audio)
}

// Discard drops audio. Useful when only the dashboard should show announcements.
type Discard struct{}

// Play does nothing.
func (Discard) Play(ctx context.Context, audio *tts.AudioResult) error {
	return nil
}

// Player pipes audio into an external player's stdin, such as ffplay.
type Player struct {
	Command string
	Args    []string

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func()

	mu sync.Mutex // One clip at a time
}

// NewFFPlay returns a Player that decodes any format ffmpeg understands.
func NewFFPlay() *Player {
	return &Player{
		Command: "ffplay",
		Args:    []string{"-nodisp", "-autoexit", "-loglevel", "error", "-i", "pipe:0"},
	}
}

// Play writes the audio to the player and waits for it to exit.
func (p *Player) Play(ctx context.Context, audio *tts.AudioResult) error {
	if audio == nil || len(audio.Audio) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	args := p.Args
	if audio.Format.Encoding == tts.EncodingPCM {
		// Raw PCM carries no header, so the player must be told its layout.
		args = append([]string{"-f", "s16le", "-ar", fmt.Sprint(audio.Format.SampleRate), "-ac", "1"}, args...)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Command, args...)
	cmd.Stdin = bytes.NewReader(audio.Audio)
	cmd.Stderr = &stderr

	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart()
	}
	err := cmd.Run()
	if p.OnPlaybackEnd != nil {
		p.OnPlaybackEnd()
	}
	if err != nil {
		return fmt.Errorf("playback via %s: %w: %s", p.Command, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
