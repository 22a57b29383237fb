package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const providerCommand = "command"

// Command synthesizes speech with a local binary that writes WAV to stdout,
// such as espeak-ng. It needs no network and serves as the fallback voice.
type Command struct {
	name   string
	args   []string
	speed  float64
	logger *slog.Logger
}

// NewEspeak returns a Command provider for espeak-ng.
func NewEspeak(opts ...Option) (*Command, error) {
	return NewCommand("espeak-ng", []string{"--stdout"}, opts...)
}

// NewCommand returns a provider running name with args followed by the text.
// The binary must exist on PATH.
func NewCommand(name string, args []string, opts ...Option) (*Command, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	return &Command{
		name:   path,
		args:   args,
		speed:  cfg.Speed,
		logger: cfg.Logger.With("component", "tts.command", "command", name),
	}, nil
}

// Synthesize runs the command and returns its stdout as WAV audio.
func (c *Command) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerCommand, ErrEmptyText)
	}
	start := time.Now()

	args := append([]string{}, c.args...)
	if c.speed > 0 && c.speed != 1 {
		// espeak words per minute, 175 is its default
		args = append(args, "-s", strconv.Itoa(int(175*c.speed)))
	}
	args = append(args, text)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, WrapError(providerCommand, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	latency := time.Since(start).Milliseconds()
	c.logger.Debug("synthesized audio", "chars", len(text), "bytes", stdout.Len(), "latency_ms", latency)

	return &AudioResult{
		Audio: stdout.Bytes(),
		Format: AudioFormat{
			Encoding:   EncodingWAV,
			SampleRate: 22050,
			Channels:   1,
			BitDepth:   16,
		},
		CharCount: len(text),
		LatencyMs: latency,
		Provider:  providerCommand,
	}, nil
}

// Health reports whether the binary is still on PATH.
func (c *Command) Health(ctx context.Context) error {
	if _, err := exec.LookPath(c.name); err != nil {
		return WrapError(providerCommand, ErrCommandNotFound)
	}
	return nil
}

// Close is a no-op.
func (c *Command) Close() error {
	return nil
}

var _ Provider = (*Command)(nil)
