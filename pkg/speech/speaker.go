// Package speech speaks distance announcements. It consumes the pipeline's
// announcement channel on its own goroutine, so synthesis and playback never
// hold up frame processing.
package speech

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-rangefinder/pkg/pipeline"
	"github.com/teslashibe/go-rangefinder/pkg/tts"
)

// Config controls announcement pacing.
type Config struct {
	// Flush keeps only the newest queued announcement per track. Every track
	// with a pending announcement is still spoken, in arrival order.
	Flush bool

	// Timeout bounds synthesis plus playback of one announcement.
	Timeout time.Duration
}

// DefaultConfig flushes stale repeats per track.
func DefaultConfig() Config {
	return Config{
		Flush:   true,
		Timeout: 20 * time.Second,
	}
}

// Stats counts what the speaker did with the announcements it received.
type Stats struct {
	Received uint64 `json:"received"`
	Spoken   uint64 `json:"spoken"`
	Skipped  uint64 `json:"skipped"`
	Failed   uint64 `json:"failed"`
}

// Speaker turns announcements into audio.
type Speaker struct {
	config   Config
	provider tts.Provider
	sink     Sink
	logger   *slog.Logger

	// OnSpoken is called after an announcement finished playing.
	OnSpoken func(a pipeline.Announcement)

	received atomic.Uint64
	spoken   atomic.Uint64
	skipped  atomic.Uint64
	failed   atomic.Uint64
}

// NewSpeaker creates a speaker. A nil sink discards audio.
func NewSpeaker(cfg Config, provider tts.Provider, sink Sink, logger *slog.Logger) *Speaker {
	if sink == nil {
		sink = Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		config:   cfg,
		provider: provider,
		sink:     sink,
		logger:   logger.With("component", "speech"),
	}
}

// Run speaks announcements until the channel is closed or ctx is done.
// Announcements still queued when the channel closes are spoken first.
func (s *Speaker) Run(ctx context.Context, announcements <-chan pipeline.Announcement) error {
	var queue []pipeline.Announcement
	open := true
	for {
		if len(queue) == 0 {
			if !open {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case a, ok := <-announcements:
				if !ok {
					return nil
				}
				queue = s.enqueue(queue, a)
			}
		}

		queue, open = s.drain(queue, announcements, open)
		if err := ctx.Err(); err != nil {
			return err
		}

		next := queue[0]
		queue = queue[1:]
		s.Speak(ctx, next)
	}
}

// drain moves everything already waiting on the channel into queue.
func (s *Speaker) drain(queue []pipeline.Announcement, announcements <-chan pipeline.Announcement, open bool) ([]pipeline.Announcement, bool) {
	for open {
		select {
		case a, ok := <-announcements:
			if !ok {
				return queue, false
			}
			queue = s.enqueue(queue, a)
		default:
			return queue, true
		}
	}
	return queue, false
}

// enqueue appends a. With Flush, an announcement for a track that is already
// queued replaces the older one in place.
func (s *Speaker) enqueue(queue []pipeline.Announcement, a pipeline.Announcement) []pipeline.Announcement {
	s.received.Add(1)
	if s.config.Flush {
		for i := range queue {
			if queue[i].TrackID == a.TrackID {
				queue[i] = a
				s.skipped.Add(1)
				return queue
			}
		}
	}
	return append(queue, a)
}

// Speak synthesizes and plays one announcement. Failures are logged and counted.
func (s *Speaker) Speak(ctx context.Context, a pipeline.Announcement) bool {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	text := a.Text()
	audio, err := s.provider.Synthesize(ctx, text)
	if err != nil {
		s.failed.Add(1)
		s.logger.Warn("synthesis failed", "track", a.TrackID, "error", err)
		return false
	}
	if err := s.sink.Play(ctx, audio); err != nil {
		s.failed.Add(1)
		s.logger.Warn("playback failed", "track", a.TrackID, "error", err)
		return false
	}

	s.spoken.Add(1)
	s.logger.Info("announced", "track", a.TrackID, "text", text)
	if s.OnSpoken != nil {
		s.OnSpoken(a)
	}
	return true
}

// Stats returns the current counters.
func (s *Speaker) Stats() Stats {
	return Stats{
		Received: s.received.Load(),
		Spoken:   s.spoken.Load(),
		Skipped:  s.skipped.Load(),
		Failed:   s.failed.Load(),
	}
}
