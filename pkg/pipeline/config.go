package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/teslashibe/go-rangefinder/pkg/distance"
	"github.com/teslashibe/go-rangefinder/pkg/tracking"
)

// Config holds the per-pipeline tunables.
type Config struct {
	// Model input
	InputSize      int  // Side of the square model input in pixels
	MaintainAspect bool // Scale uniformly instead of stretching into the crop

	// Filtering
	MinConfidence float64 // Detections below this are dropped

	// Announcements
	// ReannounceDelta is the relative change in rounded distance that triggers a
	// repeat announcement for a track. 0 announces each track once.
	ReannounceDelta float64

	// Channel capacities. Sends never block; when full, values are dropped.
	ResultBuffer       int
	AnnouncementBuffer int

	Tracking tracking.Config
}

// DefaultConfig returns the settings the bundled detector was tuned for.
func DefaultConfig() Config {
	return Config{
		InputSize:          416,
		MaintainAspect:     false,
		MinConfidence:      0.5,
		ReannounceDelta:    0.25,
		ResultBuffer:       4,
		AnnouncementBuffer: 8,
		Tracking:           tracking.DefaultConfig(),
	}
}

// Validate returns an error wrapping ErrInvalidConfig for out-of-range values.
func (c Config) Validate() error {
	if c.InputSize <= 0 {
		return fmt.Errorf("%w: input size must be positive, got %d", ErrInvalidConfig, c.InputSize)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min confidence must be in [0,1], got %v", ErrInvalidConfig, c.MinConfidence)
	}
	if c.ReannounceDelta < 0 {
		return fmt.Errorf("%w: reannounce delta must not be negative", ErrInvalidConfig)
	}
	if c.ResultBuffer < 0 || c.AnnouncementBuffer < 0 {
		return fmt.Errorf("%w: buffer sizes must not be negative", ErrInvalidConfig)
	}
	if err := c.Tracking.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Option configures optional collaborators of a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithReferences replaces the label→height table used for distances.
func WithReferences(refs distance.ReferenceHeights) Option {
	return func(p *Pipeline) {
		p.references = refs
	}
}

// WithSessionID fixes the session identifier reported in results.
func WithSessionID(id uuid.UUID) Option {
	return func(p *Pipeline) {
		p.session = id
	}
}
