package tracking

import (
	"errors"
	"fmt"
)

// Config holds all tunable parameters for detection-to-track association
type Config struct {
	// Association
	MinIoU float64 // Minimum overlap for a detection to continue a track

	// Aging, counted in updates since the track was last matched
	StaleAfter int // Confirmed → Stale once age exceeds this
	MaxAge     int // Staleness limit: evicted once age exceeds this

	// Smoothing
	ConfidenceSmoothing float64 // Weight of the new confidence (0-1, 1 = latest only)
}

// DefaultConfig returns the recommended configuration for a ~10 Hz detection loop
func DefaultConfig() Config {
	return Config{
		MinIoU:              0.3,
		StaleAfter:          1,   // Stale after a single missed frame
		MaxAge:              10,  // Forget after ~1s without a match
		ConfidenceSmoothing: 0.7, // 70% new, 30% old
	}
}

// StrictConfig demands tighter overlap and forgets quickly.
// Suited to crowded scenes where identity swaps are worse than re-creation.
func StrictConfig() Config {
	cfg := DefaultConfig()
	cfg.MinIoU = 0.5
	cfg.MaxAge = 3
	cfg.ConfidenceSmoothing = 1.0
	return cfg
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("tracking: invalid config")

// Validate checks that the parameters are usable.
func (c Config) Validate() error {
	if c.MinIoU <= 0 || c.MinIoU > 1 {
		return fmt.Errorf("%w: MinIoU %.2f must be in (0, 1]", ErrInvalidConfig, c.MinIoU)
	}
	if c.StaleAfter < 0 {
		return fmt.Errorf("%w: StaleAfter %d must not be negative", ErrInvalidConfig, c.StaleAfter)
	}
	if c.MaxAge < c.StaleAfter {
		return fmt.Errorf("%w: MaxAge %d must be >= StaleAfter %d", ErrInvalidConfig, c.MaxAge, c.StaleAfter)
	}
	if c.ConfidenceSmoothing <= 0 || c.ConfidenceSmoothing > 1 {
		return fmt.Errorf("%w: ConfidenceSmoothing %.2f must be in (0, 1]", ErrInvalidConfig, c.ConfidenceSmoothing)
	}
	return nil
}
