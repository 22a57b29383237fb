// Package camera describes the camera feeding the rangefinder: its runtime
// configuration, the frames it produces and how they are cropped for inference.
package camera

import (
	"github.com/teslashibe/go-rangefinder/pkg/distance"
)

// Config holds the camera parameters the pipeline depends on.
// These can be modified via the dashboard API at runtime.
type Config struct {
	// === Preview ===
	Width     int `json:"width"`     // Preview width in pixels
	Height    int `json:"height"`    // Preview height in pixels
	Framerate int `json:"framerate"` // Target FPS

	// === Orientation ===
	// SensorRotation is how far the sensor is mounted from the display's
	// natural orientation, in degrees clockwise.
	SensorRotation int `json:"sensor_rotation"`

	// ScreenOrientation is the current display rotation in degrees.
	ScreenOrientation int `json:"screen_orientation"`

	// === Intrinsics ===
	// Both in millimeters. Zero means unknown.
	FocalLength  float64 `json:"focal_length"`
	SensorHeight float64 `json:"sensor_height"`

	// Quality is the JPEG quality used when re-encoding frames for the dashboard.
	Quality int `json:"quality"`
}

// Capture limits
const (
	MaxWidth     = 4096
	MaxHeight    = 4096
	MaxFramerate = 120
)

// DefaultConfig returns the 640x480 preview the detector was tuned against.
func DefaultConfig() Config {
	return Config{
		Width:     640,
		Height:    480,
		Framerate: 30,
		Quality:   80,

		SensorRotation:    90,
		ScreenOrientation: 0,

		// Typical phone-class main camera
		FocalLength:  4.25,
		SensorHeight: 3.6,
	}
}

// Rotation returns the angle frames must be turned to appear upright.
func (c Config) Rotation() int {
	return SensorOrientation(c.SensorRotation, c.ScreenOrientation)
}

// Intrinsics returns the configured focal length and sensor height.
func (c Config) Intrinsics() distance.Intrinsics {
	return distance.Intrinsics{FocalLength: c.FocalLength, SensorHeight: c.SensorHeight}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < 16 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 16 and 4096")
	}
	if c.Height < 16 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 16 and 4096")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.SensorRotation%90 != 0 {
		errors = append(errors, "sensor_rotation must be a multiple of 90")
	}
	if c.ScreenOrientation%90 != 0 {
		errors = append(errors, "screen_orientation must be a multiple of 90")
	}
	if c.FocalLength < 0 {
		errors = append(errors, "focal_length must not be negative")
	}
	if c.SensorHeight < 0 {
		errors = append(errors, "sensor_height must not be negative")
	}

	return errors
}

// SensorOrientation combines the sensor mounting angle with the screen
// orientation into the rotation applied to frames, folded into [0, 360).
func SensorOrientation(sensorRotation, screenOrientation int) int {
	r := (sensorRotation - screenOrientation) % 360
	if r < 0 {
		r += 360
	}
	return r
}
