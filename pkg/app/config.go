// Package app wires a camera source, detector, pipeline, speaker and dashboard
// into a running rangefinder.
package app

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-rangefinder/internal/config"
	"github.com/teslashibe/go-rangefinder/pkg/camera"
	"github.com/teslashibe/go-rangefinder/pkg/pipeline"
	"github.com/teslashibe/go-rangefinder/pkg/tts"
)

// TTS modes.
const (
	TTSAuto   = "auto"   // OpenAI when a key is set, espeak-ng as fallback
	TTSOpenAI = "openai" // OpenAI only
	TTSEspeak = "espeak" // espeak-ng only
	TTSNone   = "none"   // Announcements are logged, not spoken
)

// Detectors.
const (
	DetectorYOLO  = "yolo"  // General objects, COCO classes by default
	DetectorYuNet = "yunet" // Faces only
)

// Croppers.
const (
	CropperGoCV = "gocv"
	CropperDraw = "draw"
)

// Config holds all configuration for a rangefinder run.
// Flag parsing is done in cmd/rangefinder; this struct is data only.
type Config struct {
	// Source is a camera index, a video file or a ws:// frame feed.
	Source string

	// Model and class names. LabelsPath applies to YOLO only.
	Detector   string
	ModelPath  string
	LabelsPath string

	// Preset names the starting camera configuration.
	Preset string
	Camera camera.Config

	Pipeline pipeline.Config
	Cropper  string

	// Speech. TTSModel and TTSFormat apply to OpenAI only.
	TTSMode   string
	TTSModel  string
	TTSFormat string
	Voice     string
	Player    string // Audio player command, empty disables playback
	OpenAIKey string

	// Dashboard. Port 0 disables it.
	Port      int
	StaticDir string
}

// DefaultConfig returns the defaults used when no flag or environment overrides them.
func DefaultConfig() Config {
	return Config{
		Source:   config.DefaultSource,
		Detector: DetectorYOLO,
		Preset:   "default",
		Camera:   camera.DefaultConfig(),
		Pipeline: pipeline.DefaultConfig(),
		Cropper:  CropperGoCV,
		TTSMode:  TTSAuto,
		Player:   "ffplay",
		Port:     config.DefaultPort,
	}
}

// LoadEnvConfig fills unset values from the environment.
// Call this after flag parsing so flags win.
func (c *Config) LoadEnvConfig() {
	if c.Source == "" {
		c.Source = config.String(config.EnvSource, config.DefaultSource)
	}
	if c.ModelPath == "" {
		c.ModelPath = config.String(config.EnvModel, "")
	}
	if c.LabelsPath == "" {
		c.LabelsPath = config.String(config.EnvLabels, "")
	}
	if c.Voice == "" {
		c.Voice = config.String(config.EnvVoice, "")
	}
	if c.OpenAIKey == "" {
		c.OpenAIKey = config.OpenAIKey()
	}
}

// ApplyPreset replaces the camera configuration with the named preset.
func (c *Config) ApplyPreset(name string) error {
	preset := camera.GetPreset(name)
	if preset == nil {
		return &ConfigError{
			Field:   "Preset",
			Message: fmt.Sprintf("unknown preset %q (available: %s)", name, strings.Join(camera.PresetNames(), ", ")),
		}
	}
	c.Preset = name
	c.Camera = *preset
	return nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Source == "" {
		return &ConfigError{Field: "Source", Message: "a camera index, video file or ws:// URL is required"}
	}
	if c.ModelPath == "" {
		return &ConfigError{Field: "ModelPath", Message: config.EnvModel + " or --model is required"}
	}
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "Camera", Message: strings.Join(errs, "; ")}
	}
	if err := c.Pipeline.Validate(); err != nil {
		return &ConfigError{Field: "Pipeline", Message: err.Error()}
	}
	switch c.Detector {
	case DetectorYOLO, DetectorYuNet:
	default:
		return &ConfigError{Field: "Detector", Message: fmt.Sprintf("unknown detector %q", c.Detector)}
	}
	switch c.Cropper {
	case CropperGoCV, CropperDraw:
	default:
		return &ConfigError{Field: "Cropper", Message: fmt.Sprintf("unknown cropper %q", c.Cropper)}
	}
	switch c.TTSMode {
	case TTSAuto, TTSEspeak, TTSNone:
	case TTSOpenAI:
		if c.OpenAIKey == "" {
			return &ConfigError{Field: "OpenAIKey", Message: config.EnvOpenAIKey + " environment variable is required for OpenAI TTS"}
		}
	default:
		return &ConfigError{Field: "TTSMode", Message: fmt.Sprintf("unknown tts mode %q", c.TTSMode)}
	}
	if c.TTSFormat != "" {
		if _, err := tts.ParseEncoding(c.TTSFormat); err != nil {
			return &ConfigError{Field: "TTSFormat", Message: err.Error()}
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &ConfigError{Field: "Port", Message: fmt.Sprintf("port %d out of range", c.Port)}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
