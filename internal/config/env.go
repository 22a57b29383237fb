// Package config provides environment helpers for go-rangefinder commands.
// Flags take their defaults from these, so either can configure a run.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables read by the commands.
const (
	EnvSource    = "RANGEFINDER_SOURCE"  // Camera index, video file or ws:// feed
	EnvModel     = "RANGEFINDER_MODEL"   // ONNX model path
	EnvLabels    = "RANGEFINDER_LABELS"  // Class names, one per line
	EnvPort      = "RANGEFINDER_PORT"    // Dashboard port
	EnvLogLevel  = "RANGEFINDER_LOG"     // debug, info, warn, error
	EnvPreset    = "RANGEFINDER_PRESET"  // Camera preset name
	EnvVoice     = "RANGEFINDER_VOICE"   // TTS voice
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// Defaults used when neither flag nor environment is set.
const (
	DefaultSource = "0"
	DefaultPort   = 8080
	DefaultLog    = "info"
)

// String returns the value of key, or def when unset or blank.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Int returns key parsed as an integer, or def when unset or invalid.
func Int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Float returns key parsed as a float, or def when unset or invalid.
func Float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Bool returns key parsed as a boolean, or def when unset or invalid.
func Bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// OpenAIKey returns the OpenAI API key, empty when unset.
func OpenAIKey() string {
	return String(EnvOpenAIKey, "")
}
