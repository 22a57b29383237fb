package camera

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/go-rangefinder/pkg/distance"
)

// ErrUnknownPreset is returned by UpdateConfig for a preset name that does not exist.
var ErrUnknownPreset = errors.New("camera: unknown preset")

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Callback when config changes (for reconfiguring the pipeline)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a new camera manager with the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig updates the camera configuration.
func (m *Manager) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	m.mu.Lock()
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	return nil
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values, as decoded from JSON.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("%w: %s", ErrUnknownPreset, presetName)
		}
		cfg = *preset
	}

	for key, value := range params {
		switch key {
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				cfg.Framerate = v
			}
		case "quality":
			if v, ok := toInt(value); ok {
				cfg.Quality = v
			}
		case "sensor_rotation":
			if v, ok := toInt(value); ok {
				cfg.SensorRotation = v
			}
		case "screen_orientation":
			if v, ok := toInt(value); ok {
				cfg.ScreenOrientation = v
			}
		case "focal_length":
			if v, ok := toFloat(value); ok {
				cfg.FocalLength = v
			}
		case "sensor_height":
			if v, ok := toFloat(value); ok {
				cfg.SensorHeight = v
			}
		}
	}

	return m.SetConfig(cfg)
}

// Intrinsics reports the configured intrinsics, so a Manager can back a
// distance.LazyIntrinsics.
func (m *Manager) Intrinsics(ctx context.Context) (distance.Intrinsics, error) {
	intr := m.GetConfig().Intrinsics()
	if err := intr.Validate(); err != nil {
		return distance.Intrinsics{}, err
	}
	return intr, nil
}

// GetConfigJSON returns the current config as a map for JSON serialization.
func (m *Manager) GetConfigJSON() map[string]interface{} {
	cfg := m.GetConfig()

	data, _ := json.Marshal(cfg)
	var result map[string]interface{}
	_ = json.Unmarshal(data, &result)
	result["rotation"] = cfg.Rotation()

	return result
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
