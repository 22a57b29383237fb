package camera

// Preset names for common configurations
const (
	PresetDefault   = "default"
	PresetLandscape = "landscape"
	Preset720p      = "720p"
	Preset1080p     = "1080p"
	PresetWebcam    = "webcam"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:   DefaultConfig(),
		PresetLandscape: LandscapeConfig(),
		Preset720p:      HD720Config(),
		Preset1080p:     HD1080Config(),
		PresetWebcam:    WebcamConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLandscape,
		Preset720p,
		Preset1080p,
		PresetWebcam,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// LandscapeConfig is the default preview with the device turned sideways.
func LandscapeConfig() Config {
	cfg := DefaultConfig()
	cfg.ScreenOrientation = 90
	return cfg
}

// HD720Config returns 720p configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p configuration.
// More pixels per object, slower crops.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// WebcamConfig matches a desktop USB webcam: upright sensor, wider lens.
func WebcamConfig() Config {
	cfg := DefaultConfig()
	cfg.SensorRotation = 0
	cfg.FocalLength = 3.67
	cfg.SensorHeight = 2.74
	return cfg
}
