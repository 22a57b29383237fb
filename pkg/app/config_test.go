package app

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-rangefinder/internal/config"
	"github.com/teslashibe/go-rangefinder/pkg/tts"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.ModelPath = "models/yolov4-416.onnx"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name  string
		edit  func(c *Config)
		field string
	}{
		{"no source", func(c *Config) { c.Source = "" }, "Source"},
		{"no model", func(c *Config) { c.ModelPath = "" }, "ModelPath"},
		{"bad camera", func(c *Config) { c.Camera.Width = 2 }, "Camera"},
		{"bad pipeline", func(c *Config) { c.Pipeline.InputSize = 0 }, "Pipeline"},
		{"bad detector", func(c *Config) { c.Detector = "ssd" }, "Detector"},
		{"bad cropper", func(c *Config) { c.Cropper = "nearest" }, "Cropper"},
		{"bad tts", func(c *Config) { c.TTSMode = "elevenlabs" }, "TTSMode"},
		{"bad tts format", func(c *Config) { c.TTSFormat = "flac" }, "TTSFormat"},
		{"openai without key", func(c *Config) { c.TTSMode = TTSOpenAI }, "OpenAIKey"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "Port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.edit(&c)

			var cerr *ConfigError
			require.True(t, errors.As(c.Validate(), &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestConfig_ApplyPreset(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.ApplyPreset("720p"))
	assert.Equal(t, "720p", cfg.Preset)
	assert.Equal(t, 1280, cfg.Camera.Width)

	var cerr *ConfigError
	require.True(t, errors.As(cfg.ApplyPreset("imax"), &cerr))
	assert.Equal(t, "Preset", cerr.Field)
	assert.Equal(t, "720p", cfg.Preset)
}

func TestConfig_LoadEnvConfig(t *testing.T) {
	t.Setenv(config.EnvModel, "/tmp/model.onnx")
	t.Setenv(config.EnvVoice, "alloy")
	t.Setenv(config.EnvOpenAIKey, "sk-test")

	cfg := Config{ModelPath: "flag.onnx"}
	cfg.LoadEnvConfig()

	assert.Equal(t, "flag.onnx", cfg.ModelPath, "flags win over the environment")
	assert.Equal(t, config.DefaultSource, cfg.Source)
	assert.Equal(t, "alloy", cfg.Voice)
	assert.Equal(t, "sk-test", cfg.OpenAIKey)
}

func TestNewProvider(t *testing.T) {
	logger := slog.Default()

	cfg := validConfig()
	cfg.TTSMode = TTSNone
	p, err := NewProvider(cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, p)

	cfg.TTSMode = TTSOpenAI
	cfg.OpenAIKey = "sk-test"
	p, err = NewProvider(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &tts.OpenAI{}, p)

	cfg.TTSModel = "tts-1-hd"
	cfg.TTSFormat = "wav"
	p, err = NewProvider(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &tts.OpenAI{}, p)

	cfg.TTSFormat = "flac"
	_, err = NewProvider(cfg, logger)
	require.Error(t, err)
	cfg.TTSFormat = ""

	cfg.TTSMode = TTSAuto
	p, err = NewProvider(cfg, logger)
	require.NoError(t, err)
	chain, ok := p.(*tts.Chain)
	require.True(t, ok)
	assert.GreaterOrEqual(t, chain.Len(), 1)
}
