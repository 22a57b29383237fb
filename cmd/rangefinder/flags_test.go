package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-rangefinder/pkg/app"
)

func TestOptions_Apply(t *testing.T) {
	var opts Options
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.register(fs)
	require.NoError(t, fs.Parse([]string{
		"--model", "m.onnx",
		"--preset", "webcam",
		"--focal-length", "5.5",
		"--reannounce", "0",
	}))

	cfg := app.DefaultConfig()
	require.NoError(t, opts.apply(&cfg))

	assert.Equal(t, "m.onnx", cfg.ModelPath)
	assert.Equal(t, "webcam", cfg.Preset)
	assert.Equal(t, 5.5, cfg.Camera.FocalLength)
	assert.Equal(t, 2.74, cfg.Camera.SensorHeight, "preset value kept when not overridden")
	assert.Equal(t, 0, cfg.Camera.SensorRotation)
	assert.Zero(t, cfg.Pipeline.ReannounceDelta)
}

func TestOptions_ApplyUnknownPreset(t *testing.T) {
	opts := Options{Preset: "imax"}
	cfg := app.DefaultConfig()
	assert.Error(t, opts.apply(&cfg))
}
