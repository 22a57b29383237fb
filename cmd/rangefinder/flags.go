package main

import (
	"github.com/spf13/pflag"

	"github.com/teslashibe/go-rangefinder/internal/config"
	"github.com/teslashibe/go-rangefinder/pkg/app"
)

// Options holds flags shared by run and replay.
type Options struct {
	Detector     string
	ModelPath    string
	LabelsPath   string
	Preset       string
	Cropper      string
	FocalLength  float64
	SensorHeight float64
	Rotation     int
	Confidence   float64
	Reannounce   float64
	InputSize    int
}

func (o *Options) register(fs *pflag.FlagSet) {
	def := app.DefaultConfig()

	fs.StringVar(&o.Detector, "detector", def.Detector, "Detector: yolo or yunet (faces)")
	fs.StringVarP(&o.ModelPath, "model", "m", config.String(config.EnvModel, ""), "Path to the ONNX detection model")
	fs.StringVar(&o.LabelsPath, "labels", config.String(config.EnvLabels, ""), "Class names file, one per line (default: COCO)")
	fs.StringVarP(&o.Preset, "preset", "p", config.String(config.EnvPreset, def.Preset), "Camera preset")
	fs.StringVar(&o.Cropper, "cropper", def.Cropper, "Crop implementation: gocv or draw")
	fs.Float64Var(&o.FocalLength, "focal-length", 0, "Override the preset focal length in mm")
	fs.Float64Var(&o.SensorHeight, "sensor-height", 0, "Override the preset sensor height in mm")
	fs.IntVar(&o.Rotation, "sensor-rotation", -1, "Override the preset sensor rotation in degrees")
	fs.Float64VarP(&o.Confidence, "confidence", "c", def.Pipeline.MinConfidence, "Minimum detection confidence")
	fs.Float64Var(&o.Reannounce, "reannounce", def.Pipeline.ReannounceDelta, "Relative distance change that re-announces a track, 0 announces once")
	fs.IntVar(&o.InputSize, "input-size", def.Pipeline.InputSize, "Square model input side in pixels")
}

// apply copies the options into cfg, preset first so overrides win.
func (o *Options) apply(cfg *app.Config) error {
	if err := cfg.ApplyPreset(o.Preset); err != nil {
		return err
	}
	cfg.Detector = o.Detector
	cfg.ModelPath = o.ModelPath
	cfg.LabelsPath = o.LabelsPath
	cfg.Cropper = o.Cropper
	if o.FocalLength > 0 {
		cfg.Camera.FocalLength = o.FocalLength
	}
	if o.SensorHeight > 0 {
		cfg.Camera.SensorHeight = o.SensorHeight
	}
	if o.Rotation >= 0 {
		cfg.Camera.SensorRotation = o.Rotation
	}
	cfg.Pipeline.MinConfidence = o.Confidence
	cfg.Pipeline.ReannounceDelta = o.Reannounce
	cfg.Pipeline.InputSize = o.InputSize
	return nil
}
