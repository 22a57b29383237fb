package geometry

import "log/slog"

// MappingConfig describes the frame and crop geometry a Mapping is built from.
type MappingConfig struct {
	SrcWidth       int  // Camera frame width in pixels
	SrcHeight      int  // Camera frame height in pixels
	DstWidth       int  // Model input width in pixels
	DstHeight      int  // Model input height in pixels
	Rotation       int  // Sensor rotation in degrees, multiple of 90
	MaintainAspect bool // Scale uniformly (cropping overflow) instead of stretching
}

// Mapping is the frame→crop transform and its exact inverse.
// It is immutable once built and safe to share between goroutines.
type Mapping struct {
	Config      MappingConfig
	FrameToCrop Transform
	CropToFrame Transform
}

// NormalizeRotation folds any multiple of 90 into [0, 360).
func NormalizeRotation(degrees int) (int, error) {
	if degrees%90 != 0 {
		return 0, &ConfigError{Param: "rotation", Value: degrees, Err: ErrInvalidRotation}
	}
	return ((degrees % 360) + 360) % 360, nil
}

// NewMapping builds the forward and inverse transforms between a camera frame
// and a model input. The source is centred on the origin and rotated, scaled to the
// destination size (uniformly when MaintainAspect is set), and moved to the
// destination centre.
func NewMapping(cfg MappingConfig) (Mapping, error) {
	if cfg.SrcWidth <= 0 || cfg.SrcHeight <= 0 {
		return Mapping{}, &ConfigError{Param: "source size", Value: [2]int{cfg.SrcWidth, cfg.SrcHeight}, Err: ErrInvalidDimensions}
	}
	if cfg.DstWidth <= 0 || cfg.DstHeight <= 0 {
		return Mapping{}, &ConfigError{Param: "destination size", Value: [2]int{cfg.DstWidth, cfg.DstHeight}, Err: ErrInvalidDimensions}
	}
	rotation, err := NormalizeRotation(cfg.Rotation)
	if err != nil {
		return Mapping{}, err
	}
	cfg.Rotation = rotation

	forward := Identity()
	if rotation != 0 {
		forward = forward.
			Then(Translate(-float64(cfg.SrcWidth)/2, -float64(cfg.SrcHeight)/2)).
			Then(Rotate(float64(rotation)))
	}

	// A quarter turn swaps which source axis lands on which destination axis.
	transpose := (rotation+90)%180 == 0
	inW, inH := cfg.SrcWidth, cfg.SrcHeight
	if transpose {
		inW, inH = cfg.SrcHeight, cfg.SrcWidth
	}

	if inW != cfg.DstWidth || inH != cfg.DstHeight {
		sx := float64(cfg.DstWidth) / float64(inW)
		sy := float64(cfg.DstHeight) / float64(inH)
		if cfg.MaintainAspect {
			s := max(sx, sy)
			forward = forward.Then(Scale(s, s))
		} else {
			forward = forward.Then(Scale(sx, sy))
		}
	}

	if rotation != 0 {
		forward = forward.Then(Translate(float64(cfg.DstWidth)/2, float64(cfg.DstHeight)/2))
	}

	inverse, err := forward.Invert()
	if err != nil {
		return Mapping{}, &ConfigError{Param: "transform", Value: forward.Affine(), Err: err}
	}

	slog.Default().With("component", "geometry").Debug("built frame mapping",
		"src", [2]int{cfg.SrcWidth, cfg.SrcHeight},
		"dst", [2]int{cfg.DstWidth, cfg.DstHeight},
		"rotation", rotation,
		"maintain_aspect", cfg.MaintainAspect,
	)

	return Mapping{Config: cfg, FrameToCrop: forward, CropToFrame: inverse}, nil
}
