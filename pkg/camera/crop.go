package camera

import (
	"context"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// DrawCropper is a pure-Go Cropper built on golang.org/x/image/draw.
type DrawCropper struct {
	// Interpolator defaults to draw.BiLinear.
	Interpolator draw.Transformer
}

// Crop renders frame through affine into a width×height RGBA image.
// Pixels with no source are left transparent black.
func (c DrawCropper) Crop(ctx context.Context, frame image.Image, affine [6]float64, width, height int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	interp := c.Interpolator
	if interp == nil {
		interp = draw.BiLinear
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	interp.Transform(dst, f64.Aff3(affine), frame, frame.Bounds(), draw.Src, nil)
	return dst, nil
}
