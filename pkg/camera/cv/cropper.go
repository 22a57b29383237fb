// Package cv provides OpenCV-backed capture and cropping for the camera package.
package cv

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// WarpCropper implements camera.Cropper with cv::warpAffine.
type WarpCropper struct{}

// Crop warps frame through affine into a width×height image.
func (WarpCropper) Crop(ctx context.Context, frame image.Image, affine [6]float64, width, height int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer src.Close()

	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for i, v := range affine {
		m.SetDoubleAt(i/3, i%3, v)
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpAffine(src, &dst, m, image.Pt(width, height))
	if dst.Empty() {
		return nil, fmt.Errorf("warp produced an empty crop")
	}

	return dst.ToImage()
}
