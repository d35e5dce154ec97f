// Package raster crops 8-bit mask rasters to a region of interest and writes
// them back out as uncompressed TIFF.
package raster

import (
	"errors"
	"fmt"
	"image"

	"github.com/hwr9912/cellcut/internal/roi"
)

// ErrShapeMismatch means a crop came out with a shape other than the box's.
// It points at a coordinate bug upstream (swapped axes, off-by-one).
var ErrShapeMismatch = errors.New("crop shape mismatch")

type ShapeError struct {
	Box       roi.BoundingBox
	GotHeight int
	GotWidth  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("crop shape (%d,%d) does not match expected (%d,%d) for %s",
		e.GotHeight, e.GotWidth, e.Box.Height(), e.Box.Width(), e.Box)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// Crop copies rows MinY..MaxY and columns MinX..MaxX (inclusive) of img into a
// new contiguous image with origin (0,0). The box is validated against the
// image first, so an invalid box never reaches the slicing code.
func Crop(img *image.Gray, box roi.BoundingBox) (*image.Gray, error) {
	b := img.Bounds()
	if err := box.Validate(b.Dy(), b.Dx()); err != nil {
		return nil, err
	}

	r := box.Rect().Add(b.Min)
	view := img.SubImage(r).(*image.Gray)
	out := Contiguous(view)

	if got := out.Bounds(); got.Dy() != box.Height() || got.Dx() != box.Width() {
		return nil, &ShapeError{Box: box, GotHeight: got.Dy(), GotWidth: got.Dx()}
	}
	return out, nil
}

// Contiguous returns img itself when its rows are packed back to back from
// origin (0,0); otherwise it copies the pixels into such an image.
func Contiguous(img *image.Gray) *image.Gray {
	b := img.Bounds()
	if b.Min == (image.Point{}) && img.Stride == b.Dx() && len(img.Pix) == b.Dx()*b.Dy() {
		return img
	}

	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		src := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+w], img.Pix[src:src+w])
	}
	return out
}
