// Package roi describes the expressed region of a gene-expression matrix in
// bin-1 coordinates and checks it against a mask's pixel grid.
package roi

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrOutOfBounds is matched by every OutOfBoundsError.
var ErrOutOfBounds = errors.New("roi out of bounds")

// BoundingBox is an axis-aligned box inclusive on both ends:
// columns MinX..MaxX and rows MinY..MaxY all belong to the region.
type BoundingBox struct {
	MinX int `yaml:"min_x"`
	MinY int `yaml:"min_y"`
	MaxX int `yaml:"max_x"`
	MaxY int `yaml:"max_y"`
}

// Width is the number of columns covered by the box.
func (b BoundingBox) Width() int {
	return b.MaxX - b.MinX + 1
}

// Height is the number of rows covered by the box.
func (b BoundingBox) Height() int {
	return b.MaxY - b.MinY + 1
}

// Rect converts the inclusive box into the half-open rectangle
// [MinX, MaxX+1) x [MinY, MaxY+1) used by image.Rectangle and slicing.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.MinX, b.MinY, b.MaxX+1, b.MaxY+1)
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("minX=%d, minY=%d, maxX=%d, maxY=%d", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Validate reports whether the box lies entirely inside a height x width grid,
// i.e. 0 <= MinX <= MaxX < width and 0 <= MinY <= MaxY < height.
// The box is never clamped; any violation is an *OutOfBoundsError.
func (b BoundingBox) Validate(height, width int) error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"minX >= 0", b.MinX >= 0},
		{"minX <= maxX", b.MinX <= b.MaxX},
		{"maxX < W", b.MaxX < width},
		{"minY >= 0", b.MinY >= 0},
		{"minY <= maxY", b.MinY <= b.MaxY},
		{"maxY < H", b.MaxY < height},
	}

	ok := true
	var failed []string
	for _, c := range checks {
		ok = ok && c.ok
		if !c.ok {
			failed = append(failed, c.name)
		}
	}
	if ok {
		return nil
	}
	return &OutOfBoundsError{Box: b, Height: height, Width: width, Failed: failed}
}

// OutOfBoundsError carries the offending box, the mask shape it was checked
// against and every comparison that did not hold.
type OutOfBoundsError struct {
	Box    BoundingBox
	Height int
	Width  int
	Failed []string
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("roi out of bounds: %s, mask shape is (%d,%d); failed: %s",
		e.Box, e.Height, e.Width, strings.Join(e.Failed, ", "))
}

func (e *OutOfBoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}
