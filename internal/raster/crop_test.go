package raster

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/hwr9912/cellcut/internal/roi"
)

// patterned builds an h x w image whose pixel (x, y) is (x*7 + y*13) mod 256,
// so every shift in either axis changes the value.
func patterned(h, w int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8((x*7 + y*13) % 256)
		}
	}
	return img
}

func TestCropConcreteScenario(t *testing.T) {
	src := patterned(1000, 800)
	box := roi.BoundingBox{MinX: 100, MinY: 50, MaxX: 199, MaxY: 149}

	out, err := Crop(src, box)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	if out.Bounds() != image.Rect(0, 0, 100, 100) {
		t.Fatalf("crop bounds = %v, want 100x100 at origin", out.Bounds())
	}
	if out.GrayAt(0, 0) != src.GrayAt(100, 50) {
		t.Errorf("cropped (0,0) = %v, source (row 50, col 100) = %v", out.GrayAt(0, 0), src.GrayAt(100, 50))
	}
	if out.GrayAt(99, 99) != src.GrayAt(199, 149) {
		t.Errorf("cropped (99,99) = %v, source (row 149, col 199) = %v", out.GrayAt(99, 99), src.GrayAt(199, 149))
	}
}

func TestCropFullImage(t *testing.T) {
	src := patterned(37, 53)
	box := roi.BoundingBox{MinX: 0, MinY: 0, MaxX: 52, MaxY: 36}

	out, err := Crop(src, box)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", out.Bounds(), src.Bounds())
	}
	if !bytes.Equal(out.Pix, src.Pix) {
		t.Error("full-image crop changed pixel content")
	}
}

func TestCropShapeLaw(t *testing.T) {
	src := patterned(20, 30)

	tests := []struct {
		name string
		box  roi.BoundingBox
	}{
		{"single pixel", roi.BoundingBox{MinX: 0, MinY: 0, MaxX: 0, MaxY: 0}},
		{"first column", roi.BoundingBox{MinX: 0, MinY: 0, MaxX: 0, MaxY: 19}},
		{"last column", roi.BoundingBox{MinX: 29, MinY: 0, MaxX: 29, MaxY: 19}},
		{"first row", roi.BoundingBox{MinX: 0, MinY: 0, MaxX: 29, MaxY: 0}},
		{"last row", roi.BoundingBox{MinX: 0, MinY: 19, MaxX: 29, MaxY: 19}},
		{"bottom right corner", roi.BoundingBox{MinX: 29, MinY: 19, MaxX: 29, MaxY: 19}},
		{"wide strip", roi.BoundingBox{MinX: 2, MinY: 5, MaxX: 27, MaxY: 6}},
		{"tall strip", roi.BoundingBox{MinX: 4, MinY: 1, MaxX: 5, MaxY: 18}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Crop(src, tt.box)
			if err != nil {
				t.Fatalf("Crop failed: %v", err)
			}
			b := out.Bounds()
			if b.Dy() != tt.box.MaxY-tt.box.MinY+1 || b.Dx() != tt.box.MaxX-tt.box.MinX+1 {
				t.Fatalf("shape (%d,%d), want (%d,%d)", b.Dy(), b.Dx(),
					tt.box.MaxY-tt.box.MinY+1, tt.box.MaxX-tt.box.MinX+1)
			}
			// every corner of the crop maps back to the matching inclusive source corner
			corners := [][2]int{{0, 0}, {b.Dx() - 1, 0}, {0, b.Dy() - 1}, {b.Dx() - 1, b.Dy() - 1}}
			for _, c := range corners {
				got := out.GrayAt(c[0], c[1])
				want := src.GrayAt(tt.box.MinX+c[0], tt.box.MinY+c[1])
				if got != want {
					t.Errorf("corner %v = %v, want %v", c, got, want)
				}
			}
		})
	}
}

func TestCropIsIdempotent(t *testing.T) {
	src := patterned(64, 48)
	box := roi.BoundingBox{MinX: 3, MinY: 9, MaxX: 40, MaxY: 60}

	first, err := Crop(src, box)
	if err != nil {
		t.Fatalf("first crop: %v", err)
	}
	second, err := Crop(src, box)
	if err != nil {
		t.Fatalf("second crop: %v", err)
	}
	if !bytes.Equal(first.Pix, second.Pix) || first.Bounds() != second.Bounds() {
		t.Error("repeated crops differ")
	}

	// the crop owns its buffer
	first.Pix[0] ^= 0xFF
	if src.GrayAt(3, 9) == first.GrayAt(0, 0) {
		t.Error("crop aliases the source buffer")
	}
}

func TestCropRejectsOutOfBounds(t *testing.T) {
	src := patterned(500, 500)
	box := roi.BoundingBox{MinX: 0, MinY: 0, MaxX: 500, MaxY: 10}

	out, err := Crop(src, box)
	if out != nil {
		t.Error("expected no image on failure")
	}
	if !errors.Is(err, roi.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestContiguousCopiesViews(t *testing.T) {
	src := patterned(10, 10)
	view := src.SubImage(image.Rect(2, 3, 6, 8)).(*image.Gray)

	out := Contiguous(view)
	if out == view {
		t.Fatal("expected a copy of a strided view")
	}
	if out.Stride != 4 || len(out.Pix) != 20 || out.Bounds().Min != (image.Point{}) {
		t.Errorf("unexpected layout: stride=%d len=%d bounds=%v", out.Stride, len(out.Pix), out.Bounds())
	}
	if out.GrayAt(0, 0) != src.GrayAt(2, 3) {
		t.Errorf("first pixel = %v, want %v", out.GrayAt(0, 0), src.GrayAt(2, 3))
	}

	if Contiguous(src) != src {
		t.Error("already contiguous image should be returned as is")
	}
}

func TestShapeErrorMatchesSentinel(t *testing.T) {
	err := error(&ShapeError{Box: roi.BoundingBox{MaxX: 9, MaxY: 4}, GotHeight: 10, GotWidth: 5})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatal("ShapeError should match ErrShapeMismatch")
	}
}
