package source

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
)

func writeTIFF(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestLoadMaskGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 5, 3))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 17)
	}
	path := filepath.Join(t.TempDir(), "mask.tif")
	writeTIFF(t, path, src)

	got, err := LoadMask(path)
	if err != nil {
		t.Fatalf("LoadMask failed: %v", err)
	}
	if got.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", got.Bounds(), src.Bounds())
	}
	for i := range src.Pix {
		if got.Pix[i] != src.Pix[i] {
			t.Fatalf("pixel %d = %d, want %d", i, got.Pix[i], src.Pix[i])
		}
	}
}

func TestLoadMaskKeepsFirstChannel(t *testing.T) {
	const h, w = 6, 4
	src := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*10 + y),
				G: uint8(200 - x),
				B: uint8(y * 31),
				A: 255,
			})
		}
	}
	path := filepath.Join(t.TempDir(), "rgb.tif")
	writeTIFF(t, path, src)

	got, err := LoadMask(path)
	if err != nil {
		t.Fatalf("LoadMask failed: %v", err)
	}
	if got.Bounds() != image.Rect(0, 0, w, h) {
		t.Fatalf("bounds = %v", got.Bounds())
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if want := src.NRGBAAt(x, y).R; got.GrayAt(x, y).Y != want {
				t.Errorf("(%d,%d) = %d, want channel 0 value %d", x, y, got.GrayAt(x, y).Y, want)
			}
		}
	}
}

func TestLoadMaskTruncatesWideSamples(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 3, 1))
	src.SetGray16(0, 0, color.Gray16{Y: 0x0102})
	src.SetGray16(1, 0, color.Gray16{Y: 0x00FF})
	src.SetGray16(2, 0, color.Gray16{Y: 0x0300})
	path := filepath.Join(t.TempDir(), "labels16.tif")
	writeTIFF(t, path, src)

	got, err := LoadMask(path)
	if err != nil {
		t.Fatalf("LoadMask failed: %v", err)
	}
	want := []uint8{0x02, 0xFF, 0x00}
	for i, v := range want {
		if got.Pix[i] != v {
			t.Errorf("pixel %d = %#x, want %#x", i, got.Pix[i], v)
		}
	}
}

func TestFirstChannelOfView(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x + 8*y), G: 1, B: 2, A: 255})
		}
	}
	view := src.SubImage(image.Rect(2, 3, 5, 7))

	got := FirstChannel(view)
	if got.Bounds() != image.Rect(0, 0, 3, 4) {
		t.Fatalf("bounds = %v", got.Bounds())
	}
	if got.GrayAt(0, 0).Y != uint8(2+8*3) {
		t.Errorf("origin = %d, want %d", got.GrayAt(0, 0).Y, 2+8*3)
	}
}

func TestLoadMaskErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.tif")
	if err := os.WriteFile(garbage, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{garbage, filepath.Join(dir, "absent.tif")} {
		if _, err := LoadMask(path); !errors.Is(err, ErrImageRead) {
			t.Errorf("LoadMask(%s): expected ErrImageRead, got %v", path, err)
		}
	}
}

func TestMaskConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask.tif")
	writeTIFF(t, path, image.NewGray(image.Rect(0, 0, 40, 30)))

	cfg, err := MaskConfig(path)
	if err != nil {
		t.Fatalf("MaskConfig failed: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 30 {
		t.Errorf("config = %dx%d, want 40x30", cfg.Width, cfg.Height)
	}
}
