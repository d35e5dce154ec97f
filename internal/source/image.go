package source

import (
	"fmt"
	"image"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"
)

// LoadMask decodes a mask image into an 8-bit single-channel raster with
// origin (0,0) and packed rows.
//
// Multi-channel sources keep only their first channel; the other channels are
// dropped without inspection. Samples wider than 8 bits are truncated to their
// low byte, so label masks are expected to hold values below 256. Gray TIFF
// samples keep their stored values: bilevel masks load as 0/1 and WhiteIsZero
// images are not inverted.
func LoadMask(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageRead, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageRead, path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %s: empty image %v", ErrImageRead, path, img.Bounds())
	}

	gray := FirstChannel(img)
	if format == "tiff" {
		switch img.(type) {
		case *image.Gray, *image.Gray16:
			layout, err := readSampleLayout(f)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: header: %v", ErrImageRead, path, err)
			}
			restoreSamples(gray, layout)
		}
	}
	return gray, nil
}

// FirstChannel reduces img to its first channel as 8-bit samples.
func FirstChannel(img image.Image) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+w], src.Pix[i:i+w])
		}
	case *image.Gray16:
		// big-endian samples; keep the low byte
		for y := 0; y < h; y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < w; x++ {
				out.Pix[y*out.Stride+x] = src.Pix[i+2*x+1]
			}
		}
	case *image.RGBA:
		firstOf(out, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y), 4, 0)
	case *image.NRGBA:
		firstOf(out, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y), 4, 0)
	case *image.RGBA64:
		firstOf(out, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y), 8, 1)
	case *image.NRGBA64:
		firstOf(out, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y), 8, 1)
	case *image.Paletted:
		for y := 0; y < h; y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+w], src.Pix[i:i+w])
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				out.Pix[y*out.Stride+x] = uint8(r)
			}
		}
	}
	return out
}

// firstOf copies one byte per pixel out of an interleaved buffer: the byte at
// offset within each pixel of size bytes.
func firstOf(out *image.Gray, pix []uint8, stride, start, size, offset int) {
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	for y := 0; y < h; y++ {
		row := start + y*stride
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = pix[row+x*size+offset]
		}
	}
}

// MaskConfig reads only the header of a mask image.
func MaskConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %v", ErrImageRead, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %s: %v", ErrImageRead, path, err)
	}
	return cfg, nil
}
