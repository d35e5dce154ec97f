package raster

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"golang.org/x/image/tiff"
)

var ErrImageWrite = errors.New("image write failed")

// WriteTIFF writes img as a single-channel 8-bit uncompressed TIFF.
// The file is encoded under a temporary name in the destination directory and
// renamed into place only after a successful encode, so a failed write leaves
// whatever was at path untouched.
func WriteTIFF(path string, img *image.Gray) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("%w: %s: empty image", ErrImageWrite, path)
	}
	img = Contiguous(img)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrImageWrite, path, err)
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithTempDir(dir), renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrImageWrite, path, err)
	}
	defer pf.Cleanup()

	if err := tiff.Encode(pf, img, &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
		return fmt.Errorf("%w: %s: encode: %v", ErrImageWrite, path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrImageWrite, path, err)
	}
	return nil
}
