//go:build nohdf5

package source

import (
	"fmt"

	"github.com/hwr9912/cellcut/internal/roi"
)

func (r *HDF5Reader) ReadBox(path string) (roi.BoundingBox, error) {
	return roi.BoundingBox{}, fmt.Errorf("%w: %s: built without HDF5 support (nohdf5)", ErrMetadata, path)
}
