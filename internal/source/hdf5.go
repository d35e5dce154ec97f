//go:build !nohdf5

package source

import (
	"fmt"
	"math"

	"gonum.org/v1/hdf5"

	"github.com/hwr9912/cellcut/internal/roi"
)

func (r *HDF5Reader) ReadBox(path string) (roi.BoundingBox, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return roi.BoundingBox{}, fmt.Errorf("%w: open %s: %v", ErrMetadata, path, err)
	}
	defer f.Close()

	ds, err := f.OpenDataset(r.Dataset)
	if err != nil {
		return roi.BoundingBox{}, fmt.Errorf("%w: %s: dataset %s: %v", ErrMetadata, path, r.Dataset, err)
	}
	defer ds.Close()

	vals := make([]int, len(BoxAttributes))
	for i, name := range BoxAttributes {
		v, err := readIntAttr(ds, name)
		if err != nil {
			return roi.BoundingBox{}, fmt.Errorf("%w: %s: %s@%s: %v", ErrMetadata, path, r.Dataset, name, err)
		}
		vals[i] = v
	}

	return roi.BoundingBox{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, nil
}

// readIntAttr reads a scalar attribute through a double conversion so that
// integer attributes of any width are accepted and fractional ones rejected.
// bGEF stores the extent as int32, so values outside that range are refused.
func readIntAttr(ds *hdf5.Dataset, name string) (int, error) {
	attr, err := ds.OpenAttribute(name)
	if err != nil {
		return 0, err
	}
	defer attr.Close()

	var v float64
	if err := attr.Read(&v, hdf5.T_NATIVE_DOUBLE); err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("value %v is not an integer", v)
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("value %v out of range", v)
	}
	return int(v), nil
}
