package source

import (
	"errors"
	"strings"

	"github.com/hwr9912/cellcut/internal/roi"
)

var (
	ErrMetadata  = errors.New("matrix metadata error")
	ErrImageRead = errors.New("mask read error")
)

// DefaultDataset is where bGEF files keep the bin-1 expression table whose
// attributes carry the expressed extent.
const DefaultDataset = "/geneExp/bin1/expression"

// BoxAttributes are the dataset attributes holding the inclusive extent, in
// the order they are read.
var BoxAttributes = []string{"minX", "minY", "maxX", "maxY"}

// HDF5Reader reads the bounding box from attributes of one dataset in an HDF5
// (bGEF) container. Builds tagged nohdf5 leave out the libhdf5 binding and
// the reader then fails with ErrMetadata.
type HDF5Reader struct {
	Dataset string
}

// BoxReader yields the expressed bounding box of a gene-expression matrix.
type BoxReader interface {
	ReadBox(path string) (roi.BoundingBox, error)
}

// NewBoxReader picks the reader for a matrix path: GEM text files
// (.gem, .gem.gz) are scanned, anything else is opened as a bGEF container.
func NewBoxReader(path, dataset string) BoxReader {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".gem") || strings.HasSuffix(lower, ".gem.gz") {
		return &GEMReader{}
	}
	if dataset == "" {
		dataset = DefaultDataset
	}
	return &HDF5Reader{Dataset: dataset}
}

// BoxReaderFunc adapts a function to BoxReader.
type BoxReaderFunc func(path string) (roi.BoundingBox, error)

func (f BoxReaderFunc) ReadBox(path string) (roi.BoundingBox, error) {
	return f(path)
}
