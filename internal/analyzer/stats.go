// Package analyzer summarises the content of a cropped mask before it is
// handed to segmentation.
package analyzer

import (
	"image"

	"gonum.org/v1/gonum/stat"

	"github.com/hwr9912/cellcut/internal/roi"
)

// Stats describes a mask raster.
type Stats struct {
	Pixels     int     `yaml:"pixels"`
	Foreground int     `yaml:"foreground"` // non-zero pixels
	Coverage   float64 `yaml:"coverage"`   // Foreground / Pixels
	Labels     int     `yaml:"labels"`     // distinct non-zero values
	Mean       float64 `yaml:"mean"`
	StdDev     float64 `yaml:"std_dev"`

	// Extent is the inclusive box around the foreground in img coordinates,
	// nil when there is no foreground.
	Extent *roi.BoundingBox `yaml:"extent,omitempty"`
}

// Summarize computes Stats over every pixel of img.
func Summarize(img *image.Gray) Stats {
	b := img.Bounds()
	s := Stats{Pixels: b.Dx() * b.Dy()}
	if s.Pixels == 0 {
		return s
	}

	values := make([]float64, 0, s.Pixels)
	var seen [256]bool
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			v := row[x]
			values = append(values, float64(v))
			if v == 0 {
				continue
			}
			s.Foreground++
			seen[v] = true
			minX = min(minX, b.Min.X+x)
			maxX = max(maxX, b.Min.X+x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}

	for _, ok := range seen {
		if ok {
			s.Labels++
		}
	}
	s.Coverage = float64(s.Foreground) / float64(s.Pixels)
	s.Mean, s.StdDev = stat.PopMeanStdDev(values, nil)
	if s.Foreground > 0 {
		s.Extent = &roi.BoundingBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
	}
	return s
}
