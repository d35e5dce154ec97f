package source

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/hwr9912/cellcut/internal/roi"
)

// GEMReader derives the bounding box from the coordinates of a GEM
// expression table (tab separated: geneID, x, y, MIDCount[, ExonCount]).
// Lines starting with '#' and the geneID header line are skipped.
type GEMReader struct{}

func (r *GEMReader) ReadBox(path string) (roi.BoundingBox, error) {
	f, err := os.Open(path)
	if err != nil {
		return roi.BoundingBox{}, fmt.Errorf("%w: open %s: %v", ErrMetadata, path, err)
	}
	defer f.Close()

	var rd io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return roi.BoundingBox{}, fmt.Errorf("%w: %s: gzip: %v", ErrMetadata, path, err)
		}
		defer gz.Close()
		rd = gz
	}

	box, err := scanGEMRange(rd)
	if err != nil {
		return roi.BoundingBox{}, fmt.Errorf("%w: %s: %v", ErrMetadata, path, err)
	}
	return box, nil
}

func scanGEMRange(rd io.Reader) (roi.BoundingBox, error) {
	box := roi.BoundingBox{MinX: math.MaxInt, MinY: math.MaxInt, MaxX: -1, MaxY: -1}

	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	rows := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "geneID") {
			continue
		}

		cols := strings.Split(text, "\t")
		if len(cols) < 3 {
			return roi.BoundingBox{}, fmt.Errorf("line %d: expected at least 3 columns, got %d", line, len(cols))
		}
		x, err := strconv.Atoi(strings.TrimSpace(cols[1]))
		if err != nil {
			return roi.BoundingBox{}, fmt.Errorf("line %d: x: %v", line, err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(cols[2]))
		if err != nil {
			return roi.BoundingBox{}, fmt.Errorf("line %d: y: %v", line, err)
		}

		box.MinX = min(box.MinX, x)
		box.MinY = min(box.MinY, y)
		box.MaxX = max(box.MaxX, x)
		box.MaxY = max(box.MaxY, y)
		rows++
	}
	if err := sc.Err(); err != nil {
		return roi.BoundingBox{}, fmt.Errorf("line %d: %v", line+1, err)
	}
	if rows == 0 {
		return roi.BoundingBox{}, fmt.Errorf("no coordinates found")
	}
	return box, nil
}
