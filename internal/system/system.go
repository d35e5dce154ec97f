package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// FindLatest returns the most recently modified regular file in dir whose
// lower-cased name passes match.
func FindLatest(dir string, match func(name string) bool) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !match(strings.ToLower(f.Name())) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no matching files in %s", dir)
	}
	return latestFile, nil
}

// FindLatestMatrix picks the newest bGEF or GEM file in dir.
func FindLatestMatrix(dir string) (string, error) {
	return FindLatest(dir, func(name string) bool {
		return strings.HasSuffix(name, ".bgef") || strings.HasSuffix(name, ".gem") || strings.HasSuffix(name, ".gem.gz")
	})
}

// FindLatestMask picks the newest TIFF in dir with "mask" in its name,
// ignoring crops this tool already wrote.
func FindLatestMask(dir string) (string, error) {
	return FindLatest(dir, func(name string) bool {
		if !strings.Contains(name, "mask") || strings.Contains(name, "_roi_nocomp") {
			return false
		}
		return strings.HasSuffix(name, ".tif") || strings.HasSuffix(name, ".tiff")
	})
}

// MemoryCheck compares the bytes a step needs with what the host reports
// as available.
type MemoryCheck struct {
	Need      uint64
	Available uint64
}

func (m MemoryCheck) OK() bool {
	return m.Need <= m.Available
}

// CheckMemory reads available system memory and compares it with need.
func CheckMemory(need uint64) (MemoryCheck, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemoryCheck{Need: need}, fmt.Errorf("read memory stats: %w", err)
	}
	return MemoryCheck{Need: need, Available: vm.Available}, nil
}

// MaskFootprint estimates the bytes held while cropping a width x height mask
// with bytesPerPixel decoded bytes: the decoded image, its 8-bit reduction and
// the largest possible crop.
func MaskFootprint(width, height, bytesPerPixel int) uint64 {
	px := uint64(width) * uint64(height)
	return px*uint64(bytesPerPixel) + 2*px
}
