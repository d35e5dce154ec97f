// Package report persists a summary of cellcut runs as YAML.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hwr9912/cellcut/internal/analyzer"
	"github.com/hwr9912/cellcut/internal/roi"
)

const Version = "1"

// Report groups one entry per processed matrix/mask pair.
type Report struct {
	Version   string    `yaml:"version"`
	Generated time.Time `yaml:"generated"`
	Runs      []Run     `yaml:"runs"`
}

// Run records how far one pipeline got and what it produced.
type Run struct {
	Matrix       string           `yaml:"matrix"`
	Mask         string           `yaml:"mask"`
	Stage        string           `yaml:"stage"`
	Box          *roi.BoundingBox `yaml:"box,omitempty"`
	MaskShape    []int            `yaml:"mask_shape,omitempty"` // [H, W]
	CropShape    []int            `yaml:"crop_shape,omitempty"` // [H, W]
	CroppedMask  string           `yaml:"cropped_mask,omitempty"`
	Segmentation string           `yaml:"segmentation,omitempty"`
	Stats        *analyzer.Stats  `yaml:"stats,omitempty"`
	Seconds      float64          `yaml:"seconds"`
	Error        string           `yaml:"error,omitempty"`
}

// Failed counts runs that carry an error.
func (r *Report) Failed() int {
	n := 0
	for _, run := range r.Runs {
		if run.Error != "" {
			n++
		}
	}
	return n
}

// Write stores the report as YAML, creating parent directories.
func Write(r *Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}

// DefaultPath creates a timestamped report filename inside dir.
func DefaultPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("cellcut_report_%s.yaml", timestamp))
}
