// Package config holds the cellcut run configuration. Values come from an
// optional YAML file and are then overridden by command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultDataset is where bGEF files keep the bin-1 expression table whose
// attributes carry the expressed extent.
const DefaultDataset = "/geneExp/bin1/expression"

type Config struct {
	// Input
	MatrixPath string `yaml:"matrix"`
	MaskPath   string `yaml:"mask"`
	Dataset    string `yaml:"dataset"`

	// Output
	OutputPath string `yaml:"output"` // cropped mask; derived from MaskPath when empty
	OutDir     string `yaml:"out_dir"`
	ReportPath string `yaml:"report"`

	Segment struct {
		Variant string   `yaml:"variant"` // cellcut, exec, none
		Python  string   `yaml:"python"`
		Command []string `yaml:"command"`
	} `yaml:"segment"`

	// Batch
	ManifestPath string `yaml:"manifest"`
	RetryPath    string `yaml:"retry"` // earlier report whose failed runs are rerun
	Workers      int    `yaml:"workers"`
	FailFast     bool   `yaml:"fail_fast"`

	LogLevel string `yaml:"log_level"`
}

func DefaultConfig() *Config {
	cfg := &Config{
		Dataset:  DefaultDataset,
		OutDir:   "out",
		Workers:  runtime.NumCPU(),
		LogLevel: "info",
	}
	cfg.Segment.Variant = "cellcut"
	cfg.Segment.Python = "python3"
	return cfg
}

// LoadConfig reads a YAML config on top of the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Validate fills unset values with defaults and rejects unusable ones.
func (c *Config) Validate() error {
	if c.Dataset == "" {
		c.Dataset = DefaultDataset
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Segment.Variant == "" {
		c.Segment.Variant = "cellcut"
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	if c.ManifestPath == "" && c.RetryPath == "" && (c.MatrixPath == "" || c.MaskPath == "") {
		return fmt.Errorf("both matrix and mask paths are required (or a manifest)")
	}
	if c.MatrixPath != "" {
		return c.CheckMatrix(c.MatrixPath)
	}
	return nil
}

// CheckMatrix rejects matrices the configured segmenter cannot take. CellCut
// reads bGEF only, so GEM text files need another segmenter or none.
func (c *Config) CheckMatrix(path string) error {
	if (c.Segment.Variant == "cellcut" || c.Segment.Variant == "") && IsGEM(path) {
		return fmt.Errorf("segmenter cellcut needs a bGEF matrix, got %s (use -skip-segment or -segmenter exec)", path)
	}
	return nil
}

// IsGEM reports whether path names a GEM text matrix (.gem or .gem.gz).
func IsGEM(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".gem") || strings.HasSuffix(lower, ".gem.gz")
}

// DefaultOutputPath places the cropped mask in outDir, named after the mask
// with a _roi_nocomp.tif suffix.
func DefaultOutputPath(maskPath, outDir string) string {
	base := filepath.Base(maskPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if outDir == "" {
		outDir = filepath.Dir(maskPath)
	}
	return filepath.Join(outDir, name+"_roi_nocomp.tif")
}
