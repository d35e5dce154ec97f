package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/hwr9912/cellcut/internal/config"
)

// ErrDuplicateOutput reports two batch jobs that would write the same crop.
var ErrDuplicateOutput = errors.New("duplicate output path")

// Manifest lists the jobs of a batch run.
type Manifest struct {
	Workers int   `yaml:"workers"`
	Jobs    []Job `yaml:"jobs"`
}

// ReadManifest loads a YAML manifest. Relative paths in jobs are resolved
// against the manifest's directory.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s has no jobs", path)
	}

	base := filepath.Dir(path)
	for i := range m.Jobs {
		j := &m.Jobs[i]
		if j.Matrix == "" || j.Mask == "" {
			return nil, fmt.Errorf("manifest %s: job %d needs matrix and mask", path, i)
		}
		j.Matrix = resolve(base, j.Matrix)
		j.Mask = resolve(base, j.Mask)
		if j.Output != "" {
			j.Output = resolve(base, j.Output)
		}
	}
	return &m, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

type BatchOptions struct {
	Workers int
	// FailFast cancels jobs that have not finished once one job fails.
	FailFast bool
}

// PlanOutputs fills in the crop path of every job. Derived names that clash
// are prefixed with the matrix name; any path still shared by two jobs is an
// ErrDuplicateOutput.
func PlanOutputs(jobs []Job, outDir string) ([]Job, error) {
	planned := make([]Job, len(jobs))
	copy(planned, jobs)

	derived := map[string]int{}
	for i := range planned {
		if planned[i].Output == "" {
			derived[config.DefaultOutputPath(planned[i].Mask, outDir)]++
		}
	}
	for i := range planned {
		j := &planned[i]
		if j.Output != "" {
			continue
		}
		j.Output = config.DefaultOutputPath(j.Mask, outDir)
		if derived[j.Output] > 1 {
			stem := strings.TrimSuffix(filepath.Base(j.Matrix), ".gz")
			stem = strings.TrimSuffix(stem, filepath.Ext(stem))
			j.Output = filepath.Join(filepath.Dir(j.Output), stem+"_"+filepath.Base(j.Output))
		}
	}

	owner := map[string]int{}
	for i, j := range planned {
		key := filepath.Clean(j.Output)
		if prev, ok := owner[key]; ok {
			return nil, fmt.Errorf("%w: jobs %d and %d both write %s", ErrDuplicateOutput, prev, i, j.Output)
		}
		owner[key] = i
	}
	return planned, nil
}

// RunBatch runs one independent pipeline per job, at most opts.Workers at a
// time. Results are returned in job order, one per job. Without FailFast
// every job runs and the failures are joined into the returned error. Output
// paths are planned before any job starts; a clash fails the whole batch.
func RunBatch(ctx context.Context, jobs []Job, deps Deps, opts BatchOptions, logger *slog.Logger) ([]*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	jobs, err := PlanOutputs(jobs, deps.OutDir)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]*Result, len(jobs))
	errs := make([]error, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			p := NewPipeline(job, deps, logger.With("job", i))
			res, err := p.Run(gctx)
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("job %d (%s): %w", i, job.Mask, err)
				if opts.FailFast {
					return errs[i]
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, errors.Join(errs...)
}
