package engine

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/hwr9912/cellcut/internal/analyzer"
	"github.com/hwr9912/cellcut/internal/config"
	"github.com/hwr9912/cellcut/internal/raster"
	"github.com/hwr9912/cellcut/internal/report"
	"github.com/hwr9912/cellcut/internal/roi"
	"github.com/hwr9912/cellcut/internal/segment"
	"github.com/hwr9912/cellcut/internal/source"
	"github.com/hwr9912/cellcut/internal/system"
)

// Job names one matrix/mask pair. Output is the cropped mask path; when
// empty it is derived from the mask name.
type Job struct {
	Matrix string `yaml:"matrix"`
	Mask   string `yaml:"mask"`
	Output string `yaml:"output,omitempty"`
}

// Deps are the collaborators of a pipeline. They are shared read-only
// between pipelines of a batch.
type Deps struct {
	Boxes       func(matrixPath string) source.BoxReader
	LoadMask    func(path string) (*image.Gray, error)
	WriteMask   func(path string, img *image.Gray) error
	Segmenter   segment.Segmenter
	OutDir      string
	CheckMemory bool
}

// DefaultDeps wires the HDF5/GEM readers, the TIFF loader and writer and the
// given segmenter.
func DefaultDeps(dataset, outDir string, seg segment.Segmenter) Deps {
	return Deps{
		Boxes: func(matrixPath string) source.BoxReader {
			return source.NewBoxReader(matrixPath, dataset)
		},
		LoadMask:    source.LoadMask,
		WriteMask:   raster.WriteTIFF,
		Segmenter:   seg,
		OutDir:      outDir,
		CheckMemory: true,
	}
}

func (d Deps) withDefaults() Deps {
	if d.Boxes == nil {
		d.Boxes = func(matrixPath string) source.BoxReader {
			return source.NewBoxReader(matrixPath, config.DefaultDataset)
		}
	}
	if d.LoadMask == nil {
		d.LoadMask = source.LoadMask
	}
	if d.WriteMask == nil {
		d.WriteMask = raster.WriteTIFF
	}
	if d.Segmenter == nil {
		d.Segmenter = segment.Noop{}
	}
	return d
}

// Result describes a pipeline run. CroppedMask and Segmentation are only set
// when the run succeeded.
type Result struct {
	Job          Job
	Stage        Stage
	Box          roi.BoundingBox
	MaskHeight   int
	MaskWidth    int
	CropHeight   int
	CropWidth    int
	CroppedMask  string
	Segmentation string
	Stats        analyzer.Stats
	Duration     time.Duration
	Err          error

	boxRead bool
}

// Pipeline aligns one mask with one matrix, crops it, writes the crop and
// runs segmentation on it.
type Pipeline struct {
	job    Job
	deps   Deps
	logger *slog.Logger
	stage  Stage
}

func NewPipeline(job Job, deps Deps, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		job:    job,
		deps:   deps.withDefaults(),
		logger: logger.With("matrix", job.Matrix, "mask", job.Mask),
		stage:  StageInit,
	}
}

// Stage is the last stage the pipeline reached.
func (p *Pipeline) Stage() Stage {
	return p.stage
}

// Run executes every stage in order. The first failure aborts the run and is
// returned as a *StageError; the returned Result is never nil.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{Job: p.job}
	if res.Job.Output == "" {
		res.Job.Output = config.DefaultOutputPath(p.job.Mask, p.deps.OutDir)
	}

	err := p.run(ctx, res)
	res.Duration = time.Since(start)
	if err != nil {
		failedAt := p.stage + 1
		p.stage = StageFailed
		res.Stage = StageFailed
		res.CroppedMask = ""
		res.Segmentation = ""
		se := &StageError{Stage: failedAt, Kind: kindOf(err), Err: err}
		res.Err = se
		p.logger.Error("pipeline failed", "stage", failedAt, "kind", se.Kind, "err", err)
		return res, se
	}

	res.Stage = p.stage
	p.logger.Info("pipeline finished",
		"box", res.Box.String(),
		"crop", fmt.Sprintf("%dx%d", res.CropWidth, res.CropHeight),
		"output", res.Segmentation,
		"elapsed", res.Duration.Round(time.Millisecond))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	box, err := p.deps.Boxes(p.job.Matrix).ReadBox(p.job.Matrix)
	if err != nil {
		return err
	}
	res.Box, res.boxRead = box, true
	p.advance(StageMetadataRead, "box", box.String())

	if err := ctx.Err(); err != nil {
		return err
	}
	if p.deps.CheckMemory {
		p.checkMemory()
	}
	mask, err := p.deps.LoadMask(p.job.Mask)
	if err != nil {
		return err
	}
	b := mask.Bounds()
	res.MaskHeight, res.MaskWidth = b.Dy(), b.Dx()
	p.advance(StageImageLoaded, "shape", fmt.Sprintf("(%d,%d)", b.Dy(), b.Dx()))

	if err := box.Validate(b.Dy(), b.Dx()); err != nil {
		return err
	}
	p.advance(StageValidated)

	crop, err := raster.Crop(mask, box)
	if err != nil {
		return err
	}
	cb := crop.Bounds()
	res.CropHeight, res.CropWidth = cb.Dy(), cb.Dx()
	res.Stats = analyzer.Summarize(crop)
	extent := "none"
	if res.Stats.Extent != nil {
		extent = res.Stats.Extent.String()
	}
	p.advance(StageCropped,
		"shape", fmt.Sprintf("(%d,%d)", cb.Dy(), cb.Dx()),
		"coverage", res.Stats.Coverage,
		"labels", res.Stats.Labels,
		"extent", extent)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.deps.WriteMask(res.Job.Output, crop); err != nil {
		return err
	}
	res.CroppedMask = res.Job.Output
	p.advance(StageWritten, "path", res.Job.Output)

	out, err := p.deps.Segmenter.Segment(ctx, p.job.Matrix, res.Job.Output)
	if err != nil {
		return err
	}
	res.Segmentation = out
	p.advance(StageSegmented, "output", out)
	return nil
}

func (p *Pipeline) advance(s Stage, attrs ...any) {
	p.stage = s
	p.logger.Debug("stage reached", append([]any{"stage", s.String()}, attrs...)...)
}

// checkMemory only warns: the decoder may still fit in swap or the estimate
// may be pessimistic.
func (p *Pipeline) checkMemory() {
	cfg, err := source.MaskConfig(p.job.Mask)
	if err != nil {
		return
	}
	need := system.MaskFootprint(cfg.Width, cfg.Height, bytesPerPixel(cfg.ColorModel))
	check, err := system.CheckMemory(need)
	if err != nil {
		p.logger.Debug("memory check skipped", "err", err)
		return
	}
	if !check.OK() {
		p.logger.Warn("mask may not fit in memory", "need", check.Need, "available", check.Available)
	}
}

func bytesPerPixel(m color.Model) int {
	switch m {
	case color.GrayModel:
		return 1
	case color.Gray16Model:
		return 2
	case color.RGBA64Model, color.NRGBA64Model:
		return 8
	default:
		return 4
	}
}

// ReportRun converts the result into a report entry.
func (r *Result) ReportRun() report.Run {
	run := report.Run{
		Matrix:       r.Job.Matrix,
		Mask:         r.Job.Mask,
		Stage:        r.Stage.String(),
		CroppedMask:  r.CroppedMask,
		Segmentation: r.Segmentation,
		Seconds:      r.Duration.Seconds(),
	}
	if r.boxRead {
		box := r.Box
		run.Box = &box
	}
	if r.MaskHeight > 0 {
		run.MaskShape = []int{r.MaskHeight, r.MaskWidth}
	}
	if r.CropHeight > 0 {
		run.CropShape = []int{r.CropHeight, r.CropWidth}
		stats := r.Stats
		run.Stats = &stats
	}
	if r.Err != nil {
		run.Error = r.Err.Error()
	}
	return run
}
