package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hwr9912/cellcut/internal/config"
	"github.com/hwr9912/cellcut/internal/engine"
	"github.com/hwr9912/cellcut/internal/report"
	"github.com/hwr9912/cellcut/internal/segment"
	"github.com/hwr9912/cellcut/internal/system"
)

func main() {
	configPtr := flag.String("config", "", "YAML config file")
	matrixPtr := flag.String("matrix", "", "bGEF (HDF5) or GEM(.gz) expression matrix")
	maskPtr := flag.String("mask", "", "mask image (TIFF)")
	outputPtr := flag.String("output", "", "cropped mask path (default: <outdir>/<mask>_roi_nocomp.tif)")
	outDirPtr := flag.String("outdir", "", "output directory for crops and segmentation")
	datasetPtr := flag.String("dataset", "", "dataset carrying minX/minY/maxX/maxY attributes")
	segmenterPtr := flag.String("segmenter", "", "segmenter: cellcut, exec, none")
	pythonPtr := flag.String("python", "", "python interpreter for the cellcut segmenter")
	skipPtr := flag.Bool("skip-segment", false, "crop only, do not run segmentation")
	manifestPtr := flag.String("manifest", "", "YAML manifest of matrix/mask jobs")
	workersPtr := flag.Int("workers", 0, "parallel jobs in manifest mode")
	failFastPtr := flag.Bool("fail-fast", false, "stop the batch on the first failure")
	reportPtr := flag.String("report", "", "write a YAML run report to this path (a directory gets a timestamped name)")
	dirPtr := flag.String("dir", "", "pick the newest matrix and mask from this directory")
	logLevelPtr := flag.String("log-level", "", "debug, info, warn, error")
	retryPtr := flag.String("retry", "", "rerun the failed runs of an earlier report")
	writeConfigPtr := flag.String("write-config", "", "save the effective configuration to this path")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPtr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[-] %v\n", err)
		os.Exit(1)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	override("matrix", &cfg.MatrixPath, *matrixPtr)
	override("mask", &cfg.MaskPath, *maskPtr)
	override("output", &cfg.OutputPath, *outputPtr)
	override("outdir", &cfg.OutDir, *outDirPtr)
	override("dataset", &cfg.Dataset, *datasetPtr)
	override("segmenter", &cfg.Segment.Variant, *segmenterPtr)
	override("python", &cfg.Segment.Python, *pythonPtr)
	override("manifest", &cfg.ManifestPath, *manifestPtr)
	override("report", &cfg.ReportPath, *reportPtr)
	override("retry", &cfg.RetryPath, *retryPtr)
	override("log-level", &cfg.LogLevel, *logLevelPtr)
	if set["workers"] {
		cfg.Workers = *workersPtr
	}
	if set["fail-fast"] {
		cfg.FailFast = *failFastPtr
	}
	if *skipPtr {
		cfg.Segment.Variant = "none"
	}
	if flag.NArg() > 0 && cfg.Segment.Variant == "exec" && len(cfg.Segment.Command) == 0 {
		cfg.Segment.Command = flag.Args()
	}

	if *dirPtr != "" {
		if err := discoverInputs(cfg, *dirPtr, set["outdir"]); err != nil {
			fmt.Fprintf(os.Stderr, "[-] %v\n", err)
			os.Exit(1)
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "[-] %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	logger := NewLogger(parseLevel(cfg.LogLevel))

	if *writeConfigPtr != "" {
		if err := config.SaveConfig(cfg, *writeConfigPtr); err != nil {
			logger.Error("save config", "path", *writeConfigPtr, "err", err)
			os.Exit(1)
		}
		logger.Info("config saved", "path", *writeConfigPtr)
	}

	seg, err := segment.New(cfg.Segment.Variant, cfg.Segment.Command, cfg.Segment.Python, cfg.OutDir)
	if err != nil {
		logger.Error("segmenter", "err", err)
		os.Exit(2)
	}
	deps := engine.DefaultDeps(cfg.Dataset, cfg.OutDir, seg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, runErr := run(ctx, cfg, set["workers"], deps, logger)

	if cfg.ReportPath != "" {
		cfg.ReportPath = reportPath(cfg.ReportPath)
		rep := &report.Report{Version: report.Version, Generated: time.Now()}
		for _, res := range results {
			if res != nil {
				rep.Runs = append(rep.Runs, res.ReportRun())
			}
		}
		if err := report.Write(rep, cfg.ReportPath); err != nil {
			logger.Error("write report", "path", cfg.ReportPath, "err", err)
		} else {
			logger.Info("report written", "path", cfg.ReportPath, "runs", len(rep.Runs), "failed", rep.Failed())
		}
	}

	for _, res := range results {
		if res != nil && res.Err == nil {
			fmt.Println(res.Segmentation)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "[-] %v\n", runErr)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, workersSet bool, deps engine.Deps, logger *slog.Logger) ([]*engine.Result, error) {
	var jobs []engine.Job
	workers := cfg.Workers

	switch {
	case cfg.RetryPath != "":
		rep, err := report.Read(cfg.RetryPath)
		if err != nil {
			return nil, err
		}
		jobs = retryJobs(rep)
		if len(jobs) == 0 {
			logger.Info("nothing to retry", "report", cfg.RetryPath, "runs", len(rep.Runs))
			return nil, nil
		}
	case cfg.ManifestPath != "":
		m, err := engine.ReadManifest(cfg.ManifestPath)
		if err != nil {
			return nil, err
		}
		jobs = m.Jobs
		if m.Workers > 0 && !workersSet {
			workers = m.Workers
		}
	default:
		job := engine.Job{Matrix: cfg.MatrixPath, Mask: cfg.MaskPath, Output: cfg.OutputPath}
		res, err := engine.NewPipeline(job, deps, logger).Run(ctx)
		return []*engine.Result{res}, err
	}

	for _, job := range jobs {
		if err := cfg.CheckMatrix(job.Matrix); err != nil {
			return nil, err
		}
	}
	logger.Info("batch started", "jobs", len(jobs), "workers", workers)
	return engine.RunBatch(ctx, jobs, deps, engine.BatchOptions{Workers: workers, FailFast: cfg.FailFast}, logger)
}

// retryJobs turns the failed runs of a report back into jobs. Their crops
// are derived again since failed runs record no output.
func retryJobs(rep *report.Report) []engine.Job {
	var jobs []engine.Job
	for _, r := range rep.Runs {
		if r.Error != "" {
			jobs = append(jobs, engine.Job{Matrix: r.Matrix, Mask: r.Mask})
		}
	}
	return jobs
}

// reportPath names a timestamped report inside path when path is a
// directory or ends with a separator.
func reportPath(path string) string {
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return report.DefaultPath(path)
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return report.DefaultPath(path)
	}
	return path
}

// discoverInputs fills missing matrix/mask paths with the newest candidates
// in dir, the layout CellCut runs usually leave behind.
func discoverInputs(cfg *config.Config, dir string, outDirSet bool) error {
	if cfg.MatrixPath == "" {
		latest, err := system.FindLatestMatrix(dir)
		if err != nil {
			return fmt.Errorf("no matrix in %s: %w", dir, err)
		}
		cfg.MatrixPath = latest
	}
	if cfg.MaskPath == "" {
		latest, err := system.FindLatestMask(dir)
		if err != nil {
			return fmt.Errorf("no mask in %s: %w", dir, err)
		}
		cfg.MaskPath = latest
	}
	if !outDirSet {
		cfg.OutDir = dir
	}
	return nil
}
