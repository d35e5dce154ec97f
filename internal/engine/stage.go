package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/hwr9912/cellcut/internal/raster"
	"github.com/hwr9912/cellcut/internal/roi"
	"github.com/hwr9912/cellcut/internal/segment"
	"github.com/hwr9912/cellcut/internal/source"
)

// Stage is a state of the pipeline. Stages only move forward; Failed is
// terminal.
type Stage int

const (
	StageInit Stage = iota
	StageMetadataRead
	StageImageLoaded
	StageValidated
	StageCropped
	StageWritten
	StageSegmented
	StageFailed
)

var stageNames = [...]string{"init", "metadata_read", "image_loaded", "validated", "cropped", "written", "segmented", "failed"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Kind classifies a pipeline failure.
type Kind string

const (
	KindMetadata      Kind = "metadata"
	KindImageRead     Kind = "image_read"
	KindRoiOutOfBound Kind = "roi_out_of_bounds"
	KindShapeMismatch Kind = "shape_mismatch"
	KindImageWrite    Kind = "image_write"
	KindSegmentation  Kind = "segmentation"
	KindCanceled      Kind = "canceled"
	KindUnknown       Kind = "unknown"
)

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, source.ErrMetadata):
		return KindMetadata
	case errors.Is(err, source.ErrImageRead):
		return KindImageRead
	case errors.Is(err, roi.ErrOutOfBounds):
		return KindRoiOutOfBound
	case errors.Is(err, raster.ErrShapeMismatch):
		return KindShapeMismatch
	case errors.Is(err, raster.ErrImageWrite):
		return KindImageWrite
	case errors.Is(err, segment.ErrSegmentation):
		return KindSegmentation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}

// StageError is returned by a failed pipeline. Stage is the stage that was
// being entered when the failure happened.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
