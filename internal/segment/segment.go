package segment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrSegmentation = errors.New("segmentation failed")

// Segmenter runs cell segmentation for a matrix and a mask aligned to it and
// reports where the result was written.
type Segmenter interface {
	Segment(ctx context.Context, matrixPath, maskPath string) (string, error)
}

// Command runs an external program. Args may contain the placeholders
// {matrix}, {mask} and {outdir}. The last non-empty line the program prints
// on stdout is taken as the output path.
type Command struct {
	Args   []string
	OutDir string
}

func (c *Command) Segment(ctx context.Context, matrixPath, maskPath string) (string, error) {
	if len(c.Args) == 0 {
		return "", fmt.Errorf("%w: empty command", ErrSegmentation)
	}

	args := c.buildArgs(matrixPath, maskPath)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s: %v, output: %s", ErrSegmentation, args[0], err, strings.TrimSpace(stderr.String()))
	}

	out := lastLine(stdout.String())
	if out == "" {
		return "", fmt.Errorf("%w: %s reported no output path", ErrSegmentation, args[0])
	}
	return out, nil
}

func (c *Command) buildArgs(matrixPath, maskPath string) []string {
	r := strings.NewReplacer("{matrix}", matrixPath, "{mask}", maskPath, "{outdir}", c.OutDir)
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = r.Replace(a)
	}
	return args
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// Noop skips segmentation and reports the mask itself as the result.
type Noop struct{}

func (Noop) Segment(_ context.Context, _, maskPath string) (string, error) {
	return maskPath, nil
}
