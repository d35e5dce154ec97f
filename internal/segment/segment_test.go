package segment

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandSegment(t *testing.T) {
	requireShell(t)

	c := &Command{
		Args:   []string{"sh", "-c", `echo "running on $0 $1"; echo "$2/cells.cgef"; echo`, "{matrix}", "{mask}", "{outdir}"},
		OutDir: "/data/out",
	}

	out, err := c.Segment(context.Background(), "a.bgef", "a_roi.tif")
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if out != "/data/out/cells.cgef" {
		t.Errorf("output = %q, want /data/out/cells.cgef", out)
	}
}

func TestCommandSegmentFailures(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name   string
		args   []string
		detail string
	}{
		{"empty command", nil, "empty command"},
		{"non-zero exit", []string{"sh", "-c", "echo boom >&2; exit 3"}, "boom"},
		{"no output", []string{"sh", "-c", "true"}, "no output path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Command{Args: tt.args}).Segment(context.Background(), "m", "k")
			if !errors.Is(err, ErrSegmentation) {
				t.Fatalf("expected ErrSegmentation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("error %q should contain %q", err, tt.detail)
			}
		})
	}
}

func TestCommandHonoursContext(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Command{Args: []string{"sh", "-c", "sleep 5; echo late"}}).Segment(ctx, "m", "k")
	if !errors.Is(err, ErrSegmentation) {
		t.Fatalf("expected ErrSegmentation, got %v", err)
	}
}

func TestBuildArgs(t *testing.T) {
	c := &Command{Args: []string{"tool", "--gef={matrix}", "{mask}", "-o", "{outdir}"}, OutDir: "out"}
	got := c.buildArgs("x.bgef", "y.tif")
	want := []string{"tool", "--gef=x.bgef", "y.tif", "-o", "out"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("args = %v, want %v", got, want)
	}
}

func TestNoop(t *testing.T) {
	out, err := Noop{}.Segment(context.Background(), "m.bgef", "k.tif")
	if err != nil || out != "k.tif" {
		t.Errorf("Noop = %q, %v", out, err)
	}
}

func TestRegistry(t *testing.T) {
	tests := []struct {
		variant string
		args    []string
		wantErr bool
	}{
		{"cellcut", nil, false},
		{"", nil, false},
		{"exec", []string{"segment-cells"}, false},
		{"exec", nil, true},
		{"none", nil, false},
		{"invalid", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			s, err := New(tt.variant, tt.args, "", "out")
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if s == nil {
				t.Fatal("Expected segmenter, got nil")
			}
		})
	}

	s, _ := New("cellcut", nil, "", "out")
	c := s.(*Command)
	if c.Args[0] != "python3" || c.OutDir != "out" {
		t.Errorf("cellcut command = %v (outdir %q)", c.Args, c.OutDir)
	}
}
