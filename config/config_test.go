package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/setanarut/shapefill"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  mode: release
input:
  drawing: lines.png
segmentation:
  k: 1000
inpaint:
  scale: 3
  preprocess: false
edges:
  - { from: 1, to: 2 }
  - { from: 2, to: 3, type: merge }
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Log.Mode != "release" || cfg.Input.Drawing != "lines.png" {
		t.Errorf("log/input = %+v %+v", cfg.Log, cfg.Input)
	}
	if cfg.Segmentation.K != 1000 || cfg.Segmentation.SoftDivisor != def.Segmentation.SoftDivisor {
		t.Errorf("segmentation = %+v", cfg.Segmentation)
	}
	if cfg.Inpaint.Scale != 3 || cfg.Inpaint.Preprocess || cfg.Inpaint.MaxIterations != def.Inpaint.MaxIterations {
		t.Errorf("inpaint = %+v", cfg.Inpaint)
	}
	if cfg.Output != def.Output {
		t.Errorf("output = %+v, want defaults %+v", cfg.Output, def.Output)
	}

	edges, err := cfg.OcclusionEdges()
	if err != nil {
		t.Fatalf("OcclusionEdges: %v", err)
	}
	want := []shapefill.Edge{
		{From: 1, To: 2, Type: shapefill.EdgeDefault},
		{From: 2, To: 3, Type: shapefill.EdgeMerge},
	}
	if diff := cmp.Diff(want, edges); diff != "" {
		t.Errorf("edges (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("Load of a missing file succeeded")
	}
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Segmentation.FrameRadius = 1
	cfg.Inpaint.Epsilon = 1e-3
	opt := cfg.Options()
	if opt.FrameRadius != 1 || opt.Inpaint.Epsilon != 1e-3 {
		t.Errorf("options = %+v", opt)
	}
	def := shapefill.DefaultOptions()
	if opt.Segment.K != def.Segment.K || opt.Inpaint.Scale != def.Inpaint.Scale {
		t.Errorf("defaults lost: %+v", opt)
	}
}

func TestOcclusionEdgesErrors(t *testing.T) {
	cfg := Default()
	cfg.Edges = []EdgeConfig{{From: 1, To: 2, Type: "sideways"}}
	if _, err := cfg.OcclusionEdges(); err == nil {
		t.Errorf("unknown edge type accepted")
	}
	cfg.Edges = []EdgeConfig{{From: 1, To: 256}}
	if _, err := cfg.OcclusionEdges(); !errors.Is(err, shapefill.ErrInvalidLabel) {
		t.Errorf("id 256: err = %v, want ErrInvalidLabel", err)
	}
}

func TestNewFallsBackToDefault(t *testing.T) {
	t.Chdir(t.TempDir())
	if diff := cmp.Diff(Default(), New()); diff != "" {
		t.Errorf("New without config.yaml (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); !errors.Is(err, ErrNoDrawing) {
		t.Errorf("defaults: err = %v, want ErrNoDrawing", err)
	}
	cfg.Input.Drawing = "lines.png"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	cfg.Edges = []EdgeConfig{{From: 1, To: 2, Type: "sideways"}}
	if err := cfg.Validate(); err == nil {
		t.Errorf("unknown edge type accepted")
	}
}
