package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Layout.RankSep != 500 || cfg.Layout.NodeSep != 300 {
		t.Errorf("unexpected separations: %+v", cfg.Layout)
	}
	if !cfg.Layout.FlipEnabled() {
		t.Error("flip should default to on")
	}
	if got := cfg.Style.SizeOf("maker"); got != (Size{Width: 545, Height: 539}) {
		t.Errorf("maker size = %+v", got)
	}
	if got := cfg.Style.SizeOf("anything"); got != (Size{Width: 644, Height: 227}) {
		t.Errorf("fallback size = %+v", got)
	}
	if cfg.Style.ImageOf("supplier") != DefaultSupplierImage {
		t.Errorf("supplier image = %q", cfg.Style.ImageOf("supplier"))
	}
	if !reflect.DeepEqual(cfg.Interaction.ToggleClasses, []string{"maker"}) {
		t.Errorf("toggle classes = %v", cfg.Interaction.ToggleClasses)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Layout.RankSep != 500 {
		t.Errorf("expected default config, got %+v", cfg.Layout)
	}
}

func TestLoadFrom_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
layout:
  rank_sep: 120
  flip: false
style:
  missing_color: orange
interaction:
  toggle_classes: [maker, supplier]
export:
  output_dir: ~/graphs
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Layout.RankSep != 120 {
		t.Errorf("rank_sep = %v, want 120", cfg.Layout.RankSep)
	}
	if cfg.Layout.NodeSep != 300 {
		t.Errorf("node_sep should keep its default, got %v", cfg.Layout.NodeSep)
	}
	if cfg.Layout.FlipEnabled() {
		t.Error("flip should be disabled")
	}
	if cfg.Style.MissingColor != "orange" || cfg.Style.RootColor != "green" {
		t.Errorf("unexpected colors: %+v", cfg.Style)
	}
	if len(cfg.Interaction.ToggleClasses) != 2 {
		t.Errorf("toggle classes = %v", cfg.Interaction.ToggleClasses)
	}
	home, _ := os.UserHomeDir()
	if cfg.Export.OutputDir != filepath.Join(home, "graphs") {
		t.Errorf("output dir = %q, want ~ expanded", cfg.Export.OutputDir)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad yaml":     "layout: [",
		"negative sep": "layout:\n  rank_sep: -1\n",
		"zero size":    "style:\n  maker_size:\n    width: 0\n    height: 10\n",
		"bad preset":   "export:\n  preset: huge\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Export.Title = "Mask supply"
	cfg.Style.EdgeWidth = 4

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.Export.Title != "Mask supply" || got.Style.EdgeWidth != 4 {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgc")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdgs")
	if got := ConfigPath(); got != "/tmp/xdgc/supplyviz/config.yaml" {
		t.Errorf("ConfigPath = %q", got)
	}
	if got := StateDir(); got != "/tmp/xdgs/supplyviz" {
		t.Errorf("StateDir = %q", got)
	}
}
