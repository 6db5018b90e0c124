package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/supplyviz/pkg/config"
)

func TestTargetFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"out.html", TargetHTML, true},
		{"out.HTM", TargetHTML, true},
		{"a/b.svg", TargetSVG, true},
		{"x.png", TargetPNG, true},
		{"x.json", TargetJSON, true},
		{"x.dot", TargetDOT, true},
		{"x.mmd", TargetMermaid, true},
		{"x.db", TargetSQLite, true},
		{"x.sqlite3", TargetSQLite, true},
		{"x.md", TargetReport, true},
		{"x.txt", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, ok := TargetFromPath(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("TargetFromPath(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPerform_EveryTarget(t *testing.T) {
	dir := t.TempDir()
	tree := chairTree()
	e := chairElements(t)
	cfg := config.DefaultConfig()

	for _, target := range Targets {
		t.Run(target, func(t *testing.T) {
			path := filepath.Join(dir, "out"+targetExt[target])
			got, err := Perform(Request{
				Target:   target,
				Path:     path,
				Elements: e,
				Tree:     &tree,
				Config:   cfg,
			})
			if err != nil {
				t.Fatalf("Perform: %v", err)
			}
			info, err := os.Stat(got)
			if err != nil {
				t.Fatalf("stat %s: %v", got, err)
			}
			if info.Size() == 0 {
				t.Errorf("%s is empty", got)
			}
		})
	}
}

func TestPerform_InfersTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.dot")
	if _, err := Perform(Request{Path: path, Elements: chairElements(t), Config: config.DefaultConfig()}); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "digraph G {") {
		t.Error("expected DOT output")
	}
}

func TestPerform_Errors(t *testing.T) {
	e := chairElements(t)
	if _, err := Perform(Request{Path: "x.txt", Elements: e}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("unknown extension err = %v", err)
	}
	if _, err := Perform(Request{Target: "pdf", Path: "x.pdf", Elements: e}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("unknown target err = %v", err)
	}
	if _, err := Perform(Request{Target: TargetReport, Path: filepath.Join(t.TempDir(), "r.md"), Elements: e}); err == nil {
		t.Error("markdown without a tree should fail")
	}
}

func TestWizardConfig_SaveLoad(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	got, err := LoadWizardConfig()
	if err != nil || got != nil {
		t.Fatalf("empty state: got %+v, %v", got, err)
	}

	want := &WizardConfig{Target: TargetSVG, Title: "T", OutputPath: "a.svg"}
	if err := SaveWizardConfig(want); err != nil {
		t.Fatalf("SaveWizardConfig: %v", err)
	}
	got, err = LoadWizardConfig()
	if err != nil {
		t.Fatalf("LoadWizardConfig: %v", err)
	}
	if *got != *want {
		t.Errorf("loaded %+v, want %+v", got, want)
	}
}

func TestNewWizardDefaults(t *testing.T) {
	w := NewWizard("proj", config.Config{})
	if w.config.Target != TargetHTML || w.config.Title != "Supply Tree" {
		t.Errorf("defaults = %+v", w.config)
	}
}
