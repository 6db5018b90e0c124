package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/supplyviz/internal/datasource"
	"github.com/vanderheijden86/supplyviz/pkg/loader"
	"github.com/vanderheijden86/supplyviz/pkg/okh"
	"github.com/vanderheijden86/supplyviz/pkg/supply"
	"github.com/vanderheijden86/supplyviz/pkg/watcher"
)

const chairJSON = `{"product":{"id":"chair","desc":"Chair"},"type":"made","party":"Shop","design":"c1","bom":[
  {"product":{"id":"leg","desc":"Leg"},"type":"supplied","party":"Mill"}]}`

const maskManifest = `title: Mask
bom: Freshly washed spunbond NWPP bags, Bias tape or other latex-free ties
tool-list: Sewing machine, Scissors
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustWriteFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func writeNetwork(t *testing.T, dir string) string {
	t.Helper()
	data, err := supply.MarshalNetwork(supply.ChairNetwork(), "chair")
	if err != nil {
		t.Fatal(err)
	}
	return mustWriteFile(t, filepath.Join(dir, "net.yaml"), string(data))
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "sviz test\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExportJSONToStdout(t *testing.T) {
	src := mustWriteFile(t, filepath.Join(t.TempDir(), "chair.json"), chairJSON)
	out, err := runCLI(t, "export", src)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	for _, id := range []string{"chair", "maker-Shop-chair", "leg", "supplier-Mill-leg"} {
		if !strings.Contains(out, `"`+id+`"`) {
			t.Errorf("expected %s in output", id)
		}
	}
}

func TestExportFormats(t *testing.T) {
	dir := t.TempDir()
	src := mustWriteFile(t, filepath.Join(dir, "chair.json"), chairJSON)

	dot := filepath.Join(dir, "out.dot")
	if _, err := runCLI(t, "export", src, "-o", dot); err != nil {
		t.Fatalf("dot export failed: %v", err)
	}
	data, err := os.ReadFile(dot)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "digraph") {
		t.Errorf("expected a digraph, got %q", data)
	}

	out, err := runCLI(t, "export", src, "--format", "mermaid", "--root", "leg", "-o", "-")
	if err != nil {
		t.Fatalf("mermaid export failed: %v", err)
	}
	if !strings.Contains(out, "leg") {
		t.Errorf("expected leg in mermaid output, got %q", out)
	}

	if _, err := runCLI(t, "export", src, "--format", "svg", "-o", "-"); err == nil {
		t.Error("expected an error for svg on stdout")
	}
	if _, err := runCLI(t, "export", src, "--format", "gif", "-o", filepath.Join(dir, "x.gif")); err == nil {
		t.Error("expected an error for an unknown format")
	}
	if _, err := runCLI(t, "export", src, "--root", "nope"); err == nil {
		t.Error("expected an error for an unknown root")
	}
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	src := mustWriteFile(t, filepath.Join(dir, "chair.json"), chairJSON)
	page := filepath.Join(dir, "chair.html")

	out, err := runCLI(t, "render", src, "-o", page, "--title", "Chairs")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(out, "4 nodes, 3 edges") {
		t.Errorf("unexpected summary %q", out)
	}
	data, err := os.ReadFile(page)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.ToLower(string(data)), "<html") {
		t.Error("expected an html page")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	tree := mustWriteFile(t, filepath.Join(dir, "chair.json"), chairJSON)
	network := writeNetwork(t, dir)
	manifest := mustWriteFile(t, filepath.Join(dir, "mask.yml"), maskManifest)

	out, err := runCLI(t, "validate", tree, network, manifest)
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	for _, want := range []string{"(tree, 2 nodes)", "(network, 4 nodes)", "(okh, 2 nodes)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}

	broken := mustWriteFile(t, filepath.Join(dir, "broken.json"), `{"product":{}}`)
	out, err = runCLI(t, "validate", "--json", tree, broken)
	if err == nil {
		t.Fatal("expected an error for a broken document")
	}
	if !strings.Contains(out, `"valid": false`) {
		t.Errorf("expected a failed result, got %q", out)
	}
}

func TestSolve(t *testing.T) {
	dir := t.TempDir()
	network := writeNetwork(t, dir)
	treePath := filepath.Join(dir, "solved.json")

	out, err := runCLI(t, "solve", network, "--stages", "-o", treePath)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	for _, want := range []string{"chair:chair_1", "cost: 0", "chair_1/OPEN"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}

	tree, err := loader.Load(context.Background(), treePath)
	if err != nil {
		t.Fatalf("solution is not a loadable tree: %v", err)
	}
	if got := tree.Counts().Supplied; got != 3 {
		t.Errorf("expected 3 supplied parts, got %d", got)
	}

	out, err = runCLI(t, "solve", network, "--all")
	if err != nil {
		t.Fatalf("solve --all failed: %v", err)
	}
	if !strings.Contains(out, "2 trees, 2 complete") {
		t.Errorf("unexpected listing %q", out)
	}

	if _, err := runCLI(t, "solve", network, "--goal", "table"); err == nil {
		t.Error("expected an error for an unknown goal")
	}
}

func TestOKHCommands(t *testing.T) {
	dir := t.TempDir()
	manifest := mustWriteFile(t, filepath.Join(dir, "mask.yml"), maskManifest)
	workshops := mustWriteFile(t, filepath.Join(dir, "okw.yml"), `- name: Lab
  tooling: [sewing machine, scissors]
- name: Garage
  tooling: [scissors]
`)

	out, err := runCLI(t, "okh", "validate", manifest)
	if err != nil || !strings.Contains(out, "ok    "+manifest) {
		t.Fatalf("okh validate: %v %q", err, out)
	}

	out, err = runCLI(t, "okh", "supplies", manifest, "-w", workshops)
	if err != nil {
		t.Fatalf("okh supplies failed: %v", err)
	}
	if !strings.Contains(out, "Lab|Mask: Mask <- ") || strings.Contains(out, "Garage") {
		t.Errorf("unexpected supplies %q", out)
	}

	netPath := filepath.Join(dir, "fed.yaml")
	if _, err := runCLI(t, "okh", "supplies", manifest, "-w", workshops, "-o", netPath); err != nil {
		t.Fatalf("okh supplies -o failed: %v", err)
	}
	doc, err := supply.LoadNetwork(netPath)
	if err != nil {
		t.Fatalf("federation network did not load: %v", err)
	}
	if doc.Goal != "Mask" || len(doc.Supplies) != 1 {
		t.Errorf("unexpected network %+v", doc)
	}

	if _, err := runCLI(t, "okh", "refine", manifest); err != nil {
		t.Fatalf("okh refine failed: %v", err)
	}
	refined, err := okh.LoadManifest(filepath.Join(dir, okh.RefinedFileName("mask.yml")))
	if err != nil {
		t.Fatalf("refined manifest did not load: %v", err)
	}
	if !refined.Refined() {
		t.Error("expected atom lists in the refined manifest")
	}
}

func TestResolveSource(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(loader.TreeDirEnvVar, dir)

	got, err := resolveSource(nil)
	if err != nil {
		t.Fatalf("resolveSource: %v", err)
	}
	if got != dir {
		t.Errorf("expected the tree dir %s, got %s", dir, got)
	}
	if got, _ := resolveSource([]string{"x.json"}); got != "x.json" {
		t.Errorf("explicit argument ignored, got %s", got)
	}
}

func TestViewStatePath(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	a := viewStatePath("trees/chair.json")
	b := viewStatePath("other/chair.json")
	if !strings.HasPrefix(a, filepath.Join(state, "supplyviz", "views", "chair-")) || !strings.HasSuffix(a, ".json") {
		t.Fatalf("unexpected state path %s", a)
	}
	if a == b {
		t.Error("different sources share a state file")
	}
	if a != viewStatePath("trees/chair.json") {
		t.Error("state path is not stable")
	}
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	a := mustWriteFile(t, filepath.Join(dir, "a.json"), chairJSON)
	b := mustWriteFile(t, filepath.Join(dir, "b.yaml"), `product: {id: chair, desc: Chair}
type: made
party: Shop
design: c1
bom:
  - product: {id: leg, desc: Leg}
    type: supplied
    party: Mill
`)
	out, err := runCLI(t, "diff", a, b)
	if err != nil {
		t.Fatalf("diff of equal sources failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Sources match (7 elements each)") {
		t.Errorf("unexpected summary %q", out)
	}

	c := mustWriteFile(t, filepath.Join(dir, "c.json"), `{"product":{"id":"chair","desc":"Chair"},"type":"made","party":"Shop","design":"c1","bom":[
  {"product":{"id":"leg","desc":"Leg"},"type":"missing"}]}`)
	out, err = runCLI(t, "diff", a, c)
	if err == nil {
		t.Fatal("expected differing sources to fail")
	}
	if !strings.Contains(out, "missing-leg") {
		t.Errorf("expected the missing leg in %q", out)
	}
}

func TestWatchKind(t *testing.T) {
	tests := []struct {
		typ  datasource.SourceType
		want watcher.Kind
	}{
		{datasource.SourceTypeTree, watcher.KindDocument},
		{datasource.SourceTypeNetwork, watcher.KindDocument},
		{datasource.SourceTypeSQLite, watcher.KindSQLite},
	}
	for _, tt := range tests {
		if got := watchKind(tt.typ); got != tt.want {
			t.Errorf("watchKind(%s) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}
