package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/model"
)

func TestGenerateInteractiveGraphFilename(t *testing.T) {
	name := GenerateInteractiveGraphFilename("my-project")

	if !strings.HasPrefix(name, "my-project_supply_graph__as_of__") {
		t.Errorf("Expected prefix 'my-project_supply_graph__as_of__', got: %s", name)
	}
	if !strings.HasSuffix(name, ".html") {
		t.Errorf("Expected .html suffix, got: %s", name)
	}
	if !strings.Contains(name, "__git_head_hash__") {
		t.Errorf("Expected git hash section, got: %s", name)
	}
}

func TestGenerateInteractiveGraphFilename_SpecialChars(t *testing.T) {
	name := GenerateInteractiveGraphFilename("my project/path")

	if strings.Contains(name, " ") || strings.Contains(name, "/") {
		t.Errorf("Spaces and slashes should be replaced, got: %s", name)
	}
	if !strings.HasPrefix(name, "my_project_path_supply_graph") {
		t.Errorf("Expected sanitized name prefix, got: %s", name)
	}
}

func TestRenderInteractiveHTML_Empty(t *testing.T) {
	_, err := RenderInteractiveHTML(InteractiveGraphOptions{Config: config.DefaultConfig()})
	if err == nil || !strings.Contains(err.Error(), "no elements") {
		t.Fatalf("expected 'no elements' error, got %v", err)
	}
}

// extractData pulls the embedded graph payload back out of a page.
func extractData(t *testing.T, page string) pageData {
	t.Helper()
	const marker = "const SVIZ_DATA = "
	i := strings.Index(page, marker)
	if i < 0 {
		t.Fatal("page has no SVIZ_DATA")
	}
	rest := page[i+len(marker):]
	end := strings.Index(rest, ";\n")
	if end < 0 {
		t.Fatal("SVIZ_DATA not terminated")
	}
	var data pageData
	raw := strings.ReplaceAll(rest[:end], `<\/`, "</")
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("decode SVIZ_DATA: %v", err)
	}
	return data
}

func TestRenderInteractiveHTML_Page(t *testing.T) {
	e := chairElements(t)
	page, err := RenderInteractiveHTML(InteractiveGraphOptions{
		Elements: e,
		Config:   config.DefaultConfig(),
		Title:    "Chairs & Co",
	})
	if err != nil {
		t.Fatalf("RenderInteractiveHTML: %v", err)
	}

	for _, want := range []string{
		"<title>Chairs &amp; Co</title>",
		"cytoscape",
		"cytoscape-dagre",
		"tippy",
		"toggleDescendantsVisibilityOnClick",
		"makerClickHandler",
		e.DataHash(),
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	for _, placeholder := range []string{"__TITLE__", "__STYLE__", "__SCRIPT__", "__GRAPH_DATA__", "__DATA_HASH__"} {
		if strings.Contains(page, placeholder) {
			t.Errorf("placeholder %s left in page", placeholder)
		}
	}

	data := extractData(t, page)
	if !elements.Equal(data.Elements, e) {
		t.Error("embedded elements differ from input")
	}
	if data.Layout.RankSep != 500 || data.Layout.NodeSep != 300 || !data.Layout.Flip {
		t.Errorf("layout = %+v", data.Layout)
	}
	if len(data.Positions) != 0 {
		t.Error("dynamic layout should not embed positions")
	}
	if len(data.Interaction.ToggleClasses) != 1 || data.Interaction.ToggleClasses[0] != "maker" {
		t.Errorf("toggle classes = %v", data.Interaction.ToggleClasses)
	}
}

func TestRenderInteractiveHTML_StaticLayout(t *testing.T) {
	e := chairElements(t)
	page, err := RenderInteractiveHTML(InteractiveGraphOptions{
		Elements:     e,
		Config:       config.DefaultConfig(),
		StaticLayout: true,
	})
	if err != nil {
		t.Fatalf("RenderInteractiveHTML: %v", err)
	}
	data := extractData(t, page)
	if len(data.Positions) != len(e.Nodes) {
		t.Fatalf("positions = %d, want %d", len(data.Positions), len(e.Nodes))
	}
	// Flipped: the root product sits above its maker.
	if data.Positions["chair"].Y >= data.Positions["maker-Shop-chair"].Y {
		t.Errorf("root should be above its maker: %v vs %v", data.Positions["chair"], data.Positions["maker-Shop-chair"])
	}
}

func TestRenderInteractiveHTML_EscapesScriptClose(t *testing.T) {
	tree := model.Made(model.Product{ID: "x", Desc: "</script><b>"}, "P", "d")
	e, err := elements.Build(tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	page, err := RenderInteractiveHTML(InteractiveGraphOptions{Elements: e, Config: config.DefaultConfig()})
	if err != nil {
		t.Fatalf("RenderInteractiveHTML: %v", err)
	}
	if strings.Count(page, "</script>") != strings.Count(htmlTemplate, "</script>") {
		t.Error("label closed a script tag")
	}
}

func TestGenerateInteractiveGraphHTML_WritesFile(t *testing.T) {
	dir := t.TempDir()
	path, err := GenerateInteractiveGraphHTML(InteractiveGraphOptions{
		Elements: chairElements(t),
		Config:   config.DefaultConfig(),
		Path:     filepath.Join(dir, "nested", "graph.txt"),
	})
	if err != nil {
		t.Fatalf("GenerateInteractiveGraphHTML: %v", err)
	}
	if filepath.Ext(path) != ".html" {
		t.Errorf("path = %s, want .html extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "<!DOCTYPE html>") {
		t.Error("file is not an HTML page")
	}
}

func TestGenerateInteractiveGraphHTML_AutoName(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Export.OutputDir = t.TempDir()
	path, err := GenerateInteractiveGraphHTML(InteractiveGraphOptions{
		Elements:    chairElements(t),
		Config:      cfg,
		ProjectName: "chairs",
	})
	if err != nil {
		t.Fatalf("GenerateInteractiveGraphHTML: %v", err)
	}
	if filepath.Dir(path) != cfg.Export.OutputDir {
		t.Errorf("path %s not in output dir", path)
	}
	if !strings.HasPrefix(filepath.Base(path), "chairs_supply_graph") {
		t.Errorf("unexpected name %s", filepath.Base(path))
	}
}

func TestCytoscapeStyle(t *testing.T) {
	rules := CytoscapeStyle(config.DefaultConfig().Style)
	bySelector := make(map[string]map[string]any, len(rules))
	for _, r := range rules {
		bySelector[r.Selector] = r.Style
	}

	atom := bySelector["node[class='atom']"]
	if atom["width"] != "644px" || atom["height"] != "227px" || atom["font-size"] != 90 {
		t.Errorf("atom style = %v", atom)
	}
	if got := bySelector["node[class='maker']"]["background-image"]; got != config.DefaultMakerImage {
		t.Errorf("maker image = %v", got)
	}
	if got := bySelector["node[class='atom'][?missing]"]["background-color"]; got != "red" {
		t.Errorf("missing colour = %v", got)
	}
	if got := bySelector[".highlighted"]["border-color"]; got != "lightgreen" {
		t.Errorf("highlight colour = %v", got)
	}
	edge := bySelector["edge"]
	if edge["curve-style"] != "bezier" || edge["target-arrow-shape"] != "triangle" || edge["width"] != 15.0 {
		t.Errorf("edge style = %v", edge)
	}
}
