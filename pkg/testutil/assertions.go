package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/model"
)

// MustBuild converts t to elements or fails the test.
func MustBuild(t *testing.T, tree model.Tree) elements.Elements {
	t.Helper()
	e, err := elements.Build(tree)
	if err != nil {
		t.Fatalf("elements.Build: %v", err)
	}
	return e
}

// AssertNoDuplicateIDs verifies all element IDs are unique across nodes and edges.
func AssertNoDuplicateIDs(t *testing.T, e elements.Elements) {
	t.Helper()
	seen := make(map[string]bool, e.Len())
	check := func(id string) {
		if seen[id] {
			t.Errorf("duplicate element ID: %s", id)
		}
		seen[id] = true
	}
	for _, n := range e.Nodes {
		check(n.Data.ID)
	}
	for _, ed := range e.Edges {
		check(ed.Data.ID)
	}
}

// AssertEdgesResolve verifies every edge endpoint names an existing node.
func AssertEdgesResolve(t *testing.T, e elements.Elements) {
	t.Helper()
	for _, ed := range e.Edges {
		if _, ok := e.Node(ed.Data.Source); !ok {
			t.Errorf("edge %s: unknown source %s", ed.Data.ID, ed.Data.Source)
		}
		if _, ok := e.Node(ed.Data.Target); !ok {
			t.Errorf("edge %s: unknown target %s", ed.Data.ID, ed.Data.Target)
		}
	}
}

// AssertElementCounts verifies e matches the shape of tree.
func AssertElementCounts(t *testing.T, tree model.Tree, e elements.Elements) {
	t.Helper()
	nodes, edges := ExpectedElements(tree)
	if len(e.Nodes) != nodes || len(e.Edges) != edges {
		t.Errorf("expected %d nodes and %d edges, got %d and %d", nodes, edges, len(e.Nodes), len(e.Edges))
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{t: t, dir: dir, name: name, update: os.Getenv("GENERATE_GOLDEN") != ""}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()
	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}
	if string(expected) == actual {
		return
	}
	exp, act := strings.Split(string(expected), "\n"), strings.Split(actual, "\n")
	for i := 0; i < len(exp) || i < len(act); i++ {
		var e, a string
		if i < len(exp) {
			e = exp[i]
		}
		if i < len(act) {
			a = act[i]
		}
		if e != a {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, e, a)
			return
		}
	}
}

// WriteTreeFile writes tree as JSON to dir/name and returns the path.
func WriteTreeFile(t *testing.T, dir, name string, tree model.Tree) string {
	t.Helper()
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal tree: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write tree file: %v", err)
	}
	return path
}

// NodeIDs returns node IDs in emission order.
func NodeIDs(e elements.Elements) []string {
	ids := make([]string, len(e.Nodes))
	for i, n := range e.Nodes {
		ids[i] = n.Data.ID
	}
	return ids
}
