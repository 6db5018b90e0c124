package elements

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/supplyviz/pkg/debug"
	"github.com/vanderheijden86/supplyviz/pkg/model"
)

func chairTree() model.Tree {
	return model.Made(model.Product{ID: "chair", Desc: "Chair"}, "Shop", "chair-1",
		model.Supplied(model.Product{ID: "leg", Desc: "Leg"}, "Mill"),
		model.Missing(model.Product{ID: "seat", Desc: "Seat"}),
		model.Made(model.Product{ID: "back", Desc: "Back"}, "Joiner", "back-2",
			model.Supplied(model.Product{ID: "slat", Desc: "Slat"}, "Mill"),
		),
	)
}

func nodeIDs(e Elements) []string {
	out := make([]string, len(e.Nodes))
	for i, n := range e.Nodes {
		out[i] = n.Data.ID
	}
	return out
}

func edgeIDs(e Elements) []string {
	out := make([]string, len(e.Edges))
	for i, ed := range e.Edges {
		out[i] = ed.Data.ID
	}
	return out
}

func TestBuildSingleMaker(t *testing.T) {
	tree := model.Made(model.Product{ID: "A", Desc: "Thing"}, "P", "d")
	got, err := Build(tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := Elements{
		Nodes: []Node{
			{Data: NodeData{ID: "A", Class: ClassAtom, Label: "Thing", Root: true}},
			{Data: NodeData{ID: "maker-P-A", Class: ClassMaker, Label: "P", Product: "A", Design: "d", Party: "P"}},
		},
		Edges: []Edge{
			{Data: EdgeData{ID: "edge-maker-P-A-->A", Source: "maker-P-A", Target: "A"}},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected elements:\n got %+v\nwant %+v", got, want)
	}
}

func TestBuildPreOrderIDs(t *testing.T) {
	got, err := Build(chairTree())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantNodes := []string{
		"chair", "maker-Shop-chair",
		"leg", "supplier-Mill-leg",
		"missing-seat",
		"back", "maker-Joiner-back",
		"slat", "supplier-Mill-slat",
	}
	if ids := nodeIDs(got); !reflect.DeepEqual(ids, wantNodes) {
		t.Errorf("nodes = %v\nwant %v", ids, wantNodes)
	}

	wantEdges := []string{
		"edge-maker-Shop-chair-->chair",
		"edge-supplier-Mill-leg-->leg",
		"edge-leg-->maker-Shop-chair",
		"edge-missing-seat-->maker-Shop-chair",
		"edge-maker-Joiner-back-->back",
		"edge-supplier-Mill-slat-->slat",
		"edge-slat-->maker-Joiner-back",
		"edge-back-->maker-Shop-chair",
	}
	if ids := edgeIDs(got); !reflect.DeepEqual(ids, wantEdges) {
		t.Errorf("edges = %v\nwant %v", ids, wantEdges)
	}

	seat, ok := got.Node("missing-seat")
	if !ok || !seat.Data.Missing || seat.Data.Class != ClassAtom || seat.Data.Label != "Seat" {
		t.Errorf("unexpected missing node: %+v", seat)
	}
	root, ok := got.Root()
	if !ok || root.Data.ID != "chair" {
		t.Errorf("root = %+v", root)
	}
	for _, n := range got.Nodes[1:] {
		if n.Data.Root {
			t.Errorf("only the first node should be root, %s is too", n.Data.ID)
		}
	}
}

func TestBuildRejectsNonMadeRoot(t *testing.T) {
	for _, tree := range []model.Tree{
		model.Supplied(model.Product{ID: "x"}, "p"),
		model.Missing(model.Product{ID: "x"}),
	} {
		if _, err := Build(tree); !errors.Is(err, ErrRootNotMade) {
			t.Errorf("Build(%s) error = %v, want ErrRootNotMade", tree.Type, err)
		}
	}
}

func TestBuildRejectsInvalidTree(t *testing.T) {
	tree := model.Made(model.Product{ID: "a"}, "p", "d", model.Supplied(model.Product{ID: ""}, "q"))
	if _, err := Build(tree); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBuildCollapsesRepeatedProducts(t *testing.T) {
	leg := model.Supplied(model.Product{ID: "leg", Desc: "Leg"}, "Mill")
	tree := model.Made(model.Product{ID: "table", Desc: "Table"}, "Shop", "t", leg, leg, leg, leg)

	got, err := Build(tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got.Nodes) != 4 {
		t.Errorf("expected 4 unique nodes, got %v", nodeIDs(got))
	}
	if len(got.Edges) != 3 {
		t.Errorf("expected 3 unique edges, got %v", edgeIDs(got))
	}
	if _, err := NewIndex(got); err != nil {
		t.Errorf("collapsed elements should index cleanly: %v", err)
	}
}

func TestBuildSetsParty(t *testing.T) {
	got, err := Build(chairTree())
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range got.Nodes {
		switch n.Data.Class {
		case ClassMaker, ClassSupplier:
			if n.Data.Party == "" || n.Data.Party != n.Data.Label {
				t.Errorf("%s: party = %q, label = %q", n.Data.ID, n.Data.Party, n.Data.Label)
			}
		default:
			if n.Data.Party != "" {
				t.Errorf("atom %s should have no party, got %q", n.Data.ID, n.Data.Party)
			}
		}
	}
}

func TestBuildWarnsOnIDCollision(t *testing.T) {
	var buf bytes.Buffer
	debug.SetOutput(&buf)
	debug.SetEnabled(true)
	t.Cleanup(func() { debug.SetEnabled(false) })

	tree := model.Made(model.Product{ID: "chair", Desc: "Chair"}, "Shop", "c",
		model.Supplied(model.Product{ID: "missing-seat", Desc: "Seat cushion"}, "Mill"),
		model.Missing(model.Product{ID: "seat", Desc: "Seat"}),
	)
	got, err := Build(tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n, ok := got.Node("missing-seat")
	if !ok || n.Data.Missing || n.Data.Label != "Seat cushion" {
		t.Errorf("the first node should win, got %+v", n.Data)
	}
	out := buf.String()
	if !strings.Contains(out, `warning: id "missing-seat"`) || !strings.Contains(out, "missing atom") {
		t.Errorf("expected a collision warning, got %q", out)
	}

	// Repeats of the same product are expected and stay quiet.
	buf.Reset()
	leg := model.Supplied(model.Product{ID: "leg", Desc: "Leg"}, "Mill")
	if _, err := Build(model.Made(model.Product{ID: "table", Desc: "Table"}, "Shop", "t", leg, leg)); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "warning") {
		t.Errorf("repeated product should not warn, got %q", buf.String())
	}
}

func TestContainsIsOneWay(t *testing.T) {
	full, _ := Build(chairTree())
	small, _ := Build(model.Made(model.Product{ID: "chair", Desc: "Chair"}, "Shop", "chair-1"))

	if !Contains(small, full) {
		t.Error("small graph should be contained in the full graph")
	}
	if Contains(full, small) {
		t.Error("full graph should not be contained in the small graph")
	}
	if Equal(small, full) {
		t.Error("graphs of different size must not be equal")
	}
}

func TestEqualIgnoresOrder(t *testing.T) {
	a, _ := Build(chairTree())
	b := Elements{
		Nodes: append([]Node(nil), a.Nodes...),
		Edges: append([]Edge(nil), a.Edges...),
	}
	b.Nodes[0], b.Nodes[len(b.Nodes)-1] = b.Nodes[len(b.Nodes)-1], b.Nodes[0]
	b.Edges[0], b.Edges[1] = b.Edges[1], b.Edges[0]
	if !Equal(a, b) {
		t.Error("reordered elements should be equal")
	}

	b.Nodes[2].Data.Label = "Renamed"
	if Equal(a, b) {
		t.Error("a changed label must break equality")
	}
}

func TestHashIsCanonical(t *testing.T) {
	h1, err := Hash(map[string]any{"b": 1, "a": []int{1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Hash(map[string]any{"a": []int{1, 2}, "b": 1})
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("hash depends on key order: %s vs %s", h1, h2)
	}
	h3, _ := Hash(map[string]any{"a": []int{2, 1}, "b": 1})
	if h1 == h3 {
		t.Error("different values should hash differently")
	}
	if len(h1) != 16 {
		t.Errorf("expected 16 hex chars, got %q", h1)
	}
}

func TestDataHashStable(t *testing.T) {
	a, _ := Build(chairTree())
	b, _ := Build(chairTree())
	if a.DataHash() != b.DataHash() {
		t.Error("building the same tree twice should give the same data hash")
	}
}
