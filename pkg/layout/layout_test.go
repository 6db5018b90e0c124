package layout

import (
	"math"
	"testing"

	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/model"
)

func chairElements(t *testing.T) elements.Elements {
	t.Helper()
	tree := model.Made(model.Product{ID: "chair", Desc: "Chair"}, "Shop", "chair-1",
		model.Supplied(model.Product{ID: "leg", Desc: "Leg"}, "Mill"),
		model.Missing(model.Product{ID: "seat", Desc: "Seat"}),
		model.Made(model.Product{ID: "back", Desc: "Back"}, "Joiner", "back-2",
			model.Supplied(model.Product{ID: "slat", Desc: "Slat"}, "Mill"),
		),
	)
	e, err := elements.Build(tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return e
}

func TestComputeRanks(t *testing.T) {
	res, err := Compute(chairElements(t), FromConfig(config.DefaultConfig()))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.Ranks != 6 {
		t.Errorf("ranks = %d, want 6", res.Ranks)
	}
	want := map[string]int{
		"supplier-Mill-leg":  0,
		"missing-seat":       0,
		"supplier-Mill-slat": 0,
		"leg":                1,
		"slat":               1,
		"maker-Joiner-back":  2,
		"back":               3,
		"maker-Shop-chair":   4,
		"chair":              5,
	}
	for id, rank := range want {
		n, ok := res.Node(id)
		if !ok {
			t.Fatalf("node %s not placed", id)
		}
		if n.Rank != rank {
			t.Errorf("rank(%s) = %d, want %d", id, n.Rank, rank)
		}
	}
}

func TestFlipPutsRootOnTop(t *testing.T) {
	opts := FromConfig(config.DefaultConfig())
	flipped, err := Compute(chairElements(t), opts)
	if err != nil {
		t.Fatal(err)
	}
	root, _ := flipped.Node("chair")
	for _, n := range flipped.Nodes {
		if n.Data.ID != "chair" && n.Center.Y <= root.Center.Y {
			t.Errorf("%s (y=%v) is not below the root (y=%v)", n.Data.ID, n.Center.Y, root.Center.Y)
		}
	}

	opts.Flip = false
	plain, err := Compute(chairElements(t), opts)
	if err != nil {
		t.Fatal(err)
	}
	root, _ = plain.Node("chair")
	if root.Center.Y != plain.Bounds.Y2-root.Height/2 {
		t.Errorf("without flip the root should sit at the bottom, got y=%v bounds=%+v", root.Center.Y, plain.Bounds)
	}

	// The flip is a rotation about the centre, so the bounds keep their size.
	if math.Abs(flipped.Bounds.Width()-plain.Bounds.Width()) > 1e-9 || math.Abs(flipped.Bounds.Height()-plain.Bounds.Height()) > 1e-9 {
		t.Errorf("bounds changed size: %+v vs %+v", flipped.Bounds, plain.Bounds)
	}
}

func TestNodesDoNotOverlap(t *testing.T) {
	res, err := Compute(chairElements(t), FromConfig(config.DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range res.Nodes {
		for _, b := range res.Nodes[i+1:] {
			ab, bb := a.Box(), b.Box()
			if ab.X1 < bb.X2 && bb.X1 < ab.X2 && ab.Y1 < bb.Y2 && bb.Y1 < ab.Y2 {
				t.Errorf("%s overlaps %s", a.Data.ID, b.Data.ID)
			}
		}
	}
}

func TestNodeSizesFollowStyle(t *testing.T) {
	res, err := Compute(chairElements(t), FromConfig(config.DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	maker, _ := res.Node("maker-Shop-chair")
	if maker.Width != 545 || maker.Height != 539 {
		t.Errorf("maker size = %vx%v", maker.Width, maker.Height)
	}
	atom, _ := res.Node("leg")
	if atom.Width != 644 || atom.Height != 227 {
		t.Errorf("atom size = %vx%v", atom.Width, atom.Height)
	}
}

func TestEdgesClippedToBoxes(t *testing.T) {
	res, err := Compute(chairElements(t), FromConfig(config.DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Edges) != 8 {
		t.Fatalf("edges = %d, want 8", len(res.Edges))
	}
	for _, e := range res.Edges {
		src, _ := res.Node(e.Data.Source)
		if !onBorder(e.From, src.Box()) {
			t.Errorf("edge %s does not start on the border of %s: %+v vs %+v", e.Data.ID, src.Data.ID, e.From, src.Box())
		}
	}
}

func onBorder(p Point, r Rect) bool {
	const eps = 1e-6
	inside := p.X >= r.X1-eps && p.X <= r.X2+eps && p.Y >= r.Y1-eps && p.Y <= r.Y2+eps
	edge := math.Abs(p.X-r.X1) < eps || math.Abs(p.X-r.X2) < eps || math.Abs(p.Y-r.Y1) < eps || math.Abs(p.Y-r.Y2) < eps
	return inside && edge
}

func TestComputeRejectsCycle(t *testing.T) {
	e := elements.Elements{
		Nodes: []elements.Node{{Data: elements.NodeData{ID: "a", Class: elements.ClassAtom}}, {Data: elements.NodeData{ID: "b", Class: elements.ClassAtom}}},
		Edges: []elements.Edge{
			{Data: elements.EdgeData{ID: "ab", Source: "a", Target: "b"}},
			{Data: elements.EdgeData{ID: "ba", Source: "b", Target: "a"}},
		},
	}
	if _, err := Compute(e, Options{}); err == nil {
		t.Error("expected cycle error")
	}
}

func TestComputeEmpty(t *testing.T) {
	res, err := Compute(elements.Elements{}, Options{})
	if err != nil || len(res.Nodes) != 0 {
		t.Errorf("empty input should give empty layout, got %+v %v", res, err)
	}
}
