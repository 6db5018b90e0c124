package testutil

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/supplyviz/pkg/model"
)

func TestChain(t *testing.T) {
	tree := NewDefault().Chain(4)
	if err := tree.Validate(); err != nil {
		t.Fatalf("invalid chain: %v", err)
	}
	if got := tree.Depth(); got != 5 {
		t.Errorf("Depth = %d, want 5", got)
	}
	c := tree.Counts()
	if c.Made != 4 || c.Supplied != 1 || c.Missing != 0 {
		t.Errorf("Counts = %+v", c)
	}
}

func TestStar(t *testing.T) {
	tree := New(GeneratorConfig{Seed: 7, MissingRatio: 1}).Star(5)
	if len(tree.BOM) != 5 {
		t.Fatalf("expected 5 leaves, got %d", len(tree.BOM))
	}
	for _, leaf := range tree.BOM {
		if leaf.Type != model.KindMissing {
			t.Errorf("MissingRatio 1 should only yield missing leaves, got %s", leaf.Type)
		}
	}
}

func TestTreeShape(t *testing.T) {
	tree := NewDefault().Tree(3, 2)
	c := tree.Counts()
	if c.Made != 1+2+4 {
		t.Errorf("expected 7 makers, got %d", c.Made)
	}
	if c.Supplied+c.Missing != 8 {
		t.Errorf("expected 8 leaves, got %d", c.Supplied+c.Missing)
	}
}

func TestDeterministic(t *testing.T) {
	a := NewDefault().Random(40)
	b := NewDefault().Random(40)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed should yield the same tree")
	}
	c := New(GeneratorConfig{Seed: 99}).Random(40)
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds should differ")
	}
}

func TestRandomBuilds(t *testing.T) {
	for _, size := range []int{1, 2, 10, 100} {
		tree := NewDefault().Random(size)
		if got := tree.Counts().Total(); got != size {
			t.Errorf("Random(%d) has %d nodes", size, got)
		}
		e := MustBuild(t, tree)
		AssertNoDuplicateIDs(t, e)
		AssertEdgesResolve(t, e)
		AssertElementCounts(t, tree, e)
	}
}

func TestChairFixture(t *testing.T) {
	e := MustBuild(t, Chair())
	want := []string{
		"chair", "maker-Shop-chair",
		"leg", "supplier-Mill-leg",
		"missing-seat",
		"back", "maker-Shop-back",
		"slat", "supplier-Mill-slat",
	}
	if got := NodeIDs(e); !reflect.DeepEqual(got, want) {
		t.Errorf("NodeIDs = %v", got)
	}
	AssertElementCounts(t, Chair(), e)
}
