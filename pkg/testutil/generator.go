// Package testutil provides BOM tree fixture generators for tests.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/supplyviz/pkg/model"
)

// GeneratorConfig controls tree generation.
type GeneratorConfig struct {
	Seed          int64    // Random seed for determinism (0 = 42)
	IDPrefix      string   // Prefix for product IDs (default: "p")
	Parties       []string // Parties picked for makers and suppliers
	MissingRatio  float64  // Share of leaves that are missing rather than supplied
	DescribeParts bool     // Fill Product.Desc
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:          42,
		IDPrefix:      "p",
		Parties:       []string{"Acme", "Globex", "Initech"},
		MissingRatio:  0.2,
		DescribeParts: true,
	}
}

// Generator creates BOM trees with various shapes. Every product it emits has
// a unique ID, so element counts follow directly from the tree shape.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	next int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "p"
	}
	if len(cfg.Parties) == 0 {
		cfg.Parties = DefaultConfig().Parties
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func (g *Generator) product() model.Product {
	id := fmt.Sprintf("%s%d", g.cfg.IDPrefix, g.next)
	g.next++
	p := model.Product{ID: id}
	if g.cfg.DescribeParts {
		p.Desc = "Part " + id
	}
	return p
}

func (g *Generator) party() string {
	return g.cfg.Parties[g.rng.Intn(len(g.cfg.Parties))]
}

func (g *Generator) leaf() model.Tree {
	if g.rng.Float64() < g.cfg.MissingRatio {
		return model.Missing(g.product())
	}
	return model.Supplied(g.product(), g.party())
}

func (g *Generator) made(bom ...model.Tree) model.Tree {
	p := g.product()
	return model.Made(p, g.party(), "design-"+p.ID, bom...)
}

// Chain creates made trees nested depth levels deep with one supplied leaf
// at the bottom. Depth() of the result is depth+1.
func (g *Generator) Chain(depth int) model.Tree {
	if depth < 1 {
		depth = 1
	}
	t := model.Supplied(g.product(), g.party())
	for i := 0; i < depth; i++ {
		t = g.made(t)
	}
	return t
}

// Star creates a single maker with width leaves.
func (g *Generator) Star(width int) model.Tree {
	bom := make([]model.Tree, width)
	for i := range bom {
		bom[i] = g.leaf()
	}
	return g.made(bom...)
}

// Tree creates a complete tree: every made node has breadth children and the
// leaves sit depth levels below the root.
func (g *Generator) Tree(depth, breadth int) model.Tree {
	if depth <= 1 {
		return g.Star(breadth)
	}
	bom := make([]model.Tree, breadth)
	for i := range bom {
		bom[i] = g.Tree(depth-1, breadth)
	}
	return g.made(bom...)
}

// Random creates a made root with exactly size nodes in total. Each new node
// is attached to a randomly chosen made node.
func (g *Generator) Random(size int) model.Tree {
	root := g.made()
	for n := 1; n < size; n++ {
		// Appending may move a BOM slice, so pointers are collected afresh.
		makers := collectMakers(&root)
		parent := makers[g.rng.Intn(len(makers))]
		if g.rng.Intn(3) == 0 {
			parent.BOM = append(parent.BOM, g.made())
		} else {
			parent.BOM = append(parent.BOM, g.leaf())
		}
	}
	return root
}

func collectMakers(t *model.Tree) []*model.Tree {
	out := []*model.Tree{t}
	for i := range t.BOM {
		if t.BOM[i].Type == model.KindMade {
			out = append(out, collectMakers(&t.BOM[i])...)
		}
	}
	return out
}

// Chair returns the small chair tree used across package tests.
func Chair() model.Tree {
	return model.Made(model.Product{ID: "chair", Desc: "Chair"}, "Shop", "c1",
		model.Supplied(model.Product{ID: "leg", Desc: "Leg"}, "Mill"),
		model.Missing(model.Product{ID: "seat", Desc: "Seat"}),
		model.Made(model.Product{ID: "back", Desc: "Back"}, "Shop", "b1",
			model.Supplied(model.Product{ID: "slat", Desc: "Slat"}, "Mill"),
		),
	)
}

// Single returns the smallest tree Build accepts.
func Single() model.Tree {
	return model.Made(model.Product{ID: "solo", Desc: "Solo"}, "Shop", "s1")
}

// ExpectedElements returns the node and edge counts elements.Build yields for
// a tree whose product IDs are unique.
func ExpectedElements(t model.Tree) (nodes, edges int) {
	switch t.Type {
	case model.KindMissing:
		return 1, 0
	case model.KindSupplied:
		return 2, 1
	}
	nodes, edges = 2, 1
	for _, c := range t.BOM {
		n, e := ExpectedElements(c)
		nodes += n
		edges += e + 1
	}
	return nodes, edges
}
