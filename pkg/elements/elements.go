// Package elements turns a BOM tree into a flat list of graph nodes and edges
// in the cytoscape ElementsDefinition shape.
//
// Every product becomes an "atom" node. The party that provides it becomes a
// "maker" or "supplier" node with an edge pointing at the atom, and each BOM
// entry of a made product points at its maker. Edges therefore run from the
// leaves of the BOM towards the root product.
package elements

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/supplyviz/pkg/debug"
	"github.com/vanderheijden86/supplyviz/pkg/metrics"
	"github.com/vanderheijden86/supplyviz/pkg/model"
)

// Class is the role of a node in the graph.
type Class string

const (
	ClassAtom     Class = "atom"
	ClassMaker    Class = "maker"
	ClassSupplier Class = "supplier"
)

// ErrRootNotMade is returned when Build is given a supplied or missing tree.
var ErrRootNotMade = errors.New("root tree must be of type made")

// NodeData is the payload of a node. Product and Party are filled on maker and
// supplier nodes, Design on makers, so data panels can show what they provide.
type NodeData struct {
	ID      string `json:"id"`
	Class   Class  `json:"class"`
	Label   string `json:"label"`
	Missing bool   `json:"missing,omitempty"`
	Root    bool   `json:"root,omitempty"`
	Product string `json:"product,omitempty"`
	Design  string `json:"design,omitempty"`
	Party   string `json:"party,omitempty"`
}

// EdgeData is the payload of an edge.
type EdgeData struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Node wraps NodeData the way cytoscape expects.
type Node struct {
	Data NodeData `json:"data"`
}

// Edge wraps EdgeData the way cytoscape expects.
type Edge struct {
	Data EdgeData `json:"data"`
}

// Elements is a complete graph definition.
type Elements struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Len returns the total number of elements.
func (e Elements) Len() int {
	return len(e.Nodes) + len(e.Edges)
}

// Node returns the node with the given id.
func (e Elements) Node(id string) (Node, bool) {
	for _, n := range e.Nodes {
		if n.Data.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Edge returns the edge with the given id.
func (e Elements) Edge(id string) (Edge, bool) {
	for _, ed := range e.Edges {
		if ed.Data.ID == id {
			return ed, true
		}
	}
	return Edge{}, false
}

// Root returns the node flagged as the root product.
func (e Elements) Root() (Node, bool) {
	for _, n := range e.Nodes {
		if n.Data.Root {
			return n, true
		}
	}
	return Node{}, false
}

// AtomID is the node id of a product that some party provides.
func AtomID(p model.Product) string {
	return p.ID
}

// MissingID is the node id of a product nobody provides.
func MissingID(p model.Product) string {
	return "missing-" + p.ID
}

// MakerID is the node id of the party that makes a product.
func MakerID(party string, p model.Product) string {
	return fmt.Sprintf("maker-%s-%s", party, AtomID(p))
}

// SupplierID is the node id of the party that supplies a product.
func SupplierID(party string, p model.Product) string {
	return fmt.Sprintf("supplier-%s-%s", party, AtomID(p))
}

// EdgeID names the edge from source to target.
func EdgeID(source, target string) string {
	return fmt.Sprintf("edge-%s-->%s", source, target)
}

// Build converts a made tree into graph elements. Nodes are emitted in
// pre-order and the first node, the root product, is flagged with Root.
//
// A product that appears more than once under the same role yields the same
// ids each time; only its first occurrence is kept so ids stay unique. When
// two different nodes land on one id (a product with id "missing-seat" next
// to a missing "seat") the first one wins and a warning is logged.
func Build(root model.Tree) (Elements, error) {
	defer metrics.Timer(metrics.ElementsBuild)()

	if root.Type != model.KindMade {
		return Elements{}, fmt.Errorf("%w: got %q", ErrRootNotMade, root.Type)
	}
	if err := root.Validate(); err != nil {
		return Elements{}, fmt.Errorf("invalid tree: %w", err)
	}

	b := &builder{
		nodeSeen: make(map[string]NodeData),
		edgeSeen: make(map[string]bool),
	}
	b.tree(root)
	b.out.Nodes[0].Data.Root = true

	debug.LogIf(len(b.collapsed) > 0, "elements: collapsed %d repeated ids: %v", len(b.collapsed), b.collapsed)
	return b.out, nil
}

type builder struct {
	out       Elements
	nodeSeen  map[string]NodeData
	edgeSeen  map[string]bool
	collapsed []string
}

func (b *builder) node(d NodeData) {
	if prev, ok := b.nodeSeen[d.ID]; ok {
		b.collapsed = append(b.collapsed, d.ID)
		if prev.Class != d.Class || prev.Label != d.Label || prev.Missing != d.Missing {
			debug.Log("elements: warning: id %q is shared by %s %q and %s %q, keeping the first",
				d.ID, describeNode(prev), prev.Label, describeNode(d), d.Label)
		}
		return
	}
	b.nodeSeen[d.ID] = d
	b.out.Nodes = append(b.out.Nodes, Node{Data: d})
}

func (b *builder) edge(source, target string) {
	id := EdgeID(source, target)
	if b.edgeSeen[id] {
		b.collapsed = append(b.collapsed, id)
		return
	}
	b.edgeSeen[id] = true
	b.out.Edges = append(b.out.Edges, Edge{Data: EdgeData{ID: id, Source: source, Target: target}})
}

// tree emits the elements of t and returns the id of its first node, which is
// what the parent maker links to.
func (b *builder) tree(t model.Tree) string {
	switch t.Type {
	case model.KindSupplied:
		atomID := AtomID(t.Product)
		supplierID := SupplierID(t.Party, t.Product)
		b.node(NodeData{ID: atomID, Class: ClassAtom, Label: t.Product.Desc})
		b.node(NodeData{ID: supplierID, Class: ClassSupplier, Label: t.Party, Product: t.Product.ID, Party: t.Party})
		b.edge(supplierID, atomID)
		return atomID

	case model.KindMissing:
		id := MissingID(t.Product)
		b.node(NodeData{ID: id, Class: ClassAtom, Label: t.Product.Desc, Missing: true})
		return id

	default:
		atomID := AtomID(t.Product)
		makerID := MakerID(t.Party, t.Product)
		b.node(NodeData{ID: atomID, Class: ClassAtom, Label: t.Product.Desc})
		b.node(NodeData{ID: makerID, Class: ClassMaker, Label: t.Party, Product: t.Product.ID, Design: t.Design, Party: t.Party})
		b.edge(makerID, atomID)
		for _, child := range t.BOM {
			childRoot := b.tree(child)
			b.edge(childRoot, makerID)
		}
		return atomID
	}
}

func describeNode(d NodeData) string {
	if d.Missing {
		return "missing " + string(d.Class)
	}
	return string(d.Class)
}
