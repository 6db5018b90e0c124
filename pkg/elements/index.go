package elements

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// Index answers traversal questions about an element set. It is built once
// and is read-only afterwards, so it can be shared between goroutines.
type Index struct {
	elems    Elements
	g        *simple.DirectedGraph
	idToNode map[string]int64
	nodeToID map[int64]string
	order    map[string]int // element position, nodes then edges
	outEdges map[string][]string
	incident map[string][]string
}

// NewIndex builds the traversal index. Edges whose endpoints are not nodes of
// the set are rejected.
func NewIndex(e Elements) (*Index, error) {
	g := simple.NewDirectedGraph()
	idx := &Index{
		elems:    e,
		g:        g,
		idToNode: make(map[string]int64, len(e.Nodes)),
		nodeToID: make(map[int64]string, len(e.Nodes)),
		order:    make(map[string]int, e.Len()),
		outEdges: make(map[string][]string),
		incident: make(map[string][]string),
	}

	for i, n := range e.Nodes {
		if _, dup := idx.idToNode[n.Data.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.Data.ID)
		}
		gn := g.NewNode()
		g.AddNode(gn)
		idx.idToNode[n.Data.ID] = gn.ID()
		idx.nodeToID[gn.ID()] = n.Data.ID
		idx.order[n.Data.ID] = i
	}

	for i, ed := range e.Edges {
		u, ok := idx.idToNode[ed.Data.Source]
		if !ok {
			return nil, fmt.Errorf("edge %q: unknown source %q", ed.Data.ID, ed.Data.Source)
		}
		v, ok := idx.idToNode[ed.Data.Target]
		if !ok {
			return nil, fmt.Errorf("edge %q: unknown target %q", ed.Data.ID, ed.Data.Target)
		}
		idx.order[ed.Data.ID] = len(e.Nodes) + i
		idx.outEdges[ed.Data.Source] = append(idx.outEdges[ed.Data.Source], ed.Data.ID)
		idx.incident[ed.Data.Source] = append(idx.incident[ed.Data.Source], ed.Data.ID)
		if ed.Data.Source != ed.Data.Target {
			idx.incident[ed.Data.Target] = append(idx.incident[ed.Data.Target], ed.Data.ID)
			g.SetEdge(g.NewEdge(g.Node(u), g.Node(v)))
		}
	}
	return idx, nil
}

// Elements returns the indexed element set.
func (idx *Index) Elements() Elements {
	return idx.elems
}

// Has reports whether id names a node or an edge.
func (idx *Index) Has(id string) bool {
	_, ok := idx.order[id]
	return ok
}

// IsNode reports whether id names a node.
func (idx *Index) IsNode(id string) bool {
	_, ok := idx.idToNode[id]
	return ok
}

// Node returns the node data for id.
func (idx *Index) Node(id string) (NodeData, bool) {
	i, ok := idx.order[id]
	if !ok || i >= len(idx.elems.Nodes) {
		return NodeData{}, false
	}
	return idx.elems.Nodes[i].Data, true
}

// NodesOfClass returns the ids of nodes with the given class, in element order.
func (idx *Index) NodesOfClass(c Class) []string {
	var out []string
	for _, n := range idx.elems.Nodes {
		if n.Data.Class == c {
			out = append(out, n.Data.ID)
		}
	}
	return out
}

// ConnectedEdges returns the ids of edges touching node id.
func (idx *Index) ConnectedEdges(id string) []string {
	return append([]string(nil), idx.incident[id]...)
}

// Successors returns the nodes reachable from id by following edges forward,
// and the edges leaving id or any of those nodes. The start node itself is not
// included. Both lists are in element order.
func (idx *Index) Successors(id string) (nodes, edges []string) {
	start, ok := idx.idToNode[id]
	if !ok {
		return nil, nil
	}

	reached := map[string]bool{id: true}
	var bf traverse.BreadthFirst
	bf.Walk(idx.g, idx.g.Node(start), func(n graph.Node, _ int) bool {
		reached[idx.nodeToID[n.ID()]] = true
		return false
	})

	edgeSet := make(map[string]bool)
	for nodeID := range reached {
		for _, e := range idx.outEdges[nodeID] {
			edgeSet[e] = true
		}
		if nodeID != id {
			nodes = append(nodes, nodeID)
		}
	}
	for e := range edgeSet {
		edges = append(edges, e)
	}
	idx.sortByOrder(nodes)
	idx.sortByOrder(edges)
	return nodes, edges
}

// TopoOrder returns node ids so every edge points forward. It fails when the
// element set contains a cycle, which happens if two products are each part
// of the other's BOM.
func (idx *Index) TopoOrder() ([]string, error) {
	sorted, err := topo.Sort(idx.g)
	if err != nil {
		return nil, fmt.Errorf("graph is not acyclic: %w", err)
	}
	out := make([]string, len(sorted))
	for i, n := range sorted {
		out[i] = idx.nodeToID[n.ID()]
	}
	return out, nil
}

// Predecessors returns the ids of nodes with an edge into id.
func (idx *Index) Predecessors(id string) []string {
	n, ok := idx.idToNode[id]
	if !ok {
		return nil
	}
	var out []string
	it := idx.g.To(n)
	for it.Next() {
		out = append(out, idx.nodeToID[it.Node().ID()])
	}
	idx.sortByOrder(out)
	return out
}

func (idx *Index) sortByOrder(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return idx.order[ids[i]] < idx.order[ids[j]]
	})
}
