// Package layout places graph elements on a plane for static renderings.
//
// It produces the same picture the browser gets from dagre: a layered,
// top-to-bottom layout where edge sources sit above their targets, then
// rotated 180 degrees so the root product ends up on top and the raw
// suppliers at the bottom.
package layout

import (
	"fmt"
	"math"
	"sort"

	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/debug"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/metrics"
)

// Options tune the layout.
type Options struct {
	RankSep float64
	NodeSep float64
	Flip    bool
	SizeOf  func(class elements.Class) config.Size
}

// FromConfig builds Options from user configuration.
func FromConfig(cfg config.Config) Options {
	style := cfg.Style
	return Options{
		RankSep: cfg.Layout.RankSep,
		NodeSep: cfg.Layout.NodeSep,
		Flip:    cfg.Layout.FlipEnabled(),
		SizeOf: func(c elements.Class) config.Size {
			return style.SizeOf(string(c))
		},
	}
}

// Point is a position in layout units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box given by its corners.
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width of the box.
func (r Rect) Width() float64 { return r.X2 - r.X1 }

// Height of the box.
func (r Rect) Height() float64 { return r.Y2 - r.Y1 }

// Center of the box.
func (r Rect) Center() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: (r.Y1 + r.Y2) / 2}
}

// PlacedNode is a node with its centre position and box size.
type PlacedNode struct {
	Data   elements.NodeData `json:"data"`
	Rank   int               `json:"rank"`
	Center Point             `json:"position"`
	Width  float64           `json:"width"`
	Height float64           `json:"height"`
}

// Box returns the node's bounding box.
func (n PlacedNode) Box() Rect {
	return Rect{
		X1: n.Center.X - n.Width/2,
		Y1: n.Center.Y - n.Height/2,
		X2: n.Center.X + n.Width/2,
		Y2: n.Center.Y + n.Height/2,
	}
}

// PlacedEdge is an edge clipped to the borders of its endpoint boxes.
type PlacedEdge struct {
	Data elements.EdgeData `json:"data"`
	From Point             `json:"from"`
	To   Point             `json:"to"`
}

// Result is a complete placement.
type Result struct {
	Nodes  []PlacedNode `json:"nodes"`
	Edges  []PlacedEdge `json:"edges"`
	Bounds Rect         `json:"bounds"`
	Ranks  int          `json:"ranks"`
}

// Node returns the placed node with the given id.
func (r Result) Node(id string) (PlacedNode, bool) {
	for _, n := range r.Nodes {
		if n.Data.ID == id {
			return n, true
		}
	}
	return PlacedNode{}, false
}

// Positions returns node centres keyed by id, in the shape cytoscape's
// preset layout accepts.
func (r Result) Positions() map[string]Point {
	out := make(map[string]Point, len(r.Nodes))
	for _, n := range r.Nodes {
		out[n.Data.ID] = n.Center
	}
	return out
}

// Compute lays out e. It fails on cyclic graphs.
func Compute(e elements.Elements, opts Options) (Result, error) {
	defer metrics.Timer(metrics.Layout)()
	defer debug.LogEnterExit("layout.Compute")()

	if opts.SizeOf == nil {
		opts.SizeOf = FromConfig(config.DefaultConfig()).SizeOf
	}
	if len(e.Nodes) == 0 {
		return Result{}, nil
	}

	idx, err := elements.NewIndex(e)
	if err != nil {
		return Result{}, err
	}
	order, err := idx.TopoOrder()
	if err != nil {
		return Result{}, fmt.Errorf("layout: %w", err)
	}

	ranks := assignRanks(idx, order)
	layers := orderLayers(idx, e, ranks)

	elemPos := make(map[string]int, len(e.Nodes))
	for i, n := range e.Nodes {
		elemPos[n.Data.ID] = i
	}

	res := Result{Ranks: len(layers)}
	y := 0.0
	for r, layer := range layers {
		rowHeight := 0.0
		rowWidth := 0.0
		for i, id := range layer {
			n, _ := idx.Node(id)
			sz := opts.SizeOf(n.Class)
			rowHeight = math.Max(rowHeight, sz.Height)
			rowWidth += sz.Width
			if i > 0 {
				rowWidth += opts.NodeSep
			}
		}

		x := -rowWidth / 2
		for _, id := range layer {
			n, _ := idx.Node(id)
			sz := opts.SizeOf(n.Class)
			res.Nodes = append(res.Nodes, PlacedNode{
				Data:   n,
				Rank:   r,
				Center: Point{X: x + sz.Width/2, Y: y + rowHeight/2},
				Width:  sz.Width,
				Height: sz.Height,
			})
			x += sz.Width + opts.NodeSep
		}
		y += rowHeight + opts.RankSep
	}

	res.Bounds = bounds(res.Nodes)
	if opts.Flip {
		c := res.Bounds.Center()
		for i := range res.Nodes {
			res.Nodes[i].Center = rotate180(res.Nodes[i].Center, c)
		}
		res.Bounds = bounds(res.Nodes)
	}

	// Renderers draw in element order.
	sort.SliceStable(res.Nodes, func(i, j int) bool {
		return elemPos[res.Nodes[i].Data.ID] < elemPos[res.Nodes[j].Data.ID]
	})
	placed := make(map[string]int, len(res.Nodes))
	for i, n := range res.Nodes {
		placed[n.Data.ID] = i
	}

	for _, ed := range e.Edges {
		src := res.Nodes[placed[ed.Data.Source]]
		dst := res.Nodes[placed[ed.Data.Target]]
		res.Edges = append(res.Edges, PlacedEdge{
			Data: ed.Data,
			From: clipToBox(src.Center, dst.Center, src.Box()),
			To:   clipToBox(dst.Center, src.Center, dst.Box()),
		})
	}
	return res, nil
}

// assignRanks gives every node the length of the longest path reaching it.
func assignRanks(idx *elements.Index, topo []string) map[string]int {
	ranks := make(map[string]int, len(topo))
	for _, id := range topo {
		r := 0
		for _, p := range idx.Predecessors(id) {
			if ranks[p]+1 > r {
				r = ranks[p] + 1
			}
		}
		ranks[id] = r
	}
	return ranks
}

// orderLayers groups nodes by rank. The first layer keeps element order; each
// following layer is sorted by the mean position of its predecessors, which
// removes most crossings on tree-shaped inputs.
func orderLayers(idx *elements.Index, e elements.Elements, ranks map[string]int) [][]string {
	maxRank := 0
	for _, r := range ranks {
		if r > maxRank {
			maxRank = r
		}
	}
	layers := make([][]string, maxRank+1)
	for _, n := range e.Nodes {
		r := ranks[n.Data.ID]
		layers[r] = append(layers[r], n.Data.ID)
	}

	pos := make(map[string]float64)
	for i, id := range layers[0] {
		pos[id] = float64(i)
	}
	for r := 1; r < len(layers); r++ {
		layer := layers[r]
		bary := make(map[string]float64, len(layer))
		for i, id := range layer {
			preds := idx.Predecessors(id)
			if len(preds) == 0 {
				bary[id] = float64(i)
				continue
			}
			sum := 0.0
			for _, p := range preds {
				sum += pos[p]
			}
			bary[id] = sum / float64(len(preds))
		}
		sort.SliceStable(layer, func(i, j int) bool {
			return bary[layer[i]] < bary[layer[j]]
		})
		for i, id := range layer {
			pos[id] = float64(i)
		}
	}
	return layers
}

func bounds(nodes []PlacedNode) Rect {
	if len(nodes) == 0 {
		return Rect{}
	}
	b := nodes[0].Box()
	for _, n := range nodes[1:] {
		nb := n.Box()
		b.X1 = math.Min(b.X1, nb.X1)
		b.Y1 = math.Min(b.Y1, nb.Y1)
		b.X2 = math.Max(b.X2, nb.X2)
		b.Y2 = math.Max(b.Y2, nb.Y2)
	}
	return b
}

func rotate180(p, c Point) Point {
	return Point{X: 2*c.X - p.X, Y: 2*c.Y - p.Y}
}

// clipToBox moves from towards to until it leaves box.
func clipToBox(from, to Point, box Rect) Point {
	dx, dy := to.X-from.X, to.Y-from.Y
	if dx == 0 && dy == 0 {
		return from
	}
	t := math.Inf(1)
	if dx != 0 {
		t = math.Min(t, (box.Width()/2)/math.Abs(dx))
	}
	if dy != 0 {
		t = math.Min(t, (box.Height()/2)/math.Abs(dy))
	}
	if t > 1 {
		t = 1
	}
	return Point{X: from.X + dx*t, Y: from.Y + dy*t}
}
