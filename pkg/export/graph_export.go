package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
)

// GraphExportFormat specifies the output format for text graph export.
type GraphExportFormat string

const (
	GraphFormatJSON    GraphExportFormat = "json"
	GraphFormatDOT     GraphExportFormat = "dot"
	GraphFormatMermaid GraphExportFormat = "mermaid"
)

// ParseGraphExportFormat validates a user-supplied format name.
func ParseGraphExportFormat(s string) (GraphExportFormat, error) {
	switch f := GraphExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case GraphFormatJSON, GraphFormatDOT, GraphFormatMermaid:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (want json, dot or mermaid)", ErrUnsupportedFormat, s)
	}
}

// GraphExportConfig configures graph export behavior.
type GraphExportConfig struct {
	Format GraphExportFormat
	Root   string // Only export the subgraph upstream of this node
	Depth  int    // Max edge distance from Root (0 = unlimited)
	Style  config.StyleConfig
}

// GraphExportResult contains the exported graph and metadata.
type GraphExportResult struct {
	Format         string            `json:"format"`
	Graph          string            `json:"graph"`
	Nodes          int               `json:"nodes"`
	Edges          int               `json:"edges"`
	FiltersApplied map[string]string `json:"filters_applied,omitempty"`
	Explanation    GraphExplanation  `json:"explanation"`
	DataHash       string            `json:"data_hash"`
}

// GraphExplanation tells a reader what the graph text is and how to view it.
type GraphExplanation struct {
	What        string `json:"what"`
	HowToRender string `json:"how_to_render,omitempty"`
	WhenToUse   string `json:"when_to_use"`
}

// ExportGraph renders e in a text format.
func ExportGraph(e elements.Elements, cfg GraphExportConfig) (*GraphExportResult, error) {
	filters := make(map[string]string)
	if cfg.Root != "" {
		sub, err := UpstreamSubgraph(e, cfg.Root, cfg.Depth)
		if err != nil {
			return nil, err
		}
		e = sub
		filters["root"] = cfg.Root
		if cfg.Depth > 0 {
			filters["depth"] = fmt.Sprintf("%d", cfg.Depth)
		}
	}

	result := &GraphExportResult{
		Format:         string(cfg.Format),
		Nodes:          len(e.Nodes),
		Edges:          len(e.Edges),
		FiltersApplied: filters,
		DataHash:       e.DataHash(),
	}

	switch cfg.Format {
	case GraphFormatDOT:
		result.Graph = GenerateDOT(e, cfg.Style)
		result.Explanation = GraphExplanation{
			What:        "Supply graph in Graphviz DOT format",
			HowToRender: "Save to file.dot, run: dot -Tsvg file.dot -o supply.svg",
			WhenToUse:   "When you need a printable overview or want Graphviz's own layout",
		}
	case GraphFormatMermaid:
		result.Graph = GenerateMermaid(e)
		result.Explanation = GraphExplanation{
			What:        "Supply graph in Mermaid flowchart syntax",
			HowToRender: "Paste into any Mermaid-capable markdown renderer",
			WhenToUse:   "When you need an embeddable diagram for documentation",
		}
	case GraphFormatJSON, "":
		var buf bytes.Buffer
		if err := WriteElementsJSON(&buf, e, true); err != nil {
			return nil, err
		}
		result.Format = string(GraphFormatJSON)
		result.Graph = buf.String()
		result.Explanation = GraphExplanation{
			What:      "Cytoscape ElementsDefinition: nodes and edges with their data",
			WhenToUse: "When loading the graph into cytoscape.js or another tool",
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, cfg.Format)
	}
	return result, nil
}

// UpstreamSubgraph keeps root and every node with a path into it of at most
// depth edges (0 = unlimited), together with the edges between kept nodes.
// For an atom this is everything needed to produce it.
func UpstreamSubgraph(e elements.Elements, root string, depth int) (elements.Elements, error) {
	if _, ok := e.Node(root); !ok {
		return elements.Elements{}, fmt.Errorf("root node %q not found", root)
	}

	incoming := make(map[string][]string)
	for _, ed := range e.Edges {
		incoming[ed.Data.Target] = append(incoming[ed.Data.Target], ed.Data.Source)
	}

	dist := map[string]int{root: 0}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth > 0 && dist[cur] >= depth {
			continue
		}
		for _, src := range incoming[cur] {
			if _, seen := dist[src]; !seen {
				dist[src] = dist[cur] + 1
				queue = append(queue, src)
			}
		}
	}

	var out elements.Elements
	for _, n := range e.Nodes {
		if _, ok := dist[n.Data.ID]; ok {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, ed := range e.Edges {
		_, s := dist[ed.Data.Source]
		_, t := dist[ed.Data.Target]
		if s && t {
			out.Edges = append(out.Edges, ed)
		}
	}
	return out, nil
}

// GenerateDOT renders a Graphviz digraph. Ranks run bottom to top so the
// root product is drawn at the top, as in the web page.
func GenerateDOT(e elements.Elements, style config.StyleConfig) string {
	var sb strings.Builder
	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=BT;\n")
	sb.WriteString("    node [shape=box, fontname=\"Helvetica\", style=filled, fillcolor=\"#ffffff\"];\n")
	sb.WriteString("    edge [arrowhead=normal];\n\n")

	nodes := append([]elements.Node(nil), e.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Data.ID < nodes[j].Data.ID })

	for _, n := range nodes {
		attrs := []string{fmt.Sprintf("label=\"%s\"", escapeDOTString(truncate(n.Data.Label, 40)))}
		switch {
		case n.Data.Missing:
			attrs = append(attrs, fmt.Sprintf("fillcolor=\"%s\"", escapeDOTString(style.MissingColor)))
		case n.Data.Root:
			attrs = append(attrs, fmt.Sprintf("fillcolor=\"%s\"", escapeDOTString(style.RootColor)), "penwidth=2")
		case n.Data.Class == elements.ClassMaker:
			attrs = append(attrs, "shape=house", "fillcolor=\"#f1fa8c\"")
		case n.Data.Class == elements.ClassSupplier:
			attrs = append(attrs, "shape=cds", "fillcolor=\"#8be9fd\"")
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" [%s];\n", escapeDOTString(n.Data.ID), strings.Join(attrs, ", ")))
	}
	sb.WriteString("\n")

	edges := append([]elements.Edge(nil), e.Edges...)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Data.ID < edges[j].Data.ID })
	for _, ed := range edges {
		sb.WriteString(fmt.Sprintf("    \"%s\" -> \"%s\";\n", escapeDOTString(ed.Data.Source), escapeDOTString(ed.Data.Target)))
	}

	sb.WriteString("}\n")
	return sb.String()
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")

func escapeDOTString(s string) string {
	return dotEscaper.Replace(s)
}
