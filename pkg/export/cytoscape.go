// Package export renders supply graphs to files: cytoscape JSON, DOT, Mermaid,
// a self-contained interactive HTML page, SVG/PNG snapshots and SQLite.
package export

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
)

// StyleRule is one entry of a cytoscape stylesheet.
type StyleRule struct {
	Selector string         `json:"selector"`
	Style    map[string]any `json:"style"`
}

func px(v float64) string {
	return fmt.Sprintf("%gpx", v)
}

// CytoscapeStyle builds the stylesheet for the graph page from the style
// configuration. Rule order matters: later rules override earlier ones, so
// missing and root colours win over the plain atom look, and highlighting
// wins over everything.
func CytoscapeStyle(s config.StyleConfig) []StyleRule {
	return []StyleRule{
		{
			Selector: "node[class='atom']",
			Style: map[string]any{
				"shape":              "rectangle",
				"label":              "data(label)",
				"text-wrap":          "wrap",
				"width":              px(s.AtomSize.Width),
				"height":             px(s.AtomSize.Height),
				"text-max-width":     "1000px",
				"text-valign":        "center",
				"text-halign":        "center",
				"border-width":       "3px",
				"border-color":       s.BorderColor,
				"font-size":          s.FontSize,
				"background-image":   s.AtomImage,
				"background-fit":     "cover",
				"background-opacity": 0,
			},
		},
		{
			Selector: "node[class='maker'], node[class='supplier']",
			Style: map[string]any{
				"shape":              "rectangle",
				"background-fit":     "cover",
				"background-opacity": 0,
			},
		},
		{
			Selector: "node[class='maker']",
			Style: map[string]any{
				"width":            px(s.MakerSize.Width),
				"height":           px(s.MakerSize.Height),
				"background-image": s.MakerImage,
			},
		},
		{
			Selector: "node[class='supplier']",
			Style: map[string]any{
				"width":            px(s.SupplierSize.Width),
				"height":           px(s.SupplierSize.Height),
				"background-image": s.SupplierImage,
			},
		},
		{
			Selector: "node[class='atom'][?missing]",
			Style: map[string]any{
				"background-color":   s.MissingColor,
				"background-opacity": 1,
			},
		},
		{
			Selector: "node[class='atom'][?root]",
			Style: map[string]any{
				"background-color":   s.RootColor,
				"background-opacity": 1,
			},
		},
		{
			Selector: ".highlighted",
			Style: map[string]any{
				"border-color":   s.HighlightColor,
				"border-width":   5,
				"border-style":   "solid",
				"border-opacity": 1,
				"line-color":     s.HighlightColor,
			},
		},
		{
			Selector: "edge",
			Style: map[string]any{
				"curve-style":        "bezier",
				"target-arrow-shape": "triangle",
				"width":              s.EdgeWidth,
			},
		},
	}
}

// WriteElementsJSON writes the elements in cytoscape's ElementsDefinition
// shape.
func WriteElementsJSON(w io.Writer, e elements.Elements, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("encode elements: %w", err)
	}
	return nil
}
