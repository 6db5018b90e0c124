package interact

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/supplyviz/pkg/elements"
)

// PanelRow is one labelled line of a data panel.
type PanelRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DataPanel describes the maker details shown after a highlight click.
type DataPanel struct {
	MakerID string     `json:"maker_id"`
	Title   string     `json:"title"`
	Rows    []PanelRow `json:"rows"`
}

func newDataPanel(idx *elements.Index, makerID string) DataPanel {
	maker, _ := idx.Node(makerID)
	p := DataPanel{MakerID: makerID, Title: maker.Label}

	product := maker.Product
	if atom, ok := idx.Node(maker.Product); ok && atom.Label != "" {
		product = fmt.Sprintf("%s (%s)", atom.Label, maker.Product)
	}
	p.Rows = append(p.Rows, PanelRow{Label: "Product", Value: product})
	if maker.Design != "" {
		p.Rows = append(p.Rows, PanelRow{Label: "Design", Value: maker.Design})
	}
	return p
}

// Markdown renders the panel as a small markdown document.
func (p DataPanel) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", p.Title)
	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, r := range p.Rows {
		fmt.Fprintf(&b, "| %s | %s |\n", r.Label, escapeCell(r.Value))
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
