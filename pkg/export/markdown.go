package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/model"
)

// MarkdownOptions configures the BOM report.
type MarkdownOptions struct {
	Title          string
	IncludeMermaid bool
	Now            func() time.Time // for tests; time.Now when nil
}

// GenerateMarkdownReport renders a readable bill of materials: a summary,
// an indented BOM table, the parties involved and the products nobody
// supplies. The mermaid diagram is added when requested.
func GenerateMarkdownReport(t model.Tree, opts MarkdownOptions) (string, error) {
	e, err := elements.Build(t)
	if err != nil {
		return "", err
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	title := opts.Title
	if title == "" {
		title = "Supply Tree"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("*Generated %s*\n\n", now().UTC().Format(time.RFC1123)))

	c := t.Counts()
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	sb.WriteString(fmt.Sprintf("| Root | %s |\n", mdCell(productLabel(t.Product))))
	sb.WriteString(fmt.Sprintf("| Made | %d |\n", c.Made))
	sb.WriteString(fmt.Sprintf("| Supplied | %d |\n", c.Supplied))
	sb.WriteString(fmt.Sprintf("| Missing | %d |\n", c.Missing))
	sb.WriteString(fmt.Sprintf("| Depth | %d |\n", t.Depth()))
	sb.WriteString(fmt.Sprintf("| Data hash | `%s` |\n\n", e.DataHash()))

	sb.WriteString("## Bill of Materials\n\n")
	sb.WriteString("| Product | Kind | Party | Design |\n|---|---|---|---|\n")
	t.Walk(func(_ string, depth int, n model.Tree) bool {
		indent := strings.Repeat("&nbsp;&nbsp;", depth)
		sb.WriteString(fmt.Sprintf("| %s%s | %s | %s | %s |\n",
			indent, mdCell(productLabel(n.Product)), kindBadge(n.Type), mdCell(n.Party), mdCell(n.Design)))
		return true
	})
	sb.WriteString("\n")

	if parties := t.Parties(); len(parties) > 0 {
		sb.WriteString("## Parties\n\n")
		for _, p := range parties {
			sb.WriteString(fmt.Sprintf("- %s\n", p))
		}
		sb.WriteString("\n")
	}

	if missing := t.MissingProducts(); len(missing) > 0 {
		sb.WriteString("## Missing\n\n")
		sb.WriteString("No party in the network provides:\n\n")
		for _, p := range missing {
			sb.WriteString(fmt.Sprintf("- %s\n", productLabel(p)))
		}
		sb.WriteString("\n")
	}

	if opts.IncludeMermaid {
		sb.WriteString("## Graph\n\n```mermaid\n")
		sb.WriteString(GenerateMermaid(e))
		sb.WriteString("```\n")
	}
	return sb.String(), nil
}

// SaveMarkdownToFile writes the report to path.
func SaveMarkdownToFile(t model.Tree, opts MarkdownOptions, path string) error {
	report, err := GenerateMarkdownReport(t, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return os.WriteFile(path, []byte(report), 0o644)
}

func productLabel(p model.Product) string {
	if p.Desc == "" {
		return p.ID
	}
	return fmt.Sprintf("%s (%s)", p.Desc, p.ID)
}

func kindBadge(k model.Kind) string {
	switch k {
	case model.KindMade:
		return "🛠 made"
	case model.KindSupplied:
		return "📦 supplied"
	case model.KindMissing:
		return "❌ missing"
	}
	return string(k)
}

var mdCellEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

func mdCell(s string) string {
	return mdCellEscaper.Replace(s)
}
