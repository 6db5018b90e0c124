package export

import (
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/vanderheijden86/supplyviz/pkg/elements"
)

// ErrUnsupportedFormat is returned for unknown export formats.
var ErrUnsupportedFormat = errors.New("unsupported format")

var mermaidUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

func sanitizeMermaidID(id string) string {
	return strings.Trim(mermaidUnsafe.ReplaceAllString(id, "_"), "_")
}

func sanitizeMermaidText(s string) string {
	s = strings.NewReplacer(`"`, "'", "\n", " ", "[", "(", "]", ")", "<", "&lt;", ">", "&gt;").Replace(s)
	return strings.TrimSpace(s)
}

// GenerateMermaid renders a Mermaid flowchart. Node order follows the
// elements; ids are sanitized and made collision-free with a stable hash
// suffix.
func GenerateMermaid(e elements.Elements) string {
	var sb strings.Builder
	sb.WriteString("graph BT\n")
	sb.WriteString("    classDef atom fill:#ffffff,stroke:#000,color:#000\n")
	sb.WriteString("    classDef maker fill:#f1fa8c,stroke:#333,color:#000\n")
	sb.WriteString("    classDef supplier fill:#8be9fd,stroke:#333,color:#000\n")
	sb.WriteString("    classDef missing fill:#ff5555,stroke:#333,color:#fff\n")
	sb.WriteString("    classDef root fill:#50fa7b,stroke:#333,color:#000\n\n")

	safeIDs := make(map[string]string, len(e.Nodes))
	used := make(map[string]bool, len(e.Nodes))
	safeID := func(orig string) string {
		if s, ok := safeIDs[orig]; ok {
			return s
		}
		base := sanitizeMermaidID(orig)
		if base == "" {
			base = "node"
		}
		s := base
		if used[s] {
			h := fnv.New32a()
			_, _ = h.Write([]byte(orig))
			s = fmt.Sprintf("%s_%x", base, h.Sum32())
		}
		used[s] = true
		safeIDs[orig] = s
		return s
	}

	for _, n := range e.Nodes {
		id := safeID(n.Data.ID)
		label := sanitizeMermaidText(n.Data.Label)
		if label == "" {
			label = sanitizeMermaidText(n.Data.ID)
		}
		switch n.Data.Class {
		case elements.ClassMaker:
			sb.WriteString(fmt.Sprintf("    %s[/\"%s\"\\]\n", id, label))
		case elements.ClassSupplier:
			sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", id, label))
		default:
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, label))
		}

		class := string(n.Data.Class)
		switch {
		case n.Data.Missing:
			class = "missing"
		case n.Data.Root:
			class = "root"
		}
		sb.WriteString(fmt.Sprintf("    class %s %s\n", id, class))
	}

	if len(e.Edges) > 0 {
		sb.WriteString("\n")
	}
	for _, ed := range e.Edges {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID(ed.Data.Source), safeID(ed.Data.Target)))
	}
	return sb.String()
}
