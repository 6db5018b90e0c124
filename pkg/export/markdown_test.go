package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/supplyviz/pkg/model"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestGenerateMarkdownReport(t *testing.T) {
	report, err := GenerateMarkdownReport(chairTree(), MarkdownOptions{Title: "Chair", Now: fixedNow})
	if err != nil {
		t.Fatalf("GenerateMarkdownReport: %v", err)
	}

	for _, want := range []string{
		"# Chair\n",
		"Fri, 01 Mar 2024 12:00:00 UTC",
		"| Root | Chair (chair) |",
		"| Made | 2 |",
		"| Supplied | 2 |",
		"| Missing | 1 |",
		"| Depth | 3 |",
		"| Chair (chair) | 🛠 made | Shop | chair-1 |",
		"| &nbsp;&nbsp;Leg (leg) | 📦 supplied | Mill |  |",
		"| &nbsp;&nbsp;&nbsp;&nbsp;Slat (slat) |",
		"## Parties\n\n- Shop\n- Mill\n- Joiner\n",
		"## Missing",
		"- Seat (seat)",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q\n%s", want, report)
		}
	}
	if strings.Contains(report, "```mermaid") {
		t.Error("mermaid block should be opt-in")
	}
}

func TestGenerateMarkdownReport_Mermaid(t *testing.T) {
	report, err := GenerateMarkdownReport(chairTree(), MarkdownOptions{IncludeMermaid: true, Now: fixedNow})
	if err != nil {
		t.Fatalf("GenerateMarkdownReport: %v", err)
	}
	if !strings.HasPrefix(report, "# Supply Tree\n") {
		t.Error("default title not used")
	}
	if !strings.Contains(report, "```mermaid\ngraph BT") {
		t.Error("mermaid block missing")
	}
}

func TestGenerateMarkdownReport_NoMissingSection(t *testing.T) {
	tree := model.Made(model.Product{ID: "a", Desc: "A|B"}, "P", "")
	report, err := GenerateMarkdownReport(tree, MarkdownOptions{Now: fixedNow})
	if err != nil {
		t.Fatalf("GenerateMarkdownReport: %v", err)
	}
	if strings.Contains(report, "## Missing") {
		t.Error("unexpected missing section")
	}
	if !strings.Contains(report, `A\|B (a)`) {
		t.Error("pipe in description should be escaped")
	}
}

func TestGenerateMarkdownReport_RejectsLeafRoot(t *testing.T) {
	if _, err := GenerateMarkdownReport(model.Missing(model.Product{ID: "x"}), MarkdownOptions{}); err == nil {
		t.Fatal("expected error for a missing root")
	}
}

func TestSaveMarkdownToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs", "bom.md")
	if err := SaveMarkdownToFile(chairTree(), MarkdownOptions{Now: fixedNow}, path); err != nil {
		t.Fatalf("SaveMarkdownToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "## Bill of Materials") {
		t.Error("file lacks BOM table")
	}
}
