package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	json "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/model"
)

// Export targets understood by Perform.
const (
	TargetHTML    = "html"
	TargetSVG     = "svg"
	TargetPNG     = "png"
	TargetJSON    = "json"
	TargetDOT     = "dot"
	TargetMermaid = "mermaid"
	TargetSQLite  = "sqlite"
	TargetReport  = "markdown"
)

// Targets lists every export target in menu order.
var Targets = []string{TargetHTML, TargetSVG, TargetPNG, TargetJSON, TargetDOT, TargetMermaid, TargetSQLite, TargetReport}

var targetExt = map[string]string{
	TargetHTML:    ".html",
	TargetSVG:     ".svg",
	TargetPNG:     ".png",
	TargetJSON:    ".json",
	TargetDOT:     ".dot",
	TargetMermaid: ".mmd",
	TargetSQLite:  ".sqlite3",
	TargetReport:  ".md",
}

// TargetFromPath guesses the export target from a file extension.
func TargetFromPath(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".htm" {
		return TargetHTML, true
	}
	if ext == ".db" || ext == ".sqlite" {
		return TargetSQLite, true
	}
	for t, e := range targetExt {
		if e == ext {
			return t, true
		}
	}
	return "", false
}

// DefaultOutputPath names the file an export of project to target goes to.
func DefaultOutputPath(project, target string) string {
	if project == "" {
		project = "supply"
	}
	return project + "_supply" + targetExt[target]
}

// WizardConfig holds the answers of the export wizard.
type WizardConfig struct {
	Target       string `json:"target"`
	Title        string `json:"title"`
	OutputPath   string `json:"output_path"`
	StaticLayout bool   `json:"static_layout,omitempty"`
}

// Wizard walks the user through an export.
type Wizard struct {
	config  *WizardConfig
	project string
}

// NewWizard creates a wizard with defaults taken from cfg.
func NewWizard(project string, cfg config.Config) *Wizard {
	title := cfg.Export.Title
	if title == "" {
		title = "Supply Tree"
	}
	return &Wizard{
		config:  &WizardConfig{Target: TargetHTML, Title: title},
		project: project,
	}
}

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run asks for target, title and path. Previous answers are offered first.
func (w *Wizard) Run() (*WizardConfig, error) {
	if saved, err := LoadWizardConfig(); err == nil && saved != nil && saved.Target != "" {
		useSaved := true
		form := newForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Export %s to %s again?", saved.Target, saved.OutputPath)).
				Value(&useSaved).
				Affirmative("Yes").
				Negative("No, reconfigure"),
		))
		if err := form.Run(); err != nil {
			return nil, err
		}
		if useSaved {
			w.config = saved
			return w.config, nil
		}
	}

	options := make([]huh.Option[string], 0, len(Targets))
	for _, t := range Targets {
		options = append(options, huh.NewOption(targetLabel(t), t))
	}
	form := newForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Export format").
			Options(options...).
			Value(&w.config.Target),
		huh.NewInput().
			Title("Title").
			Value(&w.config.Title),
	))
	if err := form.Run(); err != nil {
		return nil, err
	}

	w.config.OutputPath = DefaultOutputPath(w.project, w.config.Target)
	fields := []huh.Field{
		huh.NewInput().
			Title("Output path").
			Value(&w.config.OutputPath).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("path is required")
				}
				return nil
			}),
	}
	if w.config.Target == TargetHTML {
		fields = append(fields, huh.NewConfirm().
			Title("Compute the layout now?").
			Description("Embeds node positions instead of running dagre in the browser").
			Value(&w.config.StaticLayout))
	}
	if err := newForm(huh.NewGroup(fields...)).Run(); err != nil {
		return nil, err
	}

	if err := SaveWizardConfig(w.config); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save wizard answers: %v\n", err)
	}
	return w.config, nil
}

func targetLabel(t string) string {
	switch t {
	case TargetHTML:
		return "Interactive HTML page"
	case TargetSVG:
		return "SVG snapshot"
	case TargetPNG:
		return "PNG snapshot"
	case TargetJSON:
		return "Cytoscape JSON"
	case TargetDOT:
		return "Graphviz DOT"
	case TargetMermaid:
		return "Mermaid flowchart"
	case TargetSQLite:
		return "SQLite database"
	case TargetReport:
		return "Markdown BOM report"
	}
	return t
}

// Request is everything Perform needs.
type Request struct {
	Target       string
	Path         string
	Title        string
	Project      string
	Elements     elements.Elements
	Tree         *model.Tree
	Config       config.Config
	StaticLayout bool
}

// Perform writes one export and returns the file written.
func Perform(req Request) (string, error) {
	target := req.Target
	if target == "" {
		t, ok := TargetFromPath(req.Path)
		if !ok {
			return "", fmt.Errorf("%w: cannot infer format from %q", ErrUnsupportedFormat, req.Path)
		}
		target = t
	}

	switch target {
	case TargetHTML:
		return GenerateInteractiveGraphHTML(InteractiveGraphOptions{
			Elements:     req.Elements,
			Config:       req.Config,
			Title:        req.Title,
			Path:         req.Path,
			ProjectName:  req.Project,
			StaticLayout: req.StaticLayout,
		})
	case TargetSVG, TargetPNG:
		err := SaveGraphSnapshot(GraphSnapshotOptions{
			Path:     req.Path,
			Format:   target,
			Title:    req.Title,
			Elements: req.Elements,
			Config:   req.Config,
		})
		return req.Path, err
	case TargetJSON, TargetDOT, TargetMermaid:
		res, err := ExportGraph(req.Elements, GraphExportConfig{
			Format: GraphExportFormat(target),
			Style:  req.Config.Style,
		})
		if err != nil {
			return "", err
		}
		if err := writeFile(req.Path, []byte(res.Graph)); err != nil {
			return "", err
		}
		return req.Path, nil
	case TargetSQLite:
		meta, err := NewSQLiteExporter(req.Elements, req.Tree).Export(req.Path)
		return meta.Path, err
	case TargetReport:
		if req.Tree == nil {
			return "", fmt.Errorf("markdown report needs the source tree")
		}
		if err := SaveMarkdownToFile(*req.Tree, MarkdownOptions{Title: req.Title, IncludeMermaid: true}, req.Path); err != nil {
			return "", err
		}
		return req.Path, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, target)
	}
}

func writeFile(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// WizardConfigPath returns the path to the saved wizard answers.
func WizardConfigPath() string {
	dir := config.StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "export-wizard.json")
}

// LoadWizardConfig loads previously saved answers. It returns nil, nil when
// there are none.
func LoadWizardConfig() (*WizardConfig, error) {
	path := WizardConfigPath()
	if path == "" {
		return nil, fmt.Errorf("could not determine config path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cfg WizardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveWizardConfig saves answers for the next run.
func SaveWizardConfig(cfg *WizardConfig) error {
	path := WizardConfigPath()
	if path == "" {
		return fmt.Errorf("could not determine config path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
