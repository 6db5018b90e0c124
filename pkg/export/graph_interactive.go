package export

import (
	"embed"
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/layout"
	"github.com/vanderheijden86/supplyviz/pkg/metrics"
	"github.com/vanderheijden86/supplyviz/pkg/version"
)

//go:embed assets
var assetsFS embed.FS

func mustAsset(name string) string {
	b, err := assetsFS.ReadFile("assets/" + name)
	if err != nil {
		panic(fmt.Sprintf("missing embedded asset %s: %v", name, err))
	}
	return string(b)
}

var (
	htmlTemplate = mustAsset("template.html")
	cssTemplate  = mustAsset("style.css")
	jsTemplate   = mustAsset("graph.js")
)

// InteractiveGraphOptions configures HTML graph generation.
type InteractiveGraphOptions struct {
	Elements    elements.Elements
	Config      config.Config
	Title       string
	Path        string // Output path; auto-generated from ProjectName when empty
	ProjectName string
	// StaticLayout places nodes in Go instead of running dagre in the
	// browser. Useful for very large graphs and for reproducible output.
	StaticLayout bool
}

type pageLayout struct {
	RankSep float64 `json:"rankSep"`
	NodeSep float64 `json:"nodeSep"`
	Flip    bool    `json:"flip"`
}

type pageInteraction struct {
	ToggleClasses  []string `json:"toggleClasses"`
	TooltipClasses []string `json:"tooltipClasses"`
}

type pageData struct {
	Elements    elements.Elements       `json:"elements"`
	Style       []StyleRule             `json:"style"`
	Layout      pageLayout              `json:"layout"`
	Interaction pageInteraction         `json:"interaction"`
	Positions   map[string]layout.Point `json:"positions,omitempty"`
}

// GenerateInteractiveGraphFilename creates an auto-generated filename.
// Format: {project}_supply_graph__as_of__YYYY_MM_DD__HH_MM__git_head_hash__{gitshort}.html
func GenerateInteractiveGraphFilename(projectName string) string {
	now := time.Now()

	gitShort := "nogit"
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	if output, err := cmd.Output(); err == nil {
		gitShort = strings.TrimSpace(string(output))
	}

	safeName := strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(projectName)
	return fmt.Sprintf("%s_supply_graph__as_of__%s__%s__git_head_hash__%s.html",
		safeName, now.Format("2006_01_02"), now.Format("15_04"), gitShort)
}

// RenderInteractiveHTML returns the complete page for the given elements.
func RenderInteractiveHTML(opts InteractiveGraphOptions) (string, error) {
	defer metrics.Timer(metrics.RenderHTML)()

	if len(opts.Elements.Nodes) == 0 {
		return "", fmt.Errorf("no elements to export")
	}

	cfg := opts.Config
	data := pageData{
		Elements: opts.Elements,
		Style:    CytoscapeStyle(cfg.Style),
		Layout: pageLayout{
			RankSep: cfg.Layout.RankSep,
			NodeSep: cfg.Layout.NodeSep,
			Flip:    cfg.Layout.FlipEnabled(),
		},
		Interaction: pageInteraction{
			ToggleClasses:  nonNil(cfg.Interaction.ToggleClasses),
			TooltipClasses: nonNil(cfg.Interaction.TooltipClasses),
		},
	}
	if opts.StaticLayout {
		placed, err := layout.Compute(opts.Elements, layout.FromConfig(cfg))
		if err != nil {
			return "", fmt.Errorf("static layout: %w", err)
		}
		data.Positions = placed.Positions()
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal graph data: %w", err)
	}
	// Element labels are user data; keep them from closing the script tag.
	safeJSON := strings.ReplaceAll(string(dataJSON), "</", `<\/`)

	title := opts.Title
	if title == "" {
		title = cfg.Export.Title
	}
	if title == "" {
		title = "Supply Tree"
	}

	page := strings.NewReplacer(
		"__TITLE__", html.EscapeString(title),
		"__VERSION__", html.EscapeString(version.Version),
		"__DATA_HASH__", opts.Elements.DataHash(),
		"__NODE_COUNT__", fmt.Sprintf("%d", len(opts.Elements.Nodes)),
		"__EDGE_COUNT__", fmt.Sprintf("%d", len(opts.Elements.Edges)),
		"__STYLE__", cssTemplate,
		"__SCRIPT__", jsTemplate,
		"/*__GRAPH_DATA__*/null", safeJSON,
	).Replace(htmlTemplate)
	return page, nil
}

// GenerateInteractiveGraphHTML writes the page to disk and returns its path.
func GenerateInteractiveGraphHTML(opts InteractiveGraphOptions) (string, error) {
	page, err := RenderInteractiveHTML(opts)
	if err != nil {
		return "", err
	}

	outputPath := opts.Path
	if outputPath == "" {
		projectName := opts.ProjectName
		if projectName == "" {
			projectName = "supply"
		}
		outputPath = GenerateInteractiveGraphFilename(projectName)
		if dir := opts.Config.Export.OutputDir; dir != "" {
			outputPath = filepath.Join(dir, outputPath)
		}
	}

	if !strings.HasSuffix(strings.ToLower(outputPath), ".html") {
		outputPath = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".html"
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create dir: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, []byte(page), 0o644); err != nil {
		return "", err
	}
	return outputPath, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
