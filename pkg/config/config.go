// Package config handles loading and saving sviz configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/supplyviz/config.yaml
//   - State:  ~/.local/state/supplyviz/ (viewer session state)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const appDir = "supplyviz"

// Default image assets for the three node classes.
const (
	assetBase            = "https://raw.githubusercontent.com/timr11/project-data-visualizations/main/static/"
	DefaultAtomImage     = assetBase + "bom-black-blank.png"
	DefaultMakerImage    = assetBase + "okw-yellow.png"
	DefaultSupplierImage = assetBase + "Supplier.png"
)

// Size is a node box in layout units (pixels in the browser).
type Size struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// LayoutConfig tunes the layered layout.
type LayoutConfig struct {
	RankSep float64 `yaml:"rank_sep,omitempty"` // gap between ranks
	NodeSep float64 `yaml:"node_sep,omitempty"` // gap between nodes of a rank
	Flip    *bool   `yaml:"flip,omitempty"`     // rotate 180 degrees so the root is on top
}

// FlipEnabled reports whether the 180 degree flip is on (default true).
func (l LayoutConfig) FlipEnabled() bool {
	return l.Flip == nil || *l.Flip
}

// StyleConfig controls how nodes and edges look.
type StyleConfig struct {
	AtomImage      string  `yaml:"atom_image,omitempty"`
	MakerImage     string  `yaml:"maker_image,omitempty"`
	SupplierImage  string  `yaml:"supplier_image,omitempty"`
	AtomSize       Size    `yaml:"atom_size,omitempty"`
	MakerSize      Size    `yaml:"maker_size,omitempty"`
	SupplierSize   Size    `yaml:"supplier_size,omitempty"`
	FontSize       int     `yaml:"font_size,omitempty"`
	BorderColor    string  `yaml:"border_color,omitempty"`
	MissingColor   string  `yaml:"missing_color,omitempty"`
	RootColor      string  `yaml:"root_color,omitempty"`
	HighlightColor string  `yaml:"highlight_color,omitempty"`
	EdgeWidth      float64 `yaml:"edge_width,omitempty"`
}

// InteractionConfig selects which node classes react to clicks and hovers.
type InteractionConfig struct {
	ToggleClasses  []string `yaml:"toggle_classes,omitempty"`
	TooltipClasses []string `yaml:"tooltip_classes,omitempty"`
}

// ExportConfig holds defaults for file exports.
type ExportConfig struct {
	Title     string `yaml:"title,omitempty"`
	OutputDir string `yaml:"output_dir,omitempty"`
	Preset    string `yaml:"preset,omitempty"` // compact or roomy, for snapshots
}

// UIConfig holds terminal viewer preferences.
type UIConfig struct {
	ExpandAll  bool `yaml:"expand_all,omitempty"`
	PanelWidth int  `yaml:"panel_width,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Layout      LayoutConfig      `yaml:"layout,omitempty"`
	Style       StyleConfig       `yaml:"style,omitempty"`
	Interaction InteractionConfig `yaml:"interaction,omitempty"`
	Export      ExportConfig      `yaml:"export,omitempty"`
	UI          UIConfig          `yaml:"ui,omitempty"`
}

// DefaultConfig returns the stock look: dagre spacing 500/300, node sizes
// matching the bundled images, and makers as the clickable class.
func DefaultConfig() Config {
	return Config{
		Layout: LayoutConfig{
			RankSep: 500,
			NodeSep: 300,
		},
		Style: StyleConfig{
			AtomImage:      DefaultAtomImage,
			MakerImage:     DefaultMakerImage,
			SupplierImage:  DefaultSupplierImage,
			AtomSize:       Size{Width: 644, Height: 227},
			MakerSize:      Size{Width: 545, Height: 539},
			SupplierSize:   Size{Width: 671, Height: 539},
			FontSize:       90,
			BorderColor:    "black",
			MissingColor:   "red",
			RootColor:      "green",
			HighlightColor: "lightgreen",
			EdgeWidth:      15,
		},
		Interaction: InteractionConfig{
			ToggleClasses:  []string{"maker"},
			TooltipClasses: []string{"maker", "supplier"},
		},
		Export: ExportConfig{
			Title:  "Supply Tree",
			Preset: "compact",
		},
		UI: UIConfig{
			PanelWidth: 60,
		},
	}
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appDir)
}

// StateDir returns the XDG state directory.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appDir)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Fields the file leaves out
// keep their defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.Export.OutputDir = expandHome(cfg.Export.OutputDir)
	return cfg, nil
}

// Validate rejects settings that would produce an unusable layout.
func (c Config) Validate() error {
	if c.Layout.RankSep < 0 || c.Layout.NodeSep < 0 {
		return fmt.Errorf("layout separations must not be negative")
	}
	for name, s := range map[string]Size{"atom": c.Style.AtomSize, "maker": c.Style.MakerSize, "supplier": c.Style.SupplierSize} {
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("%s size must be positive, got %vx%v", name, s.Width, s.Height)
		}
	}
	switch c.Export.Preset {
	case "", "compact", "roomy":
	default:
		return fmt.Errorf("unknown snapshot preset %q", c.Export.Preset)
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SizeOf returns the box of a node class. Unknown classes use the atom size.
func (s StyleConfig) SizeOf(class string) Size {
	switch class {
	case "maker":
		return s.MakerSize
	case "supplier":
		return s.SupplierSize
	default:
		return s.AtomSize
	}
}

// ImageOf returns the background image of a node class.
func (s StyleConfig) ImageOf(class string) string {
	switch class {
	case "maker":
		return s.MakerImage
	case "supplier":
		return s.SupplierImage
	default:
		return s.AtomImage
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
