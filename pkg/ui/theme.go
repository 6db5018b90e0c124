package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/supplyviz/pkg/elements"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Node classes
	Atom     lipgloss.AdaptiveColor
	Maker    lipgloss.AdaptiveColor
	Supplier lipgloss.AdaptiveColor
	Missing  lipgloss.AdaptiveColor
	Root     lipgloss.AdaptiveColor

	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Marked    lipgloss.AdaptiveColor // highlight-click subgraph
	Muted     lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed row styles, created once instead of per frame
	MutedText   lipgloss.Style
	LabelText   lipgloss.Style
	MarkedText  lipgloss.Style
	HiddenText  lipgloss.Style
	MissingText lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Atom:     lipgloss.AdaptiveColor{Light: "#2684FF", Dark: "#4C9AFF"},
		Maker:    lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#904EE2"},
		Supplier: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Missing:  lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Root:     lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Marked:    lipgloss.AdaptiveColor{Light: "#1E7B1E", Dark: "#90EE90"}, // lightgreen on the page
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.LabelText = r.NewStyle().Foreground(t.Subtext)
	t.MarkedText = r.NewStyle().Foreground(t.Marked).Bold(true)
	t.HiddenText = r.NewStyle().Foreground(t.Muted).Faint(true).Strikethrough(true)
	t.MissingText = r.NewStyle().Foreground(t.Missing).Bold(true)

	return t
}

// ClassBadge returns the one-letter badge and color for a node.
func (t Theme) ClassBadge(n elements.NodeData) (string, lipgloss.AdaptiveColor) {
	switch {
	case n.Missing:
		return "!", t.Missing
	case n.Root:
		return "R", t.Root
	}
	switch n.Class {
	case elements.ClassAtom:
		return "A", t.Atom
	case elements.ClassMaker:
		return "M", t.Maker
	case elements.ClassSupplier:
		return "S", t.Supplier
	default:
		return "·", t.Subtext
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
