// Package ui is the terminal viewer: a BOM tree over the graph elements with
// the same click behaviour as the interactive page.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/supplyviz/pkg/debug"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/interact"
	"github.com/vanderheijden86/supplyviz/pkg/metrics"
	"github.com/vanderheijden86/supplyviz/pkg/watcher"
)

// Loader produces fresh elements when the watched source changes.
type Loader func(ctx context.Context) (elements.Elements, error)

// Options configure the viewer.
type Options struct {
	Title       string
	Interaction interact.Options
	ExpandAll   bool
	PanelWidth  int
	// StatePath, when set, persists expand flags and the session.
	StatePath string
	// WatchPath and Load enable live reload. WatchOptions tune the watcher,
	// for instance with the kind of source being watched.
	WatchPath    string
	WatchOptions []watcher.WatcherOption
	Load         Loader
}

// FileChangedMsg is sent when the watched source changes on disk
type FileChangedMsg struct{}

// reloadedMsg carries the result of a background reload.
type reloadedMsg struct {
	elems elements.Elements
	err   error
	took  time.Duration
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

func reloadCmd(load Loader) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		e, err := load(context.Background())
		return reloadedMsg{elems: e, err: err, took: time.Since(start)}
	}
}

// Model is the bubbletea model of the viewer.
type Model struct {
	opts    Options
	theme   Theme
	tree    TreeModel
	session *interact.Session
	panel   viewport.Model
	md      *glamour.TermRenderer
	mdWidth int
	watcher *watcher.Watcher

	width  int
	height int
	ready  bool

	statusMsg     string
	statusIsError bool
	showHelp      bool
}

// NewModel indexes e and prepares the viewer. When opts.WatchPath is set a
// watcher is started; a failure to watch is reported in the status bar rather
// than returned.
func NewModel(e elements.Elements, opts Options) (Model, error) {
	if opts.PanelWidth <= 0 {
		opts.PanelWidth = 60
	}
	if len(opts.Interaction.ToggleClasses) == 0 && len(opts.Interaction.TooltipClasses) == 0 {
		opts.Interaction = interact.DefaultOptions()
	}
	s, err := interact.NewSession(e, opts.Interaction)
	if err != nil {
		return Model{}, err
	}

	theme := DefaultTheme(lipgloss.DefaultRenderer())
	m := Model{
		opts:    opts,
		theme:   theme,
		tree:    NewTreeModel(theme),
		session: s,
		panel:   viewport.New(opts.PanelWidth, 10),
	}
	m.tree.SetExpandAll(opts.ExpandAll)
	m.tree.SetStatePath(opts.StatePath)
	m.tree.Build(s)
	if dropped := m.tree.LoadState(); len(dropped) > 0 {
		m.setStatus(fmt.Sprintf("Restored view; %d ids no longer exist", len(dropped)), false)
	}
	m.refreshPanel()

	if opts.WatchPath != "" && opts.Load != nil {
		w, err := watcher.NewWatcher(opts.WatchPath, opts.WatchOptions...)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			m.setStatus(fmt.Sprintf("Live reload unavailable: %v", err), true)
		} else {
			m.watcher = w
		}
	}
	return m, nil
}

// Session exposes the interaction state driving the view.
func (m Model) Session() *interact.Session {
	return m.session
}

// Tree exposes the tree view.
func (m Model) Tree() *TreeModel {
	return &m.tree
}

// Status returns the status bar message and whether it is an error.
func (m Model) Status() (string, bool) {
	return m.statusMsg, m.statusIsError
}

// Close stops the watcher and persists the view state.
func (m Model) Close() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
	m.tree.SaveState()
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

func (m Model) Init() tea.Cmd {
	if m.watcher != nil {
		return WatchFileCmd(m.watcher)
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case FileChangedMsg:
		if m.opts.Load == nil {
			return m, nil
		}
		return m, reloadCmd(m.opts.Load)

	case reloadedMsg:
		m.applyReload(msg)
		if m.watcher != nil {
			return m, WatchFileCmd(m.watcher)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.panel, cmd = m.panel.Update(msg)
	return m, cmd
}

func (m *Model) applyReload(msg reloadedMsg) {
	if msg.err != nil {
		m.setStatus(fmt.Sprintf("Reload error: %v", msg.err), true)
		return
	}
	s, err := interact.NewSession(msg.elems, m.opts.Interaction)
	if err != nil {
		m.setStatus(fmt.Sprintf("Reload error: %v", err), true)
		return
	}
	dropped, err := s.Restore(m.session.Snapshot())
	if err != nil {
		s.Reset()
	}
	m.session = s
	m.tree.Build(s)
	m.refreshPanel()

	status := fmt.Sprintf("Reloaded %d elements in %s", msg.elems.Len(), msg.took.Round(time.Millisecond))
	if len(dropped) > 0 {
		status += fmt.Sprintf(" (%d stale ids dropped)", len(dropped))
	}
	m.setStatus(status, false)
	debug.Log("ui: %s", status)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "j", "down":
		m.tree.MoveDown()
		m.statusMsg = ""
	case "k", "up":
		m.tree.MoveUp()
		m.statusMsg = ""
	case "g", "home":
		m.tree.JumpToTop()
	case "G", "end":
		m.tree.JumpToBottom()
	case " ", "l", "right":
		m.tree.ToggleExpand()
	case "h", "left":
		if n := m.tree.SelectedNode(); n != nil && n.Expanded && len(n.Children) > 0 {
			m.tree.ToggleExpand()
		} else {
			m.tree.JumpToParent()
		}
	case "e":
		m.tree.ExpandAll()
	case "c":
		m.tree.CollapseAll()
	case "enter":
		m.click()
	case "r":
		m.session.Reset()
		m.refreshPanel()
		m.setStatus("Reset: everything visible, highlight cleared", false)
	case "y":
		if n := m.tree.SelectedNode(); n != nil {
			if err := clipboard.WriteAll(n.Data.ID); err != nil {
				m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
			} else {
				m.setStatus(fmt.Sprintf("Copied %s to clipboard", n.Data.ID), false)
			}
		}
	case "pgdown", "ctrl+d":
		m.panel.LineDown(max(m.panel.Height/2, 1))
	case "pgup", "ctrl+u":
		m.panel.LineUp(max(m.panel.Height/2, 1))
	}
	return m, nil
}

// click runs the page's click handlers on the selected node.
func (m *Model) click() {
	n := m.tree.SelectedNode()
	if n == nil {
		return
	}
	res, err := m.session.Click(n.Data.ID)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.refreshPanel()

	var parts []string
	if len(res.Toggled) > 0 {
		parts = append(parts, fmt.Sprintf("toggled %d", len(res.Toggled)))
	}
	if len(res.Highlighted) > 0 {
		parts = append(parts, fmt.Sprintf("highlighted %d", len(res.Highlighted)))
	}
	if res.PanelClosed {
		parts = append(parts, fmt.Sprintf("cleared %d", len(res.Cleared)))
	}
	if len(parts) == 0 {
		parts = append(parts, "no handler")
	}
	m.setStatus(n.Data.ID+": "+strings.Join(parts, ", "), false)
}

func (m *Model) layout() {
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	treeWidth := m.width
	if _, open := m.session.Panel(); open && m.width > m.opts.PanelWidth+20 {
		treeWidth = m.width - m.opts.PanelWidth - 1
	}
	m.tree.SetSize(treeWidth, h)
	m.panel.Width = m.opts.PanelWidth - 2
	m.panel.Height = max(h-2, 1)
}

// refreshPanel renders the open data panel, if any, into the viewport.
func (m *Model) refreshPanel() {
	defer metrics.Timer(metrics.UIRender)()
	p, ok := m.session.Panel()
	if !ok {
		m.panel.SetContent("")
		m.layout()
		return
	}
	m.panel.SetContent(m.renderMarkdown(p.Markdown()))
	m.panel.GotoTop()
	m.layout()
}

func (m *Model) renderMarkdown(md string) string {
	width := m.opts.PanelWidth - 4
	if m.md == nil || m.mdWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		m.md, m.mdWidth = r, width
	}
	out, err := m.md.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n ")
}

// tooltip returns the hover text for the selected row.
func (m Model) tooltip() string {
	n := m.tree.SelectedNode()
	if n == nil {
		return ""
	}
	text, ok := m.session.Tooltip(n.Data.ID)
	if !ok {
		return ""
	}
	return text
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	body := m.tree.View()
	if _, open := m.session.Panel(); open && m.width > m.opts.PanelWidth+20 {
		panel := FocusedPanelStyle.Width(m.opts.PanelWidth - 2).Render(m.panel.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", panel)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar())
}

func (m Model) renderStatusBar() string {
	left := m.opts.Title
	if left == "" {
		left = "supplyviz"
	}
	left = m.theme.Header.Render(left)

	msg := m.statusMsg
	style := m.theme.LabelText
	if msg == "" {
		if tip := m.tooltip(); tip != "" {
			msg = "⌖ " + tip
		} else {
			msg = "? help"
			style = m.theme.MutedText
		}
	}
	if m.statusIsError {
		style = m.theme.MissingText
	}
	width := m.width - lipgloss.Width(left) - 1
	return left + " " + style.Render(truncate(msg, width))
}

var helpRows = [][2]string{
	{"j/k ↑/↓", "move"},
	{"space l →", "expand / collapse"},
	{"h ←", "collapse or go to parent"},
	{"e / c", "expand all / collapse all"},
	{"enter", "click: toggle downstream, highlight maker"},
	{"r", "reset visibility and highlight"},
	{"y", "copy element id"},
	{"pgup/pgdn", "scroll data panel"},
	{"q", "quit"},
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(m.theme.Header.Render("Keys"))
	sb.WriteString("\n\n")
	for _, r := range helpRows {
		sb.WriteString("  ")
		sb.WriteString(m.theme.MarkedText.Render(padRight(r[0], 12)))
		sb.WriteString(r[1])
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.theme.MutedText.Render("Press any key to return."))
	return PanelStyle.Padding(0, SpaceXS).Render(sb.String())
}

// Run starts the viewer on the alternate screen and blocks until it exits.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	return err
}
