// tree.go - BOM tree view over graph elements.
package ui

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/interact"
)

// TreeState is the persisted state of the viewer: which rows are expanded and
// the interaction state of the graph.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "expanded": {"maker-Shop-chair": true, "back": false},
//	  "session": {"hidden": [...], "classes": {...}, "panel": {...}}
//	}
//
// Only explicit changes are stored; rows not in the map use the default
// (expanded above depth 2). A corrupted or missing file means defaults.
type TreeState struct {
	Version  int             `json:"version"`
	Expanded map[string]bool `json:"expanded"`
	Session  interact.State  `json:"session"`
}

// TreeStateVersion is the current schema version for tree persistence
const TreeStateVersion = 1

// defaultExpandDepth is how many levels start expanded.
const defaultExpandDepth = 2

// BOMNode is one row of the tree. Atoms have their maker or supplier as the
// only child; makers have their BOM atoms as children.
type BOMNode struct {
	Data     elements.NodeData
	Children []*BOMNode
	Parent   *BOMNode
	Depth    int
	Expanded bool
}

// TreeModel manages the tree view state.
type TreeModel struct {
	roots          []*BOMNode
	flatList       []*BOMNode
	cursor         int
	theme          Theme
	session        *interact.Session
	width          int
	height         int
	viewportOffset int
	expandAll      bool
	built          bool

	statePath string
}

// NewTreeModel creates an empty tree model
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{theme: theme}
}

// SetStatePath enables persistence. With an empty path nothing is read or
// written.
func (t *TreeModel) SetStatePath(path string) {
	t.statePath = path
}

// SetExpandAll makes every row start expanded.
func (t *TreeModel) SetExpandAll(v bool) {
	t.expandAll = v
}

// SetSize updates the available dimensions for the tree view
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// Build constructs the rows from the session's elements. The cursor stays on
// the same element id when it still exists.
func (t *TreeModel) Build(s *interact.Session) {
	var selected string
	if n := t.SelectedNode(); n != nil {
		selected = n.Data.ID
	}
	prev := t.explicitState()

	t.session = s
	t.roots = buildBOMNodes(s.Index())
	t.built = true

	t.walk(func(n *BOMNode) {
		n.Expanded = t.expandAll || n.Depth < defaultExpandDepth
	})
	t.applyExpanded(prev)
	t.rebuildFlatList()

	t.cursor = 0
	if selected != "" {
		t.selectID(selected)
	}
	t.ensureCursorVisible()
}

// buildBOMNodes walks the graph against edge direction from each root atom.
// A node already on the current path is not entered again, so a cyclic
// element set still yields a finite tree.
func buildBOMNodes(idx *elements.Index) []*BOMNode {
	var rootIDs []string
	for _, n := range idx.Elements().Nodes {
		if n.Data.Root {
			rootIDs = append(rootIDs, n.Data.ID)
		}
	}
	if len(rootIDs) == 0 {
		// Exports written without the root flag: use atoms nothing consumes.
		for _, id := range idx.NodesOfClass(elements.ClassAtom) {
			if out, _ := idx.Successors(id); len(out) == 0 {
				rootIDs = append(rootIDs, id)
			}
		}
	}

	onPath := make(map[string]bool)
	var build func(id string, parent *BOMNode, depth int) *BOMNode
	build = func(id string, parent *BOMNode, depth int) *BOMNode {
		data, _ := idx.Node(id)
		node := &BOMNode{Data: data, Parent: parent, Depth: depth}
		onPath[id] = true
		for _, p := range idx.Predecessors(id) {
			if onPath[p] {
				continue
			}
			node.Children = append(node.Children, build(p, node, depth+1))
		}
		delete(onPath, id)
		return node
	}

	roots := make([]*BOMNode, 0, len(rootIDs))
	for _, id := range rootIDs {
		roots = append(roots, build(id, nil, 0))
	}
	return roots
}

func (t *TreeModel) walk(fn func(*BOMNode)) {
	var rec func(n *BOMNode)
	rec = func(n *BOMNode) {
		fn(n)
		for _, c := range n.Children {
			rec(c)
		}
	}
	for _, r := range t.roots {
		rec(r)
	}
}

func (t *TreeModel) rebuildFlatList() {
	t.flatList = t.flatList[:0]
	var add func(n *BOMNode)
	add = func(n *BOMNode) {
		t.flatList = append(t.flatList, n)
		if n.Expanded {
			for _, c := range n.Children {
				add(c)
			}
		}
	}
	for _, r := range t.roots {
		add(r)
	}
	if t.cursor >= len(t.flatList) {
		t.cursor = max(len(t.flatList)-1, 0)
	}
}

// explicitState returns the expand flags that differ from the default.
func (t *TreeModel) explicitState() map[string]bool {
	out := make(map[string]bool)
	t.walk(func(n *BOMNode) {
		def := t.expandAll || n.Depth < defaultExpandDepth
		if n.Expanded != def {
			out[n.Data.ID] = n.Expanded
		}
	})
	return out
}

func (t *TreeModel) applyExpanded(m map[string]bool) {
	if len(m) == 0 {
		return
	}
	t.walk(func(n *BOMNode) {
		if v, ok := m[n.Data.ID]; ok {
			n.Expanded = v
		}
	})
}

// SaveState persists expand flags and the session. Errors are logged but do
// not interrupt the user.
func (t *TreeModel) SaveState() {
	if t.statePath == "" || !t.built {
		return
	}
	state := TreeState{Version: TreeStateVersion, Expanded: t.explicitState()}
	if t.session != nil {
		state.Session = t.session.Snapshot()
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("warning: failed to marshal tree state: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.statePath), 0o755); err != nil {
		log.Printf("warning: failed to create state directory: %v", err)
		return
	}
	if err := os.WriteFile(t.statePath, data, 0o644); err != nil {
		log.Printf("warning: failed to write tree state to %s: %v", t.statePath, err)
	}
}

// LoadState restores persisted state after Build. It returns the element ids
// that no longer exist.
func (t *TreeModel) LoadState() []string {
	if t.statePath == "" || !t.built {
		return nil
	}
	data, err := os.ReadFile(t.statePath)
	if err != nil {
		return nil
	}
	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil || state.Version != TreeStateVersion {
		return nil
	}
	t.applyExpanded(state.Expanded)
	t.rebuildFlatList()

	var dropped []string
	if t.session != nil {
		if d, err := t.session.Restore(state.Session); err == nil {
			dropped = d
		}
	}
	return dropped
}

// View renders the visible window of rows.
func (t *TreeModel) View() string {
	if !t.built || len(t.flatList) == 0 {
		return t.theme.MutedText.Render("No elements to display.")
	}

	var sb strings.Builder
	sb.WriteString(t.RenderHeader())
	sb.WriteString("\n")

	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		line := t.renderNode(t.flatList[i])
		if i == t.cursor {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if len(t.flatList) > t.visibleCount() {
		sb.WriteString(t.theme.MutedText.Render(
			fmt.Sprintf(" %d-%d of %d", start+1, end, len(t.flatList))))
	}
	return sb.String()
}

// RenderHeader returns the column header row.
func (t *TreeModel) RenderHeader() string {
	width := t.width
	if width <= 0 {
		width = 80
	}
	return t.theme.Header.Width(width).Render("  CLASS ID / LABEL")
}

func (t *TreeModel) renderNode(node *BOMNode) string {
	width := t.width
	if width <= 0 {
		width = 80
	}
	width--

	prefix := t.buildTreePrefix(node)
	badge, color := t.theme.ClassBadge(node.Data)

	var left strings.Builder
	left.WriteString(prefix)
	left.WriteString(getExpandIndicator(node))
	left.WriteString(" ")
	left.WriteString(RenderBadge(badge, color))
	left.WriteString(" ")

	text := node.Data.ID
	if node.Data.Label != "" {
		text += "  " + node.Data.Label
	}
	text = truncate(text, width-lipgloss.Width(left.String()))

	id := node.Data.ID
	switch {
	case t.session != nil && t.session.Hidden(id):
		text = t.theme.HiddenText.Render(text)
	case t.session != nil && t.session.Highlighted(id):
		text = t.theme.MarkedText.Render(text)
	case node.Data.Missing:
		text = t.theme.MissingText.Render(text)
	default:
		text = t.theme.Base.Render(text)
	}
	return left.String() + text
}

// buildTreePrefix builds the indentation and branch characters for a node.
func (t *TreeModel) buildTreePrefix(node *BOMNode) string {
	if node.Depth == 0 {
		return ""
	}

	var parts []string
	var ancestors []*BOMNode
	for cur := node.Parent; cur != nil && cur.Parent != nil; cur = cur.Parent {
		ancestors = append([]*BOMNode{cur}, ancestors...)
	}
	for _, a := range ancestors {
		if isLastChild(a) {
			parts = append(parts, "    ")
		} else {
			parts = append(parts, "│   ")
		}
	}
	if isLastChild(node) {
		parts = append(parts, "└── ")
	} else {
		parts = append(parts, "├── ")
	}
	return t.theme.MutedText.Render(strings.Join(parts, ""))
}

func isLastChild(node *BOMNode) bool {
	p := node.Parent
	return p == nil || p.Children[len(p.Children)-1] == node
}

func getExpandIndicator(node *BOMNode) string {
	if len(node.Children) == 0 {
		return "•"
	}
	if node.Expanded {
		return "▾"
	}
	return "▸"
}

func (t *TreeModel) visibleCount() int {
	// One line for the header, one for the position indicator.
	n := t.height - 2
	if n < 1 {
		n = 1
	}
	return n
}

func (t *TreeModel) visibleRange() (start, end int) {
	start = t.viewportOffset
	end = min(start+t.visibleCount(), len(t.flatList))
	return start, end
}

func (t *TreeModel) ensureCursorVisible() {
	n := t.visibleCount()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	} else if t.cursor >= t.viewportOffset+n {
		t.viewportOffset = t.cursor - n + 1
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

// Len returns the number of visible rows.
func (t *TreeModel) Len() int {
	return len(t.flatList)
}

// Cursor returns the selected row index.
func (t *TreeModel) Cursor() int {
	return t.cursor
}

// SelectedNode returns the currently selected tree node, or nil if none.
func (t *TreeModel) SelectedNode() *BOMNode {
	if t.cursor >= 0 && t.cursor < len(t.flatList) {
		return t.flatList[t.cursor]
	}
	return nil
}

func (t *TreeModel) selectID(id string) bool {
	for i, n := range t.flatList {
		if n.Data.ID == id {
			t.cursor = i
			return true
		}
	}
	return false
}

// MoveDown moves the cursor down in the flat list.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

// MoveUp moves the cursor up in the flat list.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

// ToggleExpand expands or collapses the currently selected node.
func (t *TreeModel) ToggleExpand() {
	node := t.SelectedNode()
	if node != nil && len(node.Children) > 0 {
		node.Expanded = !node.Expanded
		t.rebuildFlatList()
		t.ensureCursorVisible()
	}
}

// ExpandAll expands every node.
func (t *TreeModel) ExpandAll() {
	t.walk(func(n *BOMNode) { n.Expanded = true })
	t.rebuildFlatList()
	t.ensureCursorVisible()
}

// CollapseAll collapses every node and moves the cursor to its root.
func (t *TreeModel) CollapseAll() {
	node := t.SelectedNode()
	t.walk(func(n *BOMNode) { n.Expanded = false })
	t.rebuildFlatList()
	for node != nil && node.Parent != nil {
		node = node.Parent
	}
	if node != nil {
		t.selectID(node.Data.ID)
	}
	t.ensureCursorVisible()
}

// JumpToTop moves the cursor to the first row.
func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

// JumpToBottom moves the cursor to the last row.
func (t *TreeModel) JumpToBottom() {
	if len(t.flatList) > 0 {
		t.cursor = len(t.flatList) - 1
	}
	t.ensureCursorVisible()
}

// JumpToParent moves the cursor to the parent row.
func (t *TreeModel) JumpToParent() {
	node := t.SelectedNode()
	if node == nil || node.Parent == nil {
		return
	}
	for i, n := range t.flatList {
		if n == node.Parent {
			t.cursor = i
			break
		}
	}
	t.ensureCursorVisible()
}
