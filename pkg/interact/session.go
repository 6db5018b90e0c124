// Package interact models the click and hover behaviour of the graph page so
// the terminal viewer and the HTTP API can drive it without a browser.
//
// Two click handlers are registered on nodes, and both run for a maker:
//
//   - toggle: every node downstream of the clicked node flips its visibility
//     on its own, and the edges touching it follow the node's new state.
//   - highlight: the first maker click marks the maker and its downstream
//     subgraph as highlighted and opens a data panel; the next maker click
//     strips the classes of that maker and its own downstream subgraph and
//     closes the panel.
//
// Hidden nodes do not receive clicks.
package interact

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/vanderheijden86/supplyviz/pkg/debug"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
)

// ClassHighlighted is the element class applied by the highlight handler.
const ClassHighlighted = "highlighted"

// ErrUnknownElement is returned for ids that are not part of the graph.
var ErrUnknownElement = errors.New("unknown element")

// Options choose which node classes react to interactions.
type Options struct {
	ToggleClasses  []string
	TooltipClasses []string
}

// DefaultOptions mirrors the stock page: makers toggle, makers and suppliers
// get tooltips.
func DefaultOptions() Options {
	return Options{
		ToggleClasses:  []string{string(elements.ClassMaker)},
		TooltipClasses: []string{string(elements.ClassMaker), string(elements.ClassSupplier)},
	}
}

// ClickResult reports what a click changed.
type ClickResult struct {
	ID          string     `json:"id"`
	Toggled     []string   `json:"toggled,omitempty"`
	Highlighted []string   `json:"highlighted,omitempty"`
	Cleared     []string   `json:"cleared,omitempty"`
	Panel       *DataPanel `json:"panel,omitempty"`
	PanelClosed bool       `json:"panel_closed,omitempty"`
}

// Session holds the interaction state of one rendered graph. It is safe for
// concurrent use.
type Session struct {
	mu      sync.RWMutex
	idx     *elements.Index
	opts    Options
	hidden  map[string]bool
	classes map[string]map[string]bool
	panel   *DataPanel
}

// NewSession indexes e and starts with everything visible and nothing
// highlighted.
func NewSession(e elements.Elements, opts Options) (*Session, error) {
	idx, err := elements.NewIndex(e)
	if err != nil {
		return nil, fmt.Errorf("index elements: %w", err)
	}
	return &Session{
		idx:     idx,
		opts:    opts,
		hidden:  make(map[string]bool),
		classes: make(map[string]map[string]bool),
	}, nil
}

// Index exposes the traversal index the session was built on.
func (s *Session) Index() *elements.Index {
	return s.idx
}

func (s *Session) nodeClass(id string) (string, error) {
	n, ok := s.idx.Node(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownElement, id)
	}
	return string(n.Class), nil
}

// Click runs every handler registered for the node: the descendant toggle
// first, then the maker highlight. Clicking a hidden node changes nothing.
func (s *Session) Click(id string) (ClickResult, error) {
	class, err := s.nodeClass(id)
	if err != nil {
		return ClickResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := ClickResult{ID: id}
	if s.hidden[id] {
		debug.Log("interact: click %s ignored, node is hidden", id)
		return res, nil
	}
	if slices.Contains(s.opts.ToggleClasses, class) {
		res.Toggled = s.toggleDescendantsLocked(id)
	}
	if class == string(elements.ClassMaker) {
		s.toggleHighlightLocked(id, &res)
	}
	debug.Log("interact: click %s toggled=%d highlighted=%d cleared=%d", id, len(res.Toggled), len(res.Highlighted), len(res.Cleared))
	return res, nil
}

// ToggleDescendants flips the visibility of every node downstream of id,
// regardless of id's class. It returns the ids of the nodes it flipped.
func (s *Session) ToggleDescendants(id string) ([]string, error) {
	if _, err := s.nodeClass(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleDescendantsLocked(id), nil
}

func (s *Session) toggleDescendantsLocked(id string) []string {
	nodes, _ := s.idx.Successors(id)
	for _, n := range nodes {
		wasHidden := s.hidden[n]
		s.setHiddenLocked(n, !wasHidden)
		for _, e := range s.idx.ConnectedEdges(n) {
			s.setHiddenLocked(e, !wasHidden)
		}
	}
	return nodes
}

func (s *Session) setHiddenLocked(id string, hidden bool) {
	if hidden {
		s.hidden[id] = true
	} else {
		delete(s.hidden, id)
	}
}

// ToggleHighlight runs the maker highlight handler on its own.
func (s *Session) ToggleHighlight(makerID string) (ClickResult, error) {
	class, err := s.nodeClass(makerID)
	if err != nil {
		return ClickResult{}, err
	}
	if class != string(elements.ClassMaker) {
		return ClickResult{}, fmt.Errorf("%q is a %s node, not a maker", makerID, class)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res := ClickResult{ID: makerID}
	s.toggleHighlightLocked(makerID, &res)
	return res, nil
}

// toggleHighlightLocked opens the panel when none is open. Otherwise it
// strips every class from makerID and its downstream subgraph and closes the
// panel. Highlights another maker set outside that subgraph stay.
func (s *Session) toggleHighlightLocked(makerID string, res *ClickResult) {
	nodes, edges := s.idx.Successors(makerID)
	ids := append([]string{makerID}, nodes...)
	ids = append(ids, edges...)

	if s.panel == nil {
		for _, id := range ids {
			s.addClassLocked(id, ClassHighlighted)
		}
		panel := newDataPanel(s.idx, makerID)
		s.panel = &panel
		res.Highlighted = ids
		res.Panel = &panel
		return
	}

	for _, id := range ids {
		if s.classes[id][ClassHighlighted] {
			res.Cleared = append(res.Cleared, id)
		}
		delete(s.classes, id)
	}
	sort.Strings(res.Cleared)
	s.panel = nil
	res.PanelClosed = true
}

func (s *Session) addClassLocked(id, class string) {
	set, ok := s.classes[id]
	if !ok {
		set = make(map[string]bool)
		s.classes[id] = set
	}
	set[class] = true
}

// Tooltip returns the hover text for a node, or false when its class has no
// tooltip.
func (s *Session) Tooltip(id string) (string, bool) {
	n, ok := s.idx.Node(id)
	if !ok || !slices.Contains(s.opts.TooltipClasses, string(n.Class)) {
		return "", false
	}
	return n.Label, true
}

// Hidden reports whether an element is currently hidden.
func (s *Session) Hidden(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hidden[id]
}

// HasClass reports whether an element carries the given class.
func (s *Session) HasClass(id, class string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classes[id][class]
}

// Highlighted reports whether an element is highlighted.
func (s *Session) Highlighted(id string) bool {
	return s.HasClass(id, ClassHighlighted)
}

// Panel returns the open data panel, if any.
func (s *Session) Panel() (DataPanel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.panel == nil {
		return DataPanel{}, false
	}
	return *s.panel, true
}

// Visible returns the elements that are not hidden, in their original order.
// An edge is only visible when both of its endpoints are, so the result always
// indexes cleanly.
func (s *Session) Visible() elements.Elements {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.idx.Elements()
	var out elements.Elements
	for _, n := range all.Nodes {
		if !s.hidden[n.Data.ID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range all.Edges {
		if s.hidden[e.Data.ID] || s.hidden[e.Data.Source] || s.hidden[e.Data.Target] {
			continue
		}
		out.Edges = append(out.Edges, e)
	}
	return out
}

// Reset makes everything visible, clears classes and closes the panel.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden = make(map[string]bool)
	s.classes = make(map[string]map[string]bool)
	s.panel = nil
}
