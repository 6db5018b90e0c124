package interact

import (
	"fmt"
	"sort"

	"github.com/vanderheijden86/supplyviz/pkg/elements"
)

// State is the serializable form of a Session. The viewer persists it between
// runs and the HTTP API returns it after every click.
type State struct {
	Hidden  []string            `json:"hidden"`
	Classes map[string][]string `json:"classes,omitempty"`
	Panel   *DataPanel          `json:"panel,omitempty"`
}

// Snapshot captures the current state with sorted ids.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{Hidden: make([]string, 0, len(s.hidden))}
	for id := range s.hidden {
		st.Hidden = append(st.Hidden, id)
	}
	sort.Strings(st.Hidden)

	if len(s.classes) > 0 {
		st.Classes = make(map[string][]string, len(s.classes))
		for id, set := range s.classes {
			cls := make([]string, 0, len(set))
			for c := range set {
				cls = append(cls, c)
			}
			sort.Strings(cls)
			st.Classes[id] = cls
		}
	}
	if s.panel != nil {
		p := *s.panel
		st.Panel = &p
	}
	return st
}

// Restore replaces the session state. Ids that are no longer part of the
// graph (the source file changed) are dropped and returned.
func (s *Session) Restore(st State) (dropped []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hidden := make(map[string]bool, len(st.Hidden))
	for _, id := range st.Hidden {
		if !s.idx.Has(id) {
			dropped = append(dropped, id)
			continue
		}
		hidden[id] = true
	}

	classes := make(map[string]map[string]bool, len(st.Classes))
	for id, cls := range st.Classes {
		if !s.idx.Has(id) {
			dropped = append(dropped, id)
			continue
		}
		set := make(map[string]bool, len(cls))
		for _, c := range cls {
			set[c] = true
		}
		classes[id] = set
	}

	var panel *DataPanel
	if st.Panel != nil {
		n, ok := s.idx.Node(st.Panel.MakerID)
		switch {
		case !ok:
			dropped = append(dropped, st.Panel.MakerID)
		case n.Class != elements.ClassMaker:
			return nil, fmt.Errorf("panel node %q is not a maker", st.Panel.MakerID)
		default:
			p := newDataPanel(s.idx, st.Panel.MakerID)
			panel = &p
		}
	}

	if panel == nil {
		dropHighlights(classes)
	}

	s.hidden = hidden
	s.classes = classes
	s.panel = panel
	sort.Strings(dropped)
	return dropped, nil
}

// dropHighlights strips the highlight class, which only lives as long as the
// panel that set it.
func dropHighlights(classes map[string]map[string]bool) {
	for id, set := range classes {
		delete(set, ClassHighlighted)
		if len(set) == 0 {
			delete(classes, id)
		}
	}
}
