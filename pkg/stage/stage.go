// Package stage tracks the progress of an order. A Graph mirrors a supply
// tree and decorates each supply with a status that parties assert as work
// succeeds or fails. A failed supply can be repaired by swapping in another
// subtree; the replaced node is kept in the node's history.
package stage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/supplyviz/pkg/debug"
	"github.com/vanderheijden86/supplyviz/pkg/supply"
)

// Status is the state of one stage.
type Status int

const (
	Open Status = iota
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Open:
		return "OPEN"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus accepts the names printed by String, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(s) {
	case "OPEN":
		return Open, nil
	case "SUCCEEDED":
		return Succeeded, nil
	case "FAILED":
		return Failed, nil
	}
	return Open, fmt.Errorf("unknown stage status %q", s)
}

// Graph is one stage: the supply currently chosen for Good, its status and
// the stages of its inputs.
type Graph struct {
	Good     string
	Supply   supply.Supply
	Status   Status
	Inputs   map[string]*Graph
	Repaired []*Graph
}

// NewGraph builds an all-open stage graph from a supply tree.
func NewGraph(t *supply.SupplyTree) *Graph {
	g := &Graph{Good: t.Good, Supply: t.Supply, Inputs: make(map[string]*Graph, len(t.Inputs))}
	for k, sub := range t.Inputs {
		if sub != nil {
			g.Inputs[k] = NewGraph(sub)
		}
	}
	return g
}

func (g *Graph) keys() []string {
	keys := make([]string, 0, len(g.Inputs))
	for k := range g.Inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsComplete reports whether this stage has succeeded.
func (g *Graph) IsComplete() bool {
	return g.Status == Succeeded
}

// AllComplete reports whether every stage in the graph has succeeded.
func (g *Graph) AllComplete() bool {
	if !g.IsComplete() {
		return false
	}
	for _, sub := range g.Inputs {
		if !sub.AllComplete() {
			return false
		}
	}
	return true
}

// SupplyNeedingRepair returns the name of the first failed supply, checking a
// stage before its inputs.
func (g *Graph) SupplyNeedingRepair() (string, bool) {
	if g.Status == Failed {
		return g.Supply.Name, true
	}
	for _, k := range g.keys() {
		if name, ok := g.Inputs[k].SupplyNeedingRepair(); ok {
			return name, true
		}
	}
	return "", false
}

// NeedsRepair reports whether any stage has failed.
func (g *Graph) NeedsRepair() bool {
	_, ok := g.SupplyNeedingRepair()
	return ok
}

// Assert sets the status of every stage run by supplyName. A matching stage
// does not look further down its inputs. It reports whether any stage
// matched.
func (g *Graph) Assert(supplyName string, status Status) bool {
	if g.Supply.Name == supplyName {
		debug.Log("stage: %s %s -> %s", supplyName, g.Status, status)
		g.Status = status
		return true
	}
	found := false
	for _, k := range g.keys() {
		if g.Inputs[k].Assert(supplyName, status) {
			found = true
		}
	}
	return found
}

// Repair replaces every stage run by supplyName with t. The old stage is
// appended to the history, the inputs are rebuilt from t and the status goes
// back to open. It reports whether any stage matched.
func (g *Graph) Repair(supplyName string, t *supply.SupplyTree) bool {
	if g.Supply.Name == supplyName {
		old := *g
		old.Repaired = nil
		g.Repaired = append(g.Repaired, &old)
		fresh := NewGraph(t)
		g.Supply = fresh.Supply
		g.Inputs = fresh.Inputs
		g.Status = Open
		debug.Log("stage: repaired %s with %s", supplyName, t.Supply.Name)
		return true
	}
	found := false
	for _, k := range g.keys() {
		if g.Inputs[k].Repair(supplyName, t) {
			found = true
		}
	}
	return found
}

// Counts tallies the stages by status.
func (g *Graph) Counts() map[Status]int {
	out := map[Status]int{}
	var walk func(*Graph)
	walk = func(n *Graph) {
		out[n.Status]++
		for _, sub := range n.Inputs {
			walk(sub)
		}
	}
	walk(g)
	return out
}

// String draws the graph in the same fraction style as a supply tree, with
// each supply followed by its status.
func (g *Graph) String() string {
	numerator := g.Supply.Name + "/" + g.Status.String()
	if len(g.Repaired) > 0 {
		numerator += " REPAIRED"
	}
	if len(g.Inputs) == 0 {
		return supply.Fraction(numerator, nil, nil)
	}
	keys := g.keys()
	labels := make([]string, len(keys))
	subs := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = k + ":" + g.Inputs[k].Supply.Name
		subs[i] = g.Inputs[k].String()
	}
	return supply.Fraction(numerator, labels, subs)
}

// Order is a supply tree being fulfilled.
type Order struct {
	Tree  *supply.SupplyTree
	Stage *Graph
}

// NewOrder starts an order with every stage open.
func NewOrder(t *supply.SupplyTree) *Order {
	return &Order{Tree: t, Stage: NewGraph(t)}
}

// Done reports whether every stage of the order has succeeded.
func (o *Order) Done() bool {
	return o.Stage.AllComplete()
}
