package supply

import (
	"slices"
	"sort"

	"github.com/vanderheijden86/supplyviz/pkg/model"
)

// Atom is a good identified by a Wikidata-style identifier. Two atoms are the
// same good when their identifiers match; descriptions are informational.
type Atom struct {
	Identifier  string `yaml:"id" json:"id"`
	Description string `yaml:"desc" json:"desc"`
}

// Equal compares atoms by identifier.
func (a Atom) Equal(b Atom) bool {
	return a.Identifier == b.Identifier
}

// Product converts the atom for BOM trees.
func (a Atom) Product() model.Product {
	return model.Product{ID: a.Identifier, Desc: a.Description}
}

// AtomSet is a set of atoms keyed by identifier.
type AtomSet map[string]Atom

// NewAtomSet builds a set; repeated identifiers keep the first description.
func NewAtomSet(atoms ...Atom) AtomSet {
	s := make(AtomSet, len(atoms))
	for _, a := range atoms {
		s.Add(a)
	}
	return s
}

// Add inserts a unless an atom with the same identifier is present.
func (s AtomSet) Add(a Atom) {
	if _, ok := s[a.Identifier]; !ok {
		s[a.Identifier] = a
	}
}

// Remove deletes a.
func (s AtomSet) Remove(a Atom) {
	delete(s, a.Identifier)
}

// Has reports membership by identifier.
func (s AtomSet) Has(a Atom) bool {
	_, ok := s[a.Identifier]
	return ok
}

// Union returns a new set holding both sets' atoms.
func (s AtomSet) Union(o AtomSet) AtomSet {
	u := make(AtomSet, len(s)+len(o))
	for _, a := range s {
		u.Add(a)
	}
	for _, a := range o {
		u.Add(a)
	}
	return u
}

// Sorted returns the atoms ordered by identifier.
func (s AtomSet) Sorted() []Atom {
	out := make([]Atom, 0, len(s))
	for _, a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// Design is a recipe: the product it makes, the BOM it consumes, the tools it
// needs and any by-products.
type Design struct {
	Product    Atom
	BOM        AtomSet
	Tools      AtomSet
	BOMOutputs AtomSet
}

// NewDesign builds a design from atom lists.
func NewDesign(product Atom, bom, tools, byProducts []Atom) Design {
	return Design{
		Product:    product,
		BOM:        NewAtomSet(bom...),
		Tools:      NewAtomSet(tools...),
		BOMOutputs: NewAtomSet(byProducts...),
	}
}

// Outputs is the product plus the by-products.
func (d Design) Outputs() AtomSet {
	return NewAtomSet(d.Product).Union(d.BOMOutputs)
}

// AtomNetwork is a maker space: the goods it has on hand and its tools.
type AtomNetwork struct {
	Name     string
	Supplies AtomSet
	Tools    AtomSet
}

// NewAtomNetwork builds a network from atom lists.
func NewAtomNetwork(name string, supplies, tools []Atom) *AtomNetwork {
	return &AtomNetwork{Name: name, Supplies: NewAtomSet(supplies...), Tools: NewAtomSet(tools...)}
}

// AddSupply adds a good.
func (n *AtomNetwork) AddSupply(a Atom) { n.Supplies.Add(a) }

// RemoveSupply removes a good.
func (n *AtomNetwork) RemoveSupply(a Atom) { n.Supplies.Remove(a) }

// AddTool adds a tool.
func (n *AtomNetwork) AddTool(a Atom) { n.Tools.Add(a) }

// RemoveTool removes a tool.
func (n *AtomNetwork) RemoveTool(a Atom) { n.Tools.Remove(a) }

// UnionAtomNetworks joins two maker spaces under the name "a|b".
func UnionAtomNetworks(a, b *AtomNetwork) *AtomNetwork {
	return &AtomNetwork{
		Name:     a.Name + "|" + b.Name,
		Supplies: a.Supplies.Union(b.Supplies),
		Tools:    a.Tools.Union(b.Tools),
	}
}

// Shortfall lists the BOM items and tools the network lacks for d.
func (n *AtomNetwork) Shortfall(d Design) (bom, tools []Atom) {
	for _, a := range d.BOM.Sorted() {
		if !n.Supplies.Has(a) {
			bom = append(bom, a)
		}
	}
	for _, a := range d.Tools.Sorted() {
		if !n.Tools.Has(a) {
			tools = append(tools, a)
		}
	}
	return bom, tools
}

// CanMake reports whether the network has everything d needs.
func (n *AtomNetwork) CanMake(d Design) bool {
	bom, tools := n.Shortfall(d)
	return len(bom) == 0 && len(tools) == 0
}

// BOMTree is the one-level BOM of making d in n: BOM items the network holds
// are supplied by it, the rest are missing.
func (n *AtomNetwork) BOMTree(d Design, designName string) model.Tree {
	items := d.BOM.Sorted()
	bom := make([]model.Tree, 0, len(items))
	for _, a := range items {
		if n.Supplies.Has(a) {
			bom = append(bom, model.Supplied(a.Product(), n.Name))
		} else {
			bom = append(bom, model.Missing(a.Product()))
		}
	}
	return model.Made(d.Product.Product(), n.Name, designName, bom...)
}

// Supply expresses d made by n as a network supply.
func (n *AtomNetwork) Supply(d Design, designName string) Supply {
	var outputs, inputs []string
	for _, a := range d.Outputs().Sorted() {
		outputs = append(outputs, a.Identifier)
	}
	for _, a := range d.BOM.Sorted() {
		inputs = append(inputs, a.Identifier)
	}
	return Supply{
		Name:    n.Name + "|" + designName,
		Outputs: slices.Clip(outputs),
		Inputs:  slices.Clip(inputs),
		Party:   n.Name,
		Design:  designName,
	}
}
