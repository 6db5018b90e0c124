// Package supply models supply networks: named supplies that turn input goods
// into output goods, and the supply trees that can be assembled from them to
// produce a good.
//
// A SupplyTree may be incomplete: an input with no subtree is an open
// requirement. Problem enumerates every tree for a good, complete or not,
// and picks the cheapest complete one.
package supply

import (
	"fmt"
	"slices"
	"sort"

	"github.com/vanderheijden86/supplyviz/pkg/model"
)

// Supply is one capability of a network: it makes its outputs from its
// inputs. Party and Design are optional labels carried into BOM trees.
type Supply struct {
	Name    string   `yaml:"name" json:"name"`
	Outputs []string `yaml:"outputs" json:"outputs"`
	Inputs  []string `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Party   string   `yaml:"party,omitempty" json:"party,omitempty"`
	Design  string   `yaml:"design,omitempty" json:"design,omitempty"`
	Cost    float64  `yaml:"cost,omitempty" json:"cost,omitempty"`
}

// NewSupply builds a supply with its goods deduplicated and sorted.
func NewSupply(name string, outputs, inputs []string) Supply {
	return Supply{Name: name, Outputs: goodSet(outputs), Inputs: goodSet(inputs)}
}

func goodSet(goods []string) []string {
	if len(goods) == 0 {
		return nil
	}
	out := slices.Clone(goods)
	sort.Strings(out)
	return slices.Compact(out)
}

func (s Supply) normalized() Supply {
	s.Outputs = goodSet(s.Outputs)
	s.Inputs = goodSet(s.Inputs)
	return s
}

// Produces reports whether good is one of the supply's outputs.
func (s Supply) Produces(good string) bool {
	return slices.Contains(s.Outputs, good)
}

// PartyName is the party that operates the supply, defaulting to its name.
func (s Supply) PartyName() string {
	if s.Party != "" {
		return s.Party
	}
	return s.Name
}

// Network is a named collection of supplies. Descriptions optionally maps
// goods to human-readable names.
type Network struct {
	Name         string            `yaml:"name" json:"name"`
	Supplies     []Supply          `yaml:"supplies" json:"supplies"`
	Descriptions map[string]string `yaml:"goods,omitempty" json:"goods,omitempty"`
}

// NewNetwork builds a network, normalizing every supply.
func NewNetwork(name string, supplies ...Supply) *Network {
	n := &Network{Name: name}
	for _, s := range supplies {
		n.Supplies = append(n.Supplies, s.normalized())
	}
	return n
}

// Union joins two networks. The result is named "a|b" and holds a's supplies
// followed by b's.
func Union(a, b *Network) *Network {
	u := &Network{
		Name:     a.Name + "|" + b.Name,
		Supplies: append(slices.Clone(a.Supplies), b.Supplies...),
	}
	if len(a.Descriptions)+len(b.Descriptions) > 0 {
		u.Descriptions = make(map[string]string, len(a.Descriptions)+len(b.Descriptions))
		for k, v := range b.Descriptions {
			u.Descriptions[k] = v
		}
		for k, v := range a.Descriptions {
			u.Descriptions[k] = v
		}
	}
	return u
}

// GoodTypes returns every good that appears as an input or output, sorted.
func (n *Network) GoodTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range n.Supplies {
		for _, g := range append(slices.Clone(s.Inputs), s.Outputs...) {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	sort.Strings(out)
	return out
}

// OneSupply returns the first supply producing good.
func (n *Network) OneSupply(good string) (Supply, bool) {
	for _, s := range n.Supplies {
		if s.Produces(good) {
			return s, true
		}
	}
	return Supply{}, false
}

// AllSupplies returns every supply producing good, in network order.
func (n *Network) AllSupplies(good string) []Supply {
	var out []Supply
	for _, s := range n.Supplies {
		if s.Produces(good) {
			out = append(out, s)
		}
	}
	return out
}

// Supply looks a supply up by name.
func (n *Network) Supply(name string) (Supply, bool) {
	for _, s := range n.Supplies {
		if s.Name == name {
			return s, true
		}
	}
	return Supply{}, false
}

// Product describes good for BOM output.
func (n *Network) Product(good string) model.Product {
	desc := n.Descriptions[good]
	if desc == "" {
		desc = good
	}
	return model.Product{ID: good, Desc: desc}
}

// Validate checks names are unique and every supply produces something.
func (n *Network) Validate() error {
	seen := make(map[string]bool, len(n.Supplies))
	for i, s := range n.Supplies {
		if s.Name == "" {
			return fmt.Errorf("supply %d: missing name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("supply %q: duplicate name", s.Name)
		}
		seen[s.Name] = true
		if len(s.Outputs) == 0 {
			return fmt.Errorf("supply %q: no outputs", s.Name)
		}
	}
	return nil
}
