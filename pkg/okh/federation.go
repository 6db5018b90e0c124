package okh

import (
	"slices"
	"strings"

	"github.com/vanderheijden86/supplyviz/pkg/supply"
)

// Workshop is an OKW entry: a place with a set of tools.
type Workshop struct {
	Name    string   `yaml:"name" json:"name"`
	Tooling []string `yaml:"tooling" json:"tooling"`
}

// HasToolingFor reports whether the workshop owns every tool the manifest
// lists. Tool names compare case-insensitively.
func (w Workshop) HasToolingFor(m *Manifest) bool {
	for _, tool := range m.Tools() {
		if !slices.ContainsFunc(w.Tooling, func(t string) bool {
			return strings.EqualFold(strings.TrimSpace(t), tool)
		}) {
			return false
		}
	}
	return true
}

// Federation pairs manifests with workshops.
type Federation struct {
	Name      string
	Manifests []*Manifest
	Workshops []Workshop
}

// Supplies returns a supply named "workshop|title" for every workshop that
// has the tooling for a manifest. The supply outputs the manifest title and
// consumes its BOM.
func (f *Federation) Supplies() []supply.Supply {
	var out []supply.Supply
	for _, w := range f.Workshops {
		for _, m := range f.Manifests {
			if !w.HasToolingFor(m) {
				continue
			}
			s := supply.NewSupply(w.Name+"|"+m.Title, []string{m.Title}, m.BOMItems())
			s.Party = w.Name
			s.Design = m.Title
			out = append(out, s)
		}
	}
	return out
}

// Network wraps Supplies in a supply network named after the federation.
func (f *Federation) Network() *supply.Network {
	n := supply.NewNetwork(f.Name, f.Supplies()...)
	n.Descriptions = make(map[string]string)
	for _, m := range f.Manifests {
		if m.Description != "" {
			n.Descriptions[m.Title] = m.Description
		}
	}
	return n
}
