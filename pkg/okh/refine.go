package okh

import (
	"regexp"
	"strings"

	"github.com/vanderheijden86/supplyviz/pkg/supply"
)

// Catalog resolves free-text BOM and tool entries to known atoms.
type Catalog struct {
	atoms []supply.Atom
}

// NewCatalog builds a catalog from atoms. Earlier atoms win on ties.
func NewCatalog(atoms ...supply.Atom) *Catalog {
	return &Catalog{atoms: atoms}
}

// DefaultCatalog knows the sample mask goods and tools.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		supply.FabricMask, supply.NWPP, supply.BiasTape, supply.TinTie, supply.PipeCleaner,
		supply.SewingMachine, supply.Scissors, supply.Pins, supply.MeasuringTape, supply.ScrapFabric,
	)
}

var alternatives = regexp.MustCompile(`(?i)\s+(?:or|and)\s+`)

// Lookup finds the atom for an entry such as "Bias tape or other ties".
// Each alternative is tried in turn; an alternative matches an atom whose
// description it contains, or which contains it.
func (c *Catalog) Lookup(entry string) (supply.Atom, bool) {
	for _, alt := range alternatives.Split(entry, -1) {
		alt = strings.ToLower(strings.TrimSpace(alt))
		if alt == "" {
			continue
		}
		for _, a := range c.atoms {
			desc := strings.ToLower(a.Description)
			if strings.Contains(alt, desc) || strings.Contains(desc, alt) {
				return a, true
			}
		}
	}
	return supply.Atom{}, false
}

func (c *Catalog) refs(items []string) []AtomRef {
	out := make([]AtomRef, 0, len(items))
	for _, item := range items {
		ref := AtomRef{Description: item}
		if a, ok := c.Lookup(item); ok {
			ref.Identifier = a.Identifier
			ref.Link = "https://www.wikidata.org/wiki/" + a.Identifier
		}
		out = append(out, ref)
	}
	return out
}

// Refine fills in missing atom lists from the catalog and returns the
// entries it could not resolve. Lists already present are left alone.
func (m *Manifest) Refine(c *Catalog) (unresolved []string) {
	if m.BOMAtoms == nil {
		m.BOMAtoms = c.refs(m.BOMItems())
	}
	if m.ToolListAtoms == nil {
		m.ToolListAtoms = c.refs(m.Tools())
	}
	for _, list := range [][]AtomRef{m.BOMAtoms, m.ToolListAtoms} {
		for _, r := range list {
			if r.Identifier == "" {
				unresolved = append(unresolved, r.Description)
			}
		}
	}
	return unresolved
}
