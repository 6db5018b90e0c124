package datasource

import (
	"context"
	"fmt"
	"strings"

	"github.com/vanderheijden86/supplyviz/pkg/elements"
)

// SourceDiff represents differences between the graphs of two sources
type SourceDiff struct {
	SourceA string
	SourceB string
	// MissingInA contains element IDs present in B but not in A
	MissingInA []string
	// MissingInB contains element IDs present in A but not in B
	MissingInB []string
	// Changed lists elements present in both whose data differs
	Changed []string
	CountA  int
	CountB  int
}

// HasInconsistencies returns true if there are any differences between sources
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.Changed) > 0
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d elements each)", d.CountA)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Inconsistencies found between %s and %s:\n", d.SourceA, d.SourceB)
	if d.CountA != d.CountB {
		fmt.Fprintf(&sb, "  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}
	list := func(ids []string, what string) {
		if len(ids) == 0 {
			return
		}
		fmt.Fprintf(&sb, "  - %d elements %s\n", len(ids), what)
		if len(ids) <= 5 {
			for _, id := range ids {
				fmt.Fprintf(&sb, "    - %s\n", id)
			}
		}
	}
	list(d.MissingInA, fmt.Sprintf("in %s but not %s", d.SourceB, d.SourceA))
	list(d.MissingInB, fmt.Sprintf("in %s but not %s", d.SourceA, d.SourceB))
	list(d.Changed, "with different data")
	return sb.String()
}

type keyed struct {
	ids  []string
	hash map[string]string
}

func index(e elements.Elements) keyed {
	k := keyed{hash: make(map[string]string, e.Len())}
	for _, n := range e.Nodes {
		k.ids = append(k.ids, n.Data.ID)
		k.hash[n.Data.ID], _ = elements.Hash(n)
	}
	for _, ed := range e.Edges {
		k.ids = append(k.ids, ed.Data.ID)
		k.hash[ed.Data.ID], _ = elements.Hash(ed)
	}
	return k
}

// DetectInconsistencies compares two element sets by ID and content hash.
func DetectInconsistencies(a, b elements.Elements, sourceA, sourceB string) SourceDiff {
	ka, kb := index(a), index(b)
	diff := SourceDiff{SourceA: sourceA, SourceB: sourceB, CountA: a.Len(), CountB: b.Len()}
	for _, id := range ka.ids {
		hb, ok := kb.hash[id]
		switch {
		case !ok:
			diff.MissingInB = append(diff.MissingInB, id)
		case hb != ka.hash[id]:
			diff.Changed = append(diff.Changed, id)
		}
	}
	for _, id := range kb.ids {
		if _, ok := ka.hash[id]; !ok {
			diff.MissingInA = append(diff.MissingInA, id)
		}
	}
	return diff
}

// CompareSources loads both sources and diffs their graphs.
func CompareSources(ctx context.Context, sourceA, sourceB DataSource) (*SourceDiff, error) {
	ra, err := LoadFromSource(ctx, sourceA)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", sourceA.Path, err)
	}
	rb, err := LoadFromSource(ctx, sourceB)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", sourceB.Path, err)
	}
	diff := DetectInconsistencies(ra.Elements, rb.Elements, sourceA.Path, sourceB.Path)
	return &diff, nil
}
