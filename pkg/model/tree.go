// Package model defines the bill-of-materials tree that supplyviz renders.
//
// A Tree is a tagged union keyed by its "type" field:
//
//	supplied  a product bought in from a party
//	missing   a product nobody in the network provides
//	made      a product a party builds from a design and a BOM of sub-trees
package model

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Kind discriminates the three tree variants.
type Kind string

const (
	KindSupplied Kind = "supplied"
	KindMissing  Kind = "missing"
	KindMade     Kind = "made"
)

// IsValid reports whether k is one of the known tree kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindSupplied, KindMissing, KindMade:
		return true
	}
	return false
}

// Product identifies a good in the tree.
type Product struct {
	ID   string `json:"id" yaml:"id"`
	Desc string `json:"desc" yaml:"desc"`
}

// Tree is one node of a BOM tree together with everything below it.
// Party is empty for missing trees; Design and BOM are only used by made trees.
type Tree struct {
	Product Product `json:"product" yaml:"product"`
	Type    Kind    `json:"type" yaml:"type"`
	Party   string  `json:"party,omitempty" yaml:"party,omitempty"`
	Design  string  `json:"design,omitempty" yaml:"design,omitempty"`
	BOM     []Tree  `json:"bom,omitempty" yaml:"bom,omitempty"`
}

// Supplied builds a supplied leaf.
func Supplied(p Product, party string) Tree {
	return Tree{Product: p, Type: KindSupplied, Party: party}
}

// Missing builds a missing leaf.
func Missing(p Product) Tree {
	return Tree{Product: p, Type: KindMissing}
}

// Made builds a made tree from its BOM.
func Made(p Product, party, design string, bom ...Tree) Tree {
	return Tree{Product: p, Type: KindMade, Party: party, Design: design, BOM: bom}
}

// treeAlias breaks the UnmarshalJSON recursion.
type treeAlias Tree

// UnmarshalJSON decodes a tree and rejects unknown variants.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var a treeAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("unknown tree type %q", a.Type)
	}
	*t = Tree(a)
	return nil
}

// ValidationError reports a problem at a specific position in the tree.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks the structural rules of every node.
// The first violation found in pre-order is returned.
func (t Tree) Validate() error {
	return t.validate("root")
}

func (t Tree) validate(path string) error {
	if !t.Type.IsValid() {
		return &ValidationError{Path: path, Message: fmt.Sprintf("unknown type %q", t.Type)}
	}
	if strings.TrimSpace(t.Product.ID) == "" {
		return &ValidationError{Path: path, Message: "product id is required"}
	}
	switch t.Type {
	case KindSupplied, KindMade:
		if strings.TrimSpace(t.Party) == "" {
			return &ValidationError{Path: path, Message: fmt.Sprintf("%s tree requires a party", t.Type)}
		}
	}
	if t.Type != KindMade && len(t.BOM) > 0 {
		return &ValidationError{Path: path, Message: fmt.Sprintf("%s tree cannot have a bom", t.Type)}
	}
	for i, child := range t.BOM {
		if err := child.validate(fmt.Sprintf("%s.bom[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// WalkFunc is called for every node during Walk. Returning false skips the
// node's BOM.
type WalkFunc func(path string, depth int, t Tree) bool

// Walk visits the tree in pre-order.
func (t Tree) Walk(fn WalkFunc) {
	t.walk("root", 0, fn)
}

func (t Tree) walk(path string, depth int, fn WalkFunc) {
	if !fn(path, depth, t) {
		return
	}
	for i, child := range t.BOM {
		child.walk(fmt.Sprintf("%s.bom[%d]", path, i), depth+1, fn)
	}
}

// Counts tallies the nodes of each kind.
type Counts struct {
	Made     int `json:"made"`
	Supplied int `json:"supplied"`
	Missing  int `json:"missing"`
}

// Total is the number of tree nodes.
func (c Counts) Total() int {
	return c.Made + c.Supplied + c.Missing
}

// Counts returns how many nodes of each kind the tree holds.
func (t Tree) Counts() Counts {
	var c Counts
	t.Walk(func(_ string, _ int, n Tree) bool {
		switch n.Type {
		case KindMade:
			c.Made++
		case KindSupplied:
			c.Supplied++
		case KindMissing:
			c.Missing++
		}
		return true
	})
	return c
}

// Depth returns the number of levels in the tree. A single leaf has depth 1.
func (t Tree) Depth() int {
	max := 0
	t.Walk(func(_ string, depth int, _ Tree) bool {
		if depth+1 > max {
			max = depth + 1
		}
		return true
	})
	return max
}

// MissingProducts lists, in pre-order, the products no party provides.
func (t Tree) MissingProducts() []Product {
	var out []Product
	t.Walk(func(_ string, _ int, n Tree) bool {
		if n.Type == KindMissing {
			out = append(out, n.Product)
		}
		return true
	})
	return out
}

// Parties returns the distinct parties in first-seen order.
func (t Tree) Parties() []string {
	seen := make(map[string]bool)
	var out []string
	t.Walk(func(_ string, _ int, n Tree) bool {
		if n.Party != "" && !seen[n.Party] {
			seen[n.Party] = true
			out = append(out, n.Party)
		}
		return true
	})
	return out
}
