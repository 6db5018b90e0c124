package supply

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// KindNetwork is the value of the top-level kind field of a network document.
const KindNetwork = "network"

// Document is the YAML form of a network. Goal and Prices are optional
// defaults for solving.
//
//	kind: network
//	name: A
//	goal: chair
//	goods:
//	  chair: Chair
//	supplies:
//	  - name: chair_1
//	    party: Shop
//	    outputs: [chair]
//	    inputs: [leg, seat, back]
//	    cost: 10
type Document struct {
	Kind     string             `yaml:"kind"`
	Name     string             `yaml:"name"`
	Goal     string             `yaml:"goal,omitempty"`
	Goods    map[string]string  `yaml:"goods,omitempty"`
	Supplies []Supply           `yaml:"supplies"`
	Prices   map[string]float64 `yaml:"prices,omitempty"`
}

// Network returns the normalized network described by the document.
func (d *Document) Network() *Network {
	n := NewNetwork(d.Name, d.Supplies...)
	n.Descriptions = d.Goods
	return n
}

// ParseNetwork decodes a network document. Unknown fields are rejected so
// typos in supply definitions surface early.
func ParseNetwork(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("parsing network: empty document")
		}
		return nil, fmt.Errorf("parsing network: %w", err)
	}
	if doc.Kind != KindNetwork {
		return nil, fmt.Errorf("parsing network: kind is %q, want %q", doc.Kind, KindNetwork)
	}
	if err := doc.Network().Validate(); err != nil {
		return nil, fmt.Errorf("invalid network %q: %w", doc.Name, err)
	}
	return &doc, nil
}

// LoadNetwork reads a network document from disk.
func LoadNetwork(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network: %w", err)
	}
	return ParseNetwork(data)
}

// IsNetworkDocument reports whether data looks like a network document.
func IsNetworkDocument(data []byte) bool {
	var header struct {
		Kind string `yaml:"kind"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return false
	}
	return header.Kind == KindNetwork
}

// MarshalNetwork encodes n as a network document.
func MarshalNetwork(n *Network, goal string) ([]byte, error) {
	doc := Document{
		Kind:     KindNetwork,
		Name:     n.Name,
		Goal:     goal,
		Goods:    n.Descriptions,
		Supplies: n.Supplies,
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Solve solves the document for its goal (or goal when non-empty) and returns
// the cheapest complete tree.
func (d *Document) Solve(goal string) (*SupplyTree, float64, error) {
	if goal == "" {
		goal = d.Goal
	}
	if goal == "" {
		return nil, 0, fmt.Errorf("network %q: no goal given", d.Name)
	}
	return NewProblem(goal, d.Network()).OptimalByPrice(d.Prices)
}
