// Package okh reads Open Know-How manifests (how to make a thing) and Open
// Know-Where workshop descriptions (who can make it), and combines them into
// supplies for a supply network.
package okh

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AtomRef links a BOM item or tool to a Wikidata-style identifier.
type AtomRef struct {
	Identifier  string `yaml:"identifier" json:"identifier"`
	Description string `yaml:"description" json:"description"`
	Link        string `yaml:"link" json:"link"`
}

// Manifest is an OKH manifest. BOM and ToolList are the free-text,
// comma-separated lists the format uses; the Atoms fields hold their refined
// forms when present.
type Manifest struct {
	Title         string    `yaml:"title"`
	Description   string    `yaml:"description,omitempty"`
	IntendedUse   string    `yaml:"intended-use,omitempty"`
	Keywords      []string  `yaml:"keywords,omitempty"`
	BOM           string    `yaml:"bom"`
	ToolList      string    `yaml:"tool-list,omitempty"`
	BOMAtoms      []AtomRef `yaml:"bom-atoms,omitempty"`
	ToolListAtoms []AtomRef `yaml:"tool-list-atoms,omitempty"`

	// doc keeps the parsed document so unknown keys survive a save.
	doc *yaml.Node
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	var m Manifest
	if err := doc.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	m.doc = &doc
	return &m, nil
}

// LoadManifest reads a manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// SplitList splits a comma-separated list, trimming blanks and dropping empty
// entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BOMItems is the parsed bom list.
func (m *Manifest) BOMItems() []string { return SplitList(m.BOM) }

// Tools is the parsed tool-list.
func (m *Manifest) Tools() []string { return SplitList(m.ToolList) }

// Refined reports whether both atom lists are present.
func (m *Manifest) Refined() bool {
	return m.BOMAtoms != nil && m.ToolListAtoms != nil
}

// Marshal encodes the manifest. Keys the manifest type does not know about are
// kept in their original position; atom lists are appended or replaced.
func (m *Manifest) Marshal() ([]byte, error) {
	root, err := m.mapping()
	if err != nil {
		return nil, err
	}
	if m.BOMAtoms != nil {
		if err := setKey(root, "bom-atoms", m.BOMAtoms); err != nil {
			return nil, err
		}
	}
	if m.ToolListAtoms != nil {
		if err := setKey(root, "tool-list-atoms", m.ToolListAtoms); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mapping returns the top-level mapping node, building one from the typed
// fields when the manifest was not parsed from a document.
func (m *Manifest) mapping() (*yaml.Node, error) {
	if m.doc != nil && len(m.doc.Content) == 1 && m.doc.Content[0].Kind == yaml.MappingNode {
		return m.doc.Content[0], nil
	}
	var n yaml.Node
	plain := *m
	plain.BOMAtoms, plain.ToolListAtoms = nil, nil
	if err := n.Encode(&plain); err != nil {
		return nil, err
	}
	return &n, nil
}

func setKey(mapping *yaml.Node, key string, v any) error {
	var value yaml.Node
	if err := value.Encode(v); err != nil {
		return err
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = &value
			return nil
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&value,
	)
	return nil
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RefinedFileName names the refined copy of a manifest file:
// "mask.yml" becomes "okh_mask_refined.yml"; names already starting with
// "okh" keep their prefix.
func RefinedFileName(name string) string {
	suffix := ".yml"
	if strings.HasSuffix(name, ".yaml") {
		suffix = ".yaml"
	}
	refined := strings.TrimSuffix(name, suffix) + "_refined" + suffix
	if strings.HasPrefix(name, "okh") {
		return refined
	}
	return "okh_" + refined
}
