package elements

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/gowebpki/jcs"
	"github.com/minio/highwayhash"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Hash fingerprints any JSON-encodable value. The value is encoded in RFC 8785
// canonical form first, so map ordering and whitespace never change the result.
func Hash(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash: marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("hash: canonicalize: %w", err)
	}
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return "", err
	}
	if _, err := h.Write(canonical); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// mustHash is used for element types, which always encode cleanly.
func mustHash(v any) string {
	s, err := Hash(v)
	if err != nil {
		panic(err)
	}
	return s
}

// DataHash fingerprints a whole element set. Exports record it so a reader
// can tell whether two files describe the same graph.
func (e Elements) DataHash() string {
	return mustHash(e)
}

// Contains reports whether every node and every edge of a also appears in b.
// Elements are compared by content hash, so a node with the same id but a
// different label does not match.
func Contains(a, b Elements) bool {
	nodes := make(map[string]bool, len(b.Nodes))
	for _, n := range b.Nodes {
		nodes[mustHash(n)] = true
	}
	edges := make(map[string]bool, len(b.Edges))
	for _, e := range b.Edges {
		edges[mustHash(e)] = true
	}
	for _, n := range a.Nodes {
		if !nodes[mustHash(n)] {
			return false
		}
	}
	for _, e := range a.Edges {
		if !edges[mustHash(e)] {
			return false
		}
	}
	return true
}

// Equal reports whether a and b hold the same elements, ignoring order.
func Equal(a, b Elements) bool {
	return Contains(a, b) && Contains(b, a)
}
