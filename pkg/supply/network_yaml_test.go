package supply

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const chairYAML = `kind: network
name: A
goal: chair
goods:
  chair: Chair
supplies:
  - name: chair_1
    party: Shop
    outputs: [chair]
    inputs: [seat, leg, back]
    cost: 10
  - name: chair_2
    outputs: [chair]
    inputs: [leg, seat, back]
    cost: 4
  - name: leg_1
    outputs: [leg]
  - name: seat_1
    outputs: [seat]
  - name: back_1
    outputs: [back]
prices:
  chair_1: 1
`

func TestParseNetwork(t *testing.T) {
	doc, err := ParseNetwork([]byte(chairYAML))
	if err != nil {
		t.Fatalf("ParseNetwork: %v", err)
	}
	n := doc.Network()
	if n.Name != "A" || len(n.Supplies) != 5 {
		t.Fatalf("unexpected network: %+v", n)
	}
	if got := strings.Join(n.Supplies[0].Inputs, ","); got != "back,leg,seat" {
		t.Errorf("inputs not normalized: %s", got)
	}
	if n.Product("chair").Desc != "Chair" || n.Product("leg").Desc != "leg" {
		t.Errorf("unexpected descriptions")
	}

	best, cost, err := doc.Solve("")
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if best.Supply.Name != "chair_1" || cost != 1 {
		t.Errorf("Solve = %s at %v, want chair_1 at 1", best.Supply.Name, cost)
	}
}

func TestParseNetworkErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "empty document"},
		{"wrong kind", "kind: tree\nname: x\n", "kind is"},
		{"unknown field", "kind: network\nname: x\nsupplies:\n  - name: a\n    output: [b]\n", "output"},
		{"no outputs", "kind: network\nname: x\nsupplies:\n  - name: a\n", "no outputs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNetwork([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestNetworkRoundTripAndDetection(t *testing.T) {
	data, err := MarshalNetwork(ChairNetwork(), "chair")
	if err != nil {
		t.Fatalf("MarshalNetwork: %v", err)
	}
	if !IsNetworkDocument(data) {
		t.Fatal("marshalled network not detected")
	}
	if IsNetworkDocument([]byte(`{"type":"made"}`)) {
		t.Error("tree document detected as network")
	}

	path := filepath.Join(t.TempDir(), "a.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadNetwork(path)
	if err != nil {
		t.Fatalf("LoadNetwork: %v", err)
	}
	if got := NewProblem(doc.Goal, doc.Network()).Count(); got != 16 {
		t.Errorf("reloaded network has %d trees, want 16", got)
	}
}
