package supply

import (
	"sort"
	"strings"

	"github.com/vanderheijden86/supplyviz/pkg/model"
)

// SupplyTree is a supply together with the subtrees chosen for its inputs.
// Inputs without an entry are unmet.
type SupplyTree struct {
	Good   string
	Supply Supply
	Inputs map[string]*SupplyTree
}

// inputKeys returns the keys of Inputs in sorted order.
func (t *SupplyTree) inputKeys() []string {
	keys := make([]string, 0, len(t.Inputs))
	for k := range t.Inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IncompleteGoods lists the unmet inputs anywhere in the tree, depth first
// in input order.
func (t *SupplyTree) IncompleteGoods() []string {
	var missing []string
	for _, in := range t.Supply.Inputs {
		if sub, ok := t.Inputs[in]; ok && sub != nil {
			missing = append(missing, sub.IncompleteGoods()...)
		} else {
			missing = append(missing, in)
		}
	}
	return missing
}

// IsComplete reports whether every input in the tree is met.
func (t *SupplyTree) IsComplete() bool {
	return len(t.IncompleteGoods()) == 0
}

// CheckConsistency reports whether every subtree produces the good it is
// filed under, at every level.
func (t *SupplyTree) CheckConsistency() bool {
	for _, k := range t.inputKeys() {
		sub := t.Inputs[k]
		if sub == nil || !sub.Supply.Produces(k) {
			return false
		}
		if !sub.CheckConsistency() {
			return false
		}
	}
	return true
}

// Size is the number of supplies in the tree.
func (t *SupplyTree) Size() int {
	n := 1
	for _, sub := range t.Inputs {
		n += sub.Size()
	}
	return n
}

// Cost sums price over every supply in the tree.
func (t *SupplyTree) Cost(price func(Supply) float64) float64 {
	total := price(t.Supply)
	for _, k := range t.inputKeys() {
		total += t.Inputs[k].Cost(price)
	}
	return total
}

// String draws the tree as stacked fractions: the supply over a rule, then
// the input assignments, then each subtree. Leaves sit on a double rule.
//
//	    chair:chair_1
//	---------------------
//	back:back_1,leg:leg_1
//	back:back_1
//	===========
//	leg:leg_1
//	=========
func (t *SupplyTree) String() string {
	numerator := strings.Join(t.Supply.Outputs, ",") + ":" + t.Supply.Name
	if len(t.Inputs) == 0 {
		return Fraction(numerator, nil, nil)
	}
	keys := t.inputKeys()
	labels := make([]string, len(keys))
	subs := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = k + ":" + t.Inputs[k].Supply.Name
		subs[i] = t.Inputs[k].String()
	}
	return Fraction(numerator, labels, subs)
}

// Fraction renders numerator over labels with centred padding, followed by
// the rendered subtrees. With no labels the numerator sits on a '=' rule.
func Fraction(numerator string, labels, subtrees []string) string {
	if len(labels) == 0 {
		return numerator + "\n" + strings.Repeat("=", len(numerator)) + "\n"
	}
	denominator := strings.Join(labels, ",")
	width := max(len(numerator), len(denominator))
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", (width-len(numerator))/2))
	sb.WriteString(numerator)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", width))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", (width-len(denominator))/2))
	sb.WriteString(denominator)
	sb.WriteString("\n")
	for _, s := range subtrees {
		sb.WriteString(s)
	}
	return sb.String()
}

// ToBOM converts the tree into a BOM tree. A supply with inputs becomes a
// made node, one without inputs a supplied leaf, and every unmet input a
// missing leaf. product describes goods; Network.Product is the usual
// choice.
func ToBOM(t *SupplyTree, product func(good string) model.Product) model.Tree {
	p := product(t.Good)
	if len(t.Supply.Inputs) == 0 {
		return model.Supplied(p, t.Supply.PartyName())
	}
	design := t.Supply.Design
	if design == "" {
		design = t.Supply.Name
	}
	bom := make([]model.Tree, 0, len(t.Supply.Inputs))
	for _, in := range t.Supply.Inputs {
		if sub, ok := t.Inputs[in]; ok && sub != nil {
			bom = append(bom, ToBOM(sub, product))
		} else {
			bom = append(bom, model.Missing(product(in)))
		}
	}
	return model.Made(p, t.Supply.PartyName(), design, bom...)
}
