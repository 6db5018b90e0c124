package supply

import (
	"errors"
	"fmt"
	"math"

	"github.com/vanderheijden86/supplyviz/pkg/debug"
	"github.com/vanderheijden86/supplyviz/pkg/metrics"
)

// ErrNoCompleteTree is returned when no complete supply tree exists.
var ErrNoCompleteTree = errors.New("no complete supply tree")

// Problem asks how Network can produce Good.
type Problem struct {
	Good    string
	Network *Network
}

// NewProblem creates a problem for good over n.
func NewProblem(good string, n *Network) *Problem {
	return &Problem{Good: good, Network: n}
}

// Trees enumerates every supply tree for the good, including incomplete
// ones. For each supply producing the good (in network order), each of its
// inputs takes either no subtree or one of the trees for that input. The
// inputs behave like odometer digits, the first input in sorted order
// turning fastest, starting from the tree with every input unmet.
//
// A good already being produced further up the tree is never expanded again,
// so cyclic networks terminate.
func (p *Problem) Trees() []*SupplyTree {
	defer metrics.Timer(metrics.SupplySolve)()
	trees := p.enumerate(p.Good, map[string]bool{})
	debug.Log("supply: %d trees for %q in %q", len(trees), p.Good, p.Network.Name)
	return trees
}

func (p *Problem) enumerate(good string, path map[string]bool) []*SupplyTree {
	if path[good] {
		return nil
	}
	path[good] = true
	defer delete(path, good)

	var out []*SupplyTree
	for _, s := range p.Network.AllSupplies(good) {
		// options[i][0] is the unmet choice for input i.
		options := make([][]*SupplyTree, len(s.Inputs))
		for i, in := range s.Inputs {
			options[i] = append([]*SupplyTree{nil}, p.enumerate(in, path)...)
		}

		digits := make([]int, len(s.Inputs))
		for {
			t := &SupplyTree{Good: good, Supply: s, Inputs: map[string]*SupplyTree{}}
			for i, in := range s.Inputs {
				if sub := options[i][digits[i]]; sub != nil {
					t.Inputs[in] = sub
				}
			}
			out = append(out, t)

			if !advance(digits, options) {
				break
			}
		}
	}
	return out
}

// advance steps the odometer. It returns false once every digit has wrapped.
func advance(digits []int, options [][]*SupplyTree) bool {
	for i := range digits {
		digits[i]++
		if digits[i] < len(options[i]) {
			return true
		}
		digits[i] = 0
	}
	return false
}

// Count returns how many trees Trees would produce, without building them.
func (p *Problem) Count() int {
	return p.count(p.Good, map[string]bool{})
}

func (p *Problem) count(good string, path map[string]bool) int {
	if path[good] {
		return 0
	}
	path[good] = true
	defer delete(path, good)

	total := 0
	for _, s := range p.Network.AllSupplies(good) {
		n := 1
		for _, in := range s.Inputs {
			n *= 1 + p.count(in, path)
		}
		total += n
	}
	return total
}

// CompleteTrees returns the trees with no unmet input.
func (p *Problem) CompleteTrees() []*SupplyTree {
	var out []*SupplyTree
	for _, t := range p.Trees() {
		if t.IsComplete() {
			out = append(out, t)
		}
	}
	return out
}

// Optimal returns the complete tree minimising f, and its value. Ties go to
// the earliest tree.
func (p *Problem) Optimal(f func(*SupplyTree) float64) (*SupplyTree, float64, error) {
	var best *SupplyTree
	bestV := math.Inf(1)
	for _, t := range p.CompleteTrees() {
		if v := f(t); best == nil || v < bestV {
			best, bestV = t, v
		}
	}
	if best == nil {
		return nil, 0, fmt.Errorf("%w for %q", ErrNoCompleteTree, p.Good)
	}
	return best, bestV, nil
}

// OptimalByPrice prices each tree as the sum of its supplies' prices. A
// supply missing from prices costs its own Cost.
func (p *Problem) OptimalByPrice(prices map[string]float64) (*SupplyTree, float64, error) {
	price := func(s Supply) float64 {
		if v, ok := prices[s.Name]; ok {
			return v
		}
		return s.Cost
	}
	return p.Optimal(func(t *SupplyTree) float64 { return t.Cost(price) })
}
