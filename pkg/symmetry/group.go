package symmetry

import (
	"errors"
	"fmt"
)

// ErrSizeMismatch is returned when generators act on a different number of points.
var ErrSizeMismatch = errors.New("symmetry: generator size mismatch")

// Group is a finite permutation group materialized from its generators.
//
// The element arena is filled once by NewGroup and is read-only afterwards,
// so a Group is safe for concurrent use.
type Group struct {
	n          int
	generators []Symmetry
	elements   []Symmetry     // every element except the identity
	index      map[string]int // Key() -> position in elements
}

// NewGroup validates gens as permutations of 0..n-1 and builds their closure.
// Identity generators are accepted and ignored. A nil or empty gens yields the
// trivial group.
func NewGroup(n int, gens []Symmetry) (*Group, error) {
	kept := make([]Symmetry, 0, len(gens))
	for _, g := range gens {
		if len(g) != n {
			return nil, fmt.Errorf("%w: %v acts on %d points, want %d", ErrSizeMismatch, []int(g), len(g), n)
		}
		if err := g.Validate(n); err != nil {
			return nil, err
		}
		kept = append(kept, append(Symmetry(nil), g...))
	}

	elements := Closure(kept)
	index := make(map[string]int, len(elements))
	for i, e := range elements {
		index[e.Key()] = i
	}
	return &Group{
		n:          n,
		generators: kept,
		elements:   elements,
		index:      index,
	}, nil
}

// Closure returns every non-identity element of the group generated by gens.
//
// It iterates to a fixed point: each newly found element is composed with
// every generator and the product is inserted into a hash set until no new
// element appears. The group is finite, so the loop terminates. The result
// order is deterministic for a given generator order.
func Closure(gens []Symmetry) []Symmetry {
	seen := make(map[string]struct{})
	var elements []Symmetry
	var queue []Symmetry

	add := func(s Symmetry) {
		if s.IsIdentity() {
			return
		}
		k := s.Key()
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		elements = append(elements, s)
		queue = append(queue, s)
	}

	for _, g := range gens {
		add(g)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, g := range gens {
			add(g.Compose(cur))
		}
	}
	return elements
}

// Points returns the number of points the group acts on.
func (g *Group) Points() int { return g.n }

// Size returns the number of non-identity elements, |G| in the orbit formula.
func (g *Group) Size() int { return len(g.elements) }

// Order returns the true group order, Size()+1.
func (g *Group) Order() int { return len(g.elements) + 1 }

// IsTrivial reports whether the group consists of the identity only.
func (g *Group) IsTrivial() bool { return len(g.elements) == 0 }

// Element returns the non-identity element at index i.
func (g *Group) Element(i int) Symmetry { return g.elements[i] }

// Elements returns the non-identity elements. The slice must not be modified.
func (g *Group) Elements() []Symmetry { return g.elements }

// Generators returns the generators the group was built from.
func (g *Group) Generators() []Symmetry { return g.generators }

// Index returns the arena index of s, or false if s is the identity or not in the group.
func (g *Group) Index(s Symmetry) (int, bool) {
	i, ok := g.index[s.Key()]
	return i, ok
}

// Contains reports whether s is an element of the group (the identity included).
func (g *Group) Contains(s Symmetry) bool {
	if len(s) != g.n {
		return false
	}
	if s.IsIdentity() {
		return true
	}
	_, ok := g.index[s.Key()]
	return ok
}

// Stabilizer returns the indices of all non-identity elements for which fixes
// reports true. It scans every element, so callers cache the result.
func (g *Group) Stabilizer(fixes func(Symmetry) bool) []int {
	var stab []int
	for i, e := range g.elements {
		if fixes(e) {
			stab = append(stab, i)
		}
	}
	return stab
}

// Shards splits the element indices round-robin into k shards.
// Shard sizes differ by at most one.
func (g *Group) Shards(k int) [][]int {
	if k <= 0 {
		k = 1
	}
	if k > len(g.elements) && len(g.elements) > 0 {
		k = len(g.elements)
	}
	shards := make([][]int, k)
	for i := range g.elements {
		shards[i%k] = append(shards[i%k], i)
	}
	return shards
}
