package triang

import (
	"math/bits"
	"slices"

	"github.com/matzehuels/triangs/pkg/symmetry"
)

// Mapper maps simplices under one group element.
type Mapper interface {
	Simplex(s Simplex) Simplex
}

// MapSimplex returns the image of s under g.
func MapSimplex(g symmetry.Symmetry, s Simplex) Simplex {
	var out Simplex
	for i, w := range s {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			p := g[i*64+b]
			out[p>>6] |= 1 << (uint(p) & 63)
			w &= w - 1
		}
	}
	return out
}

// SymmetryMapper applies a permutation vertex by vertex.
type SymmetryMapper symmetry.Symmetry

// Simplex implements Mapper.
func (m SymmetryMapper) Simplex(s Simplex) Simplex {
	return MapSimplex(symmetry.Symmetry(m), s)
}

// SimplexIndex is the simpidx form of a group element: a lazily filled table
// of simplex images. Lookups after the first are a single map access.
//
// A SimplexIndex is not safe for concurrent use. Each worker builds its own.
type SimplexIndex struct {
	g     symmetry.Symmetry
	table map[Simplex]Simplex
}

// NewSimplexIndex returns an empty table for g.
func NewSimplexIndex(g symmetry.Symmetry) *SimplexIndex {
	return &SimplexIndex{g: g, table: make(map[Simplex]Simplex)}
}

// Simplex implements Mapper.
func (x *SimplexIndex) Simplex(s Simplex) Simplex {
	if img, ok := x.table[s]; ok {
		return img
	}
	img := MapSimplex(x.g, s)
	x.table[s] = img
	return img
}

// Len returns the number of memoized simplices.
func (x *SimplexIndex) Len() int { return len(x.table) }

// MapNode returns the image of n. The result has no ID.
func MapNode(m Mapper, n *Node) *Node {
	out := make([]Simplex, len(n.simplices))
	for i, s := range n.simplices {
		out[i] = m.Simplex(s)
	}
	slices.SortFunc(out, Compare)
	return newSortedNode(n.no, n.rank, out)
}

// MapKey returns MapNode(m, n).Key() without keeping the node.
func MapKey(m Mapper, n *Node) string {
	return MapNode(m, n).key
}

// Fixes reports whether m maps n onto itself.
func Fixes(m Mapper, n *Node) bool {
	for _, s := range n.simplices {
		if !n.Contains(m.Simplex(s)) {
			return false
		}
	}
	return true
}

// MapFlip returns the image of f.
func MapFlip(m Mapper, f Flip) Flip {
	minus := make([]Simplex, len(f.Minus))
	for i, s := range f.Minus {
		minus[i] = m.Simplex(s)
	}
	plus := make([]Simplex, len(f.Plus))
	for i, s := range f.Plus {
		plus[i] = m.Simplex(s)
	}
	slices.SortFunc(minus, Compare)
	slices.SortFunc(plus, Compare)
	return Flip{Minus: minus, Plus: plus}
}
