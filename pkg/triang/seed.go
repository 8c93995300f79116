package triang

import (
	"errors"
	"fmt"

	"github.com/matzehuels/triangs/pkg/chirotope"
)

var (
	// ErrDegenerateBasis is returned when the seed basis has orientation 0.
	ErrDegenerateBasis = errors.New("triang: seed basis is not independent")

	// ErrNotRefinable is returned when a missing point cannot be inserted.
	ErrNotRefinable = errors.New("triang: point cannot be inserted by a flip")
)

// Seed returns the placing triangulation that starts from basis and adds the
// remaining points in index order. A point is coned to every boundary facet
// it strictly sees; points that see no facet are left unused.
func Seed(chiro chirotope.Chirotope, basis []int) (*Node, error) {
	no, rank := chiro.No(), chiro.Rank()
	if len(basis) != rank || chiro.Sign(basis) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateBasis, basis)
	}
	first := NewSimplex(basis...)
	simplices := []Simplex{first}

	buf := make([]int, 0, rank)
	for p := 0; p < no; p++ {
		if first.Has(p) {
			continue
		}
		var added []Simplex
		for _, b := range boundary(simplices) {
			buf = b.cell.AppendPoints(buf[:0])
			inside := chiro.Sign(buf)
			for i, v := range buf {
				if v == b.apex {
					buf[i] = p
				}
			}
			if s := chiro.Sign(buf); s != 0 && s == -inside {
				added = append(added, b.cell.Without(b.apex).With(p))
			}
		}
		simplices = append(simplices, added...)
	}
	return NewNode(no, rank, simplices), nil
}

// boundaryFacet is a facet of cell lying on the boundary of the complex,
// identified by the vertex of cell opposite to it.
type boundaryFacet struct {
	cell Simplex
	apex int
}

func boundary(simplices []Simplex) []boundaryFacet {
	count := make(map[Simplex]int)
	for _, s := range simplices {
		for _, q := range s.Points() {
			count[s.Without(q)]++
		}
	}
	var out []boundaryFacet
	for _, s := range simplices {
		for _, q := range s.Points() {
			if count[s.Without(q)] == 1 {
				out = append(out, boundaryFacet{cell: s, apex: q})
			}
		}
	}
	return out
}

// Refine inserts every unused point of node by flips that add one vertex
// and remove none, yielding a fine triangulation.
func Refine(chiro chirotope.Chirotope, node *Node) (*Node, error) {
	for p := 0; p < node.No(); p++ {
		if node.Support().Has(p) {
			continue
		}
		inserted := false
		for _, s := range node.Simplices() {
			f, ok := FindFlip(chiro, node, s.With(p))
			if !ok || f.RemovesVertex() || !f.PlusSupport().Has(p) {
				continue
			}
			next, err := node.Apply(f)
			if err != nil {
				return nil, err
			}
			node, inserted = next, true
			break
		}
		if !inserted {
			return nil, fmt.Errorf("%w: %d", ErrNotRefinable, p)
		}
	}
	return node, nil
}
