package triang

import (
	"slices"

	"github.com/matzehuels/triangs/pkg/chirotope"
)

// Circuit is a minimal dependent point set split by the signs of its unique
// linear dependency.
type Circuit struct {
	Pos Simplex
	Neg Simplex
}

// Support returns Pos ∪ Neg.
func (c Circuit) Support() Simplex { return c.Pos.Union(c.Neg) }

// ComputeCircuit returns the circuit contained in the rank+1 points dep.
// It reports false when dep does not span, in which case the dependency is
// not unique and no circuit is derived.
//
// By Cramer's rule the coefficient of the i-th point (in increasing order) is
// (-1)^i times the orientation of the remaining points.
func ComputeCircuit(chiro chirotope.Chirotope, dep Simplex) (Circuit, bool) {
	pts := dep.Points()
	if len(pts) != chiro.Rank()+1 {
		return Circuit{}, false
	}
	var c Circuit
	basis := make([]int, 0, len(pts)-1)
	for i, p := range pts {
		basis = basis[:0]
		basis = append(basis, pts[:i]...)
		basis = append(basis, pts[i+1:]...)
		sign := chiro.Sign(basis)
		if i%2 == 1 {
			sign = -sign
		}
		switch {
		case sign > 0:
			c.Pos = c.Pos.With(p)
		case sign < 0:
			c.Neg = c.Neg.With(p)
		}
	}
	if c.Pos.IsEmpty() && c.Neg.IsEmpty() {
		return Circuit{}, false
	}
	return c, true
}

// FindFlip is the flip oracle: it derives the circuit of dep and returns the
// flip of node supported on it, if any.
//
// A circuit Z = (Z+, Z-) has two triangulations, T+ = {Z\{i} : i ∈ Z+} and
// T- = {Z\{i} : i ∈ Z-}. The flip exists when every cell of one side is a
// face of node with one common link L; it then replaces side*L by other*L.
func FindFlip(chiro chirotope.Chirotope, node *Node, dep Simplex) (Flip, bool) {
	c, ok := ComputeCircuit(chiro, dep)
	if !ok || c.Pos.IsEmpty() || c.Neg.IsEmpty() {
		return Flip{}, false
	}
	if f, ok := flipFromCircuit(node, c.Pos, c.Neg); ok {
		return f, true
	}
	return flipFromCircuit(node, c.Neg, c.Pos)
}

// FlipFromCircuit returns the flip of node replacing the side of c that node
// contains, trying Pos first.
func FlipFromCircuit(node *Node, c Circuit) (Flip, bool) {
	if c.Pos.IsEmpty() || c.Neg.IsEmpty() {
		return Flip{}, false
	}
	if f, ok := flipFromCircuit(node, c.Pos, c.Neg); ok {
		return f, true
	}
	return flipFromCircuit(node, c.Neg, c.Pos)
}

func flipFromCircuit(node *Node, from, to Simplex) (Flip, bool) {
	z := from.Union(to)
	var link []Simplex
	var minus []Simplex
	for _, i := range from.Points() {
		face := z.Without(i)
		cof := node.Cofaces(face)
		if len(cof) == 0 {
			return Flip{}, false
		}
		l := make([]Simplex, len(cof))
		for k, s := range cof {
			l[k] = s.Minus(face)
		}
		slices.SortFunc(l, Compare)
		if link == nil {
			link = l
		} else if !slices.Equal(link, l) {
			return Flip{}, false
		}
		minus = append(minus, cof...)
	}
	plus := make([]Simplex, 0, to.Card()*len(link))
	for _, j := range to.Points() {
		face := z.Without(j)
		for _, l := range link {
			plus = append(plus, face.Union(l))
		}
	}
	return NewFlip(minus, plus), true
}
