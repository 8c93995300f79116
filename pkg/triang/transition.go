package triang

import (
	"github.com/matzehuels/triangs/pkg/chirotope"
)

// Policy filters the flips a search is allowed to use.
type Policy struct {
	// ForbidVertexRemoval skips flips that drop a vertex from the support.
	ForbidVertexRemoval bool
	// ForbidCardChange skips flips that change the number of simplices.
	ForbidCardChange bool
}

// Allows reports whether f passes the policy.
func (p Policy) Allows(f Flip) bool {
	if p.ForbidVertexRemoval && f.RemovesVertex() {
		return false
	}
	if p.ForbidCardChange && f.ChangesCard() {
		return false
	}
	return true
}

// adjacent reports whether two full-dimensional simplices share a facet.
func adjacent(a, b Simplex, rank int) bool {
	return a != b && a.Intersect(b).Card() == rank-1
}

// missing returns the points of 0..no-1 not used by node.
func missing(node *Node) []int {
	used := node.Support()
	var out []int
	for p := 0; p < node.No(); p++ {
		if !used.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// flipSearch tests candidate dependent sets against one node, each at most
// once up to the given stabilizer.
type flipSearch struct {
	chiro  chirotope.Chirotope
	node   *Node
	table  *FlipTable
	stab   []Mapper
	policy Policy
	seen   map[Simplex]struct{}
}

func (fs *flipSearch) try(dep Simplex) {
	if _, ok := fs.seen[dep]; ok {
		return
	}
	fs.seen[dep] = struct{}{}
	for _, m := range fs.stab {
		fs.seen[m.Simplex(dep)] = struct{}{}
	}
	f, ok := FindFlip(fs.chiro, fs.node, dep)
	if !ok || !fs.policy.Allows(f) {
		return
	}
	fs.table.Add(f)
	for _, m := range fs.stab {
		fs.table.Add(MapFlip(m, f))
	}
}

// around searches every dependent set formed by s with a missing point or an
// adjacent simplex of the node.
func (fs *flipSearch) around(s Simplex, absent []int) {
	for _, p := range absent {
		fs.try(s.With(p))
	}
	for _, t := range fs.node.Simplices() {
		if adjacent(s, t, fs.node.Rank()) {
			fs.try(s.Union(t))
		}
	}
}

// AllFlips scans node completely and returns a table of all its flips that
// pass policy, unmarked.
func AllFlips(chiro chirotope.Chirotope, node *Node, policy Policy) *FlipTable {
	fs := &flipSearch{
		chiro:  chiro,
		node:   node,
		table:  NewFlipTable(),
		policy: policy,
		seen:   make(map[Simplex]struct{}),
	}
	absent := missing(node)
	for _, s := range node.Simplices() {
		fs.around(s, absent)
	}
	return fs.table
}

// Transition applies f to node and derives the flip table of the result
// from table.
//
// Flips of table whose minus part meets f.Minus are dropped and the rest are
// kept unmarked. New flips are searched around every simplex of f.Plus. stab
// must fix the resulting node: each discovered flip is added together with
// its stabilizer images, and dependent sets equivalent under stab are tested
// once.
func Transition(chiro chirotope.Chirotope, node *Node, table *FlipTable, f Flip, stab []Mapper, policy Policy) (*Node, *FlipTable, error) {
	next, err := node.Apply(f)
	if err != nil {
		return nil, nil, err
	}

	out := NewFlipTable()
	table.Each(func(g Flip, _ bool) {
		if !g.IntersectsMinus(f) {
			out.Add(g)
		}
	})

	fs := &flipSearch{
		chiro:  chiro,
		node:   next,
		table:  out,
		stab:   stab,
		policy: policy,
		seen:   make(map[Simplex]struct{}),
	}
	absent := missing(next)
	for _, s := range f.Plus {
		fs.around(s, absent)
	}
	return next, out, nil
}
