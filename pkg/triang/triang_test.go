package triang

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/triangs/pkg/chirotope"
	"github.com/matzehuels/triangs/pkg/pointconfig"
	"github.com/matzehuels/triangs/pkg/symmetry"
)

type fixture struct {
	pc    *pointconfig.PointConfiguration
	chiro *chirotope.Memo
}

func newFixture(t *testing.T, affine [][]int64) fixture {
	t.Helper()
	rows := make([][]int64, len(affine))
	for i, r := range affine {
		rows[i] = append(slices.Clone(r), 1)
	}
	pc, err := pointconfig.FromInts(rows)
	require.NoError(t, err)
	chiro, err := chirotope.Compute(pc)
	require.NoError(t, err)
	return fixture{pc: pc, chiro: chiro}
}

func (fx fixture) seed(t *testing.T) *Node {
	t.Helper()
	n, err := Seed(fx.chiro, fx.pc.IndependentBasis())
	require.NoError(t, err)
	return n
}

var (
	squarePts       = [][]int64{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	squareCenterPts = [][]int64{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}}
	pentagonPts     = [][]int64{{0, 0}, {2, 0}, {3, 2}, {1, 3}, {-1, 2}}
	hexagonPts      = [][]int64{{2, 0}, {4, 0}, {6, 2}, {4, 4}, {2, 4}, {0, 2}}
)

// enumerate runs a plain BFS over the flip graph without symmetry and
// returns every triangulation reached.
func enumerate(t *testing.T, fx fixture, policy Policy) map[string]*Node {
	t.Helper()
	seed := fx.seed(t)
	seen := map[string]*Node{seed.Key(): seed}
	type item struct {
		node  *Node
		table *FlipTable
	}
	queue := []item{{seed, AllFlips(fx.chiro, seed, policy)}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, f := range cur.table.Unmarked() {
			next, table, err := Transition(fx.chiro, cur.node, cur.table, f, nil, policy)
			require.NoError(t, err)
			if _, ok := seen[next.Key()]; ok {
				continue
			}
			seen[next.Key()] = next
			queue = append(queue, item{next, table})
		}
	}
	return seen
}

func TestSimplexBasics(t *testing.T) {
	s := NewSimplex(3, 1, 200)
	require.Equal(t, 3, s.Card())
	require.True(t, s.Has(200))
	require.False(t, s.Has(2))
	require.Equal(t, []int{1, 3, 200}, s.Points())
	require.Equal(t, "{1,3,200}", s.String())
	require.Equal(t, NewSimplex(1, 3), s.Without(200))
	require.True(t, NewSimplex(1, 3).SubsetOf(s))
	require.False(t, s.SubsetOf(NewSimplex(1, 3)))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b []int
		want int
	}{
		{[]int{0, 1, 2}, []int{0, 1, 2}, 0},
		{[]int{0, 1, 2}, []int{0, 1, 3}, -1},
		{[]int{0, 2, 3}, []int{0, 1, 4}, 1},
		{[]int{0, 1}, []int{0, 1, 2}, -1},
		{[]int{0, 1, 5}, []int{0, 1}, 1},
		{[]int{1, 70}, []int{1, 65}, 1},
		{[]int{100}, []int{3, 200}, 1},
	}
	for _, tt := range tests {
		got := Compare(NewSimplex(tt.a...), NewSimplex(tt.b...))
		require.Equal(t, tt.want, got, "%v vs %v", tt.a, tt.b)
		require.Equal(t, -tt.want, Compare(NewSimplex(tt.b...), NewSimplex(tt.a...)))
	}
}

func TestSeedSquare(t *testing.T) {
	fx := newFixture(t, squarePts)
	n := fx.seed(t)
	require.Equal(t, "{{0,1,2},{0,2,3}}", n.String())
	require.Equal(t, NewSimplex(0, 1, 2, 3), n.Support())
}

func TestSeedSkipsInteriorPoints(t *testing.T) {
	fx := newFixture(t, squareCenterPts)
	n := fx.seed(t)
	require.False(t, n.Support().Has(4))
	require.Equal(t, 2, n.Len())
}

func TestRefineInsertsCenter(t *testing.T) {
	fx := newFixture(t, squareCenterPts)
	n, err := Refine(fx.chiro, fx.seed(t))
	require.NoError(t, err)
	require.Equal(t, "{{0,1,4},{0,3,4},{1,2,4},{2,3,4}}", n.String())
}

func TestCircuitSquare(t *testing.T) {
	fx := newFixture(t, squarePts)
	c, ok := ComputeCircuit(fx.chiro, NewSimplex(0, 1, 2, 3))
	require.True(t, ok)
	// 0 and 2 lie on one side of the diagonal 1-3.
	sides := []Simplex{c.Pos, c.Neg}
	require.Contains(t, sides, NewSimplex(0, 2))
	require.Contains(t, sides, NewSimplex(1, 3))
}

func TestCircuitCollinear(t *testing.T) {
	fx := newFixture(t, squareCenterPts)
	c, ok := ComputeCircuit(fx.chiro, NewSimplex(0, 1, 2, 4))
	require.True(t, ok)
	require.Equal(t, NewSimplex(0, 2, 4), c.Support())
	require.False(t, c.Support().Has(1))
}

func TestFlipInvolution(t *testing.T) {
	for _, pts := range [][][]int64{squarePts, squareCenterPts, pentagonPts, hexagonPts} {
		fx := newFixture(t, pts)
		for _, n := range enumerate(t, fx, Policy{}) {
			for _, f := range AllFlips(fx.chiro, n, Policy{}).Unmarked() {
				m, err := n.Apply(f)
				require.NoError(t, err)
				back, err := m.Apply(f.Inverse())
				require.NoError(t, err)
				require.True(t, back.Equal(n), "%s via %s", n, f)
				require.NotEqual(t, f.Key(), f.Inverse().Key())
			}
		}
	}
}

func TestApplyRejectsForeignFlip(t *testing.T) {
	fx := newFixture(t, squarePts)
	n := fx.seed(t)
	f := NewFlip([]Simplex{NewSimplex(0, 1, 3)}, []Simplex{NewSimplex(0, 1, 2)})
	_, err := n.Apply(f)
	require.ErrorIs(t, err, ErrNotFlippable)
}

func TestEnumerateCounts(t *testing.T) {
	tests := []struct {
		name   string
		pts    [][]int64
		policy Policy
		want   int
	}{
		{"square", squarePts, Policy{}, 2},
		{"square with center", squareCenterPts, Policy{}, 3},
		{"pentagon", pentagonPts, Policy{}, 5},
		{"hexagon", hexagonPts, Policy{}, 14},
		{"segment with interior points", [][]int64{{0}, {1}, {2}, {3}}, Policy{}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.pts)
			require.Len(t, enumerate(t, fx, tt.policy), tt.want)
		})
	}
}

func TestTransitionMatchesFullScan(t *testing.T) {
	for _, pts := range [][][]int64{squareCenterPts, hexagonPts, {{0}, {1}, {2}, {3}}} {
		fx := newFixture(t, pts)
		for _, n := range enumerate(t, fx, Policy{}) {
			table := AllFlips(fx.chiro, n, Policy{})
			for _, f := range table.Unmarked() {
				next, got, err := Transition(fx.chiro, n, table, f, nil, Policy{})
				require.NoError(t, err)
				want := AllFlips(fx.chiro, next, Policy{})
				require.ElementsMatch(t, flipKeys(want), flipKeys(got), "%s via %s", n, f)
			}
		}
	}
}

func flipKeys(t *FlipTable) []string {
	var out []string
	t.Each(func(f Flip, _ bool) { out = append(out, f.Key()) })
	return out
}

func TestPolicy(t *testing.T) {
	fx := newFixture(t, squareCenterPts)
	fine, err := Refine(fx.chiro, fx.seed(t))
	require.NoError(t, err)

	all := AllFlips(fx.chiro, fine, Policy{})
	require.Equal(t, 2, all.Len())
	for _, f := range all.Unmarked() {
		require.True(t, f.RemovesVertex())
	}
	require.Zero(t, AllFlips(fx.chiro, fine, Policy{ForbidVertexRemoval: true}).Len())

	seed := fx.seed(t)
	for _, f := range AllFlips(fx.chiro, seed, Policy{ForbidCardChange: true}).Unmarked() {
		require.False(t, f.ChangesCard())
	}
}

func TestFlipTable(t *testing.T) {
	a := NewFlip([]Simplex{NewSimplex(0, 1, 2)}, []Simplex{NewSimplex(0, 1, 3)})
	b := a.Inverse()

	table := NewFlipTable()
	require.True(t, table.Add(a))
	require.False(t, table.Add(a))
	require.False(t, table.IsMarked(a))

	table.Mark(b)
	require.True(t, table.Has(b))
	require.True(t, table.IsMarked(b))
	require.Equal(t, []Flip{a}, table.Unmarked())

	clone := table.Clone()
	clone.Mark(a)
	require.False(t, table.IsMarked(a))
	require.True(t, clone.IsMarked(a))

	table.Remove(a)
	require.Equal(t, 1, table.Len())
}

func TestSymmetryAction(t *testing.T) {
	fx := newFixture(t, squarePts)
	n := fx.seed(t)
	rot := symmetry.Symmetry{1, 2, 3, 0}

	img := MapNode(SymmetryMapper(rot), n)
	require.Equal(t, "{{0,1,3},{1,2,3}}", img.String())
	require.False(t, Fixes(SymmetryMapper(rot), n))

	half := symmetry.Symmetry{2, 3, 0, 1}
	require.True(t, Fixes(SymmetryMapper(half), n))

	idx := NewSimplexIndex(rot)
	require.Equal(t, img.Key(), MapKey(idx, n))
	require.Equal(t, 2, idx.Len())
	require.Equal(t, img.Key(), MapKey(idx, n))

	f := AllFlips(fx.chiro, n, Policy{}).Unmarked()[0]
	g := MapFlip(SymmetryMapper(half), f)
	require.Equal(t, f.Key(), g.Key())
}

func TestTransitionAddsStabilizerImages(t *testing.T) {
	fx := newFixture(t, squareCenterPts)
	seed := fx.seed(t)
	table := AllFlips(fx.chiro, seed, Policy{})

	var insert Flip
	for _, f := range table.Unmarked() {
		if f.PlusSupport().Has(4) {
			insert = f
		}
	}
	require.NotEmpty(t, insert.Plus)

	// The fan around the center is fixed by the quarter turn.
	rot := SymmetryMapper(symmetry.Symmetry{1, 2, 3, 0, 4})
	next, out, err := Transition(fx.chiro, seed, table, insert, []Mapper{rot}, Policy{})
	require.NoError(t, err)
	require.True(t, Fixes(rot, next))
	out.Each(func(f Flip, _ bool) {
		require.True(t, out.Has(MapFlip(rot, f)), "missing image of %s", f)
	})
}

func TestNodeFromPointLists(t *testing.T) {
	n, err := NodeFromPointLists(4, 3, [][]int{{0, 2, 3}, {2, 1, 0}})
	require.NoError(t, err)
	require.Equal(t, "{{0,1,2},{0,2,3}}", n.String())
	require.Equal(t, [][]int{{0, 1, 2}, {0, 2, 3}}, n.PointLists())

	_, err = NodeFromPointLists(4, 3, [][]int{{0, 1}})
	require.Error(t, err)
	_, err = NodeFromPointLists(4, 3, [][]int{{0, 1, 9}})
	require.Error(t, err)
	_, err = NodeFromPointLists(4, 3, [][]int{{0, 1, 1}})
	require.Error(t, err)
}
