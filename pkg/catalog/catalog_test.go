package catalog

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/triangs/pkg/chirotope"
	"github.com/matzehuels/triangs/pkg/flipgraph"
	"github.com/matzehuels/triangs/pkg/pointconfig"
	"github.com/matzehuels/triangs/pkg/symmetry"
	"github.com/matzehuels/triangs/pkg/triang"
)

func openMemory(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGet(t *testing.T) {
	c := openMemory(t)
	rec := ClassRecord{RunID: "a", ID: 3, Simplices: [][]int{{0, 1, 2}}, OrbitSize: 4, ReportedSize: 4, Stabilizer: 1}
	require.NoError(t, c.Put(rec))

	got, err := c.Get("a", 3)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = c.Get("a", 4)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Get("b", 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutRejectsSlashInRunID(t *testing.T) {
	c := openMemory(t)
	assert.Error(t, c.Put(ClassRecord{RunID: "a/b"}))
}

func TestListOrdering(t *testing.T) {
	c := openMemory(t)
	for _, rec := range []ClassRecord{
		{RunID: "b", ID: 2},
		{RunID: "a", ID: 300},
		{RunID: "a", ID: 2},
		{RunID: "a", ID: 1},
	} {
		require.NoError(t, c.Put(rec))
	}

	all, err := c.List("")
	require.NoError(t, err)
	var got []string
	for _, r := range all {
		got = append(got, r.RunID)
	}
	assert.Equal(t, []string{"a", "a", "b", "a"}, got)
	assert.True(t, slices.IsSortedFunc(all, func(x, y ClassRecord) int { return x.ID - y.ID }))

	onlyA, err := c.List("a")
	require.NoError(t, err)
	require.Len(t, onlyA, 3)
	assert.Equal(t, []int{1, 2, 300}, []int{onlyA[0].ID, onlyA[1].ID, onlyA[2].ID})

	n, err := c.Count("")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = c.Count("b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c.Put(ClassRecord{RunID: "r", ID: 7, OrbitSize: 2}))
	require.NoError(t, c.Close())

	c, err = Open(dir)
	require.NoError(t, err)
	defer c.Close()
	rec, err := c.Get("r", 7)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.OrbitSize)
}

func TestSinkStoresEnumeratedClasses(t *testing.T) {
	pc, err := pointconfig.FromInts([][]int64{{2, 0, 1}, {4, 0, 1}, {6, 2, 1}, {4, 4, 1}, {2, 4, 1}, {0, 2, 1}})
	require.NoError(t, err)
	chiro, err := chirotope.Compute(pc)
	require.NoError(t, err)
	g, err := symmetry.NewGroup(6, []symmetry.Symmetry{{1, 2, 3, 4, 5, 0}, {0, 5, 4, 3, 2, 1}})
	require.NoError(t, err)
	seed, err := triang.Seed(chiro, pc.IndependentBasis())
	require.NoError(t, err)

	cat := openMemory(t)
	var sinkErr error
	ctl, err := flipgraph.New(flipgraph.Problem{Points: pc, Chiro: chiro, Group: g}, flipgraph.Options{
		OnClass: cat.Sink("hex", func(err error) { sinkErr = err }),
	})
	require.NoError(t, err)
	defer ctl.Close()
	require.NoError(t, ctl.Seed(seed))
	require.NoError(t, ctl.Run(context.Background()))
	require.NoError(t, sinkErr)

	recs, err := cat.List("hex")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	total := 0
	for _, r := range recs {
		total += r.ReportedSize
		_, err := triang.NodeFromPointLists(6, 3, r.Simplices)
		assert.NoError(t, err)
	}
	assert.Equal(t, 14, total)
	assert.Equal(t, 0, recs[0].ID)
}
