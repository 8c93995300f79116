package predicate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/triangs/pkg/pointconfig"
	"github.com/matzehuels/triangs/pkg/triang"
)

func nodes(t *testing.T) (*Context, *triang.Node, *triang.Node) {
	t.Helper()
	pc, err := pointconfig.FromInts([][]int64{{0, 0, 1}, {2, 0, 1}, {2, 2, 1}, {0, 2, 1}, {1, 1, 1}})
	require.NoError(t, err)
	coarse, err := triang.NodeFromPointLists(5, 3, [][]int{{0, 1, 2}, {0, 2, 3}})
	require.NoError(t, err)
	fan, err := triang.NodeFromPointLists(5, 3, [][]int{{0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {0, 3, 4}})
	require.NoError(t, err)
	return &Context{Points: pc}, coarse, fan
}

func TestBuiltins(t *testing.T) {
	ctx, coarse, fan := nodes(t)
	tests := []struct {
		pred      Predicate
		invariant bool
		coarse    bool
		fan       bool
	}{
		{All(), true, true, true},
		{Fine(), true, false, true},
		{MaxSimplices(2), true, true, false},
		{MinSimplices(3), true, false, true},
		{ContainsSimplex(triang.NewSimplex(0, 1, 2)), false, true, false},
		{Unimodular(true), true, false, false},
		{Not(Fine()), true, true, false},
		{And(Fine(), MinSimplices(4)), true, false, true},
		{And(Fine(), ContainsSimplex(triang.NewSimplex(0, 1, 4))), false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.pred.Name, func(t *testing.T) {
			require.Equal(t, tt.invariant, tt.pred.Invariant)
			require.Equal(t, tt.coarse, tt.pred.Eval(ctx, coarse))
			require.Equal(t, tt.fan, tt.pred.Eval(ctx, fan))
		})
	}
}

func TestIsAll(t *testing.T) {
	require.True(t, IsAll(All()))
	require.True(t, IsAll(And()))
	require.False(t, IsAll(Fine()))
}

func TestRegular(t *testing.T) {
	ctx, coarse, fan := nodes(t)
	oracle := RegularityOracleFunc(func(_ *Context, n *triang.Node) (bool, error) {
		return n.Len() == 2, nil
	})
	require.True(t, Regular(oracle).Invariant)
	require.True(t, Regular(oracle).Eval(ctx, coarse))
	require.False(t, Regular(oracle).Eval(ctx, fan))
	require.True(t, NonRegular(oracle).Eval(ctx, fan))
	require.Equal(t, "non-regular", NonRegular(oracle).Name)

	failing := RegularityOracleFunc(func(*Context, *triang.Node) (bool, error) {
		return false, errors.New("solver unavailable")
	})
	require.Panics(t, func() { Regular(failing).Eval(ctx, fan) })
}
