package chirotope

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/triangs/pkg/pointconfig"
)

func squareMemo(t *testing.T) *Memo {
	t.Helper()
	pc, err := pointconfig.FromInts([][]int64{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}})
	require.NoError(t, err)
	m, err := Compute(pc)
	require.NoError(t, err)
	return m
}

func TestComputeSquare(t *testing.T) {
	m := squareMemo(t)
	require.Equal(t, 4, m.Bases())
	// Counter-clockwise labelling: every sorted triple is positively oriented.
	require.Equal(t, "++++", m.String())
}

func TestSignParity(t *testing.T) {
	m := squareMemo(t)
	tests := []struct {
		basis []int
		want  int
	}{
		{[]int{0, 1, 2}, 1},
		{[]int{1, 0, 2}, -1},
		{[]int{2, 0, 1}, 1},
		{[]int{2, 1, 0}, -1},
		{[]int{0, 0, 2}, 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, m.Sign(tt.basis), "%v", tt.basis)
	}
	require.Panics(t, func() { m.Sign([]int{0, 1}) })
}

func TestCollinearZero(t *testing.T) {
	pc, err := pointconfig.FromInts([][]int64{{0, 0, 1}, {1, 0, 1}, {2, 0, 1}, {0, 1, 1}})
	require.NoError(t, err)
	m, err := Compute(pc)
	require.NoError(t, err)
	// Lex order: 012 013 023 123
	require.Equal(t, "0+++", m.String())
	require.Equal(t, 0, m.SortedSign([]int{0, 1, 2}))
}

func TestParseRoundTrip(t *testing.T) {
	pc, err := pointconfig.FromInts([][]int64{
		{0, 0, 1}, {2, 0, 1}, {3, 2, 1}, {1, 3, 1}, {-1, 2, 1}, {1, 1, 1},
	})
	require.NoError(t, err)
	m, err := Compute(pc)
	require.NoError(t, err)

	back, err := Parse(6, 3, m.String())
	require.NoError(t, err)
	require.True(t, Equal(m, back))
	require.Equal(t, m.String(), back.String())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(4, 3, "+++")
	require.ErrorIs(t, err, ErrFormat)

	_, err = Parse(4, 3, "++x+")
	require.ErrorIs(t, err, ErrFormat)

	_, err = Parse(2, 3, "")
	require.Error(t, err)
}

func TestConcurrentReads(t *testing.T) {
	m := squareMemo(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if m.Sign([]int{1, 0, 3}) != -1 {
					t.Error("unexpected sign")
					return
				}
			}
		}()
	}
	wg.Wait()
}
