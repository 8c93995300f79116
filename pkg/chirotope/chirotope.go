// Package chirotope provides the oriented-matroid sign oracle of a point
// configuration.
//
// A chirotope assigns to every ordered basis of rank points the sign of its
// determinant. [Memo] evaluates every sorted rank-subset once and answers
// later queries from a dense table, so reads are O(rank) and safe for
// concurrent use.
//
// The textual form is the TOPCOM sign string: one character per sorted
// rank-subset in lexicographic order, '+', '-' or '0'.
package chirotope

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/triangs/pkg/pointconfig"
)

// Chirotope is the sign oracle consumed by the flip machinery.
type Chirotope interface {
	// Sign returns the orientation of an ordered basis: -1, 0 or +1.
	Sign(basis []int) int
	No() int
	Rank() int
}

var (
	// ErrTooLarge is returned when the sign table would not fit in memory.
	ErrTooLarge = errors.New("chirotope: too many bases")

	// ErrFormat is returned for malformed sign strings.
	ErrFormat = errors.New("chirotope: malformed sign string")
)

// MaxBases bounds the number of rank-subsets a Memo will tabulate.
const MaxBases = 1 << 28

// Memo is a fully tabulated chirotope.
type Memo struct {
	no, rank int
	binom    [][]uint64 // binom[n][k] for n <= no, k <= rank
	signs    []int8     // indexed by colex rank of the sorted basis
}

// Compute tabulates the chirotope of pc.
func Compute(pc *pointconfig.PointConfiguration) (*Memo, error) {
	m, err := newMemo(pc.No(), pc.Rank())
	if err != nil {
		return nil, err
	}
	forEachSubset(m.no, m.rank, func(basis []int) {
		m.signs[m.index(basis)] = int8(pc.Determinant(basis).Sign())
	})
	return m, nil
}

// Parse builds a chirotope from its sign string.
func Parse(no, rank int, s string) (*Memo, error) {
	m, err := newMemo(no, rank)
	if err != nil {
		return nil, err
	}
	s = strings.Join(strings.Fields(s), "")
	if len(s) != len(m.signs) {
		return nil, fmt.Errorf("%w: %d signs for %d bases", ErrFormat, len(s), len(m.signs))
	}
	pos := 0
	var bad error
	forEachSubset(no, rank, func(basis []int) {
		if bad != nil {
			return
		}
		var v int8
		switch s[pos] {
		case '+':
			v = 1
		case '-':
			v = -1
		case '0':
		default:
			bad = fmt.Errorf("%w: unexpected %q at %d", ErrFormat, s[pos], pos)
		}
		m.signs[m.index(basis)] = v
		pos++
	})
	if bad != nil {
		return nil, bad
	}
	return m, nil
}

func newMemo(no, rank int) (*Memo, error) {
	if no <= 0 || rank <= 0 || rank > no {
		return nil, fmt.Errorf("chirotope: invalid dimensions no=%d rank=%d", no, rank)
	}
	binom := make([][]uint64, no+1)
	for n := range binom {
		binom[n] = make([]uint64, rank+2)
		binom[n][0] = 1
		for k := 1; k <= rank+1 && n > 0; k++ {
			binom[n][k] = binom[n-1][k-1] + binom[n-1][k]
			if binom[n][k] > math.MaxUint32 {
				binom[n][k] = math.MaxUint32
			}
		}
	}
	total := binom[no][rank]
	if total > MaxBases {
		return nil, fmt.Errorf("%w: C(%d,%d) exceeds %d", ErrTooLarge, no, rank, MaxBases)
	}
	return &Memo{no: no, rank: rank, binom: binom, signs: make([]int8, total)}, nil
}

// No returns the number of points.
func (m *Memo) No() int { return m.no }

// Rank returns the rank.
func (m *Memo) Rank() int { return m.rank }

// Bases returns the number of tabulated rank-subsets.
func (m *Memo) Bases() int { return len(m.signs) }

// Sign returns the orientation of basis. Repeated indices give 0.
// It panics if len(basis) differs from Rank().
func (m *Memo) Sign(basis []int) int {
	if len(basis) != m.rank {
		panic(fmt.Sprintf("chirotope: basis of size %d in rank %d", len(basis), m.rank))
	}
	var buf [16]int
	sorted := append(buf[:0], basis...)

	// Insertion sort, counting transpositions for the permutation parity.
	parity := 1
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] >= sorted[j]; j-- {
			if sorted[j-1] == sorted[j] {
				return 0
			}
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
			parity = -parity
		}
	}
	return parity * int(m.signs[m.index(sorted)])
}

// SortedSign returns the orientation of an already sorted basis.
func (m *Memo) SortedSign(basis []int) int {
	return int(m.signs[m.index(basis)])
}

// index returns the colex rank of a sorted basis.
func (m *Memo) index(sorted []int) uint64 {
	var idx uint64
	for i, v := range sorted {
		idx += m.binom[v][i+1]
	}
	return idx
}

// String returns the TOPCOM sign string in lexicographic basis order.
func (m *Memo) String() string {
	var b strings.Builder
	b.Grow(len(m.signs))
	forEachSubset(m.no, m.rank, func(basis []int) {
		switch m.signs[m.index(basis)] {
		case 1:
			b.WriteByte('+')
		case -1:
			b.WriteByte('-')
		default:
			b.WriteByte('0')
		}
	})
	return b.String()
}

// Equal reports whether two chirotopes agree on every basis.
func Equal(a, b *Memo) bool {
	if a.no != b.no || a.rank != b.rank || len(a.signs) != len(b.signs) {
		return false
	}
	for i := range a.signs {
		if a.signs[i] != b.signs[i] {
			return false
		}
	}
	return true
}

// forEachSubset calls fn with every k-subset of 0..n-1 in lexicographic
// order. The slice passed to fn is reused between calls.
func forEachSubset(n, k int, fn func([]int)) {
	c := make([]int, k)
	for i := range c {
		c[i] = i
	}
	for {
		fn(c)
		i := k - 1
		for i >= 0 && c[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		c[i]++
		for j := i + 1; j < k; j++ {
			c[j] = c[j-1] + 1
		}
	}
}
