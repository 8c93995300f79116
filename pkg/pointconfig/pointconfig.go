// Package pointconfig holds point configurations in homogeneous coordinates
// and the exact integer linear algebra the enumeration needs from them.
//
// Input coordinates may be rational. They are scaled by one common positive
// factor (the least common multiple of all denominators) so that every stored
// coordinate is an integer. A single factor keeps simplex volumes covariant
// under symmetries of the configuration, which per-row scaling would not.
package pointconfig

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Sentinel errors for point configurations.
var (
	// ErrEmpty is returned for a configuration without points.
	ErrEmpty = errors.New("pointconfig: no points")

	// ErrRagged is returned when rows have different lengths.
	ErrRagged = errors.New("pointconfig: rows have different lengths")

	// ErrNotFullRank is returned when the homogeneous coordinates do not span
	// their ambient space, so chirotope signs are undefined.
	ErrNotFullRank = errors.New("pointconfig: points are not full-rank in homogeneous coordinates")

	// ErrTooManyPoints is returned above MaxPoints.
	ErrTooManyPoints = errors.New("pointconfig: too many points")
)

// MaxPoints is the largest configuration supported by the simplex bitsets.
const MaxPoints = 256

// PointConfiguration is an immutable set of points in homogeneous integer
// coordinates. It is safe for concurrent use.
type PointConfiguration struct {
	points [][]*big.Int
	rank   int
}

// New builds a configuration from rational rows.
func New(rows [][]*big.Rat) (*PointConfiguration, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	if len(rows) > MaxPoints {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPoints, len(rows), MaxPoints)
	}
	dim := len(rows[0])
	if dim == 0 {
		return nil, ErrEmpty
	}

	lcm := big.NewInt(1)
	gcd := new(big.Int)
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrRagged, i, len(row), dim)
		}
		for _, v := range row {
			d := v.Denom()
			gcd.GCD(nil, nil, lcm, d)
			lcm.Mul(lcm, new(big.Int).Quo(d, gcd))
		}
	}

	points := make([][]*big.Int, len(rows))
	scaled := new(big.Rat)
	lcmRat := new(big.Rat).SetInt(lcm)
	for i, row := range rows {
		points[i] = make([]*big.Int, dim)
		for j, v := range row {
			scaled.Mul(v, lcmRat)
			points[i][j] = new(big.Int).Set(scaled.Num())
		}
	}

	pc := &PointConfiguration{points: points}
	all := make([]int, len(points))
	for i := range all {
		all[i] = i
	}
	pc.rank = rank(cloneRows(points, all))
	if pc.rank != dim {
		return nil, fmt.Errorf("%w: rank %d, %d coordinates", ErrNotFullRank, pc.rank, dim)
	}
	return pc, nil
}

// FromInts builds a configuration from integer rows.
func FromInts(rows [][]int64) (*PointConfiguration, error) {
	rat := make([][]*big.Rat, len(rows))
	for i, row := range rows {
		rat[i] = make([]*big.Rat, len(row))
		for j, v := range row {
			rat[i][j] = new(big.Rat).SetInt64(v)
		}
	}
	return New(rat)
}

// Homogenize appends a coordinate 1 to every affine row.
func Homogenize(rows [][]*big.Rat) [][]*big.Rat {
	out := make([][]*big.Rat, len(rows))
	for i, row := range rows {
		out[i] = append(append([]*big.Rat(nil), row...), big.NewRat(1, 1))
	}
	return out
}

// No returns the number of points.
func (pc *PointConfiguration) No() int { return len(pc.points) }

// Rank returns the rank of the configuration, which equals its coordinate count.
func (pc *PointConfiguration) Rank() int { return pc.rank }

// Point returns a copy of the homogeneous coordinates of point i.
func (pc *PointConfiguration) Point(i int) []*big.Int {
	out := make([]*big.Int, len(pc.points[i]))
	for j, v := range pc.points[i] {
		out[j] = new(big.Int).Set(v)
	}
	return out
}

// Determinant returns the determinant of the rows idx in the given order.
// len(idx) must equal Rank().
func (pc *PointConfiguration) Determinant(idx []int) *big.Int {
	if len(idx) != pc.rank {
		panic(fmt.Sprintf("pointconfig: determinant of %d rows in rank %d", len(idx), pc.rank))
	}
	return determinant(cloneRows(pc.points, idx))
}

// Volume returns the absolute determinant of the rows idx, the normalized
// volume of the simplex they span.
func (pc *PointConfiguration) Volume(idx []int) *big.Int {
	d := pc.Determinant(idx)
	return d.Abs(d)
}

// RankOf returns the rank of the rows idx.
func (pc *PointConfiguration) RankOf(idx []int) int {
	if len(idx) == 0 {
		return 0
	}
	return rank(cloneRows(pc.points, idx))
}

// IndependentBasis greedily selects Rank() linearly independent points in
// index order.
func (pc *PointConfiguration) IndependentBasis() []int {
	basis := make([]int, 0, pc.rank)
	for i := range pc.points {
		if len(basis) == pc.rank {
			break
		}
		if pc.RankOf(append(append([]int(nil), basis...), i)) > len(basis) {
			basis = append(basis, i)
		}
	}
	return basis
}

// String renders the configuration with FormatMatrix.
func (pc *PointConfiguration) String() string {
	return FormatMatrix(pc.points)
}

// FormatMatrix renders an integer matrix as "[[a,b,c],[d,e,f],...]".
func FormatMatrix(rows [][]*big.Int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('[')
		for j, v := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(v.String())
		}
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String()
}
