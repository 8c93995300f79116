package symmetry

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Symmetry is a permutation of point indices: point i is mapped to s[i].
type Symmetry []int

// Seq returns a slice containing the sequence [0, 1, 2, ..., n-1].
// For n <= 0, Seq returns an empty slice.
func Seq(n int) []int {
	if n <= 0 {
		return []int{}
	}
	result := make([]int, n)
	for i := range result {
		result[i] = i
	}
	return result
}

// Identity returns the identity permutation on n points.
func Identity(n int) Symmetry {
	return Symmetry(Seq(n))
}

// Validate reports an error unless s is a permutation of 0..n-1.
func (s Symmetry) Validate(n int) error {
	if len(s) != n {
		return fmt.Errorf("symmetry %v has %d entries, want %d", []int(s), len(s), n)
	}
	seen := make([]bool, n)
	for _, v := range s {
		if v < 0 || v >= n {
			return fmt.Errorf("symmetry %v: image %d out of range [0,%d)", []int(s), v, n)
		}
		if seen[v] {
			return fmt.Errorf("symmetry %v: image %d repeated", []int(s), v)
		}
		seen[v] = true
	}
	return nil
}

// Map returns the image of point i.
func (s Symmetry) Map(i int) int { return s[i] }

// Compose returns s∘t, the permutation that applies t first and then s.
func (s Symmetry) Compose(t Symmetry) Symmetry {
	out := make(Symmetry, len(s))
	for i, ti := range t {
		out[i] = s[ti]
	}
	return out
}

// Inverse returns the inverse permutation.
func (s Symmetry) Inverse() Symmetry {
	out := make(Symmetry, len(s))
	for i, si := range s {
		out[si] = i
	}
	return out
}

// IsIdentity reports whether s fixes every point.
func (s Symmetry) IsIdentity() bool {
	for i, si := range s {
		if i != si {
			return false
		}
	}
	return true
}

// Equal reports whether s and t are the same permutation.
func (s Symmetry) Equal(t Symmetry) bool {
	return slices.Equal(s, t)
}

// Key returns the normal form of s used for hashing and equality.
// Two permutations of the same size have equal keys iff they are equal.
func (s Symmetry) Key() string {
	buf := make([]byte, 0, 2*len(s))
	for _, v := range s {
		buf = binary.AppendUvarint(buf, uint64(v))
	}
	return string(buf)
}

// String renders s as "[a,b,c,...]".
func (s Symmetry) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteByte(']')
	return b.String()
}

// FormatGenerators renders a generator list as "[[..],[..]]".
func FormatGenerators(gens []Symmetry) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, g := range gens {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(g.String())
	}
	b.WriteByte(']')
	return b.String()
}
