package triang

import (
	"math/bits"
	"strconv"
	"strings"
)

// MaxPoints is the number of point indices a Simplex can hold.
const MaxPoints = 256

const simplexWords = MaxPoints / 64

// Simplex is a set of point indices stored as a fixed-size bitset.
// It is a comparable value type and can be used as a map key.
type Simplex [simplexWords]uint64

// NewSimplex returns the simplex spanned by the given point indices.
func NewSimplex(points ...int) Simplex {
	var s Simplex
	for _, p := range points {
		s[p>>6] |= 1 << (uint(p) & 63)
	}
	return s
}

// Has reports whether point p is a vertex of s.
func (s Simplex) Has(p int) bool {
	return s[p>>6]&(1<<(uint(p)&63)) != 0
}

// With returns s with point p added.
func (s Simplex) With(p int) Simplex {
	s[p>>6] |= 1 << (uint(p) & 63)
	return s
}

// Without returns s with point p removed.
func (s Simplex) Without(p int) Simplex {
	s[p>>6] &^= 1 << (uint(p) & 63)
	return s
}

// Card returns the number of vertices.
func (s Simplex) Card() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsEmpty reports whether s has no vertices.
func (s Simplex) IsEmpty() bool {
	return s == Simplex{}
}

// Union returns s ∪ t.
func (s Simplex) Union(t Simplex) Simplex {
	for i := range s {
		s[i] |= t[i]
	}
	return s
}

// Intersect returns s ∩ t.
func (s Simplex) Intersect(t Simplex) Simplex {
	for i := range s {
		s[i] &= t[i]
	}
	return s
}

// Minus returns s \ t.
func (s Simplex) Minus(t Simplex) Simplex {
	for i := range s {
		s[i] &^= t[i]
	}
	return s
}

// SubsetOf reports whether every vertex of s is a vertex of t.
func (s Simplex) SubsetOf(t Simplex) bool {
	for i := range s {
		if s[i]&^t[i] != 0 {
			return false
		}
	}
	return true
}

// Points returns the vertices in increasing order.
func (s Simplex) Points() []int {
	out := make([]int, 0, s.Card())
	return s.AppendPoints(out)
}

// AppendPoints appends the vertices in increasing order to dst.
func (s Simplex) AppendPoints(dst []int) []int {
	for i, w := range s {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			dst = append(dst, i*64+b)
			w &= w - 1
		}
	}
	return dst
}

// Compare orders simplices lexicographically by their sorted vertex lists.
func Compare(a, b Simplex) int {
	for i := range a {
		d := a[i] ^ b[i]
		if d == 0 {
			continue
		}
		x := i*64 + bits.TrailingZeros64(d)
		if a.Has(x) {
			// Below x both lists agree. The shorter one is a prefix of the other.
			if b.hasAbove(x) {
				return -1
			}
			return 1
		}
		if a.hasAbove(x) {
			return 1
		}
		return -1
	}
	return 0
}

// hasAbove reports whether s has a vertex greater than p.
func (s Simplex) hasAbove(p int) bool {
	w := p >> 6
	if rest := s[w] >> (uint(p)&63) >> 1; rest != 0 {
		return true
	}
	for i := w + 1; i < len(s); i++ {
		if s[i] != 0 {
			return true
		}
	}
	return false
}

// String renders s as "{0,1,2}".
func (s Simplex) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range s.Points() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(p))
	}
	b.WriteByte('}')
	return b.String()
}
