package triang

import (
	"encoding/binary"
	"slices"
)

// Flip is a bistellar move: Minus is replaced by Plus. Both halves cover the
// same region and are kept sorted.
type Flip struct {
	Minus []Simplex
	Plus  []Simplex
}

// NewFlip returns a flip with sorted, deduplicated halves.
func NewFlip(minus, plus []Simplex) Flip {
	m := slices.Clone(minus)
	p := slices.Clone(plus)
	slices.SortFunc(m, Compare)
	slices.SortFunc(p, Compare)
	return Flip{Minus: slices.Compact(m), Plus: slices.Compact(p)}
}

// Inverse swaps the halves.
func (f Flip) Inverse() Flip {
	return Flip{Minus: f.Plus, Plus: f.Minus}
}

// Key returns the identity of the flip for hashing. f and f.Inverse() have
// different keys.
func (f Flip) Key() string {
	buf := make([]byte, 0, 2+(len(f.Minus)+len(f.Plus))*simplexWords*8)
	buf = binary.AppendUvarint(buf, uint64(len(f.Minus)))
	for _, s := range f.Minus {
		buf = appendSimplex(buf, s)
	}
	for _, s := range f.Plus {
		buf = appendSimplex(buf, s)
	}
	return string(buf)
}

func appendSimplex(buf []byte, s Simplex) []byte {
	for _, w := range s {
		buf = binary.LittleEndian.AppendUint64(buf, w)
	}
	return buf
}

// MinusSupport returns the union of the minus simplices.
func (f Flip) MinusSupport() Simplex {
	var u Simplex
	for _, s := range f.Minus {
		u = u.Union(s)
	}
	return u
}

// PlusSupport returns the union of the plus simplices.
func (f Flip) PlusSupport() Simplex {
	var u Simplex
	for _, s := range f.Plus {
		u = u.Union(s)
	}
	return u
}

// RemovesVertex reports whether some vertex of Minus is absent from Plus.
func (f Flip) RemovesVertex() bool {
	return !f.MinusSupport().SubsetOf(f.PlusSupport())
}

// ChangesCard reports whether the flip changes the number of simplices.
func (f Flip) ChangesCard() bool {
	return len(f.Minus) != len(f.Plus)
}

// IntersectsMinus reports whether f and g share a minus simplex.
func (f Flip) IntersectsMinus(g Flip) bool {
	i, j := 0, 0
	for i < len(f.Minus) && j < len(g.Minus) {
		switch c := Compare(f.Minus[i], g.Minus[j]); {
		case c == 0:
			return true
		case c < 0:
			i++
		default:
			j++
		}
	}
	return false
}

// String renders f as "{{..}}->{{..}}".
func (f Flip) String() string {
	return formatSimplices(f.Minus) + "->" + formatSimplices(f.Plus)
}
