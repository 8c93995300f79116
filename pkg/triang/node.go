package triang

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNotFlippable is returned when a flip's minus part is not contained in
// the node it is applied to.
var ErrNotFlippable = errors.New("triang: flip does not apply")

// Node is a triangulation: a set of full-dimensional simplices on the points
// 0..no-1. Identity is the simplex set alone; ID is a display label.
//
// A Node is never modified after construction. Apply returns a new Node.
type Node struct {
	ID int

	no, rank  int
	simplices []Simplex
	key       string
}

// NewNode builds a node from simplices. The input is sorted and deduplicated.
func NewNode(no, rank int, simplices []Simplex) *Node {
	s := slices.Clone(simplices)
	slices.SortFunc(s, Compare)
	s = slices.Compact(s)
	return newSortedNode(no, rank, s)
}

func newSortedNode(no, rank int, sorted []Simplex) *Node {
	return &Node{no: no, rank: rank, simplices: sorted, key: encodeKey(no, sorted)}
}

// keyWords is the number of bitset words needed for no points.
func keyWords(no int) int { return (no + 63) / 64 }

// encodeKey writes the sorted simplices as little-endian bitset words.
func encodeKey(no int, sorted []Simplex) string {
	w := keyWords(no)
	buf := make([]byte, 0, len(sorted)*w*8)
	for _, s := range sorted {
		for i := 0; i < w; i++ {
			buf = binary.LittleEndian.AppendUint64(buf, s[i])
		}
	}
	return string(buf)
}

// No returns the number of points of the configuration.
func (n *Node) No() int { return n.no }

// Rank returns the rank of the configuration.
func (n *Node) Rank() int { return n.rank }

// Len returns the number of simplices.
func (n *Node) Len() int { return len(n.simplices) }

// Simplices returns the simplices in sorted order. The slice must not be modified.
func (n *Node) Simplices() []Simplex { return n.simplices }

// Key returns the identity of the node for hashing and equality.
func (n *Node) Key() string { return n.key }

// Equal reports whether n and m have the same simplices.
func (n *Node) Equal(m *Node) bool { return n.key == m.key }

// Contains reports whether s is a simplex of n.
func (n *Node) Contains(s Simplex) bool {
	_, ok := slices.BinarySearchFunc(n.simplices, s, Compare)
	return ok
}

// Support returns the set of points used by some simplex.
func (n *Node) Support() Simplex {
	var u Simplex
	for _, s := range n.simplices {
		u = u.Union(s)
	}
	return u
}

// Cofaces returns the simplices of n containing face.
func (n *Node) Cofaces(face Simplex) []Simplex {
	var out []Simplex
	for _, s := range n.simplices {
		if face.SubsetOf(s) {
			out = append(out, s)
		}
	}
	return out
}

// Apply returns (n \ f.Minus) ∪ f.Plus.
func (n *Node) Apply(f Flip) (*Node, error) {
	for _, s := range f.Minus {
		if !n.Contains(s) {
			return nil, fmt.Errorf("%w: %s not in triangulation", ErrNotFlippable, s)
		}
	}
	out := make([]Simplex, 0, len(n.simplices)-len(f.Minus)+len(f.Plus))
	for _, s := range n.simplices {
		if _, gone := slices.BinarySearchFunc(f.Minus, s, Compare); !gone {
			out = append(out, s)
		}
	}
	out = append(out, f.Plus...)
	slices.SortFunc(out, Compare)
	out = slices.Compact(out)
	return newSortedNode(n.no, n.rank, out), nil
}

// String renders n as "{{0,1,2},{0,2,3}}".
func (n *Node) String() string {
	return formatSimplices(n.simplices)
}

// PointLists returns the vertex lists of every simplex, in order.
func (n *Node) PointLists() [][]int {
	out := make([][]int, len(n.simplices))
	for i, s := range n.simplices {
		out[i] = s.Points()
	}
	return out
}

// NodeFromPointLists is the inverse of PointLists. Every list must have
// exactly rank entries in 0..no-1.
func NodeFromPointLists(no, rank int, lists [][]int) (*Node, error) {
	simplices := make([]Simplex, len(lists))
	for i, l := range lists {
		if len(l) != rank {
			return nil, fmt.Errorf("triang: simplex %v has %d vertices, want %d", l, len(l), rank)
		}
		for _, p := range l {
			if p < 0 || p >= no {
				return nil, fmt.Errorf("triang: vertex %d out of range [0,%d)", p, no)
			}
		}
		simplices[i] = NewSimplex(l...)
		if simplices[i].Card() != rank {
			return nil, fmt.Errorf("triang: simplex %v repeats a vertex", l)
		}
	}
	return NewNode(no, rank, simplices), nil
}

func formatSimplices(simplices []Simplex) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, s := range simplices {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s.String())
	}
	b.WriteByte('}')
	return b.String()
}
