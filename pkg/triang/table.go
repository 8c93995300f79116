package triang

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// FlipTable is the per-node table of known flips with a marked flag.
// A marked flip has already been expanded (from either end), so the BFS skips
// it. Iteration follows insertion order, which keeps runs reproducible.
//
// A FlipTable is not safe for concurrent use.
type FlipTable struct {
	m *linkedhashmap.Map // Flip.Key() -> *flipEntry
}

type flipEntry struct {
	flip   Flip
	marked bool
}

// NewFlipTable returns an empty table.
func NewFlipTable() *FlipTable {
	return &FlipTable{m: linkedhashmap.New()}
}

// Len returns the number of flips.
func (t *FlipTable) Len() int { return t.m.Size() }

// Add inserts f as unmarked unless it is already present.
// It reports whether f was inserted.
func (t *FlipTable) Add(f Flip) bool {
	k := f.Key()
	if _, ok := t.m.Get(k); ok {
		return false
	}
	t.m.Put(k, &flipEntry{flip: f})
	return true
}

// Mark sets the marked flag of f, inserting f if it is missing.
func (t *FlipTable) Mark(f Flip) {
	k := f.Key()
	if v, ok := t.m.Get(k); ok {
		v.(*flipEntry).marked = true
		return
	}
	t.m.Put(k, &flipEntry{flip: f, marked: true})
}

// Has reports whether f is in the table.
func (t *FlipTable) Has(f Flip) bool {
	_, ok := t.m.Get(f.Key())
	return ok
}

// IsMarked reports whether f is present and marked.
func (t *FlipTable) IsMarked(f Flip) bool {
	v, ok := t.m.Get(f.Key())
	return ok && v.(*flipEntry).marked
}

// Remove deletes f.
func (t *FlipTable) Remove(f Flip) {
	t.m.Remove(f.Key())
}

// Unmarked returns the unmarked flips in insertion order.
func (t *FlipTable) Unmarked() []Flip {
	var out []Flip
	t.m.Each(func(_ interface{}, v interface{}) {
		if e := v.(*flipEntry); !e.marked {
			out = append(out, e.flip)
		}
	})
	return out
}

// Each calls fn for every flip in insertion order.
func (t *FlipTable) Each(fn func(f Flip, marked bool)) {
	t.m.Each(func(_ interface{}, v interface{}) {
		e := v.(*flipEntry)
		fn(e.flip, e.marked)
	})
}

// Clone returns an independent copy.
func (t *FlipTable) Clone() *FlipTable {
	c := NewFlipTable()
	t.m.Each(func(k interface{}, v interface{}) {
		e := *v.(*flipEntry)
		c.m.Put(k, &e)
	})
	return c
}
