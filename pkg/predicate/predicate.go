// Package predicate defines the search and output filters applied to
// triangulations during enumeration.
//
// A [Predicate] carries its group invariance as data. The enumerator uses the
// flag to choose between the closed-form orbit size and explicit orbit
// enumeration, and to discard whole classes when an invariant search
// predicate fails on the representative.
package predicate

import (
	"fmt"
	"strings"

	"github.com/matzehuels/triangs/pkg/chirotope"
	"github.com/matzehuels/triangs/pkg/pointconfig"
	"github.com/matzehuels/triangs/pkg/triang"
)

// Context holds the configuration a predicate is evaluated against.
// Points may be nil when only the chirotope is known.
type Context struct {
	Points *pointconfig.PointConfiguration
	Chiro  chirotope.Chirotope
}

// Predicate is a named filter on triangulations.
type Predicate struct {
	Name string
	// Invariant reports that Eval gives the same answer on every image of a
	// node under the symmetry group.
	Invariant bool
	Eval      func(ctx *Context, n *triang.Node) bool
}

// String returns the predicate name.
func (p Predicate) String() string { return p.Name }

// All accepts every triangulation.
func All() Predicate {
	return Predicate{
		Name:      "all",
		Invariant: true,
		Eval:      func(*Context, *triang.Node) bool { return true },
	}
}

// IsAll reports whether p is the predicate returned by All.
func IsAll(p Predicate) bool { return p.Name == "all" && p.Invariant }

// Fine accepts triangulations that use every point.
func Fine() Predicate {
	return Predicate{
		Name:      "fine",
		Invariant: true,
		Eval: func(_ *Context, n *triang.Node) bool {
			return n.Support().Card() == n.No()
		},
	}
}

// MaxSimplices accepts triangulations with at most k simplices.
func MaxSimplices(k int) Predicate {
	return Predicate{
		Name:      fmt.Sprintf("max-simplices(%d)", k),
		Invariant: true,
		Eval:      func(_ *Context, n *triang.Node) bool { return n.Len() <= k },
	}
}

// MinSimplices accepts triangulations with at least k simplices.
func MinSimplices(k int) Predicate {
	return Predicate{
		Name:      fmt.Sprintf("min-simplices(%d)", k),
		Invariant: true,
		Eval:      func(_ *Context, n *triang.Node) bool { return n.Len() >= k },
	}
}

// ContainsSimplex accepts triangulations that use s. It is not invariant:
// images of a node generally use different simplices.
func ContainsSimplex(s triang.Simplex) Predicate {
	return Predicate{
		Name: "contains" + s.String(),
		Eval: func(_ *Context, n *triang.Node) bool { return n.Contains(s) },
	}
}

// Unimodular accepts triangulations whose simplices all have volume 1. It is
// invariant only for volume-preserving symmetries, which the caller asserts
// with invariant.
func Unimodular(invariant bool) Predicate {
	return Predicate{
		Name:      "unimodular",
		Invariant: invariant,
		Eval: func(ctx *Context, n *triang.Node) bool {
			if ctx == nil || ctx.Points == nil {
				return false
			}
			for _, s := range n.Simplices() {
				if v := ctx.Points.Volume(s.Points()); !v.IsInt64() || v.Int64() != 1 {
					return false
				}
			}
			return true
		},
	}
}

// Not negates p and keeps its invariance.
func Not(p Predicate) Predicate {
	return Predicate{
		Name:      "not " + p.Name,
		Invariant: p.Invariant,
		Eval:      func(ctx *Context, n *triang.Node) bool { return !p.Eval(ctx, n) },
	}
}

// And accepts triangulations accepted by every ps. It is invariant when all
// ps are.
func And(ps ...Predicate) Predicate {
	if len(ps) == 0 {
		return All()
	}
	names := make([]string, len(ps))
	invariant := true
	for i, p := range ps {
		names[i] = p.Name
		invariant = invariant && p.Invariant
	}
	return Predicate{
		Name:      strings.Join(names, " and "),
		Invariant: invariant,
		Eval: func(ctx *Context, n *triang.Node) bool {
			for _, p := range ps {
				if !p.Eval(ctx, n) {
					return false
				}
			}
			return true
		},
	}
}
