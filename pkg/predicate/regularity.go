package predicate

import (
	"fmt"

	"github.com/matzehuels/triangs/pkg/triang"
)

// RegularityOracle decides whether a triangulation is regular, typically by
// solving a linear feasibility problem over height functions. No solver is
// shipped with this module.
type RegularityOracle interface {
	IsRegular(ctx *Context, n *triang.Node) (bool, error)
}

// RegularityOracleFunc adapts a function to RegularityOracle.
type RegularityOracleFunc func(ctx *Context, n *triang.Node) (bool, error)

// IsRegular implements RegularityOracle.
func (f RegularityOracleFunc) IsRegular(ctx *Context, n *triang.Node) (bool, error) {
	return f(ctx, n)
}

// Regular accepts regular triangulations as decided by oracle. Regularity is
// preserved by every symmetry of the point configuration, so the predicate
// is invariant.
//
// An oracle error is not recoverable: Eval panics with it.
func Regular(oracle RegularityOracle) Predicate {
	return Predicate{
		Name:      "regular",
		Invariant: true,
		Eval: func(ctx *Context, n *triang.Node) bool {
			ok, err := oracle.IsRegular(ctx, n)
			if err != nil {
				panic(fmt.Sprintf("predicate: regularity oracle failed on %s: %v", n, err))
			}
			return ok
		},
	}
}

// NonRegular accepts triangulations that oracle rejects.
func NonRegular(oracle RegularityOracle) Predicate {
	p := Not(Regular(oracle))
	p.Name = "non-regular"
	return p
}
