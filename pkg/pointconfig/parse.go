package pointconfig

import (
	"fmt"
	"io"
	"math/big"

	"github.com/alecthomas/participle/v2"

	"github.com/matzehuels/triangs/pkg/symmetry"
)

// The input format is a sequence of bracketed matrices in the style of
// TOPCOM: the first matrix holds the points (one row per point), the optional
// second matrix lists symmetry generators as permutations of 0..n-1.
//
//	[[0,0,1],[1,0,1],[0,1,1],[1,1,1]]
//	[[1,0,3,2],[0,2,1,3]]
//
// Entries may be negative and rational ("-3/2"). Go-style comments are skipped.

type inputFile struct {
	Matrices []*matrixExpr `@@*`
}

type matrixExpr struct {
	Rows []*rowExpr `"[" ( @@ ( "," @@ )* )? "]"`
}

type rowExpr struct {
	Entries []*numberExpr `"[" ( @@ ( "," @@ )* )? "]"`
}

type numberExpr struct {
	Neg bool   `@"-"?`
	Num string `@Int`
	Den string `( "/" @Int )?`
}

var parseInputFile = participle.MustBuild[inputFile]()

var parseMatrixExpr = participle.MustBuild[matrixExpr]()

// Input is a parsed problem file.
type Input struct {
	Points     *PointConfiguration
	Generators []symmetry.Symmetry
}

// ParseOpts controls Parse.
type ParseOpts struct {
	// Homogenize appends a coordinate 1 to each point (affine input).
	Homogenize bool
}

// Parse reads a problem file from r.
func Parse(name string, r io.Reader, opts ParseOpts) (*Input, error) {
	f, err := parseInputFile.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if len(f.Matrices) == 0 {
		return nil, fmt.Errorf("parse %s: %w", name, ErrEmpty)
	}
	if len(f.Matrices) > 2 {
		return nil, fmt.Errorf("parse %s: expected at most 2 matrices, found %d", name, len(f.Matrices))
	}

	rows, err := f.Matrices[0].rationals()
	if err != nil {
		return nil, fmt.Errorf("parse %s: points: %w", name, err)
	}
	if opts.Homogenize {
		rows = Homogenize(rows)
	}
	pc, err := New(rows)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	in := &Input{Points: pc}
	if len(f.Matrices) == 2 {
		in.Generators, err = f.Matrices[1].permutations(pc.No())
		if err != nil {
			return nil, fmt.Errorf("parse %s: symmetries: %w", name, err)
		}
	}
	return in, nil
}

// ParseMatrix parses a single "[[..],[..]]" matrix of rationals.
func ParseMatrix(s string) ([][]*big.Rat, error) {
	m, err := parseMatrixExpr.ParseString("", s)
	if err != nil {
		return nil, err
	}
	return m.rationals()
}

// ParseGenerators parses a "[[..],[..]]" list of permutations of 0..n-1.
func ParseGenerators(s string, n int) ([]symmetry.Symmetry, error) {
	m, err := parseMatrixExpr.ParseString("", s)
	if err != nil {
		return nil, err
	}
	return m.permutations(n)
}

func (m *matrixExpr) rationals() ([][]*big.Rat, error) {
	out := make([][]*big.Rat, len(m.Rows))
	for i, row := range m.Rows {
		out[i] = make([]*big.Rat, len(row.Entries))
		for j, e := range row.Entries {
			v, err := e.rat()
			if err != nil {
				return nil, fmt.Errorf("row %d entry %d: %w", i, j, err)
			}
			out[i][j] = v
		}
	}
	return out, nil
}

func (m *matrixExpr) permutations(n int) ([]symmetry.Symmetry, error) {
	out := make([]symmetry.Symmetry, len(m.Rows))
	for i, row := range m.Rows {
		s := make(symmetry.Symmetry, len(row.Entries))
		for j, e := range row.Entries {
			v, err := e.rat()
			if err != nil {
				return nil, err
			}
			if !v.IsInt() || !v.Num().IsInt64() {
				return nil, fmt.Errorf("generator %d: entry %s is not an index", i, v.RatString())
			}
			s[j] = int(v.Num().Int64())
		}
		if err := s.Validate(n); err != nil {
			return nil, fmt.Errorf("generator %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

func (e *numberExpr) rat() (*big.Rat, error) {
	s := e.Num
	if e.Den != "" {
		s += "/" + e.Den
	}
	v, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	if e.Neg {
		v.Neg(v)
	}
	return v, nil
}
