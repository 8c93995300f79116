package flipgraph

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/triangs/pkg/chirotope"
	"github.com/matzehuels/triangs/pkg/errors"
	"github.com/matzehuels/triangs/pkg/observability"
	"github.com/matzehuels/triangs/pkg/pointconfig"
	"github.com/matzehuels/triangs/pkg/predicate"
	"github.com/matzehuels/triangs/pkg/symmetry"
	"github.com/matzehuels/triangs/pkg/triang"
)

type scenario struct {
	name    string
	affine  [][]int64
	gens    []symmetry.Symmetry
	classes uint64
	total   uint64
}

var (
	square = scenario{
		name:    "square",
		affine:  [][]int64{{0, 0}, {2, 0}, {2, 2}, {0, 2}},
		gens:    []symmetry.Symmetry{{1, 2, 3, 0}, {1, 0, 3, 2}},
		classes: 1,
		total:   2,
	}
	squareCenter = scenario{
		name:    "square+center",
		affine:  [][]int64{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}},
		gens:    []symmetry.Symmetry{{1, 2, 3, 0, 4}, {1, 0, 3, 2, 4}},
		classes: 2,
		total:   3,
	}
	pentagon = scenario{
		name:    "pentagon",
		affine:  [][]int64{{0, 0}, {2, 0}, {3, 2}, {1, 3}, {-1, 2}},
		gens:    []symmetry.Symmetry{{1, 2, 3, 4, 0}, {0, 4, 3, 2, 1}},
		classes: 1,
		total:   5,
	}
	hexagon = scenario{
		name:    "hexagon",
		affine:  [][]int64{{2, 0}, {4, 0}, {6, 2}, {4, 4}, {2, 4}, {0, 2}},
		gens:    []symmetry.Symmetry{{1, 2, 3, 4, 5, 0}, {0, 5, 4, 3, 2, 1}},
		classes: 3,
		total:   14,
	}
	scenarios = []scenario{square, squareCenter, pentagon, hexagon}
)

func (sc scenario) problem(t *testing.T, trivial bool) Problem {
	t.Helper()
	rows := make([][]int64, len(sc.affine))
	for i, r := range sc.affine {
		rows[i] = append(slices.Clone(r), 1)
	}
	pc, err := pointconfig.FromInts(rows)
	require.NoError(t, err)
	chiro, err := chirotope.Compute(pc)
	require.NoError(t, err)
	gens := sc.gens
	if trivial {
		gens = nil
	}
	g, err := symmetry.NewGroup(pc.No(), gens)
	require.NoError(t, err)
	return Problem{Points: pc, Chiro: chiro, Group: g}
}

func seedOf(t *testing.T, p Problem) *triang.Node {
	t.Helper()
	n, err := triang.Seed(p.Chiro, p.Points.IndependentBasis())
	require.NoError(t, err)
	return n
}

func newController(t *testing.T, p Problem, opts Options) *Controller {
	t.Helper()
	c, err := New(p, opts)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func run(t *testing.T, p Problem, opts Options) *Controller {
	t.Helper()
	c := newController(t, p, opts)
	require.NoError(t, c.Seed(seedOf(t, p)))
	require.NoError(t, c.Run(context.Background()))
	return c
}

// bruteForce enumerates the flip graph without symmetry.
func bruteForce(t *testing.T, p Problem) map[string]*triang.Node {
	t.Helper()
	start := seedOf(t, p)
	seen := map[string]*triang.Node{start.Key(): start}
	queue := []*triang.Node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, f := range triang.AllFlips(p.Chiro, n, triang.Policy{}).Unmarked() {
			m, err := n.Apply(f)
			require.NoError(t, err)
			if _, ok := seen[m.Key()]; !ok {
				seen[m.Key()] = m
				queue = append(queue, m)
			}
		}
	}
	return seen
}

func TestScenarios(t *testing.T) {
	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			c := run(t, sc.problem(t, false), Options{})
			assert.Equal(t, sc.classes, c.SymCount())
			assert.Equal(t, sc.total, c.TotalCount())
			assert.Zero(t, c.Stored())
		})
	}
}

func TestTrivialGroupCountsEveryTriangulation(t *testing.T) {
	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			c := run(t, sc.problem(t, true), Options{})
			assert.Equal(t, sc.total, c.TotalCount())
			assert.Equal(t, c.TotalCount(), c.SymCount())
			assert.Equal(t, c.TotalCount(), c.ReportCount())
		})
	}
}

func TestOrbitSizesMatchBruteForce(t *testing.T) {
	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			p := sc.problem(t, false)
			var classes []ClassInfo
			run(t, p, Options{OnClass: func(ci ClassInfo) { classes = append(classes, ci) }})

			all := bruteForce(t, p)
			covered := make(map[string]bool)
			sum := 0
			for _, ci := range classes {
				orbit := map[string]bool{ci.Representative.Key(): true}
				for _, g := range p.Group.Elements() {
					orbit[triang.MapKey(triang.SymmetryMapper(g), ci.Representative)] = true
				}
				assert.Len(t, orbit, ci.OrbitSize, "orbit of T[%d]", ci.ID)
				assert.Equal(t, p.Group.Order(), ci.OrbitSize*(ci.Stabilizer+1))
				for k := range orbit {
					assert.False(t, covered[k], "classes overlap")
					covered[k] = true
				}
				sum += ci.ReportedSize
			}
			assert.Equal(t, len(all), sum)
			assert.Len(t, covered, len(all))
		})
	}
}

func TestPoolMatchesSerial(t *testing.T) {
	for _, sc := range scenarios {
		for _, early := range []bool{false, true} {
			p := sc.problem(t, false)
			c := run(t, p, Options{Threads: 4, EarlyAbort: early, SimplexIndex: true})
			assert.Equal(t, sc.classes, c.SymCount(), sc.name)
			assert.Equal(t, sc.total, c.TotalCount(), sc.name)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	p := hexagon.problem(t, false)
	seed := seedOf(t, p)

	var elems []int
	for _, threads := range []int{1, 3, 4} {
		c := newController(t, p, Options{Threads: threads})
		require.NoError(t, c.Seed(seed))
		img := triang.MapNode(triang.SymmetryMapper(p.Group.Element(0)), seed)
		out := c.Classify(img)
		if img.Key() == seed.Key() {
			assert.Equal(t, KnownInCurrentLayer, out.Kind)
			continue
		}
		require.Equal(t, EquivalentInCurrentLayer, out.Kind)
		assert.Equal(t, seed.Key(), out.Representative.Key())
		got := triang.MapKey(triang.SymmetryMapper(p.Group.Element(out.Element)), img)
		assert.Equal(t, seed.Key(), got)
		elems = append(elems, out.Element)
	}
	for _, e := range elems {
		assert.Equal(t, elems[0], e)
	}
}

func TestClassifyNewOutcome(t *testing.T) {
	p := squareCenter.problem(t, false)
	c := newController(t, p, Options{})

	fan, err := triang.Refine(p.Chiro, seedOf(t, p))
	require.NoError(t, err)
	out := c.Classify(fan)
	assert.Equal(t, NewClass, out.Kind)
	assert.Equal(t, 1, out.OrbitSize)
	assert.Equal(t, 1, out.ReportedSize)
	assert.Len(t, out.Stabilizer, 7)

	require.NoError(t, c.Seed(fan))
	assert.Equal(t, KnownInCurrentLayer, c.Classify(fan).Kind)
}

func TestProcessFlipsMarksEquivalentNeighbor(t *testing.T) {
	p := square.problem(t, false)
	c := newController(t, p, Options{})
	seed := seedOf(t, p)
	require.NoError(t, c.Seed(seed))

	flips := triang.AllFlips(p.Chiro, seed, triang.Policy{}).Unmarked()
	require.Len(t, flips, 1)
	require.NoError(t, c.ProcessFlips(seed.Key()))

	assert.True(t, c.IsMarked(seed.Key(), flips[0]))
	assert.Equal(t, uint64(1), c.SymCount())
	assert.Equal(t, 1, c.Stored(), "the flipped square is equivalent to the seed")
	assert.Equal(t, uint64(1), c.FlipCount())

	stab, ok := c.Stabilizer(seed.Key())
	require.True(t, ok)
	assert.Len(t, stab, 3)
}

func TestMarkingClosedUnderStabilizer(t *testing.T) {
	p := hexagon.problem(t, false)
	c := newController(t, p, Options{Debug: true})
	require.NoError(t, c.Seed(seedOf(t, p)))
	require.NoError(t, c.Step(context.Background()))

	for _, rec := range c.previous {
		for _, e := range c.stab[rec.node.Key()] {
			m := triang.SymmetryMapper(p.Group.Element(e))
			rec.table.Each(func(f triang.Flip, marked bool) {
				if marked {
					assert.True(t, rec.table.IsMarked(triang.MapFlip(m, f)), "image of %s under %v", f, p.Group.Element(e))
				}
			})
		}
	}
}

func TestLayersStayDisjoint(t *testing.T) {
	for _, sc := range scenarios {
		p := sc.problem(t, false)
		c := newController(t, p, Options{Debug: true})
		require.NoError(t, c.Seed(seedOf(t, p)))
		for c.Stored() > 0 {
			require.NotPanics(t, func() { require.NoError(t, c.Step(context.Background())) })
			for k := range c.previous {
				assert.NotContains(t, c.next, k)
			}
		}
		assert.Equal(t, sc.total, c.TotalCount())
	}
}

func TestFingerprintFilter(t *testing.T) {
	c := run(t, squareCenter.problem(t, false), Options{Fingerprint: true})
	assert.Equal(t, uint64(2), c.SymCount())
	assert.Equal(t, uint64(3), c.TotalCount())
}

func TestNonInvariantPredicates(t *testing.T) {
	p := square.problem(t, false)

	t.Run("search", func(t *testing.T) {
		c := run(t, p, Options{Search: predicate.ContainsSimplex(triang.NewSimplex(0, 1, 2))})
		assert.Equal(t, uint64(1), c.SymCount())
		assert.Equal(t, uint64(1), c.TotalCount())
	})
	t.Run("output", func(t *testing.T) {
		var orbit int
		c := run(t, p, Options{
			Output:  predicate.ContainsSimplex(triang.NewSimplex(0, 1, 2)),
			OnClass: func(ci ClassInfo) { orbit = ci.OrbitSize },
		})
		assert.Equal(t, uint64(1), c.SymCount())
		assert.Equal(t, uint64(1), c.TotalCount())
		assert.Equal(t, 2, orbit)
	})
}

func TestFineSearch(t *testing.T) {
	p := squareCenter.problem(t, false)
	fan, err := triang.Refine(p.Chiro, seedOf(t, p))
	require.NoError(t, err)

	c := newController(t, p, Options{
		Search: predicate.Fine(),
		Policy: triang.Policy{ForbidVertexRemoval: true},
	})
	require.NoError(t, c.Seed(fan))
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, uint64(1), c.SymCount())
	assert.Equal(t, uint64(1), c.TotalCount())
}

func TestSeedOutsideSearchKeepsStabilizer(t *testing.T) {
	p := squareCenter.problem(t, false)
	diagonal := triang.NewNode(p.Points.No(), p.Points.Rank(), []triang.Simplex{
		triang.NewSimplex(0, 1, 2),
		triang.NewSimplex(0, 2, 3),
	})

	stabilizer := func(search predicate.Predicate) []int {
		c := newController(t, p, Options{Search: search})
		require.NoError(t, c.Seed(diagonal))
		stab, ok := c.Stabilizer(diagonal.Key())
		require.True(t, ok)
		return stab
	}

	all := stabilizer(predicate.All())
	assert.Len(t, all, 3)
	assert.Equal(t, all, stabilizer(predicate.Fine()))
}

func TestOutputLines(t *testing.T) {
	var out, progress bytes.Buffer
	run(t, square.problem(t, false), Options{
		OutputTriangs:    true,
		OutputFlips:      true,
		TriangWriter:     &out,
		ProgressWriter:   &progress,
		ProgressInterval: 1,
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "T[0] := {{0,1,2},{0,2,3}};", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "flip[1] := {0,0}; // supported by "), lines[1])
	assert.Contains(t, progress.String(), "1 symmetry classes --- 2 total triangulations --- 0 currently stored")
}

func TestCheckpointRoundTrip(t *testing.T) {
	p := hexagon.problem(t, false)
	c := newController(t, p, Options{RunID: "run-1"})
	require.NoError(t, c.Seed(seedOf(t, p)))
	require.NoError(t, c.Step(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, c.WriteCheckpoint(&buf))
	want := c.Identity()
	cp, err := ReadCheckpoint(bytes.NewReader(buf.Bytes()), &want)
	require.NoError(t, err)
	assert.Equal(t, "run-1", cp.RunID)
	assert.Equal(t, 1, cp.Step)

	resumed := newController(t, p, Options{})
	require.NoError(t, resumed.Restore(cp))
	assert.Equal(t, c.Stored(), resumed.Stored())
	assert.Equal(t, c.SymCount(), resumed.SymCount())

	var again bytes.Buffer
	require.NoError(t, resumed.WriteCheckpoint(&again))
	assert.Equal(t, buf.String(), again.String())

	require.NoError(t, resumed.Run(context.Background()))
	assert.Equal(t, hexagon.classes, resumed.SymCount())
	assert.Equal(t, hexagon.total, resumed.TotalCount())
}

func TestResumeWithRetainedFingerprints(t *testing.T) {
	p := squareCenter.problem(t, false)
	opts := func() Options {
		return Options{Fingerprint: true, Search: predicate.ContainsSimplex(triang.NewSimplex(0, 1, 4))}
	}
	full := run(t, p, opts())

	c := newController(t, p, opts())
	require.NoError(t, c.Seed(seedOf(t, p)))
	require.NoError(t, c.Step(context.Background()))

	resumed := newController(t, p, opts())
	require.NoError(t, resumed.Restore(c.Checkpoint()))
	require.NoError(t, resumed.Run(context.Background()))
	assert.Equal(t, full.SymCount(), resumed.SymCount())
	assert.Equal(t, full.TotalCount(), resumed.TotalCount())
}

func TestCheckpointMismatch(t *testing.T) {
	hex := hexagon.problem(t, false)
	c := newController(t, hex, Options{})
	require.NoError(t, c.Seed(seedOf(t, hex)))
	var buf bytes.Buffer
	require.NoError(t, c.WriteCheckpoint(&buf))

	other := newController(t, hexagon.problem(t, true), Options{})
	want := other.Identity()
	_, err := ReadCheckpoint(bytes.NewReader(buf.Bytes()), &want)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCheckpointMismatch))
	var mm *errors.MismatchError
	require.True(t, stderrors.As(err, &mm))
	assert.Equal(t, "symmetries", mm.Field)
}

func TestCheckpointCorrupt(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing keys", "no 4\nrank 3\n"},
		{"bad number", "no four\n"},
		{"bad json", "no 4\nrank 3\npoints []\nchirotope +\nsymmetries []\nprevious [{\nnew []\ntotalcount 0\nsymcount 0\nreportcount 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCheckpoint(strings.NewReader(tt.input), nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeCheckpointCorrupt))
		})
	}
}

func TestCheckpointIgnoresUnknownKeys(t *testing.T) {
	in := "# comment\nno 4\nrank 3\npoints [[0,0,1]]\nchirotope ++++\nsymmetries []\nprevious []\nnew []\n" +
		"totalcount 2\nsymcount 1\nreportcount 1\nfuture something\n"
	cp, err := ReadCheckpoint(strings.NewReader(in), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), cp.TotalCount)
	assert.Equal(t, 4, cp.No)
}

func TestInterruptSavesCheckpoint(t *testing.T) {
	p := hexagon.problem(t, false)
	dir := t.TempDir()

	c := newController(t, p, Options{CheckpointDir: dir})
	require.NoError(t, c.Seed(seedOf(t, p)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Run(ctx), context.Canceled)

	path := filepath.Join(dir, "checkpoint.0.dat")
	_, err := os.Stat(path)
	require.NoError(t, err)

	resumed := newController(t, p, Options{CheckpointDir: dir, CheckpointInterval: 1})
	require.NoError(t, resumed.Resume(path))
	require.NoError(t, resumed.Run(context.Background()))
	assert.Equal(t, hexagon.classes, resumed.SymCount())
	assert.Equal(t, hexagon.total, resumed.TotalCount())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"checkpoint.0.dat", "checkpoint.1.dat"}, names)
}

func TestResumeMissingFile(t *testing.T) {
	c := newController(t, square.problem(t, false), Options{})
	err := c.Resume(filepath.Join(t.TempDir(), "nope.dat"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))
}

func TestWorkerStates(t *testing.T) {
	c, err := New(hexagon.problem(t, false), Options{Threads: 3})
	require.NoError(t, err)
	states := c.WorkerStates()
	require.Len(t, states, 3)
	for _, s := range states {
		assert.Equal(t, Idle, s)
	}
	c.Close()
	for _, s := range c.WorkerStates() {
		assert.Equal(t, Stopped, s)
	}

	serial := newController(t, hexagon.problem(t, false), Options{})
	assert.Nil(t, serial.WorkerStates())
}

type recordingHooks struct {
	observability.NoopEnumerationHooks
	mu      sync.Mutex
	classes int
	steps   int
}

func (h *recordingHooks) OnClass(context.Context, int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.classes++
}

func (h *recordingHooks) OnStepComplete(context.Context, observability.Progress, time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steps++
}

func TestHooks(t *testing.T) {
	h := &recordingHooks{}
	c := run(t, hexagon.problem(t, false), Options{Hooks: h})
	assert.Equal(t, int(c.SymCount()), h.classes)
	assert.Equal(t, c.Steps(), h.steps)
	assert.Equal(t, c.Steps(), c.Progress().Step)
}

func TestNewValidation(t *testing.T) {
	p := square.problem(t, false)
	_, err := New(Problem{}, Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = New(p, Options{Threads: -1})
	assert.Error(t, err)

	g, err := symmetry.NewGroup(5, nil)
	require.NoError(t, err)
	_, err = New(Problem{Points: p.Points, Chiro: p.Chiro, Group: g}, Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	c := newController(t, p, Options{})
	require.NoError(t, c.Seed(seedOf(t, p)))
	assert.Error(t, c.Seed(seedOf(t, p)), "seeding twice")
}
