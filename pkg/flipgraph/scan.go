package flipgraph

import (
	"sync/atomic"

	"github.com/matzehuels/triangs/pkg/predicate"
	"github.com/matzehuels/triangs/pkg/symmetry"
	"github.com/matzehuels/triangs/pkg/triang"
)

// scanEnv is the read-only view of the controller that scans run against.
// The controller does not modify it while a scan is in progress.
type scanEnv struct {
	group    *symmetry.Group
	previous layer
	next     layer
	known    *fingerprintSet // nil without fingerprinting
	search   predicate.Predicate
	output   predicate.Predicate
	pctx     *predicate.Context
}

// mapperFunc returns the simplex mapper for group element i.
type mapperFunc func(i int) triang.Mapper

// hit is the result of an equivalence scan.
type hit struct {
	found   bool
	element int
	inNext  bool
	key     string // key of the stored representative
}

// better reports whether h should replace cur as the merged result. Among
// several hits the lowest element index wins.
func (h hit) better(cur hit) bool {
	return h.found && (!cur.found || h.element < cur.element)
}

// findEquivalent scans elems for a g with g(node) stored in either layer.
// fp may be nil. stop, if non-nil, ends the scan early once set; the scan
// sets it on a hit.
func (e *scanEnv) findEquivalent(node *triang.Node, fp fingerprint, elems []int, mapper mapperFunc, stop *atomic.Bool) hit {
	for _, i := range elems {
		if stop != nil && stop.Load() {
			break
		}
		if fp != nil && e.known != nil && !e.known.has(fp.mappedKey(e.group.Element(i))) {
			continue
		}
		k := triang.MapKey(mapper(i), node)
		if _, ok := e.previous[k]; ok {
			if stop != nil {
				stop.Store(true)
			}
			return hit{found: true, element: i, key: k}
		}
		if _, ok := e.next[k]; ok {
			if stop != nil {
				stop.Store(true)
			}
			return hit{found: true, element: i, inNext: true, key: k}
		}
	}
	return hit{}
}

// orbitPart is the contribution of one shard to the orbit of a node.
type orbitPart struct {
	stabilizer []int
	searched   map[string]struct{} // images passing the search predicate
	reported   map[string]struct{} // images passing both predicates
}

func newOrbitPart() orbitPart {
	return orbitPart{
		searched: make(map[string]struct{}),
		reported: make(map[string]struct{}),
	}
}

// merge adds o into p.
func (p *orbitPart) merge(o orbitPart) {
	p.stabilizer = append(p.stabilizer, o.stabilizer...)
	for k := range o.searched {
		p.searched[k] = struct{}{}
	}
	for k := range o.reported {
		p.reported[k] = struct{}{}
	}
}

// orbitJob describes an orbit scan. nodeSearch and nodeOutput are the
// predicate values on node itself, reused for invariant predicates.
type orbitJob struct {
	node       *triang.Node
	images     bool
	nodeSearch bool
	nodeOutput bool
}

// buildOrbit maps node by every element of elems. Elements fixing node are
// collected as stabilizer; with job.images set, the distinct images passing
// the predicates are collected too.
func (e *scanEnv) buildOrbit(job orbitJob, elems []int, mapper mapperFunc) orbitPart {
	part := newOrbitPart()
	for _, i := range elems {
		m := mapper(i)
		if !job.images {
			if triang.Fixes(m, job.node) {
				part.stabilizer = append(part.stabilizer, i)
			}
			continue
		}
		img := triang.MapNode(m, job.node)
		if img.Key() == job.node.Key() {
			part.stabilizer = append(part.stabilizer, i)
			continue
		}
		if _, ok := part.searched[img.Key()]; ok {
			continue
		}
		searched := job.nodeSearch
		if !e.search.Invariant {
			searched = e.search.Eval(e.pctx, img)
		}
		if !searched {
			continue
		}
		part.searched[img.Key()] = struct{}{}
		reported := job.nodeOutput
		if !e.output.Invariant {
			reported = e.output.Eval(e.pctx, img)
		}
		if reported {
			part.reported[img.Key()] = struct{}{}
		}
	}
	return part
}

// executor runs scans over the whole group.
type executor interface {
	findEquivalent(node *triang.Node, fp fingerprint) hit
	buildOrbit(job orbitJob) orbitPart
	close()
}

// serialExecutor scans every element on the calling goroutine.
type serialExecutor struct {
	env    *scanEnv
	elems  []int
	mapper mapperFunc
}

func (s *serialExecutor) findEquivalent(node *triang.Node, fp fingerprint) hit {
	return s.env.findEquivalent(node, fp, s.elems, s.mapper, nil)
}

func (s *serialExecutor) buildOrbit(job orbitJob) orbitPart {
	return s.env.buildOrbit(job, s.elems, s.mapper)
}

func (s *serialExecutor) close() {}

// newMapperFunc returns the element mapper for one goroutine. With simpidx
// the per-element tables are created on first use and owned by the caller.
func newMapperFunc(g *symmetry.Group, simpidx bool) mapperFunc {
	if !simpidx {
		return func(i int) triang.Mapper { return triang.SymmetryMapper(g.Element(i)) }
	}
	tables := make(map[int]*triang.SimplexIndex)
	return func(i int) triang.Mapper {
		t, ok := tables[i]
		if !ok {
			t = triang.NewSimplexIndex(g.Element(i))
			tables[i] = t
		}
		return t
	}
}
