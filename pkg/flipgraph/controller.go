package flipgraph

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/triangs/pkg/chirotope"
	"github.com/matzehuels/triangs/pkg/errors"
	"github.com/matzehuels/triangs/pkg/observability"
	"github.com/matzehuels/triangs/pkg/pointconfig"
	"github.com/matzehuels/triangs/pkg/predicate"
	"github.com/matzehuels/triangs/pkg/symmetry"
	"github.com/matzehuels/triangs/pkg/triang"
)

// Problem is the fixed input of an enumeration.
type Problem struct {
	Points *pointconfig.PointConfiguration
	Chiro  *chirotope.Memo
	Group  *symmetry.Group
}

// OutcomeKind classifies a node against the stored frontier.
type OutcomeKind int

const (
	KnownInCurrentLayer OutcomeKind = iota
	KnownInNextLayer
	EquivalentInCurrentLayer
	EquivalentInNextLayer
	NewClass
)

func (k OutcomeKind) String() string {
	switch k {
	case KnownInCurrentLayer:
		return "known-current"
	case KnownInNextLayer:
		return "known-next"
	case EquivalentInCurrentLayer:
		return "equivalent-current"
	case EquivalentInNextLayer:
		return "equivalent-next"
	case NewClass:
		return "new"
	}
	return "unknown"
}

// Outcome is the result of Classify.
type Outcome struct {
	Kind OutcomeKind

	// Representative is the stored node of the class, for every kind but NewClass.
	Representative *triang.Node

	// Element is the index of the group element g with g(node) equal to the
	// representative, or -1 when the node itself is stored.
	Element int

	// OrbitSize counts the images passing the search predicate; zero means
	// the class is discarded. ReportedSize counts those also passing the
	// output predicate. Stabilizer lists the non-identity elements fixing
	// the node. All three are set for NewClass only.
	OrbitSize    int
	ReportedSize int
	Stabilizer   []int
}

// Controller is the BFS engine. It is not safe for concurrent use; the
// worker pool it owns is internal.
type Controller struct {
	opts  Options
	prob  Problem
	pctx  *predicate.Context
	env   *scanEnv
	exec  executor
	pool  *pool // nil when classifying inline
	local mapperFunc

	previous layer
	next     layer
	stab     stabilizerCache
	fps      *fingerprinter
	known    *fingerprintSet
	shadow   map[string]struct{}

	symcount    uint64
	totalcount  uint64
	reportcount uint64
	flipcount   uint64
	step        int
	nextID      int
	saves       int

	log   *log.Logger
	hooks observability.EnumerationHooks
}

// New returns a controller with an empty frontier. Call Seed or Resume
// before Run.
func New(prob Problem, opts Options) (*Controller, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if prob.Points == nil || prob.Chiro == nil || prob.Group == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "points, chirotope and group are required")
	}
	no := prob.Points.No()
	if prob.Chiro.No() != no || prob.Chiro.Rank() != prob.Points.Rank() {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"chirotope has %d points in rank %d, configuration has %d in rank %d",
			prob.Chiro.No(), prob.Chiro.Rank(), no, prob.Points.Rank())
	}
	if prob.Group.Points() != no {
		return nil, errors.New(errors.ErrCodeInvalidInput, "group acts on %d points, configuration has %d", prob.Group.Points(), no)
	}

	c := &Controller{
		opts:     opts,
		prob:     prob,
		pctx:     &predicate.Context{Points: prob.Points, Chiro: prob.Chiro},
		previous: make(layer),
		next:     make(layer),
		stab:     make(stabilizerCache),
		local:    newMapperFunc(prob.Group, opts.SimplexIndex),
		log:      opts.Logger,
		hooks:    opts.Hooks,
	}
	if opts.Fingerprint {
		c.fps = newFingerprinter(prob.Points)
		c.known = newFingerprintSet(!opts.Search.Invariant)
	}
	if opts.Debug {
		c.shadow = make(map[string]struct{})
	}
	c.env = &scanEnv{
		group:  prob.Group,
		known:  c.known,
		search: opts.Search,
		output: opts.Output,
		pctx:   c.pctx,
	}
	c.syncEnv()

	if opts.Threads > 1 && prob.Group.Size() > 1 {
		c.pool = newPool(c.env, opts.Threads, opts.SimplexIndex, opts.EarlyAbort)
		c.exec = c.pool
		c.log.Debug("started worker pool", "workers", len(c.pool.workers), "elements", prob.Group.Size())
	} else {
		c.exec = &serialExecutor{env: c.env, elems: symmetry.Seq(prob.Group.Size()), mapper: c.local}
	}
	return c, nil
}

// syncEnv points the scan environment at the current layers.
func (c *Controller) syncEnv() {
	c.env.previous = c.previous
	c.env.next = c.next
}

// Close stops the worker pool.
func (c *Controller) Close() {
	if c.exec != nil {
		c.exec.close()
		c.exec = nil
	}
}

// Seed stores node as the first class and prepares its flip table.
func (c *Controller) Seed(node *triang.Node) error {
	if len(c.previous)+len(c.next) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "frontier is not empty")
	}
	if node.No() != c.prob.Points.No() || node.Rank() != c.prob.Points.Rank() {
		return errors.New(errors.ErrCodeInvalidInput, "seed has %d points in rank %d", node.No(), node.Rank())
	}
	fp := c.fingerprint(node)
	out := c.newOutcome(node)
	stab := out.Stabilizer
	if c.opts.Search.Invariant && !c.prob.Group.IsTrivial() && !c.opts.Search.Eval(c.pctx, node) {
		// newOutcome skips the orbit of a node outside the search.
		stab = c.exec.buildOrbit(orbitJob{node: node}).stabilizer
		slices.Sort(stab)
	}
	node.ID = c.nextID
	c.nextID++
	rec := &record{node: node, table: triang.AllFlips(c.prob.Chiro, node, c.opts.Policy), fp: fp}
	c.store(c.previous, rec, stab)
	c.count(rec.node, out)
	return nil
}

// Classify decides whether the class of node is already stored.
// It does not modify the frontier.
func (c *Controller) Classify(node *triang.Node) Outcome {
	return c.classify(node, c.fingerprint(node))
}

func (c *Controller) classify(node *triang.Node, fp fingerprint) Outcome {
	if rec, ok := c.previous[node.Key()]; ok {
		return Outcome{Kind: KnownInCurrentLayer, Representative: rec.node, Element: -1}
	}
	if rec, ok := c.next[node.Key()]; ok {
		return Outcome{Kind: KnownInNextLayer, Representative: rec.node, Element: -1}
	}
	if !c.prob.Group.IsTrivial() {
		if h := c.exec.findEquivalent(node, fp); h.found {
			if h.inNext {
				return Outcome{Kind: EquivalentInNextLayer, Representative: c.next[h.key].node, Element: h.element}
			}
			return Outcome{Kind: EquivalentInCurrentLayer, Representative: c.previous[h.key].node, Element: h.element}
		}
	}
	return c.newOutcome(node)
}

// newOutcome computes stabilizer and orbit sizes of a node whose class is
// not stored.
func (c *Controller) newOutcome(node *triang.Node) Outcome {
	out := Outcome{Kind: NewClass, Element: -1}
	nodeSearch := c.opts.Search.Eval(c.pctx, node)
	if !nodeSearch && c.opts.Search.Invariant {
		return out
	}
	nodeOutput := nodeSearch && c.opts.Output.Eval(c.pctx, node)
	both := c.opts.bothInvariant()

	part := newOrbitPart()
	if !c.prob.Group.IsTrivial() {
		part = c.exec.buildOrbit(orbitJob{
			node:       node,
			images:     !both,
			nodeSearch: nodeSearch,
			nodeOutput: nodeOutput,
		})
	}
	slices.Sort(part.stabilizer)
	out.Stabilizer = part.stabilizer

	if both {
		out.OrbitSize = c.prob.Group.Order() / (len(part.stabilizer) + 1)
		if nodeOutput {
			out.ReportedSize = out.OrbitSize
		}
		return out
	}
	out.OrbitSize = len(part.searched)
	out.ReportedSize = len(part.reported)
	if nodeSearch {
		out.OrbitSize++
		if nodeOutput {
			out.ReportedSize++
		}
	}
	return out
}

// fingerprint returns the GKZ vector of node, or nil when fingerprinting is
// off or has been disabled by an overflow.
func (c *Controller) fingerprint(node *triang.Node) fingerprint {
	if c.fps == nil {
		return nil
	}
	fp, ok := c.fps.compute(node)
	if !ok {
		c.log.Warn("volume overflow, fingerprinting disabled")
		c.fps = nil
		c.known = nil
		c.env.known = nil
		return nil
	}
	return fp
}

// lookup returns the stored record of key.
func (c *Controller) lookup(key string) *record {
	if rec, ok := c.previous[key]; ok {
		return rec
	}
	return c.next[key]
}

// mark marks f in the table of rec together with its images under the
// cached stabilizer of rec.
func (c *Controller) mark(rec *record, f triang.Flip) {
	rec.table.Mark(f)
	for _, i := range c.stab[rec.node.Key()] {
		rec.table.Mark(triang.MapFlip(c.local(i), f))
	}
}

// mappers returns the controller-owned mappers of the given elements.
func (c *Controller) mappers(stab []int) []triang.Mapper {
	out := make([]triang.Mapper, len(stab))
	for i, e := range stab {
		out[i] = c.local(e)
	}
	return out
}

// ProcessFlips expands every unmarked flip of the stored node with the
// given key. The node stays stored.
func (c *Controller) ProcessFlips(key string) error {
	rec, ok := c.previous[key]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "node is not in the current layer")
	}
	c.processFlips(rec)
	return nil
}

func (c *Controller) processFlips(rec *record) {
	for _, f := range rec.table.Unmarked() {
		if rec.table.IsMarked(f) {
			continue
		}
		c.mark(rec, f)
		c.flipcount++

		neighbor, err := rec.node.Apply(f)
		if err != nil {
			panic(c.dump(fmt.Sprintf("flip %s of T[%d] does not apply: %v", f, rec.node.ID, err)))
		}
		fp := c.fingerprint(neighbor)
		out := c.classify(neighbor, fp)

		switch out.Kind {
		case KnownInCurrentLayer, KnownInNextLayer:
			target := c.lookup(out.Representative.Key())
			c.mark(target, f.Inverse())
			c.emitFlip(rec.node.ID, target.node.ID, f)
		case EquivalentInCurrentLayer, EquivalentInNextLayer:
			target := c.lookup(out.Representative.Key())
			c.mark(target, triang.MapFlip(c.local(out.Element), f.Inverse()))
			c.emitFlip(rec.node.ID, target.node.ID, f)
		case NewClass:
			if out.OrbitSize == 0 {
				continue
			}
			c.insertNew(rec, f, fp, out)
		}
	}
}

// insertNew stores the neighbor of parent across f as a new class in the
// next layer.
func (c *Controller) insertNew(parent *record, f triang.Flip, fp fingerprint, out Outcome) {
	node, table, err := triang.Transition(c.prob.Chiro, parent.node, parent.table, f, c.mappers(out.Stabilizer), c.opts.Policy)
	if err != nil {
		panic(c.dump(fmt.Sprintf("transition of T[%d] by %s failed: %v", parent.node.ID, f, err)))
	}
	node.ID = c.nextID
	c.nextID++

	rec := &record{node: node, table: table, fp: fp}
	c.store(c.next, rec, out.Stabilizer)
	c.mark(rec, f.Inverse())
	c.count(node, out)
	c.emitFlip(parent.node.ID, node.ID, f)
}

// store inserts rec into l and registers its caches.
func (c *Controller) store(l layer, rec *record, stab []int) {
	key := rec.node.Key()
	if c.shadow != nil {
		if _, dup := c.shadow[key]; dup {
			panic(c.dump(fmt.Sprintf("T[%d] = %s classified as new but stored before", rec.node.ID, rec.node)))
		}
		c.shadow[key] = struct{}{}
	}
	l[key] = rec
	c.stab[key] = stab
	if rec.fp != nil && c.known != nil {
		c.known.add(rec.fp.key())
	}
}

// erase removes a fully processed node from the current layer.
func (c *Controller) erase(rec *record) {
	key := rec.node.Key()
	delete(c.previous, key)
	delete(c.stab, key)
	if rec.fp != nil && c.known != nil {
		c.known.remove(rec.fp.key())
	}
}

// count updates the totals for a new class and emits it.
func (c *Controller) count(node *triang.Node, out Outcome) {
	if out.ReportedSize == 0 {
		return
	}
	c.symcount++
	c.totalcount += uint64(out.ReportedSize)
	c.emitTriang(node)
	c.hooks.OnClass(context.Background(), node.ID, out.ReportedSize)
	if c.opts.OnClass != nil {
		c.opts.OnClass(ClassInfo{
			ID:             node.ID,
			Representative: node,
			OrbitSize:      out.OrbitSize,
			ReportedSize:   out.ReportedSize,
			Stabilizer:     len(out.Stabilizer),
		})
	}
}

// Step drains the current layer, then makes the next layer current.
// It returns ctx.Err() between two nodes if ctx is done, leaving a state
// that can be checkpointed and resumed.
func (c *Controller) Step(ctx context.Context) error {
	start := time.Now()
	c.hooks.OnStepStart(ctx, c.step+1, len(c.previous))

	for _, rec := range c.previous.ordered() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.processFlips(rec)
		c.erase(rec)
		c.reportcount++
		if c.reportcount%uint64(c.opts.ProgressInterval) == 0 {
			c.reportProgress()
		}
	}

	if c.shadow != nil {
		for k := range c.previous {
			if _, ok := c.next[k]; ok {
				panic(c.dump("node stored in both layers"))
			}
		}
	}

	c.step++
	c.previous, c.next = c.next, make(layer)
	c.syncEnv()

	p := c.Progress()
	c.log.Debug("step complete",
		"step", c.step,
		"symcount", p.SymCount,
		"totalcount", p.TotalCount,
		"frontier", len(c.previous),
		"duration", time.Since(start))
	c.hooks.OnStepComplete(ctx, p, time.Since(start))

	if c.opts.CheckpointDir != "" && c.opts.CheckpointInterval > 0 && c.step%c.opts.CheckpointInterval == 0 {
		if _, err := c.SaveCheckpoint(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run alternates Step until the frontier is empty. If ctx is cancelled and
// checkpoints are enabled, the interrupted state is saved before Run
// returns ctx.Err().
func (c *Controller) Run(ctx context.Context) error {
	for len(c.previous) > 0 {
		if err := c.Step(ctx); err != nil {
			if ctx.Err() != nil && c.opts.CheckpointDir != "" {
				if path, cerr := c.SaveCheckpoint(context.WithoutCancel(ctx)); cerr == nil {
					c.log.Info("saved checkpoint after interrupt", "path", path)
				}
			}
			return err
		}
	}
	c.reportProgress()
	return nil
}

// Progress returns the current counters.
func (c *Controller) Progress() observability.Progress {
	return observability.Progress{
		RunID:       c.opts.RunID,
		Step:        c.step,
		SymCount:    c.symcount,
		TotalCount:  c.totalcount,
		ReportCount: c.reportcount,
		Stored:      c.Stored(),
		Flips:       c.flipcount,
	}
}

// SymCount returns the number of counted symmetry classes.
func (c *Controller) SymCount() uint64 { return c.symcount }

// TotalCount returns the number of counted triangulations.
func (c *Controller) TotalCount() uint64 { return c.totalcount }

// ReportCount returns the number of fully processed nodes.
func (c *Controller) ReportCount() uint64 { return c.reportcount }

// FlipCount returns the number of expanded flips.
func (c *Controller) FlipCount() uint64 { return c.flipcount }

// Stored returns the number of nodes in both layers.
func (c *Controller) Stored() int { return len(c.previous) + len(c.next) }

// Steps returns the number of completed BFS steps.
func (c *Controller) Steps() int { return c.step }

// WorkerStates returns the state of every pool worker, or nil without a pool.
func (c *Controller) WorkerStates() []WorkerState {
	if c.pool == nil {
		return nil
	}
	return c.pool.states()
}

// Stabilizer returns the cached stabilizer of a stored node.
func (c *Controller) Stabilizer(key string) ([]int, bool) {
	s, ok := c.stab[key]
	return s, ok
}

// IsMarked reports whether f is marked in the table of the stored node key.
func (c *Controller) IsMarked(key string, f triang.Flip) bool {
	rec := c.lookup(key)
	return rec != nil && rec.table.IsMarked(f)
}

// dump renders a diagnostic of the frontier for internal inconsistencies.
func (c *Controller) dump(msg string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "flipgraph: internal inconsistency: %s\n", msg)
	fmt.Fprintf(&b, "step %d, symcount %d, totalcount %d\n", c.step, c.symcount, c.totalcount)
	for _, l := range []struct {
		name string
		l    layer
	}{{"previous", c.previous}, {"next", c.next}} {
		fmt.Fprintf(&b, "%s (%d):\n", l.name, len(l.l))
		for _, rec := range l.l.ordered() {
			fmt.Fprintf(&b, "  T[%d] := %s; flips %d, stabilizer %v\n", rec.node.ID, rec.node, rec.table.Len(), c.stab[rec.node.Key()])
		}
	}
	return b.String()
}
