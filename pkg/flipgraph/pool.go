package flipgraph

import (
	"sync"
	"sync/atomic"

	"github.com/matzehuels/triangs/pkg/triang"
)

// WorkerState is the lifecycle state of a pool worker.
type WorkerState int32

const (
	Idle WorkerState = iota
	HiredForClassify
	HiredForBuildOrbit
	Done
	Stopped
)

func (s WorkerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case HiredForClassify:
		return "classify"
	case HiredForBuildOrbit:
		return "build-orbit"
	case Done:
		return "done"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

type jobKind int

const (
	classifyJob jobKind = iota
	orbitJobKind
)

// poolJob is sent to one worker. The node is shared read-only.
type poolJob struct {
	kind  jobKind
	node  *triang.Node
	fp    fingerprint
	orbit orbitJob
}

// poolResult is sent back by a worker when it has finished its shard.
type poolResult struct {
	worker int
	hit    hit
	part   orbitPart
}

// worker owns a static shard of group elements and its own simplex tables.
type worker struct {
	id     int
	shard  []int
	mapper mapperFunc
	jobs   chan poolJob
	state  atomic.Int32
}

// pool is a fixed set of workers, each with a private job channel and a
// shared result channel. Jobs are fanned out to every worker at once and
// the caller blocks until all of them have reported.
type pool struct {
	env        *scanEnv
	workers    []*worker
	results    chan poolResult
	stop       atomic.Bool
	earlyAbort bool
	wg         sync.WaitGroup
}

// newPool starts min(threads, |G|) workers over round-robin shards.
func newPool(env *scanEnv, threads int, simpidx, earlyAbort bool) *pool {
	shards := env.group.Shards(threads)
	p := &pool{
		env:        env,
		results:    make(chan poolResult, len(shards)),
		earlyAbort: earlyAbort,
	}
	for i, shard := range shards {
		w := &worker{
			id:     i,
			shard:  shard,
			mapper: newMapperFunc(env.group, simpidx),
			jobs:   make(chan poolJob),
		}
		p.workers = append(p.workers, w)
		p.wg.Add(1)
		go p.run(w)
	}
	return p
}

func (p *pool) run(w *worker) {
	defer p.wg.Done()
	for job := range w.jobs {
		var res poolResult
		res.worker = w.id
		switch job.kind {
		case classifyJob:
			var stop *atomic.Bool
			if p.earlyAbort {
				stop = &p.stop
			}
			res.hit = p.env.findEquivalent(job.node, job.fp, w.shard, w.mapper, stop)
		case orbitJobKind:
			res.part = p.env.buildOrbit(job.orbit, w.shard, w.mapper)
		}
		w.state.Store(int32(Done))
		p.results <- res
	}
	w.state.Store(int32(Stopped))
}

// hire sends job to every worker and waits for all results.
func (p *pool) hire(job poolJob) []poolResult {
	state := HiredForClassify
	if job.kind == orbitJobKind {
		state = HiredForBuildOrbit
	}
	p.stop.Store(false)
	for _, w := range p.workers {
		w.state.Store(int32(state))
		w.jobs <- job
	}
	out := make([]poolResult, 0, len(p.workers))
	for range p.workers {
		out = append(out, <-p.results)
	}
	for _, w := range p.workers {
		w.state.Store(int32(Idle))
	}
	return out
}

func (p *pool) findEquivalent(node *triang.Node, fp fingerprint) hit {
	var best hit
	for _, r := range p.hire(poolJob{kind: classifyJob, node: node, fp: fp}) {
		if r.hit.better(best) {
			best = r.hit
		}
	}
	return best
}

func (p *pool) buildOrbit(job orbitJob) orbitPart {
	part := newOrbitPart()
	for _, r := range p.hire(poolJob{kind: orbitJobKind, node: job.node, orbit: job}) {
		part.merge(r.part)
	}
	return part
}

// close stops every worker and waits for them to exit.
func (p *pool) close() {
	for _, w := range p.workers {
		close(w.jobs)
	}
	p.wg.Wait()
}

// states returns the current state of every worker.
func (p *pool) states() []WorkerState {
	out := make([]WorkerState, len(p.workers))
	for i, w := range p.workers {
		out[i] = WorkerState(w.state.Load())
	}
	return out
}
