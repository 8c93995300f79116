package flipgraph

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/triangs/pkg/errors"
	"github.com/matzehuels/triangs/pkg/observability"
	"github.com/matzehuels/triangs/pkg/predicate"
	"github.com/matzehuels/triangs/pkg/triang"
)

// Default option values.
const (
	DefaultThreads          = 1
	DefaultCheckpointFiles  = 2
	DefaultProgressInterval = 10000
)

// Options configures a Controller. The zero value enumerates all
// triangulations serially without output.
type Options struct {
	// Threads is the maximum number of pool workers. Values below 2 classify
	// inline.
	Threads int

	// Fingerprint enables the GKZ pre-filter. It is only sound when every
	// symmetry preserves simplex volumes.
	Fingerprint bool

	// SimplexIndex maps simplices through memoized per-element tables.
	SimplexIndex bool

	// EarlyAbort lets pool workers stop scanning their shard once another
	// worker has found an equivalent node.
	EarlyAbort bool

	// Search restricts the explored classes; Output restricts the counted
	// ones. Both default to predicate.All.
	Search predicate.Predicate
	Output predicate.Predicate

	// Policy filters the flips used to move between triangulations.
	Policy triang.Policy

	// CheckpointDir enables checkpoints every CheckpointInterval steps,
	// rotating over CheckpointFiles files.
	CheckpointDir      string
	CheckpointInterval int
	CheckpointFiles    int

	// ProgressInterval is the number of processed nodes between progress
	// reports.
	ProgressInterval int

	// OutputTriangs writes one "T[id] := ...;" line per counted class and
	// OutputFlips one "flip[k] := {src,dst};" line per expanded edge.
	OutputTriangs  bool
	OutputFlips    bool
	TriangWriter   io.Writer
	ProgressWriter io.Writer

	// Debug keeps a shadow table of every stored class and panics when a
	// class classified as new was stored before.
	Debug bool

	// RunID is written to checkpoints and status snapshots.
	RunID string

	Logger *log.Logger
	Hooks  observability.EnumerationHooks

	// OnClass is called for every counted class with its representative.
	OnClass func(ClassInfo)
}

// ClassInfo describes a newly counted symmetry class.
type ClassInfo struct {
	ID             int
	Representative *triang.Node
	OrbitSize      int
	ReportedSize   int
	Stabilizer     int // non-identity elements fixing the representative
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Threads == 0 {
		o.Threads = DefaultThreads
	}
	if err := errors.ValidatePositive("threads", o.Threads); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("checkpoint interval", o.CheckpointInterval); err != nil {
		return err
	}
	if o.CheckpointFiles == 0 {
		o.CheckpointFiles = DefaultCheckpointFiles
	}
	if err := errors.ValidatePositive("checkpoint files", o.CheckpointFiles); err != nil {
		return err
	}
	if o.CheckpointDir != "" {
		if err := errors.ValidatePath(o.CheckpointDir); err != nil {
			return err
		}
	}
	if o.ProgressInterval == 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	if err := errors.ValidatePositive("progress interval", o.ProgressInterval); err != nil {
		return err
	}
	if o.Search.Eval == nil {
		o.Search = predicate.All()
	}
	if o.Output.Eval == nil {
		o.Output = predicate.All()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Hooks == nil {
		o.Hooks = observability.Enumeration()
	}
	return nil
}

// bothInvariant reports whether the closed-form orbit size applies.
func (o *Options) bothInvariant() bool {
	return o.Search.Invariant && o.Output.Invariant
}
