// Package pipeline runs a complete enumeration: it reads a problem file,
// derives the chirotope (through the cache), closes the symmetry group,
// seeds the flip graph and drives the controller to completion.
//
// The CLI is a thin layer over this package:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Input:       "cube.dat",
//	    Threads:     8,
//	    Fingerprint: true,
//	})
//	fmt.Println(res.SymCount, res.TotalCount)
package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/triangs/pkg/errors"
	"github.com/matzehuels/triangs/pkg/flipgraph"
	"github.com/matzehuels/triangs/pkg/observability"
	"github.com/matzehuels/triangs/pkg/predicate"
	"github.com/matzehuels/triangs/pkg/triang"
)

// TTLChirotope is how long derived chirotopes stay cached.
const TTLChirotope = 30 * 24 * time.Hour

// Output filters accepted by Options.Filter.
const (
	FilterAll        = "all"
	FilterFine       = "fine"
	FilterUnimodular = "unimodular"
)

var filters = map[string]func() predicate.Predicate{
	FilterAll:        predicate.All,
	FilterFine:       predicate.Fine,
	FilterUnimodular: func() predicate.Predicate { return predicate.Unimodular(true) },
}

// ValidateFilter checks that name is a known output filter.
func ValidateFilter(name string) error {
	if _, ok := filters[name]; !ok {
		names := make([]string, 0, len(filters))
		for n := range filters {
			names = append(names, n)
		}
		sort.Strings(names)
		return errors.New(errors.ErrCodeInvalidInput, "invalid filter %q (must be one of: %s)", name, strings.Join(names, ", "))
	}
	return nil
}

// Options configures one enumeration run.
type Options struct {
	// Input is the problem file path; "-" reads Stdin.
	Input      string    `toml:"-"`
	Stdin      io.Reader `toml:"-"`
	Homogenize bool      `toml:"homogenize"`
	// Refresh recomputes the chirotope even when it is cached.
	Refresh bool `toml:"refresh"`
	// NoSymmetries ignores the generators in the input.
	NoSymmetries bool `toml:"no_symmetries"`

	Threads      int  `toml:"threads"`
	Fingerprint  bool `toml:"fingerprint"`
	SimplexIndex bool `toml:"simpidx"`
	EarlyAbort   bool `toml:"early_abort"`

	// FineOnly restricts the search to fine triangulations. The seed is
	// refined first and flips removing a vertex are skipped.
	FineOnly            bool   `toml:"fine_only"`
	ForbidVertexRemoval bool   `toml:"forbid_vertex_removal"`
	Balanced            bool   `toml:"balanced"` // keep the number of simplices fixed
	Filter              string `toml:"filter"`

	CheckpointDir      string `toml:"checkpoint_dir"`
	CheckpointInterval int    `toml:"checkpoint_interval"`
	CheckpointFiles    int    `toml:"checkpoint_files"`
	Resume             string `toml:"-"`
	ProgressInterval   int    `toml:"progress_interval"`

	OutputTriangs  bool      `toml:"output_triangs"`
	OutputFlips    bool      `toml:"output_flips"`
	TriangWriter   io.Writer `toml:"-"`
	ProgressWriter io.Writer `toml:"-"`

	// Catalog is a badger directory receiving every counted class.
	Catalog string `toml:"catalog"`

	RunID  string                         `toml:"-"`
	Debug  bool                           `toml:"debug"`
	Logger *log.Logger                    `toml:"-"`
	Hooks  observability.EnumerationHooks `toml:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the options and applies defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input is required")
	}
	if o.Input != "-" {
		if err := errors.ValidatePath(o.Input); err != nil {
			return err
		}
	}
	if o.Resume != "" {
		if err := errors.ValidatePath(o.Resume); err != nil {
			return err
		}
	}
	if o.Filter == "" {
		o.Filter = FilterAll
	}
	if err := ValidateFilter(o.Filter); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// controllerOptions maps o onto the enumeration engine.
func (o *Options) controllerOptions() flipgraph.Options {
	search := predicate.All()
	if o.FineOnly {
		search = predicate.Fine()
	}
	return flipgraph.Options{
		Threads:            o.Threads,
		Fingerprint:        o.Fingerprint,
		SimplexIndex:       o.SimplexIndex,
		EarlyAbort:         o.EarlyAbort,
		Search:             search,
		Output:             filters[o.Filter](),
		Policy: triang.Policy{
			ForbidVertexRemoval: o.ForbidVertexRemoval || o.FineOnly,
			ForbidCardChange:    o.Balanced,
		},
		CheckpointDir:      o.CheckpointDir,
		CheckpointInterval: o.CheckpointInterval,
		CheckpointFiles:    o.CheckpointFiles,
		ProgressInterval:   o.ProgressInterval,
		OutputTriangs:      o.OutputTriangs,
		OutputFlips:        o.OutputFlips,
		TriangWriter:       o.TriangWriter,
		ProgressWriter:     o.ProgressWriter,
		Debug:              o.Debug,
		RunID:              o.RunID,
		Logger:             o.Logger,
		Hooks:              o.Hooks,
	}
}

// Result summarizes a run. On interruption it holds the counts reached so
// far.
type Result struct {
	RunID      string
	No         int
	Rank       int
	GroupOrder int

	SymCount    uint64
	TotalCount  uint64
	Processed   uint64
	Flips       uint64
	Steps       int
	Checkpoint  string // last checkpoint written, if any
	Interrupted bool

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds stage timings.
type Stats struct {
	LoadTime      time.Duration
	ChirotopeTime time.Duration
	EnumerateTime time.Duration
}

// CacheInfo tracks cache hits per stage.
type CacheInfo struct {
	ChirotopeHit bool
}

// String renders the counts in one line.
func (r *Result) String() string {
	return fmt.Sprintf("%d symmetry classes, %d triangulations", r.SymCount, r.TotalCount)
}
