package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/triangs/pkg/cache"
	"github.com/matzehuels/triangs/pkg/catalog"
	"github.com/matzehuels/triangs/pkg/chirotope"
	"github.com/matzehuels/triangs/pkg/errors"
	"github.com/matzehuels/triangs/pkg/flipgraph"
	"github.com/matzehuels/triangs/pkg/observability"
	"github.com/matzehuels/triangs/pkg/pointconfig"
	"github.com/matzehuels/triangs/pkg/symmetry"
	"github.com/matzehuels/triangs/pkg/triang"
)

// Runner executes enumerations with a chirotope cache. It keeps no
// per-run state, so one Runner can serve several runs.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching and a nil keyer
// uses the default keyer.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// Loaded is a parsed problem ready for enumeration.
type Loaded struct {
	flipgraph.Problem
	ChirotopeHit  bool
	LoadTime      time.Duration
	ChirotopeTime time.Duration
}

// Load parses the input named by opts and derives its chirotope and
// symmetry group.
func (r *Runner) Load(ctx context.Context, opts Options) (*Loaded, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, opts.Input)
	start := time.Now()

	l, err := r.load(ctx, opts)
	if err != nil {
		hooks.OnLoadComplete(ctx, opts.Input, 0, 0, 0, time.Since(start), err)
		return nil, err
	}
	l.LoadTime = time.Since(start)
	hooks.OnLoadComplete(ctx, opts.Input, l.Points.No(), l.Points.Rank(), l.Group.Order(), l.LoadTime, nil)
	return l, nil
}

func (r *Runner) load(ctx context.Context, opts Options) (*Loaded, error) {
	name, in, closeIn, err := openInput(opts)
	if err != nil {
		return nil, err
	}
	defer closeIn()

	input, err := pointconfig.Parse(name, in, pointconfig.ParseOpts{Homogenize: opts.Homogenize})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read %s", name)
	}
	pc := input.Points

	chiroStart := time.Now()
	chiro, hit, err := r.chirotope(ctx, pc, opts.Refresh)
	if err != nil {
		return nil, err
	}
	chiroTime := time.Since(chiroStart)

	gens := input.Generators
	if opts.NoSymmetries {
		gens = nil
	}
	group, err := symmetry.NewGroup(pc.No(), gens)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "symmetry generators")
	}

	opts.Logger.Info("loaded problem",
		"points", pc.No(),
		"rank", pc.Rank(),
		"group", group.Order(),
		"chirotope_cached", hit,
		"chirotope_time", chiroTime)

	return &Loaded{
		Problem:       flipgraph.Problem{Points: pc, Chiro: chiro, Group: group},
		ChirotopeHit:  hit,
		ChirotopeTime: chiroTime,
	}, nil
}

func openInput(opts Options) (string, io.Reader, func(), error) {
	if opts.Input == "-" {
		if opts.Stdin == nil {
			return "", nil, nil, errors.New(errors.ErrCodeInvalidInput, "no standard input")
		}
		return "<stdin>", opts.Stdin, func() {}, nil
	}
	f, err := os.Open(opts.Input)
	if os.IsNotExist(err) {
		return "", nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "input %s", opts.Input)
	}
	if err != nil {
		return "", nil, nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", opts.Input)
	}
	return filepath.Base(opts.Input), f, func() { f.Close() }, nil
}

// chirotope returns the chirotope of pc from the cache or computes and
// stores it. Cache failures only cost the recomputation.
func (r *Runner) chirotope(ctx context.Context, pc *pointconfig.PointConfiguration, refresh bool) (*chirotope.Memo, bool, error) {
	key := r.Keyer.ChirotopeKey(pc.String(), pc.Rank())
	hooks := observability.Cache()

	if !refresh {
		data, hit, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			r.Logger.Warn("chirotope cache unavailable", "err", err)
		case hit:
			if m, err := chirotope.Parse(pc.No(), pc.Rank(), string(data)); err == nil {
				hooks.OnCacheHit(ctx, key)
				return m, true, nil
			}
			r.Logger.Warn("discarding corrupt cached chirotope", "key", key)
		}
		hooks.OnCacheMiss(ctx, key)
	}

	m, err := chirotope.Compute(pc)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeUnsupported, err, "compute chirotope")
	}
	data := []byte(m.String())
	if err := r.Cache.Set(ctx, key, data, TTLChirotope); err != nil {
		r.Logger.Warn("could not cache chirotope", "err", err)
	} else {
		hooks.OnCacheSet(ctx, key, len(data))
	}
	return m, false, nil
}

// Seed returns the start triangulation for a problem. With fine set the
// placing triangulation is refined until it uses every point.
func Seed(p flipgraph.Problem, fine bool) (*triang.Node, error) {
	n, err := triang.Seed(p.Chiro, p.Points.IndependentBasis())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "seed triangulation")
	}
	if fine {
		n, err = triang.Refine(p.Chiro, n)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeUnsupported, err, "refine seed")
		}
	}
	return n, nil
}

// Execute loads the problem and enumerates it. When ctx is cancelled the
// returned Result holds the partial counts together with ctx.Err().
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if opts.RunID == "" && opts.Resume != "" {
		opts.RunID = checkpointRunID(opts.Resume)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	logger := opts.Logger.With("run", opts.RunID[:min(8, len(opts.RunID))])
	opts.Logger = logger

	loaded, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:      opts.RunID,
		No:         loaded.Points.No(),
		Rank:       loaded.Points.Rank(),
		GroupOrder: loaded.Group.Order(),
		Stats: Stats{
			LoadTime:      loaded.LoadTime,
			ChirotopeTime: loaded.ChirotopeTime,
		},
		CacheInfo: CacheInfo{ChirotopeHit: loaded.ChirotopeHit},
	}

	copts := opts.controllerOptions()
	if opts.Catalog != "" {
		cat, err := catalog.Open(opts.Catalog)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "catalog")
		}
		defer cat.Close()
		copts.OnClass = cat.Sink(opts.RunID, func(err error) {
			logger.Warn("catalog write failed", "err", err)
		})
	}

	ctl, err := flipgraph.New(loaded.Problem, copts)
	if err != nil {
		return nil, err
	}
	defer ctl.Close()

	if opts.Resume != "" {
		if err := ctl.Resume(opts.Resume); err != nil {
			return nil, err
		}
		logger.Info("resuming", "checkpoint", opts.Resume, "step", ctl.Steps())
	} else {
		seed, err := Seed(loaded.Problem, opts.FineOnly)
		if err != nil {
			return nil, err
		}
		if err := ctl.Seed(seed); err != nil {
			return nil, err
		}
	}

	hooks := observability.Pipeline()
	hooks.OnEnumerateStart(ctx, opts.RunID)
	start := time.Now()
	runErr := ctl.Run(ctx)
	res.Stats.EnumerateTime = time.Since(start)
	hooks.OnEnumerateComplete(ctx, ctl.Progress(), res.Stats.EnumerateTime, runErr)

	res.SymCount = ctl.SymCount()
	res.TotalCount = ctl.TotalCount()
	res.Processed = ctl.ReportCount()
	res.Flips = ctl.FlipCount()
	res.Steps = ctl.Steps()
	if runErr != nil {
		if ctx.Err() == nil {
			return nil, runErr
		}
		res.Interrupted = true
		if opts.CheckpointDir != "" {
			res.Checkpoint = latestCheckpoint(opts.CheckpointDir)
		}
		return res, runErr
	}

	logger.Info("enumeration complete",
		"symcount", res.SymCount,
		"totalcount", res.TotalCount,
		"steps", res.Steps,
		"duration", res.Stats.EnumerateTime)
	return res, nil
}

// checkpointRunID returns the run id stored in the checkpoint at path, or ""
// if it cannot be read. Resume reports unreadable checkpoints.
func checkpointRunID(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	cp, err := flipgraph.ReadCheckpoint(f, nil)
	if err != nil {
		return ""
	}
	return cp.RunID
}

// latestCheckpoint returns the most recently written checkpoint file in dir.
func latestCheckpoint(dir string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, "checkpoint.*.dat"))
	var best string
	var bestTime time.Time
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.ModTime().After(bestTime) {
			best, bestTime = m, fi.ModTime()
		}
	}
	return best
}
