package cli

import (
	"context"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/triangs/pkg/errors"
	"github.com/matzehuels/triangs/pkg/flipgraph"
	"github.com/matzehuels/triangs/pkg/observability"
	"github.com/matzehuels/triangs/pkg/pipeline"
	"github.com/matzehuels/triangs/pkg/status"
)

// enumerateCommand creates the enumerate command.
func (c *CLI) enumerateCommand() *cobra.Command {
	var (
		opts       pipeline.Options
		cf         cacheFlags
		configPath string
		statusAddr string
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "enumerate <input>",
		Short: "Enumerate the triangulations of a point configuration",
		Long: `Enumerate all triangulations of a point configuration up to symmetry.

The input file holds the points as a list of integer coordinate rows and,
optionally, a second list of symmetry generators given as permutations:

  [[0,0],[2,0],[2,2],[0,2],[1,1]]
  [[1,2,3,0,4],[1,0,3,2,4]]

Use "-" to read the input from stdin. Triangulations and flips are written
to stdout; logs, progress lines and the summary go to stderr.`,
		Example: `  # Count triangulations of an affine point set
  triangs enumerate --homogenize hexagon.dat

  # Only fine triangulations, eight workers, checkpoint every 10 steps
  triangs enumerate -j 8 --fine --checkpoint-dir ckpt --checkpoint-interval 10 cube.dat

  # Continue an interrupted run
  triangs enumerate --resume ckpt/checkpoint.1.dat cube.dat`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if err := loadConfig(cmd.Flags(), configPath, &opts); err != nil {
					return err
				}
			}
			opts.Input = args[0]
			return c.runEnumerate(cmd, opts, cf, statusAddr, quiet)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "TOML file with default options (flags take precedence)")
	f.BoolVar(&opts.Homogenize, "homogenize", false, "append a homogenizing coordinate to every point")
	f.BoolVar(&opts.Refresh, "refresh", false, "recompute the chirotope even if cached")
	f.BoolVar(&opts.NoSymmetries, "no-symmetries", false, "ignore the symmetry generators of the input")
	f.IntVarP(&opts.Threads, "threads", "j", flipgraph.DefaultThreads, "worker threads for symmetry scans")
	f.BoolVar(&opts.Fingerprint, "fingerprint", false, "prefilter equivalence checks by volume fingerprint")
	f.BoolVar(&opts.SimplexIndex, "simpidx", false, "index simplices as bitsets for faster lookups")
	f.BoolVar(&opts.EarlyAbort, "early-abort", false, "stop scanning at the first equivalent element (nondeterministic with -j)")
	f.BoolVar(&opts.FineOnly, "fine", false, "restrict the search to fine triangulations")
	f.BoolVar(&opts.ForbidVertexRemoval, "forbid-vertex-removal", false, "skip flips that remove a vertex")
	f.BoolVar(&opts.Balanced, "balanced", false, "skip flips that change the number of simplices")
	f.StringVar(&opts.Filter, "filter", pipeline.FilterAll, "count only triangulations that are: all, fine, unimodular")
	f.StringVar(&opts.CheckpointDir, "checkpoint-dir", "", "write checkpoints into this directory")
	f.IntVar(&opts.CheckpointInterval, "checkpoint-interval", 0, "checkpoint every N steps (0 only on interrupt)")
	f.IntVar(&opts.CheckpointFiles, "checkpoint-files", flipgraph.DefaultCheckpointFiles, "number of rotating checkpoint files")
	f.StringVar(&opts.Resume, "resume", "", "resume from a checkpoint file")
	f.IntVar(&opts.ProgressInterval, "progress-interval", 0, "report progress every N processed nodes")
	f.BoolVarP(&opts.OutputTriangs, "output-triangs", "t", false, "print a representative of every class")
	f.BoolVar(&opts.OutputFlips, "output-flips", false, "print every flip of the symmetry-reduced flip graph")
	f.StringVar(&opts.Catalog, "catalog", "", "store every class in this catalog directory")
	f.StringVar(&opts.RunID, "run-id", "", "run identifier (default: random UUID)")
	f.BoolVar(&opts.Debug, "debug", false, "check internal invariants after every step")
	f.BoolVar(&cf.noCache, "no-cache", false, "disable the chirotope cache")
	f.StringVar(&cf.redisAddr, "redis-addr", "", "cache chirotopes in Redis at this address")
	f.StringVar(&cf.redisPrefix, "redis-prefix", defaultRedisPrefix, "key prefix for the Redis cache")
	f.StringVar(&statusAddr, "status-addr", "", "serve run status over HTTP on this address")
	f.BoolVarP(&quiet, "quiet", "q", false, "suppress progress lines")

	return cmd
}

// loadConfig decodes a TOML file into opts. Flags set on the command line
// are re-applied afterwards so they override the file.
func loadConfig(flags *pflag.FlagSet, path string, opts *pipeline.Options) error {
	explicit := make(map[string]string)
	flags.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	md, err := toml.DecodeFile(path, opts)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "config %s: unknown key %q", path, undecoded[0].String())
	}

	for name, value := range explicit {
		if err := flags.Set(name, value); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "flag --%s", name)
		}
	}
	return nil
}

func (c *CLI) runEnumerate(cmd *cobra.Command, opts pipeline.Options, cf cacheFlags, statusAddr string, quiet bool) error {
	ctx := cmd.Context()

	runner, err := c.newRunner(ctx, cf)
	if err != nil {
		return err
	}
	defer runner.Close()

	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	opts.Logger = c.Logger
	opts.Stdin = cmd.InOrStdin()
	opts.TriangWriter = cmd.OutOrStdout()
	opts.ProgressWriter = cmd.ErrOrStderr()
	if quiet {
		opts.ProgressWriter = io.Discard
	}

	if statusAddr != "" {
		srv := status.New(opts.RunID)
		opts.Hooks = observability.MultiEnumerationHooks{srv, observability.Enumeration()}

		srvCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := srv.ListenAndServe(srvCtx, statusAddr); err != nil {
				c.Logger.Warn("status server stopped", "addr", statusAddr, "err", err)
			}
		}()
		c.Logger.Info("serving status", "addr", statusAddr)
	}

	res, err := runner.Execute(ctx, opts)
	if res != nil {
		printSummary(cmd.ErrOrStderr(), res)
	}
	return err
}
