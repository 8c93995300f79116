package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/triangs/pkg/errors"
	"github.com/matzehuels/triangs/pkg/flipgraph"
)

// checkpointCommand creates the checkpoint inspection command.
func (c *CLI) checkpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect checkpoint files",
	}
	cmd.AddCommand(c.checkpointInspectCommand())
	return cmd
}

// checkpointInspectCommand creates the "checkpoint inspect" subcommand.
func (c *CLI) checkpointInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the counters and layer sizes of a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if os.IsNotExist(err) {
				return errors.Wrap(errors.ErrCodeFileNotFound, err, "checkpoint %s", args[0])
			}
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", args[0])
			}
			defer f.Close()

			cp, err := flipgraph.ReadCheckpoint(f, nil)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, StyleTitle.Render(args[0]))
			if cp.RunID != "" {
				printKeyValue(w, "run", cp.RunID)
			}
			printKeyValue(w, "points", fmt.Sprintf("%d in rank %d", cp.No, cp.Rank))
			printKeyValue(w, "step", strconv.Itoa(cp.Step))
			printKeyValue(w, "previous", strconv.Itoa(len(cp.Previous)))
			printKeyValue(w, "new", strconv.Itoa(len(cp.New)))
			printKeyValue(w, "symcount", strconv.FormatUint(cp.SymCount, 10))
			printKeyValue(w, "totalcount", strconv.FormatUint(cp.TotalCount, 10))
			printKeyValue(w, "processed", strconv.FormatUint(cp.ReportCount, 10))
			printKeyValue(w, "flips", strconv.FormatUint(cp.FlipCount, 10))
			if cp.Symmetries != "" && cp.Symmetries != "[]" {
				printDetail(w, "symmetries: %s", clip(cp.Symmetries, 72))
			}
			return nil
		},
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
