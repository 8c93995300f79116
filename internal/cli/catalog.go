package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/triangs/pkg/catalog"
	"github.com/matzehuels/triangs/pkg/errors"
)

// catalogCommand creates the catalog inspection command.
func (c *CLI) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect symmetry classes stored with --catalog",
	}

	cmd.AddCommand(c.catalogListCommand())
	cmd.AddCommand(c.catalogShowCommand())

	return cmd
}

// catalogListCommand creates the "catalog list" subcommand.
func (c *CLI) catalogListCommand() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "list <dir>",
		Short: "List the stored classes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog := newProgress(c.Logger)
			cat, err := catalog.Open(args[0])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "catalog")
			}
			defer cat.Close()

			recs, err := cat.List(runID)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Loaded %d classes", len(recs)))

			w := cmd.OutOrStdout()
			if len(recs) == 0 {
				printInfo(w, "Catalog is empty")
				return nil
			}
			rows := make([][]string, len(recs))
			total := 0
			for i, r := range recs {
				rows[i] = []string{
					r.RunID,
					strconv.Itoa(r.ID),
					strconv.Itoa(len(r.Simplices)),
					strconv.Itoa(r.OrbitSize),
					strconv.Itoa(r.ReportedSize),
					strconv.Itoa(r.Stabilizer + 1),
				}
				total += r.ReportedSize
			}
			printTable(w, []string{"RUN", "ID", "SIMPLICES", "ORBIT", "REPORTED", "STABILIZER"}, rows)
			printDetail(w, "%d classes, %d triangulations", len(recs), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "only list classes of this run")
	return cmd
}

// catalogShowCommand creates the "catalog show" subcommand.
func (c *CLI) catalogShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <dir> <run> <id>",
		Short: "Print the representative of one class",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[2])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "class id %q", args[2])
			}
			cat, err := catalog.Open(args[0])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "catalog")
			}
			defer cat.Close()

			rec, err := cat.Get(args[1], id)
			if err == catalog.ErrNotFound {
				return errors.New(errors.ErrCodeNotFound, "class %d of run %s not found", id, args[1])
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printKeyValue(w, "run", rec.RunID)
			printKeyValue(w, "id", strconv.Itoa(rec.ID))
			printKeyValue(w, "orbit", strconv.Itoa(rec.OrbitSize))
			printKeyValue(w, "reported", strconv.Itoa(rec.ReportedSize))
			printKeyValue(w, "stabilizer", strconv.Itoa(rec.Stabilizer+1))
			fmt.Fprintf(w, "T[%d] := %s;\n", rec.ID, formatSimplices(rec.Simplices))
			return nil
		},
	}
}

// formatSimplices renders simplices as {{0,1,2},{1,2,3}}.
func formatSimplices(ss [][]int) string {
	b := []byte{'{'}
	for i, s := range ss {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '{')
		for j, v := range s {
			if j > 0 {
				b = append(b, ',')
			}
			b = strconv.AppendInt(b, int64(v), 10)
		}
		b = append(b, '}')
	}
	return string(append(b, '}'))
}
