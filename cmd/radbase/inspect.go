package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/hupe1980/radbase"
	"github.com/hupe1980/radbase/scenario"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <dataset>",
		Short: "List the tables of a dataset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := radbase.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "TABLE\tROWS\tCOLS\tCOMPRESSION\tZERO ROWS")
			for _, ti := range f.Tables() {
				m, err := f.Table(ti.Path)
				if err != nil {
					return err
				}

				// Zero-composition rows are zero-filled failures.
				zero := "-"
				if ti.Cols == scenario.RowWidth {
					_, n := m.FilterZeroComposition()
					zero = strconv.Itoa(n)
				}

				_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", ti.Path, ti.Rows, ti.Cols, ti.Compression, zero)
			}
			return tw.Flush()
		},
	}
}
