package main

import (
	"fmt"

	"github.com/hupe1980/radbase"
	"github.com/hupe1980/radbase/scaler"
	"github.com/spf13/cobra"
)

func newScalerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scaler",
		Short: "Feature standardization artifacts",
	}

	var (
		out      string
		features []string
	)

	fit := &cobra.Command{
		Use:   "fit <dataset>",
		Short: "Fit per-feature mean and scale and write them as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := radbase.Load(args[0])
			if err != nil {
				return err
			}

			s, err := scaler.Fit(m, features...)
			if err != nil {
				return err
			}
			if err := s.Save(out); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d features from %d rows\n", out, len(s.Features), m.Rows)
			return nil
		},
	}
	fit.Flags().StringVarP(&out, "out", "o", "scaler.yaml", "scaler file to write")
	fit.Flags().StringSliceVar(&features, "features", nil, "columns to fit (default TWALL,T,LENGTH,PRESSURE,XCO2,XH2O,XCO)")

	cmd.AddCommand(fit)
	return cmd
}
