package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kotoba-lab/tessa/pkg/report"
)

func newExtractFailuresCmd() *cobra.Command {
	var (
		globs     []string
		output    string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "extract-failures",
		Short: "Extract records that failed or scored below a threshold",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, closeOut, err := outputWriter(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeOut()

			count, err := report.ExtractFailures(globs, threshold, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "extracted %d records\n", count)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&globs, "runs", nil, "run file glob, repeatable (supports **)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output JSONL file (default stdout)")
	cmd.Flags().Float64Var(&threshold, "threshold", report.DefaultFailureThreshold, "overall score below which a record is extracted")
	_ = cmd.MarkFlagRequired("runs")

	return cmd
}
