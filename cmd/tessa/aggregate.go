package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kotoba-lab/tessa/pkg/report"
)

func newAggregateCmd() *cobra.Command {
	var (
		globs  []string
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate run files into per-(run, condition) summary rows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "csv" {
				return fmt.Errorf("unknown format %q (expected json or csv)", format)
			}

			rows, err := report.Aggregate(globs)
			if err != nil {
				return err
			}

			w, closeOut, err := outputWriter(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeOut()

			if format == "csv" {
				return report.WriteCSV(w, rows)
			}
			return report.WriteJSON(w, rows)
		},
	}

	cmd.Flags().StringSliceVar(&globs, "runs", nil, "run file glob, repeatable (supports **)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or csv")
	_ = cmd.MarkFlagRequired("runs")

	return cmd
}

// outputWriter opens the output file, or passes stdout through when path
// is empty.
func outputWriter(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
